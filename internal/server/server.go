// Package server exposes reports, charges, invoices and tracker series over
// HTTP, with change notifications on a websocket.
package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/energimultiguna/cngops/internal/charges"
	"github.com/energimultiguna/cngops/internal/ingest"
	"github.com/energimultiguna/cngops/internal/invoice"
	"github.com/energimultiguna/cngops/internal/tracker"
	"github.com/energimultiguna/cngops/pkg/models"
)

const (
	shutdownTimeout = 5 * time.Second
	maxReportBytes  = 64 << 10
)

// Store is the read side of the database used by the API
type Store interface {
	GetCustomer(ctx context.Context, customerID string) (*models.Customer, error)
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	ListDeliveries(ctx context.Context) ([]models.DeliveryReading, error)
	ListRestocks(ctx context.Context) ([]models.RestockEvent, error)
	ListPlates(ctx context.Context) ([]string, error)
}

// Submitter ingests free-text reports
type Submitter interface {
	SubmitDelivery(ctx context.Context, text string) (ingest.Result, error)
	SubmitRestock(ctx context.Context, text string) (ingest.Result, error)
}

// Deps wires the server to the rest of the application
type Deps struct {
	Store      Store
	Submitter  Submitter
	Aggregator *charges.Aggregator
	Reconciler *tracker.Reconciler
	Hub        *Hub
	Invoice    invoice.Layout
	DueDays    int
	Logger     *zap.Logger
}

// Server is the HTTP API
type Server struct {
	Deps
	mux *http.ServeMux
}

// New creates a server and registers its routes
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Hub == nil {
		deps.Hub = NewHub(deps.Logger)
	}
	s := &Server{Deps: deps, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := r.Header.Get("X-Request-Id")
	if reqID == "" {
		reqID = uuid.NewString()
	}

	w.Header().Set("X-Request-Id", reqID)
	rr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		if rec := recover(); rec != nil {
			rr.status = http.StatusInternalServerError
			if !rr.wroteHeader {
				writeAPIError(rr, http.StatusInternalServerError, "internal_error", "internal error")
			}
			s.Logger.Error("panic handling request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", reqID),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()))
		}

		dur := time.Since(start)
		observeHTTPRequest(r, rr.status, dur)

		if r.URL.Path != "/healthz" && r.URL.Path != "/metrics" {
			s.Logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rr.status),
				zap.Duration("duration", dur),
				zap.String("request_id", reqID))
		}
	}()

	s.mux.ServeHTTP(rr, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	h := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.Logger.Info("HTTP listening", zap.String("addr", ln.Addr().String()))

	go func() {
		<-ctx.Done()
		s.Logger.Info("shutting down HTTP")
		s.Hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = h.Shutdown(shutdownCtx)
	}()

	if err := h.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(p)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack hands the connection to the websocket upgrader
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	r.wroteHeader = true
	return h.Hijack()
}

func isAPI(path string) bool {
	return strings.HasPrefix(path, "/api")
}
