package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/energimultiguna/cngops/internal/charges"
	"github.com/energimultiguna/cngops/internal/database"
	"github.com/energimultiguna/cngops/internal/ingest"
	"github.com/energimultiguna/cngops/internal/invoice"
	"github.com/energimultiguna/cngops/internal/report"
	"github.com/energimultiguna/cngops/internal/tracker"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// errBadRequest marks caller input errors found at the HTTP boundary
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/deliveries", s.handleSubmitDelivery)
	s.mux.HandleFunc("GET /api/deliveries", s.handleListDeliveries)
	s.mux.HandleFunc("POST /api/restocks", s.handleSubmitRestock)
	s.mux.HandleFunc("GET /api/restocks", s.handleListRestocks)
	s.mux.HandleFunc("GET /api/customers", s.handleListCustomers)
	s.mux.HandleFunc("GET /api/plates", s.handleListPlates)
	s.mux.HandleFunc("GET /api/charges", s.handleCharges)
	s.mux.HandleFunc("GET /api/invoice.xlsx", s.handleInvoice)
	s.mux.HandleFunc("GET /api/tracker/{plate}", s.handleTracker)
	s.mux.HandleFunc("GET /api/tracker/{plate}/chart", s.handleTrackerChart)
	s.mux.HandleFunc("GET /api/export/{file}", s.handleExport)
	s.mux.HandleFunc("GET /ws", s.Hub.HandleWS)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("/", s.handleNotFound)
}

func (s *Server) handleSubmitDelivery(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, s.Submitter.SubmitDelivery)
}

func (s *Server) handleSubmitRestock(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, s.Submitter.SubmitRestock)
}

// submit takes the raw report text as the request body
func (s *Server) submit(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (ingest.Result, error)) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxReportBytes))
	if err != nil {
		writeAPIError(w, http.StatusRequestEntityTooLarge, "too_large", "report body too large")
		return
	}
	res, err := fn(r.Context(), string(body))
	if err != nil {
		s.writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Store.ListDeliveries(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]deliveryJSON, 0, len(rows))
	for _, d := range rows {
		out = append(out, toDeliveryJSON(d))
	}
	_ = writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListRestocks(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Store.ListRestocks(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]restockJSON, 0, len(rows))
	for _, rs := range rows {
		out = append(out, toRestockJSON(rs))
	}
	_ = writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Store.ListCustomers(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]customerJSON, 0, len(rows))
	for _, c := range rows {
		out = append(out, toCustomerJSON(c))
	}
	_ = writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListPlates(w http.ResponseWriter, r *http.Request) {
	plates, err := s.Store.ListPlates(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if plates == nil {
		plates = []string{}
	}
	_ = writeJSON(w, http.StatusOK, plates)
}

// chargeQuery is the common query of charge, invoice and ledger export requests
type chargeQuery struct {
	customerID    string
	start, end    time.Time
	volumeBalance float64
}

func parseChargeQuery(r *http.Request) (chargeQuery, error) {
	q := r.URL.Query()
	cq := chargeQuery{customerID: strings.TrimSpace(q.Get("customer_id"))}
	if cq.customerID == "" {
		return cq, badRequest("customer_id is required")
	}
	start, end, err := charges.ParseRange(q.Get("start"), q.Get("end"))
	if err != nil {
		return cq, badRequest("%v", err)
	}
	cq.start, cq.end = start, end
	cq.volumeBalance, err = charges.ParseVolumeBalance(q.Get("volume_balance"))
	if err != nil {
		return cq, badRequest("%v", err)
	}
	return cq, nil
}

func (s *Server) handleCharges(w http.ResponseWriter, r *http.Request) {
	cq, err := parseChargeQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	summary, err := s.Aggregator.Generate(r.Context(), cq.customerID, cq.start, cq.end, cq.volumeBalance)
	if err != nil {
		s.writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, toChargeSummaryJSON(summary))
}

func (s *Server) handleInvoice(w http.ResponseWriter, r *http.Request) {
	cq, err := parseChargeQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ctx := r.Context()

	summary, err := s.Aggregator.Generate(ctx, cq.customerID, cq.start, cq.end, cq.volumeBalance)
	if err != nil {
		s.writeError(w, err)
		return
	}
	customer, err := s.Store.GetCustomer(ctx, cq.customerID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	q := r.URL.Query()
	data, err := invoice.Build(customer, summary, invoice.Request{
		InvoiceNumber: q.Get("invoice_number"),
		Period:        q.Get("period"),
		Address:       q.Get("address"),
	}, s.DueDays)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := invoice.WriteWorkbook(&buf, data, s.Invoice); err != nil {
		s.writeError(w, err)
		return
	}
	writeAttachment(w, xlsxContentType, fmt.Sprintf("invoice_%s.xlsx", cq.customerID), buf.Bytes())
}

func (s *Server) handleTracker(w http.ResponseWriter, r *http.Request) {
	series, err := s.Reconciler.Generate(r.Context(), r.PathValue("plate"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleTrackerChart(w http.ResponseWriter, r *http.Request) {
	series, err := s.Reconciler.Generate(r.Context(), r.PathValue("plate"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := tracker.RenderChart(&buf, series); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	name, ok := strings.CutSuffix(file, ".xlsx")
	if !ok {
		writeAPIError(w, http.StatusNotFound, "not_found", "exports are served as .xlsx")
		return
	}
	ctx := r.Context()

	var table invoice.Table
	switch name {
	case "deliveries":
		rows, err := s.Store.ListDeliveries(ctx)
		if err != nil {
			s.writeError(w, err)
			return
		}
		table = invoice.DeliveryTable(rows)
	case "restocks":
		rows, err := s.Store.ListRestocks(ctx)
		if err != nil {
			s.writeError(w, err)
			return
		}
		table = invoice.RestockTable(rows)
	case "customers":
		rows, err := s.Store.ListCustomers(ctx)
		if err != nil {
			s.writeError(w, err)
			return
		}
		table = invoice.CustomerTable(rows)
	case "charges":
		cq, err := parseChargeQuery(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		summary, err := s.Aggregator.Generate(ctx, cq.customerID, cq.start, cq.end, cq.volumeBalance)
		if err != nil {
			s.writeError(w, err)
			return
		}
		table = invoice.LedgerTable(summary)
	default:
		writeAPIError(w, http.StatusNotFound, "not_found", fmt.Sprintf("unknown table %q", name))
		return
	}

	var buf bytes.Buffer
	if err := invoice.WriteTable(&buf, table); err != nil {
		s.writeError(w, err)
		return
	}
	writeAttachment(w, xlsxContentType, file, buf.Bytes())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if isAPI(r.URL.Path) {
		writeAPIError(w, http.StatusNotFound, "not_found", "not found")
		return
	}
	http.NotFound(w, r)
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// writeError maps an error to its status and code. Every failure kind gets a
// distinct code so the dashboard can show an actionable message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		missing   *report.MissingFieldError
		dateErr   *report.DateFormatError
		invalid   *report.InvalidValueError
		duplicate *report.DuplicateKeyError
		unknown   *charges.UnknownCustomerError
		storage   *database.StorageError
	)

	switch {
	case errors.Is(err, errBadRequest):
		writeAPIError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.As(err, &missing):
		writeAPIError(w, http.StatusBadRequest, "missing_field", err.Error())
	case errors.As(err, &dateErr):
		writeAPIError(w, http.StatusBadRequest, "date_format", err.Error())
	case errors.As(err, &invalid):
		writeAPIError(w, http.StatusBadRequest, "invalid_value", err.Error())
	case errors.Is(err, invoice.ErrIncomplete):
		writeAPIError(w, http.StatusBadRequest, "incomplete_invoice", err.Error())
	case errors.As(err, &duplicate):
		writeAPIError(w, http.StatusConflict, "duplicate", err.Error())
	case errors.As(err, &unknown):
		writeAPIError(w, http.StatusNotFound, "unknown_customer", err.Error())
	case errors.Is(err, database.ErrNotFound):
		writeAPIError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &storage):
		s.Logger.Error("storage failure", zap.String("request_id", w.Header().Get("X-Request-Id")), zap.Error(err))
		writeAPIError(w, http.StatusServiceUnavailable, "storage_error", "storage failure")
	default:
		s.Logger.Error("request failed", zap.String("request_id", w.Header().Get("X-Request-Id")), zap.Error(err))
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	reqID := w.Header().Get("X-Request-Id")
	_ = writeJSON(w, status, apiErrorJSON{
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}
