package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/energimultiguna/cngops/internal/cache"
	"github.com/energimultiguna/cngops/internal/charges"
	"github.com/energimultiguna/cngops/internal/correction"
	"github.com/energimultiguna/cngops/internal/database"
	"github.com/energimultiguna/cngops/internal/ingest"
	"github.com/energimultiguna/cngops/internal/invoice"
	"github.com/energimultiguna/cngops/internal/tracker"
	"github.com/energimultiguna/cngops/pkg/models"
)

func deliveryText(date, clock, meter string) string {
	return strings.Join([]string{
		"delivery_date", date,
		"delivery_arrival_time", clock,
		"customer_id", "0110005",
		"delivery_route", "route a",
		"transport_plate_number", "B 1234 XYZ",
		"pre_buffer_pressure", "20",
		"delivery_stand_meter", meter,
		"delivery_pressure", "5",
		"delivery_temperature", "27",
		"post_buffer_pressure", "180",
		"transport_bank_pressure", "null",
	}, "\n")
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	db, err := database.New("sqlite", filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	err = db.UpsertCustomer(context.Background(), &models.Customer{
		CustomerID:          "0110005",
		Name:                "PT Contoh",
		Address:             "Jl. Industri Raya No. 5",
		LiterWeightCapacity: sql.NullFloat64{Float64: 4000, Valid: true},
		AppliedPrice:        sql.NullFloat64{Float64: 8500, Valid: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	engine := correction.NewEngine(correction.DefaultConstants())
	reconciler := tracker.NewReconciler(db, engine, cache.NewMemoryTrackerCache(time.Minute), nil)
	hub := NewHub(nil)
	submitter := ingest.NewSubmitter(db, nil,
		ingest.WithInvalidator(reconciler),
		ingest.WithNotifier(hub),
		ingest.WithRecorder(SubmissionRecorder{}))

	return New(Deps{
		Store:      db,
		Submitter:  submitter,
		Aggregator: charges.NewAggregator(db, engine, charges.Options{TaxRate: 0.11}),
		Reconciler: reconciler,
		Hub:        hub,
		Invoice:    invoice.Layout{Signer: "Alice Alisceon", SignerTitle: "Direktur"},
		DueDays:    7,
	})
}

func do(t *testing.T, srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(method, target, r))
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apiErrorJSON {
	t.Helper()
	var e apiErrorJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
		t.Fatalf("unmarshal error body %q: %v", rr.Body.String(), err)
	}
	return e
}

func TestHTTP_SubmitDelivery(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/deliveries", deliveryText("01-Mar-24", "08:00", "1000"))
	if got, want := rr.Code, http.StatusCreated; got != want {
		t.Fatalf("status=%d want %d, body=%s", got, want, rr.Body.String())
	}
	var res ingest.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Status != ingest.StatusInserted || res.ID != "0110005202403010800" {
		t.Fatalf("result = %+v", res)
	}

	rr = do(t, srv, http.MethodPost, "/api/deliveries", deliveryText("01-Mar-24", "08:00", "1000"))
	if rr.Code != http.StatusConflict || decodeError(t, rr).Code != "duplicate" {
		t.Fatalf("duplicate: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodPost, "/api/deliveries", "customer_id\n0110005")
	if rr.Code != http.StatusBadRequest || decodeError(t, rr).Code != "missing_field" {
		t.Fatalf("malformed: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodPost, "/api/deliveries", deliveryText("2024-03-01", "08:00", "1000"))
	if rr.Code != http.StatusBadRequest || decodeError(t, rr).Code != "date_format" {
		t.Fatalf("bad date: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/api/deliveries", "")
	var list []deliveryJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].BankPressure != nil || *list[0].StandMeter != 1000 {
		t.Fatalf("deliveries = %+v", list)
	}
}

func TestHTTP_Charges(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	do(t, srv, http.MethodPost, "/api/deliveries", deliveryText("01-Mar-24", "08:00", "1000"))
	do(t, srv, http.MethodPost, "/api/deliveries", deliveryText("02-Mar-24", "08:00", "1500"))

	rr := do(t, srv, http.MethodGet, "/api/charges?customer_id=0110005&start=2024-03-01&end=2024-03-31&volume_balance=10", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var got chargeSummaryJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Rows) != 2 || got.Rows[0].ChargedVolume != nil || got.Rows[1].ChargedVolume == nil {
		t.Fatalf("rows = %+v", got.Rows)
	}
	if got.PriceBalance != 85000 || got.TaxRate != 0.11 {
		t.Fatalf("summary = %+v", got)
	}

	tests := []struct {
		name   string
		query  string
		status int
		code   string
	}{
		{"unknown customer", "customer_id=nobody&start=2024-03-01&end=2024-03-31", http.StatusNotFound, "unknown_customer"},
		{"bad start", "customer_id=0110005&start=01-03-2024&end=2024-03-31", http.StatusBadRequest, "invalid_argument"},
		{"missing customer", "start=2024-03-01&end=2024-03-31", http.StatusBadRequest, "invalid_argument"},
		{"bad balance", "customer_id=0110005&start=2024-03-01&end=2024-03-31&volume_balance=ten", http.StatusBadRequest, "invalid_argument"},
		{"NaN balance", "customer_id=0110005&start=2024-03-01&end=2024-03-31&volume_balance=NaN", http.StatusBadRequest, "invalid_argument"},
		{"infinite balance", "customer_id=0110005&start=2024-03-01&end=2024-03-31&volume_balance=-Inf", http.StatusBadRequest, "invalid_argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, "/api/charges?"+tt.query, "")
			if rr.Code != tt.status {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.status, rr.Body.String())
			}
			if e := decodeError(t, rr); e.Code != tt.code || e.RequestID == "" {
				t.Fatalf("error = %+v", e)
			}
		})
	}
}

func TestHTTP_TrackerAndChart(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	do(t, srv, http.MethodPost, "/api/deliveries", deliveryText("01-Mar-24", "08:00", "1000"))
	rr := do(t, srv, http.MethodGet, "/api/tracker/B%201234%20XYZ", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var first models.TrackerSeries
	if err := json.Unmarshal(rr.Body.Bytes(), &first); err != nil {
		t.Fatal(err)
	}
	if len(first.OutCumulative) != 1 || first.OutCumulative[0].Value != 800 {
		t.Fatalf("series = %+v", first)
	}

	// A new delivery must not be hidden by the cached series
	do(t, srv, http.MethodPost, "/api/deliveries", deliveryText("02-Mar-24", "08:00", "1500"))
	rr = do(t, srv, http.MethodGet, "/api/tracker/B%201234%20XYZ", "")
	var second models.TrackerSeries
	if err := json.Unmarshal(rr.Body.Bytes(), &second); err != nil {
		t.Fatal(err)
	}
	if len(second.OutCumulative) != 2 {
		t.Fatalf("cache was not invalidated: %+v", second)
	}

	rr = do(t, srv, http.MethodGet, "/api/tracker/B%201234%20XYZ/chart", "")
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("chart status=%d type=%s", rr.Code, rr.Header().Get("Content-Type"))
	}

	rr = do(t, srv, http.MethodGet, "/api/plates", "")
	if strings.TrimSpace(rr.Body.String()) != `["B 1234 XYZ"]` {
		t.Fatalf("plates = %s", rr.Body.String())
	}
}

func TestHTTP_InvoiceAndExport(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	do(t, srv, http.MethodPost, "/api/deliveries", deliveryText("01-Mar-24", "08:00", "1000"))
	do(t, srv, http.MethodPost, "/api/deliveries", deliveryText("02-Mar-24", "08:00", "1500"))

	base := "customer_id=0110005&start=2024-03-01&end=2024-03-31"
	rr := do(t, srv, http.MethodGet, "/api/invoice.xlsx?"+base+"&invoice_number=INV-1&period=Maret%202024", "")
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("invoice status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "invoice_0110005.xlsx") {
		t.Fatalf("disposition = %s", rr.Header().Get("Content-Disposition"))
	}

	rr = do(t, srv, http.MethodGet, "/api/invoice.xlsx?"+base+"&invoice_number=INV-1&period=Maret&volume_balance=NaN", "")
	if rr.Code != http.StatusBadRequest || decodeError(t, rr).Code != "invalid_argument" {
		t.Fatalf("NaN balance invoice status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/api/invoice.xlsx?"+base+"&period=Maret", "")
	if rr.Code != http.StatusBadRequest || decodeError(t, rr).Code != "incomplete_invoice" {
		t.Fatalf("incomplete invoice status=%d body=%s", rr.Code, rr.Body.String())
	}

	for _, table := range []string{"deliveries", "restocks", "customers"} {
		rr = do(t, srv, http.MethodGet, "/api/export/"+table+".xlsx", "")
		if rr.Code != http.StatusOK || rr.Body.Len() == 0 {
			t.Fatalf("export %s status=%d", table, rr.Code)
		}
	}
	rr = do(t, srv, http.MethodGet, "/api/export/charges.xlsx?"+base, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("charges export status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = do(t, srv, http.MethodGet, "/api/export/secrets.xlsx", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown table status=%d", rr.Code)
	}
}

func TestHTTP_HealthMetricsAndNotFound(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK || rr.Header().Get("X-Request-Id") == "" {
		t.Fatalf("healthz status=%d headers=%v", rr.Code, rr.Header())
	}

	rr = do(t, srv, http.MethodGet, "/api/nope", "")
	if rr.Code != http.StatusNotFound || decodeError(t, rr).Code != "not_found" {
		t.Fatalf("not found status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/metrics", "")
	if !strings.Contains(rr.Body.String(), "cngops_http_requests_total") {
		t.Fatalf("metrics output missing request counter")
	}
}

func TestHTTP_WebsocketNotification(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Post(ts.URL+"/api/deliveries", "text/plain", strings.NewReader(deliveryText("01-Mar-24", "08:00", "1000")))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev ChangeEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != "report_stored" || ev.Result.Kind != ingest.KindDelivery || ev.Result.Plate != "B 1234 XYZ" {
		t.Fatalf("event = %+v", ev)
	}
}
