package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"refpay.org/internal/assignment"
	"refpay.org/internal/audit"
	"refpay.org/internal/obs"
	"refpay.org/internal/rates"
	"refpay.org/internal/settlement"
	"refpay.org/internal/stream"
)

// ReadyProbe reports whether the backing store can serve traffic.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer. It owns routing and the error-to-status
// mapping; all domain rules live behind the injected services.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	assignments assignment.Service
	rates       rates.Service
	calculator  *settlement.Calculator
	stream      *stream.Stream

	rateBurst    int
	ratePerSec   int
	maxBodyBytes int64
}

func New(rp ReadyProbe, version string, assignments assignment.Service, rateTable rates.Service, calc *settlement.Calculator, events *stream.Stream) *API {
	a := &API{
		mux:          http.NewServeMux(),
		readyProbe:   rp,
		version:      version,
		assignments:  assignments,
		rates:        rateTable,
		calculator:   calc,
		stream:       events,
		rateBurst:    20,
		ratePerSec:   10,
		maxBodyBytes: 1 << 20,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)

	a.mux.HandleFunc("/v1/matches/", a.handleMatchResource)
	a.mux.HandleFunc("/v1/assignments", a.handleAssignmentsCollection)
	a.mux.HandleFunc("/v1/assignments/", a.handleAssignmentResource)
	a.mux.HandleFunc("/v1/rates", a.handleRatesCollection)
	a.mux.HandleFunc("/v1/rates/", a.handleRateResource)
	a.mux.HandleFunc("/v1/referees/", a.handleRefereeResource)
	a.mux.HandleFunc("/v1/settlements/", a.handleMonthlySummary)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// SetLimits overrides the default rate-limit and body-size knobs.
func (a *API) SetLimits(burst, perSec int, maxBodyBytes int64) {
	if burst > 0 {
		a.rateBurst = burst
	}
	if perSec > 0 {
		a.ratePerSec = perSec
	}
	if maxBodyBytes > 0 {
		a.maxBodyBytes = maxBodyBytes
	}
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- service handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "refpay-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "refpay-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func (a *API) auditEvent(r *http.Request, event string, fields map[string]any) {
	_ = audit.LogEvent(r.Context(), event, fields)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := requestIDFrom(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
