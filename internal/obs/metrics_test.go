package obs

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init() // second registration must not panic
	InitBuildInfo("test", "none")
	InitBuildInfo("test", "none")
}

func TestInstrumentPassesThrough(t *testing.T) {
	Init()
	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	SetReady(true)
	SetReady(false)
	AssignmentTransition("ACCEPTED")
	SettlementCalculated()
	RateUnresolved()
}
