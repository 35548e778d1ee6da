package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	ctxutil "3tcapital/correlate/internal/infrastructure/context"
)

// TestingT is the subset of testing.TB used by the helpers.
type TestingT interface {
	Helper()
	Errorf(format string, args ...interface{})
	FailNow()
}

// DecodeJSON checks the recorded status and unmarshals the body into v.
func DecodeJSON(t TestingT, w *httptest.ResponseRecorder, wantStatus int, v interface{}) {
	t.Helper()
	if w.Code != wantStatus {
		t.Errorf("expected status %d, got %d: %s", wantStatus, w.Code, w.Body.String())
		t.FailNow()
	}

	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Errorf("failed to decode JSON response: %v", err)
		t.FailNow()
	}
}

// NewCorrelatedRequest creates a request whose context already carries
// correlationID as the ambient correlation. An empty id leaves the slot empty.
func NewCorrelatedRequest(method, target, correlationID string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if correlationID == "" {
		return req
	}
	return req.WithContext(ctxutil.WithCorrelationID(req.Context(), correlationID))
}
