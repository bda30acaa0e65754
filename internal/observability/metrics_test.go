package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/sourcesync/internal/logging"
	"github.com/danmuck/sourcesync/internal/testutil/testlog"
	"github.com/rs/zerolog/log"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)

	RegisterMetrics()
	RegisterMetrics()

	RecordUpdateApplied("propertyChanged")
	RecordResync("sequence")
	RecordDecodeFailure()
	RecordFullStateRequest()
	SetTransportUp("websocket", true)
	SetTransportUp("websocket", false)
	RecordReconnect("wss", false)
	RecordHTTPRequest("enginesim", "GET", "/source_coms/", 101, 3*time.Millisecond)

	logging.Logf("observability/metrics: registration idempotent and recording paths executed")
}

func TestHandlerExposesSyncCollectors(t *testing.T) {
	testlog.Start(t)

	RecordFullStateRequest()
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "sourcesync_sync_full_state_requests_total") {
		t.Fatalf("metrics output missing full state counter")
	}
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	testlog.Start(t)

	h := RequestLogger(log.Logger, "test", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}
