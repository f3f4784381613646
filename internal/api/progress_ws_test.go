package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestProgressStreamRejectsBadRequests(t *testing.T) {
	s := newTestServer(t)

	rr := doJSON(t, s.ProgressStreamHandler, http.MethodGet, "/v1/progress/stream?businessId="+apiBiz, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing teamId: %d", rr.Code)
	}
	rr = doJSON(t, s.ProgressStreamHandler, http.MethodGet, "/v1/progress/stream?businessId="+apiBiz+"&teamId=ghost", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown team: %d", rr.Code)
	}

	seedFleet(t, s)
	rr = doJSON(t, s.ProgressStreamHandler, http.MethodGet,
		"/v1/progress/stream?businessId="+apiBiz+"&teamId=tm_1&date=03-02-2026", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad date: %d", rr.Code)
	}
	rr = doJSON(t, s.ProgressStreamHandler, http.MethodPost, "/v1/progress/stream", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("method: %d", rr.Code)
	}
}

// TestProgressStreamDeliversEvents runs the full upgrade through the
// instrumentation wrapper, which must pass hijacking through for WebSockets
// to work at all.
func TestProgressStreamDeliversEvents(t *testing.T) {
	s := newTestServer(t)
	seedFleet(t, s)

	ts := httptest.NewServer(Instrument(http.HandlerFunc(s.ProgressStreamHandler)))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") +
		"/v1/progress/stream?businessId=" + apiBiz + "&teamId=field-crew&date=" + apiDate
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var hello streamMessage
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	// The alias resolves before subscribing.
	if hello.Type != "subscribed" || hello.Data["teamId"] != "tm_1" || hello.Data["date"] != apiDate {
		t.Fatalf("hello: %+v", hello)
	}

	// The hello arrives after the broker subscription, so publishing now is
	// guaranteed to reach this connection.
	s.Broker.Publish(progressTopic(apiBiz, "tm_1", apiDate), StreamEvent{
		Type: "progress.started",
		Data: map[string]any{"taskId": "t1"},
	})

	var evt streamMessage
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if evt.Type != "progress.started" || evt.Data["taskId"] != "t1" {
		t.Fatalf("event: %+v", evt)
	}
}
