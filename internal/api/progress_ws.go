package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type streamMessage struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// ProgressStreamHandler handles GET /v1/progress/stream: a WebSocket feed
// of progress events for one team and date. The team reference may be an
// alias; it is resolved before subscribing so publishers and subscribers
// agree on the topic.
func (s *Server) ProgressStreamHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	biz := businessID(r)
	teamRef := r.URL.Query().Get("teamId")
	if biz == "" || teamRef == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "businessId and teamId required", r.URL.Path)
		return
	}
	team, err := s.Store.FindTeam(r.Context(), biz, teamRef)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	} else if _, perr := time.Parse("2006-01-02", date); perr != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "date must be YYYY-MM-DD", r.URL.Path)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	topic := progressTopic(biz, team.ID, date)
	ch := s.Broker.Subscribe(topic)
	defer s.Broker.Unsubscribe(topic, ch)

	_ = conn.WriteJSON(streamMessage{Type: "subscribed", Data: map[string]any{
		"teamId": team.ID,
		"date":   date,
	}})

	// Read side only exists to notice the peer going away and answer pings.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(1 << 20)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		}
	}()

	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(streamMessage{Type: evt.Type, Data: evt.Data}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
