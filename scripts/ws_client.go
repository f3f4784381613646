// Package main runs a demo client against a local server: seeds a team and
// a task, optimizes, subscribes to the progress stream, then reports a
// progress event and prints what arrives on the stream.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type streamMessage struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

func post(base, path string, body string) (map[string]any, error) {
	req, _ := http.NewRequest(http.MethodPost, base+path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return out, fmt.Errorf("%s: status %d: %v", path, resp.StatusCode, out)
	}
	return out, nil
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)
	date := time.Now().UTC().Format("2006-01-02")

	if _, err := post(base, "/v1/teams", `{"businessId":"biz_demo","teams":[
		{"id":"team_demo","name":"Demo Crew","currentLocation":{"lat":40.71,"lng":-74.0}}
	]}`); err != nil {
		log.Fatal(err)
	}
	if _, err := post(base, "/v1/tasks", fmt.Sprintf(`{"businessId":"biz_demo","tasks":[
		{"id":"task_demo","name":"Demo visit","scheduledDate":%q,"location":{"lat":40.72,"lng":-74.01},"priority":"high"}
	]}`, date)); err != nil {
		log.Fatal(err)
	}

	optResp, err := post(base, "/v1/optimize", fmt.Sprintf(`{"businessId":"biz_demo","date":%q}`, date))
	if err != nil {
		log.Fatal(err)
	}
	routes, _ := optResp["routes"].([]any)
	if len(routes) == 0 {
		log.Fatal("no routes returned")
	}
	first, _ := routes[0].(map[string]any)
	log.Printf("Route ID: %v", first["routeId"])

	u := url.URL{
		Scheme:   "ws",
		Host:     "localhost:" + port,
		Path:     "/v1/progress/stream",
		RawQuery: "businessId=biz_demo&teamId=team_demo&date=" + date,
	}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m streamMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			data, _ := json.Marshal(m.Data)
			log.Printf("WS <- %s: %s", m.Type, data)
		}
	}()

	time.Sleep(500 * time.Millisecond)
	if _, err := post(base, "/v1/progress/events",
		`{"businessId":"biz_demo","teamId":"team_demo","taskId":"task_demo","event":"started","location":{"lat":40.715,"lng":-74.005}}`); err != nil {
		log.Printf("progress event: %v", err)
	}

	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
