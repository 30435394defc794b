package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// detached is a client with a send buffer and no connection.
func detached(hub *Hub) *Client {
	return &Client{hub: hub, send: make(chan []byte, sendBufferSize)}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return m
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no message")
		return Message{}
	}
}

func TestHubMembership(t *testing.T) {
	hub := NewHub(testLogger())
	a, b := detached(hub), detached(hub)

	steps := []struct {
		do   func()
		want int
	}{
		{func() { hub.Register(a) }, 1},
		{func() { hub.Register(b) }, 2},
		{func() { hub.Unregister(a) }, 1},
		{func() { hub.Unregister(a) }, 1},
		{func() { hub.Unregister(b) }, 0},
	}
	for i, st := range steps {
		st.do()
		if got := hub.ClientCount(); got != st.want {
			t.Fatalf("step %d: clients = %d, want %d", i, got, st.want)
		}
	}
	if _, open := <-a.send; open {
		t.Error("send channel left open after unregister")
	}
}

func TestPublishReachesEveryClient(t *testing.T) {
	hub := NewHub(testLogger())
	tabs := []*Client{detached(hub), detached(hub)}
	for _, c := range tabs {
		hub.Register(c)
	}

	hub.Broadcast(NewMessage(EntityTimelineItem, "toggled", "book-venue", map[string]any{"completed": true}))
	hub.Publish(EntityBudget, "updated", "")

	for _, c := range tabs {
		m := receive(t, c)
		if m.Type != "timeline_item_toggled" || m.ID != "book-venue" || m.Extra["completed"] != true {
			t.Errorf("first = %+v", m)
		}
		if m := receive(t, c); m.Type != "budget_updated" || m.ID != "" || m.Extra != nil {
			t.Errorf("second = %+v", m)
		}
	}
}

func TestSlowClientDropsMessages(t *testing.T) {
	hub := NewHub(testLogger())
	c := detached(hub)
	hub.Register(c)

	for i := 0; i < sendBufferSize+3; i++ {
		hub.Publish(EntityProfile, "updated", "")
	}
	if got := len(c.send); got != sendBufferSize {
		t.Errorf("buffered = %d, want %d", got, sendBufferSize)
	}

	// A publish with nobody listening is fine too.
	hub.Unregister(c)
	hub.Publish(EntityBackup, "idle", "")
}

func TestHubConcurrentUse(t *testing.T) {
	hub := NewHub(testLogger())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := detached(hub)
			hub.Register(c)
			hub.Publish(EntityTimeline, "updated", "")
			hub.Unregister(c)
		}()
	}
	wg.Wait()
	if got := hub.ClientCount(); got != 0 {
		t.Errorf("clients = %d, want 0", got)
	}
}

func TestSocketReceivesBroadcast(t *testing.T) {
	hub := NewHub(testLogger())
	srv := httptest.NewServer(HandleWebSocket(hub, nil, testLogger()))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	for hub.ClientCount() == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("client never registered")
		case <-time.After(10 * time.Millisecond):
		}
	}
	hub.Publish(EntityTimeline, "deleted", "")

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m.Type != "timeline_deleted" || m.Entity != EntityTimeline {
		t.Errorf("message = %+v", m)
	}
}
