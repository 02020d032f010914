package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rowan/genbridge/internal/domain"
)

// pushServer upgrades one connection and sends the queued frames.
func pushServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("workflowId"); got != "wf1" {
			t.Errorf("expected workflowId query param, got %q", got)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		// Give the client a moment to drain before dropping the connection.
		time.Sleep(50 * time.Millisecond)
		conn.Close()
	}))
}

func TestPushDialerDeliversJobUpdates(t *testing.T) {
	frames := []string{
		`{"type":"job_update","job":{"id":"1","workflow_id":"wf1","status":"running"}}`,
		`{"type":"ping"}`,
		`not json at all`,
		`{"type":"job_update","job":"malformed"}`,
		`{"type":"job_update","job":{"id":"1","workflow_id":"wf1","status":"completed"}}`,
	}
	srv := pushServer(t, frames)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	dialer := NewPushDialer(wsURL, nil)

	var mu sync.Mutex
	var jobs []domain.Job
	var states []bool

	session, err := dialer.Dial(context.Background(), "wf1",
		func(job domain.Job) {
			mu.Lock()
			jobs = append(jobs, job)
			mu.Unlock()
		},
		func(connected bool) {
			mu.Lock()
			states = append(states, connected)
			mu.Unlock()
		})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer session.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := len(states) == 2
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()

	// Malformed and non-job_update frames are dropped without killing the
	// connection.
	if len(jobs) != 2 {
		t.Fatalf("expected 2 job updates, got %d: %+v", len(jobs), jobs)
	}
	if jobs[0].Status != domain.JobStatusRunning || jobs[1].Status != domain.JobStatusCompleted {
		t.Errorf("unexpected job sequence: %+v", jobs)
	}
	if len(states) != 2 || !states[0] || states[1] {
		t.Errorf("expected connected then disconnected, got %v", states)
	}
}

func TestPushDialerContextCancelClosesSession(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Hold the connection open; the client side cancels.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	dialer := NewPushDialer(wsURL, nil)

	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var states []bool
	_, err := dialer.Dial(ctx, "wf1",
		func(domain.Job) {},
		func(connected bool) {
			mu.Lock()
			states = append(states, connected)
			mu.Unlock()
		})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := len(states) == 2 && !states[1]
		mu.Unlock()
		if done {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("session did not report disconnect after context cancel")
}
