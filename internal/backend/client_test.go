package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rowan/genbridge/internal/domain"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(&ClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
	return client, srv
}

func TestRunWorkflow(t *testing.T) {
	tests := []struct {
		name     string
		response any
		status   int
		wantID   string
		wantErr  bool
	}{
		{
			name:     "accepted",
			response: map[string]any{"ok": true, "jobId": "j-1"},
			status:   http.StatusOK,
			wantID:   "j-1",
		},
		{
			name:     "rejected",
			response: map[string]any{"ok": false, "error": "bad input"},
			status:   http.StatusOK,
			wantErr:  true,
		},
		{
			name:     "missing job id",
			response: map[string]any{"ok": true},
			status:   http.StatusOK,
			wantErr:  true,
		},
		{
			name:     "server error",
			response: map[string]any{"error": "boom"},
			status:   http.StatusInternalServerError,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			var gotBody []domain.RunInput
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				json.NewDecoder(r.Body).Decode(&gotBody)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.response)
			}))
			defer srv.Close()

			id, err := client.RunWorkflow(context.Background(), "wf1", []domain.RunInput{
				{InputID: "prompt", Value: "a cat"},
			})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.wantID {
				t.Errorf("job id = %q, want %q", id, tt.wantID)
			}
			if gotPath != "/workflows/wf1/run" {
				t.Errorf("unexpected path %q", gotPath)
			}
			if len(gotBody) != 1 || gotBody[0].InputID != "prompt" {
				t.Errorf("unexpected request body %+v", gotBody)
			}
		})
	}
}

func TestGetJob(t *testing.T) {
	created := time.Now().UTC().Truncate(time.Second)
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jobs/j-9" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"job": domain.Job{
			ID:         "j-9",
			WorkflowID: "wf1",
			Status:     domain.JobStatusRunning,
			CreatedAt:  created,
		}})
	}))
	defer srv.Close()

	job, err := client.GetJob(context.Background(), "j-9")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.ID != "j-9" || job.Status != domain.JobStatusRunning || !job.CreatedAt.Equal(created) {
		t.Errorf("unexpected job %+v", job)
	}

	if _, err := client.GetJob(context.Background(), "missing"); err == nil {
		t.Error("expected error for missing job")
	}
}

func TestListJobs(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"jobs": []domain.Job{
			{ID: "a", WorkflowID: "wf1", Status: domain.JobStatusCompleted},
			{ID: "b", WorkflowID: "wf1", Status: domain.JobStatusQueued},
		}})
	}))
	defer srv.Close()

	jobs, err := client.ListJobs(context.Background(), "wf1")
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Errorf("expected 2 jobs, got %d", len(jobs))
	}
}

func TestCancelJob(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/jobs/ok/cancel":
			json.NewEncoder(w).Encode(map[string]any{"ok": true, "status": "cancelled"})
		case "/jobs/noconfirm/cancel":
			json.NewEncoder(w).Encode(map[string]any{"ok": false})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	status, err := client.CancelJob(context.Background(), "ok")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if status != domain.JobStatusCancelled {
		t.Errorf("status = %q, want cancelled", status)
	}

	if _, err := client.CancelJob(context.Background(), "noconfirm"); err == nil {
		t.Error("expected error when backend does not confirm")
	}
}

func TestUploadImage(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/upload" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.Header.Get("X-Filename") {
		case "cat.png":
			json.NewEncoder(w).Encode(map[string]any{"name": "cat_001.png", "subfolder": "input", "type": "input"})
		default:
			// Backend answered but assigned no asset name.
			json.NewEncoder(w).Encode(map[string]any{"subfolder": "input"})
		}
	}))
	defer srv.Close()

	desc, err := client.UploadImage(context.Background(), "cat.png", []byte("bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if desc.Filename != "cat_001.png" || desc.Subfolder != "input" {
		t.Errorf("unexpected descriptor %+v", desc)
	}

	// A response without a name is a hard failure.
	if _, err := client.UploadImage(context.Background(), "dog.png", []byte("bytes")); err == nil {
		t.Error("expected error when upload response has no name")
	}
}
