package upload

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	c := NewClient(url+"/", "secret")
	c.retryDelay = time.Millisecond
	return c
}

// TestSendWorkout verifies the request shape and the returned workout ID.
func TestSendWorkout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/workouts" || r.URL.Query().Get("origin") != "upload" {
			t.Errorf("request = %s %s", r.Method, r.URL)
		}
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("X-API-Key = %q, want secret", got)
		}
		var w0 Workout
		if err := json.NewDecoder(r.Body).Decode(&w0); err != nil {
			t.Fatal(err)
		}
		if w0.Name != "Tempo" || w0.Workout != "20m@220w|250w" {
			t.Errorf("workout = %+v", w0)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","duration_sec":1200}`))
	}))
	defer ts.Close()

	id, err := newTestClient(ts.URL).SendWorkout(context.Background(), Workout{Name: "Tempo", Workout: "20m@220w|250w"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "6ba7b810-9dad-11d1-80b4-00c04fd430c8" {
		t.Errorf("id = %q", id)
	}
}

// TestSendWorkoutRetries verifies 5xx responses are retried.
func TestSendWorkoutRetries(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "database down", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"x"}`))
	}))
	defer ts.Close()

	if _, err := newTestClient(ts.URL).SendWorkout(context.Background(), Workout{Name: "W"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

// TestSendWorkoutGivesUp verifies the client stops after 3 failed attempts.
func TestSendWorkoutGivesUp(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).SendWorkout(context.Background(), Workout{Name: "W"})
	if err == nil || errors.Is(err, ErrRejected) {
		t.Fatalf("error = %v, want non-rejection failure", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

// TestSendWorkoutRejected verifies 4xx responses fail immediately with ErrRejected.
func TestSendWorkoutRejected(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"lower cadence exceeds upper cadence","kind":"semantic"}`))
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).SendWorkout(context.Background(), Workout{Name: "W"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("error = %v, want ErrRejected", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}
