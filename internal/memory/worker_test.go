package memory

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestWorkerRunsEnqueuedJobs(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]int)

	w := NewWorker(func(_ context.Context, job Job) error {
		mu.Lock()
		seen[job.ConversationID]++
		mu.Unlock()
		return nil
	}, nil, WorkerOptions{Workers: 2, QueueSize: 8})

	if !w.Enqueue(Job{OwnerKey: "o", ConversationID: "c1"}) {
		t.Fatalf("Enqueue(c1) = false")
	}
	if !w.Enqueue(Job{OwnerKey: "o", ConversationID: "c2"}) {
		t.Fatalf("Enqueue(c2) = false")
	}
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	if seen["c1"] != 1 || seen["c2"] != 1 {
		t.Fatalf("seen = %v, want each job once", seen)
	}
}

func TestWorkerDropsWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	w := NewWorker(func(_ context.Context, _ Job) error {
		<-block
		return nil
	}, nil, WorkerOptions{Workers: 1, QueueSize: 1})

	// First job occupies the worker, second fills the queue.
	w.Enqueue(Job{OwnerKey: "o", ConversationID: "busy"})

	deadline := time.Now().Add(time.Second)
	for w.Enqueue(Job{OwnerKey: "o", ConversationID: "queued"}) {
		if time.Now().After(deadline) {
			t.Fatalf("queue never filled")
		}
	}

	close(block)
	w.Stop()
}

func TestWorkerRejectsAfterStop(t *testing.T) {
	w := NewWorker(func(_ context.Context, _ Job) error { return nil }, nil, WorkerOptions{})
	w.Stop()
	if w.Enqueue(Job{OwnerKey: "o", ConversationID: "c"}) {
		t.Fatalf("Enqueue after Stop = true, want false")
	}
	// Stop is idempotent.
	w.Stop()
}

func TestWorkerIgnoresIncompleteJobs(t *testing.T) {
	called := false
	w := NewWorker(func(_ context.Context, _ Job) error {
		called = true
		return nil
	}, nil, WorkerOptions{})

	if w.Enqueue(Job{OwnerKey: "", ConversationID: "c"}) {
		t.Fatalf("Enqueue without owner key accepted")
	}
	if w.Enqueue(Job{OwnerKey: "o", ConversationID: ""}) {
		t.Fatalf("Enqueue without conversation id accepted")
	}
	w.Stop()
	if called {
		t.Fatalf("incomplete job reached the runner")
	}
}
