package sse

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishRebuiltDelivery(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishRebuilt(7, "abc123")

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: registry.rebuilt") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"posts":7`) {
			t.Errorf("missing post count in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishBuildError(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishBuildError("bad.md: missing title")

	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), "event: registry.error") {
			t.Errorf("missing event type in %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishAfterClose(t *testing.T) {
	b := NewBroker()
	b.Close()
	// Must not panic or block.
	b.PublishRebuilt(1, "x")
	if b.ClientCount() != 0 {
		t.Error("closed broker reported clients")
	}
}

func TestServeHTTP_StreamsEvents(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/events", nil)
	ctx, cancel := context.WithTimeout(req.Context(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(rec, req.WithContext(ctx))
		close(done)
	}()

	// Wait for the subscription to register before publishing.
	deadline := time.Now().Add(time.Second)
	for b.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	b.PublishRebuilt(3, "fp")

	<-done
	if !strings.Contains(rec.Body.String(), "registry.rebuilt") {
		t.Errorf("body = %q", rec.Body.String())
	}
}
