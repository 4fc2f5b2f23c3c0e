package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/synaptica-ai/medrecords/pkg/common/models"
)

type recordingDeadLetter struct {
	failures int
	calls    int
	keys     []string
}

func (d *recordingDeadLetter) Publish(_ context.Context, key string, _ models.Event) error {
	d.calls++
	if d.calls <= d.failures {
		return errors.New("broker unavailable")
	}
	d.keys = append(d.keys, key)
	return nil
}

func failingHandler(failures int, calls *int) EventHandler {
	return func(context.Context, models.Event) error {
		*calls++
		if *calls <= failures {
			return errors.New("parse failed")
		}
		return nil
	}
}

func TestProcessRetriesHandler(t *testing.T) {
	dlq := &recordingDeadLetter{}
	c := &Consumer{deadLetter: dlq}

	var calls int
	if err := c.process(context.Background(), "rec-1", models.Event{ID: "e1"}, failingHandler(2, &calls)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 handler calls, got %d", calls)
	}
	if dlq.calls != 0 {
		t.Fatalf("recovered event should not be dead-lettered, got %d publishes", dlq.calls)
	}
}

func TestProcessDeadLettersAfterRetries(t *testing.T) {
	dlq := &recordingDeadLetter{failures: 1}
	c := &Consumer{deadLetter: dlq}

	var calls int
	if err := c.process(context.Background(), "rec-2", models.Event{ID: "e2"}, failingHandler(1<<30, &calls)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if calls != handleAttempts {
		t.Fatalf("expected %d handler calls, got %d", handleAttempts, calls)
	}
	if dlq.calls != 2 || len(dlq.keys) != 1 || dlq.keys[0] != "rec-2" {
		t.Fatalf("expected dead letter retry then success, got %+v", dlq)
	}
}

func TestProcessStopsOnCancel(t *testing.T) {
	dlq := &recordingDeadLetter{failures: 1 << 30}
	c := &Consumer{deadLetter: dlq}
	ctx, cancel := context.WithCancel(context.Background())

	handler := func(context.Context, models.Event) error {
		cancel()
		return errors.New("parse failed")
	}
	err := c.process(ctx, "rec-3", models.Event{ID: "e3"}, handler)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestProcessDropsWithoutDeadLetter(t *testing.T) {
	c := &Consumer{}
	var calls int
	if err := c.process(context.Background(), "rec-4", models.Event{ID: "e4"}, failingHandler(1<<30, &calls)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if calls != handleAttempts {
		t.Fatalf("expected %d handler calls, got %d", handleAttempts, calls)
	}
}
