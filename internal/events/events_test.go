package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

func TestEventBus_PublishToTypedSubscriber(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(models.EventTypeBatchIngested)

	bus.Publish(models.NewEvent(models.EventTypeBatchIngested, "b1", "ingested"))
	bus.Publish(models.NewEvent(models.EventTypeAlert, "b1", "not for this subscriber"))

	select {
	case event := <-ch:
		assert.Equal(t, models.EventTypeBatchIngested, event.Type)
		assert.Equal(t, "b1", event.BatchID)
	case <-time.After(time.Second):
		t.Fatal("expected event was not delivered")
	}

	select {
	case event := <-ch:
		t.Fatalf("unexpected event: %s", event.Type)
	default:
	}
}

func TestEventBus_SubscribeAllSeesEveryType(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.SubscribeAll()

	bus.Publish(models.NewEvent(models.EventTypeBatchGenerated, "b1", "generated"))
	bus.Publish(models.NewEvent(models.EventTypeRetentionPurge, "", "purged"))

	received := make([]models.EventType, 0, 2)
	for i := 0; i < 2; i++ {
		select {
		case event := <-ch:
			received = append(received, event.Type)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for events")
		}
	}

	assert.Equal(t, []models.EventType{
		models.EventTypeBatchGenerated,
		models.EventTypeRetentionPurge,
	}, received)
}

func TestEventBus_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()

	ch := bus.Subscribe(models.EventTypeAlert)

	done := make(chan struct{})
	go func() {
		defer close(done)
		bus.Publish(models.NewEvent(models.EventTypeAlert, "b1", "first"))
		bus.Publish(models.NewEvent(models.EventTypeAlert, "b1", "dropped"))
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	event := <-ch
	assert.Equal(t, "first", event.Message)
}

func TestEventBus_PublishAfterCloseIsNoop(t *testing.T) {
	bus := NewEventBus(10)
	ch := bus.Subscribe(models.EventTypeError)

	bus.Close()
	bus.Publish(models.NewEvent(models.EventTypeError, "b1", "late"))

	_, open := <-ch
	assert.False(t, open, "channel should be closed")
}

func TestPublisher_SeverityEscalation(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(models.EventTypeBatchAnalyzed)
	pub := NewPublisher(bus)

	pub.BatchAnalyzed("b1", models.AnomalySummary{
		TierCounts: map[models.SeverityTier]int{models.TierCritical: 2},
	})

	event := <-ch
	assert.Equal(t, models.SeverityCritical, event.Severity)
}

func TestPublisher_TraceIDPropagates(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(models.EventTypeBatchGenerated)
	pub := NewPublisher(bus).WithTraceID("trace-123")

	pub.BatchGenerated("b1", 100, 20)

	event := <-ch
	require.NotNil(t, event)
	assert.Equal(t, "trace-123", event.TraceID)
	assert.Equal(t, "b1", event.BatchID)
}
