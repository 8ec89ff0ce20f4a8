package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/FCHEHIDI/lb-analytics/internal/logger"
	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

// EventBridge forwards pipeline events onto the websocket hub so dashboard
// clients can watch batches move through the engine live.
type EventBridge struct {
	hub        *Hub
	eventsChan <-chan *models.Event
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewEventBridge(hub *Hub, eventsChan <-chan *models.Event) *EventBridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBridge{
		hub:        hub,
		eventsChan: eventsChan,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (b *EventBridge) Start() {
	go b.run()
	logger.Info("WebSocket event bridge started")
}

func (b *EventBridge) Stop() {
	b.cancel()
	logger.Info("WebSocket event bridge stopped")
}

func (b *EventBridge) run() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.eventsChan:
			if !ok {
				logger.Info("Event channel closed, stopping bridge")
				return
			}
			b.forwardEvent(event)
		}
	}
}

// StreamMessage is the wire format sent to websocket clients.
type StreamMessage struct {
	Type      string      `json:"type"`
	BatchID   string      `json:"batch_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Severity  string      `json:"severity,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func (b *EventBridge) forwardEvent(event *models.Event) {
	msg := StreamMessage{
		Type:      string(event.Type),
		BatchID:   event.BatchID,
		Timestamp: event.Timestamp,
		Severity:  string(event.Severity),
		Message:   event.Message,
		Data:      event.Data,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		logger.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	b.hub.BroadcastFiltered(string(event.Type), data)
}
