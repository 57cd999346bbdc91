package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"catalog-service/internal/models"
	"catalog-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher is what the producer offers to the event publisher
type Publisher interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher handles publishing import domain events
type EventPublisher struct {
	producer Publisher
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer Publisher) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishImportRequested publishes ImportRequested event
func (ep *EventPublisher) PublishImportRequested(ctx context.Context, event *models.ImportRequestedEvent) error {
	return ep.producer.PublishEvent(ctx, "job-"+event.JobID, event)
}

// PublishImportCompleted publishes ImportCompleted event
func (ep *EventPublisher) PublishImportCompleted(ctx context.Context, event *models.ImportCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, "job-"+event.JobID, event)
}

// PublishProductImported publishes ProductImported event, keyed by SKU so
// updates of one product stay ordered
func (ep *EventPublisher) PublishProductImported(ctx context.Context, event *models.ProductImportedEvent) error {
	return ep.producer.PublishEvent(ctx, "sku-"+event.SKU, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onImportRequested func(context.Context, *models.ImportRequestedEvent) error
	onImportCompleted func(context.Context, *models.ImportCompletedEvent) error
	logger            *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnImportRequested registers a handler for ImportRequested events
func (eh *EventHandler) OnImportRequested(handler func(context.Context, *models.ImportRequestedEvent) error) {
	eh.onImportRequested = handler
}

// OnImportCompleted registers a handler for ImportCompleted events
func (eh *EventHandler) OnImportCompleted(handler func(context.Context, *models.ImportCompletedEvent) error) {
	eh.onImportCompleted = handler
}

// HandleMessage routes messages to appropriate handlers. Event types with no
// registered handler are ignored.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID),
	)

	switch baseEvent.EventType {
	case models.EventTypeImportRequested:
		if eh.onImportRequested != nil {
			var event models.ImportRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ImportRequested event: %w", err)
			}
			return eh.onImportRequested(ctx, &event)
		}

	case models.EventTypeImportCompleted:
		if eh.onImportCompleted != nil {
			var event models.ImportCompletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ImportCompleted event: %w", err)
			}
			return eh.onImportCompleted(ctx, &event)
		}
	}

	return nil
}
