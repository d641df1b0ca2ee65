package worker

import (
	"context"
	"fmt"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// FulfillmentStore is the persistence the worker needs for idempotency.
type FulfillmentStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// FulfillmentWorker consumes order events and hands placed orders to
// fulfillment. Processing is idempotent: each event is recorded and a
// redelivered event is skipped.
type FulfillmentWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        FulfillmentStore
	logger       *zap.Logger
}

// NewFulfillmentWorker creates a new fulfillment worker
func NewFulfillmentWorker(consumer *broker.Consumer, store FulfillmentStore) *FulfillmentWorker {
	w := &FulfillmentWorker{
		consumer: consumer,
		store:    store,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(w.handleOrderPlaced)
	eventHandler.OnDeliveryUpdated(w.handleDeliveryUpdated)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *FulfillmentWorker) Start(ctx context.Context) error {
	w.logger.Info("starting fulfillment worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *FulfillmentWorker) Stop() error {
	w.logger.Info("stopping fulfillment worker")
	return w.consumer.Close()
}

func (w *FulfillmentWorker) handleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	w.logger.Info("Order handed to fulfillment",
		zap.Int64("order_id", event.OrderID),
		zap.String("ref_code", event.RefCode),
		zap.String("total", event.Total.String()),
		zap.Int("lines", len(event.Items)))
	util.OrdersFulfilledTotal.Inc()

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

func (w *FulfillmentWorker) handleDeliveryUpdated(ctx context.Context, event *models.DeliveryUpdatedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		return nil
	}

	w.logger.Info("Delivery status changed",
		zap.Int64("order_id", event.OrderID),
		zap.String("command", event.Command),
		zap.Bool("being_delivered", event.BeingDelivered),
		zap.Bool("received", event.Received))

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}
