package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminStore is the persistence surface the admin console needs.
type AdminStore interface {
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrderDelivery(ctx context.Context, orderID int64, beingDelivered, received bool) error
	ListOrders(ctx context.Context, ordered, beingDelivered, received *bool) ([]models.Order, error)
	CreateItem(ctx context.Context, item *models.Item) error
	UpdateItem(ctx context.Context, item *models.Item) error
	GetItemBySlug(ctx context.Context, slug string) (*models.Item, error)
	AddItemImage(ctx context.Context, image *models.ItemImage) error
	CountItemImages(ctx context.Context, itemID int64) (int, error)
}

// DeliveryEventPublisher publishes delivery status events.
type DeliveryEventPublisher interface {
	PublishDeliveryUpdated(ctx context.Context, event *models.DeliveryUpdatedEvent) error
}

// AdminService is the privileged client of the order state machine: bulk
// delivery commands and catalog management.
type AdminService struct {
	store     AdminStore
	publisher DeliveryEventPublisher
	logger    *zap.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(store AdminStore, publisher DeliveryEventPublisher) *AdminService {
	return &AdminService{
		store:     store,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// BulkDeliveryResult reports which orders a bulk command touched and which it
// rejected, with the reason per rejection.
type BulkDeliveryResult struct {
	Updated  []int64          `json:"updated"`
	Rejected map[int64]string `json:"rejected,omitempty"`
}

// ApplyDeliveryCommand applies one delivery command to each order, validating
// the transition against the order's current state. Invalid orders are
// rejected individually; the rest proceed.
func (s *AdminService) ApplyDeliveryCommand(ctx context.Context, command string, orderIDs []int64) (*BulkDeliveryResult, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.ApplyDeliveryCommand")
	defer span.End()

	result := &BulkDeliveryResult{Rejected: map[int64]string{}}
	for _, orderID := range orderIDs {
		if err := s.applyDeliveryCommand(ctx, command, orderID); err != nil {
			if errors.Is(err, store.ErrNotFound) || errors.Is(err, ErrNotFound) ||
				errors.Is(err, ErrNotDelivered) || errors.Is(err, ErrNoActiveOrder) {
				result.Rejected[orderID] = err.Error()
				util.DeliveryCommandsRejected.WithLabelValues(command, rejectReason(err)).Inc()
				s.logger.Warn("Delivery command rejected",
					zap.String("command", command),
					zap.Int64("order_id", orderID),
					zap.Error(err))
				continue
			}
			return nil, err
		}
		result.Updated = append(result.Updated, orderID)
		util.DeliveryCommandsTotal.WithLabelValues(command).Inc()
	}
	return result, nil
}

func (s *AdminService) applyDeliveryCommand(ctx context.Context, command string, orderID int64) error {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.Ordered {
		return fmt.Errorf("order %d is still an open cart: %w", orderID, ErrNoActiveOrder)
	}

	beingDelivered, received := order.BeingDelivered, order.Received
	switch command {
	case models.DeliveryCommandDelivered:
		beingDelivered = true
	case models.DeliveryCommandNotDelivered:
		beingDelivered = false
		received = false
	case models.DeliveryCommandReceived:
		if !order.BeingDelivered {
			return fmt.Errorf("order %d: %w", orderID, ErrNotDelivered)
		}
		received = true
	case models.DeliveryCommandNotReceived:
		received = false
	default:
		return fmt.Errorf("unknown delivery command %q", command)
	}

	if err := s.store.UpdateOrderDelivery(ctx, orderID, beingDelivered, received); err != nil {
		return err
	}

	event := &models.DeliveryUpdatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeDeliveryUpdated,
			Timestamp: time.Now(),
		},
		OrderID:        orderID,
		Command:        command,
		BeingDelivered: beingDelivered,
		Received:       received,
	}
	if err := s.publisher.PublishDeliveryUpdated(ctx, event); err != nil {
		s.logger.Error("Failed to publish DeliveryUpdated event", zap.Error(err))
	}
	return nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrNotDelivered):
		return "not_delivered"
	case errors.Is(err, ErrNoActiveOrder):
		return "open_cart"
	default:
		return "not_found"
	}
}

// ListOrders returns orders filtered by the optional status flags.
func (s *AdminService) ListOrders(ctx context.Context, ordered, beingDelivered, received *bool) ([]models.Order, error) {
	return s.store.ListOrders(ctx, ordered, beingDelivered, received)
}

// CreateItem creates a catalog item and derives its unique slug from the
// title and the assigned id.
func (s *AdminService) CreateItem(ctx context.Context, item *models.Item) (*models.Item, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.CreateItem")
	defer span.End()

	if item.Title == "" {
		return nil, &ValidationError{Fields: map[string]string{"title": "title is required"}}
	}

	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	item.Slug = Slugify(fmt.Sprintf("%s %d", item.Title, item.ID))
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to set item slug: %w", err)
	}

	s.logger.Info("Item created",
		zap.Int64("item_id", item.ID),
		zap.String("slug", item.Slug))
	return item, nil
}

// UpdateItem updates an existing item located by slug. The slug itself is
// stable across edits.
func (s *AdminService) UpdateItem(ctx context.Context, slug string, apply func(*models.Item)) (*models.Item, error) {
	item, err := s.store.GetItemBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("item %q: %w", slug, ErrNotFound)
		}
		return nil, err
	}

	apply(item)
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return item, nil
}

// AddItemImage attaches an image to the item, capped at MaxImagesPerItem.
func (s *AdminService) AddItemImage(ctx context.Context, slug, url string) (*models.ItemImage, error) {
	item, err := s.store.GetItemBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("item %q: %w", slug, ErrNotFound)
		}
		return nil, err
	}

	count, err := s.store.CountItemImages(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if count >= models.MaxImagesPerItem {
		return nil, &ValidationError{Fields: map[string]string{
			"image": fmt.Sprintf("at most %d images per item", models.MaxImagesPerItem),
		}}
	}

	image := &models.ItemImage{ItemID: item.ID, URL: url}
	if err := s.store.AddItemImage(ctx, image); err != nil {
		return nil, fmt.Errorf("failed to add item image: %w", err)
	}
	return image, nil
}
