package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartStore is the persistence surface the cart state machine needs.
type CartStore interface {
	GetItemBySlug(ctx context.Context, slug string) (*models.Item, error)
	GetItemsByIDs(ctx context.Context, ids []int64) (map[int64]*models.Item, error)
	GetOpenOrder(ctx context.Context, userID int64) (*models.Order, error)
	CreateOpenOrder(ctx context.Context, userID int64) (*models.Order, error)
	GetUnorderedLine(ctx context.Context, userID, itemID int64) (*models.OrderLine, error)
	CreateOrderLine(ctx context.Context, line *models.OrderLine) error
	UpdateOrderLine(ctx context.Context, line *models.OrderLine) error
	DeleteOrderLine(ctx context.Context, lineID int64) error
	GetOrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error)
}

// CartLocker serializes cart mutations per user.
type CartLocker interface {
	AcquireCartLock(ctx context.Context, userID int64, ttl time.Duration) (bool, error)
	ReleaseCartLock(ctx context.Context, userID int64) error
}

// CartService governs how a user's open order accumulates and sheds lines.
type CartService struct {
	store   CartStore
	locker  CartLocker
	lockTTL time.Duration
	logger  *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store CartStore, locker CartLocker, lockTTL time.Duration) *CartService {
	return &CartService{
		store:   store,
		locker:  locker,
		lockTTL: lockTTL,
		logger:  util.GetLogger(),
	}
}

// CartLineView is one cart line joined with its item and priced.
type CartLineView struct {
	Line      models.OrderLine `json:"line"`
	Item      models.Item      `json:"item"`
	LineTotal decimal.Decimal  `json:"line_total"`
}

// CartView is the user's open order with priced lines.
type CartView struct {
	Order models.Order    `json:"order"`
	Lines []CartLineView  `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// AddToCart adds one unit of the item to the user's cart. A pre-existing line
// on the order gets its quantity incremented; a detached line is re-attached;
// otherwise a fresh line is created. There is no stock check.
func (s *CartService) AddToCart(ctx context.Context, userID int64, slug string) (*models.OrderLine, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddToCart")
	defer span.End()

	item, err := s.store.GetItemBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			util.CartMutationsRejected.WithLabelValues("unknown_item").Inc()
			return nil, fmt.Errorf("item %q: %w", slug, ErrNotFound)
		}
		return nil, err
	}

	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	order, err := s.findOrCreateOpenOrder(ctx, userID)
	if err != nil {
		return nil, err
	}

	line, err := s.store.GetUnorderedLine(ctx, userID, item.ID)
	switch {
	case err == nil && line.OrderID != nil && *line.OrderID == order.ID:
		line.Quantity++
		if err := s.store.UpdateOrderLine(ctx, line); err != nil {
			return nil, fmt.Errorf("failed to update line quantity: %w", err)
		}

	case err == nil:
		// Existing line not on the order (previously detached): re-attach it.
		line.OrderID = &order.ID
		if err := s.store.UpdateOrderLine(ctx, line); err != nil {
			return nil, fmt.Errorf("failed to attach line: %w", err)
		}

	case errors.Is(err, store.ErrNotFound):
		line = &models.OrderLine{
			UserID:   userID,
			ItemID:   item.ID,
			OrderID:  &order.ID,
			Quantity: 1,
		}
		if err := s.store.CreateOrderLine(ctx, line); err != nil {
			return nil, fmt.Errorf("failed to create line: %w", err)
		}

	default:
		return nil, err
	}

	util.CartAddsTotal.Inc()
	s.logger.Info("Item added to cart",
		zap.Int64("user_id", userID),
		zap.String("slug", slug),
		zap.Int("quantity", line.Quantity))
	return line, nil
}

// RemoveFromCart detaches and deletes the matching line, whatever its quantity.
func (s *CartService) RemoveFromCart(ctx context.Context, userID int64, slug string) error {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveFromCart")
	defer span.End()

	unlock, line, err := s.lockedCartLine(ctx, userID, slug)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.store.DeleteOrderLine(ctx, line.ID); err != nil {
		return fmt.Errorf("failed to delete line: %w", err)
	}

	util.CartRemovesTotal.Inc()
	s.logger.Info("Item removed from cart",
		zap.Int64("user_id", userID),
		zap.String("slug", slug))
	return nil
}

// DecrementCartItem lowers the line quantity by one. At quantity 1 the line is
// detached from the order but the row is kept, so order totals exclude it.
func (s *CartService) DecrementCartItem(ctx context.Context, userID int64, slug string) (*models.OrderLine, error) {
	ctx, span := util.StartSpan(ctx, "CartService.DecrementCartItem")
	defer span.End()

	unlock, line, err := s.lockedCartLine(ctx, userID, slug)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if line.Quantity > 1 {
		line.Quantity--
	} else {
		line.OrderID = nil
	}
	if err := s.store.UpdateOrderLine(ctx, line); err != nil {
		return nil, fmt.Errorf("failed to update line: %w", err)
	}

	util.CartDecrementsTotal.Inc()
	s.logger.Info("Cart line decremented",
		zap.Int64("user_id", userID),
		zap.String("slug", slug),
		zap.Int("quantity", line.Quantity))
	return line, nil
}

// CartSummary returns the open order with its attached lines priced.
func (s *CartService) CartSummary(ctx context.Context, userID int64) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.CartSummary")
	defer span.End()

	order, err := s.store.GetOpenOrder(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoActiveOrder
		}
		return nil, err
	}

	lines, err := s.store.GetOrderLines(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	itemIDs := make([]int64, len(lines))
	for i, line := range lines {
		itemIDs[i] = line.ItemID
	}
	items, err := s.store.GetItemsByIDs(ctx, itemIDs)
	if err != nil {
		return nil, err
	}

	view := &CartView{Order: *order, Lines: make([]CartLineView, 0, len(lines)), Total: decimal.Zero}
	for _, line := range lines {
		item, ok := items[line.ItemID]
		if !ok {
			return nil, fmt.Errorf("item %d referenced by line %d: %w", line.ItemID, line.ID, ErrNotFound)
		}
		lineTotal := line.LineTotal(item)
		view.Lines = append(view.Lines, CartLineView{Line: line, Item: *item, LineTotal: lineTotal})
		view.Total = view.Total.Add(lineTotal)
	}
	return view, nil
}

// lockedCartLine resolves slug -> open order -> attached line under the cart
// lock, mapping misses to the user-facing taxonomy. The caller must invoke the
// returned unlock func unless err is non-nil.
func (s *CartService) lockedCartLine(ctx context.Context, userID int64, slug string) (func(), *models.OrderLine, error) {
	item, err := s.store.GetItemBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			util.CartMutationsRejected.WithLabelValues("unknown_item").Inc()
			return nil, nil, fmt.Errorf("item %q: %w", slug, ErrNotFound)
		}
		return nil, nil, err
	}

	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	order, err := s.store.GetOpenOrder(ctx, userID)
	if err != nil {
		unlock()
		if errors.Is(err, store.ErrNotFound) {
			util.CartMutationsRejected.WithLabelValues("no_active_order").Inc()
			return nil, nil, ErrNoActiveOrder
		}
		return nil, nil, err
	}

	line, err := s.store.GetUnorderedLine(ctx, userID, item.ID)
	if err != nil || line.OrderID == nil || *line.OrderID != order.ID {
		unlock()
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, nil, err
		}
		util.CartMutationsRejected.WithLabelValues("not_in_cart").Inc()
		return nil, nil, fmt.Errorf("item %q: %w", slug, ErrNotInCart)
	}

	return unlock, line, nil
}

// findOrCreateOpenOrder returns the user's open order, creating one when
// absent. Losing the create race to a concurrent request falls back to
// reading the winner's row.
func (s *CartService) findOrCreateOpenOrder(ctx context.Context, userID int64) (*models.Order, error) {
	order, err := s.store.GetOpenOrder(ctx, userID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	order, err = s.store.CreateOpenOrder(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return s.store.GetOpenOrder(ctx, userID)
		}
		return nil, err
	}
	s.logger.Info("Open order created",
		zap.Int64("user_id", userID),
		zap.Int64("order_id", order.ID))
	return order, nil
}

func (s *CartService) lock(ctx context.Context, userID int64) (func(), error) {
	ok, err := s.locker.AcquireCartLock(ctx, userID, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire cart lock: %w", err)
	}
	if !ok {
		util.CartMutationsRejected.WithLabelValues("cart_busy").Inc()
		return nil, ErrCartBusy
	}
	return func() {
		if err := s.locker.ReleaseCartLock(ctx, userID); err != nil {
			s.logger.Error("Failed to release cart lock",
				zap.Int64("user_id", userID),
				zap.Error(err))
		}
	}, nil
}
