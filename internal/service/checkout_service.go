package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// refCodeAttempts bounds the retry loop on a ref code collision.
const refCodeAttempts = 5

// CheckoutStore is the persistence surface checkout needs.
type CheckoutStore interface {
	GetOpenOrder(ctx context.Context, userID int64) (*models.Order, error)
	GetOrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error)
	GetItemsByIDs(ctx context.Context, ids []int64) (map[int64]*models.Item, error)
	UpsertProfile(ctx context.Context, profile *models.Profile) error
	GetProfile(ctx context.Context, userID int64) (*models.Profile, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error)
	FinalizeOrder(ctx context.Context, orderID, paymentID int64, refCode string, orderedAt time.Time) error
	GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error)
}

// OrderEventPublisher publishes order lifecycle events.
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
}

// CheckoutService validates contact details, records the payment and flips
// the open order to its immutable ordered state.
type CheckoutService struct {
	store     CheckoutStore
	publisher OrderEventPublisher
	logger    *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(store CheckoutStore, publisher OrderEventPublisher) *CheckoutService {
	return &CheckoutService{
		store:     store,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// ContactForm carries the checkout contact details.
type ContactForm struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
}

// Validate checks the form, returning a *ValidationError with one message per
// bad field.
func (f *ContactForm) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(f.FirstName) == "" {
		fields["first_name"] = "first name is required"
	}
	if strings.TrimSpace(f.LastName) == "" {
		fields["last_name"] = "last name is required"
	}
	if strings.TrimSpace(f.Address) == "" {
		fields["address"] = "address is required"
	}
	if phone := strings.TrimSpace(f.PhoneNumber); phone == "" || !isDigits(phone) {
		fields["phone_number"] = "phone number must be numeric"
	}
	if _, err := mail.ParseAddress(f.Email); err != nil {
		fields["email"] = "a valid email is required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// CheckoutResult is returned after a successful checkout.
type CheckoutResult struct {
	Order   models.Order   `json:"order"`
	Payment models.Payment `json:"payment"`
}

// Checkout runs the full checkout against the user's open order: validate the
// form, upsert the profile, record the payment, then finalize the order with a
// fresh ref code. A second submit finds no open order and fails with
// ErrNoActiveOrder.
func (s *CheckoutService) Checkout(ctx context.Context, userID int64, form *ContactForm) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	order, err := s.store.GetOpenOrder(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			util.CheckoutFailedTotal.WithLabelValues("no_active_order").Inc()
			return nil, ErrNoActiveOrder
		}
		return nil, err
	}

	if err := form.Validate(); err != nil {
		util.CheckoutFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	profile := &models.Profile{
		UserID:      userID,
		FirstName:   strings.TrimSpace(form.FirstName),
		LastName:    strings.TrimSpace(form.LastName),
		Email:       strings.TrimSpace(form.Email),
		PhoneNumber: strings.TrimSpace(form.PhoneNumber),
		Address:     strings.TrimSpace(form.Address),
	}
	if err := s.store.UpsertProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
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

	payment := &models.Payment{UserID: userID}
	eventItems := make([]models.OrderLineData, 0, len(lines))
	for _, line := range lines {
		item, ok := items[line.ItemID]
		if !ok {
			return nil, fmt.Errorf("item %d referenced by line %d: %w", line.ItemID, line.ID, ErrNotFound)
		}
		payment.Amount = payment.Amount.Add(line.LineTotal(item))
		eventItems = append(eventItems, models.OrderLineData{
			ItemID:    line.ItemID,
			Quantity:  line.Quantity,
			UnitPrice: item.EffectivePrice(),
		})
	}

	if err := s.store.CreatePayment(ctx, payment); err != nil {
		util.CheckoutFailedTotal.WithLabelValues("payment").Inc()
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}
	util.PaymentsRecordedTotal.Inc()

	orderedAt := time.Now()
	refCode, err := s.finalizeWithRefCode(ctx, order.ID, payment.ID, orderedAt)
	if err != nil {
		util.CheckoutFailedTotal.WithLabelValues("finalize").Inc()
		return nil, err
	}

	order.Ordered = true
	order.OrderedDate = &orderedAt
	order.PaymentID = &payment.ID
	order.RefCode = &refCode

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("user_id", userID),
		zap.Int64("order_id", order.ID),
		zap.String("ref_code", refCode),
		zap.String("amount", payment.Amount.String()))

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: orderedAt,
		},
		OrderID:   order.ID,
		UserID:    userID,
		RefCode:   refCode,
		PaymentID: payment.ID,
		Total:     payment.Amount,
		Items:     eventItems,
	}
	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}

	return &CheckoutResult{Order: *order, Payment: *payment}, nil
}

// finalizeWithRefCode retries finalization with fresh codes until the unique
// index accepts one.
func (s *CheckoutService) finalizeWithRefCode(ctx context.Context, orderID, paymentID int64, orderedAt time.Time) (string, error) {
	for attempt := 0; attempt < refCodeAttempts; attempt++ {
		refCode := NewRefCode()
		err := s.store.FinalizeOrder(ctx, orderID, paymentID, refCode, orderedAt)
		if err == nil {
			return refCode, nil
		}
		if errors.Is(err, store.ErrDuplicate) {
			s.logger.Warn("Ref code collision, retrying",
				zap.Int64("order_id", orderID),
				zap.Int("attempt", attempt+1))
			continue
		}
		return "", fmt.Errorf("failed to finalize order: %w", err)
	}
	return "", fmt.Errorf("exhausted %d ref code attempts for order %d", refCodeAttempts, orderID)
}

// CheckoutViewModel backs the checkout form: the open order plus any saved
// contact details.
type CheckoutViewModel struct {
	Order   models.Order    `json:"order"`
	Profile *models.Profile `json:"profile,omitempty"`
}

// CheckoutView returns the data the checkout page needs.
func (s *CheckoutService) CheckoutView(ctx context.Context, userID int64) (*CheckoutViewModel, error) {
	order, err := s.store.GetOpenOrder(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoActiveOrder
		}
		return nil, err
	}

	vm := &CheckoutViewModel{Order: *order}
	profile, err := s.store.GetProfile(ctx, userID)
	if err == nil {
		vm.Profile = profile
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return vm, nil
}

// OrderHistory returns the user's placed orders.
func (s *CheckoutService) OrderHistory(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.store.GetOrdersByUserID(ctx, userID)
}
