package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory stand-in for the sqlx store, honoring the same
// sentinel errors and the open-order / ref-code uniqueness rules the schema
// enforces.
type fakeStore struct {
	mu sync.Mutex

	nextID     int64
	items      map[int64]*models.Item
	images     map[int64][]models.ItemImage
	categories []models.Category
	orders     map[int64]*models.Order
	lines      map[int64]*models.OrderLine
	profiles   map[int64]*models.Profile
	payments   map[int64]*models.Payment
	processed  map[string]string

	// refCodeCollisions forces this many FinalizeOrder calls to fail with
	// ErrDuplicate before one succeeds.
	refCodeCollisions int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:     map[int64]*models.Item{},
		images:    map[int64][]models.ItemImage{},
		orders:    map[int64]*models.Order{},
		lines:     map[int64]*models.OrderLine{},
		profiles:  map[int64]*models.Profile{},
		payments:  map[int64]*models.Payment{},
		processed: map[string]string{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

// addItem seeds a catalog item; discount may be empty.
func (f *fakeStore) addItem(title, price, discount string) *models.Item {
	f.mu.Lock()
	defer f.mu.Unlock()

	item := &models.Item{
		ID:        f.id(),
		Title:     title,
		Price:     decimal.RequireFromString(price),
		CreatedAt: time.Now(),
	}
	if discount != "" {
		item.DiscountPrice = decimal.NullDecimal{
			Decimal: decimal.RequireFromString(discount),
			Valid:   true,
		}
	}
	item.Slug = Slugify(fmt.Sprintf("%s %d", title, item.ID))
	f.items[item.ID] = item
	return item
}

func (f *fakeStore) addCategory(name string) *models.Category {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := models.Category{ID: f.id(), Name: name}
	f.categories = append(f.categories, c)
	return &c
}

func (f *fakeStore) GetItemBySlug(_ context.Context, slug string) (*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.Slug == slug {
			cp := *item
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("item %q: %w", slug, store.ErrNotFound)
}

func (f *fakeStore) GetItemsByIDs(_ context.Context, ids []int64) (map[int64]*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[int64]*models.Item{}
	for _, id := range ids {
		if item, ok := f.items[id]; ok {
			cp := *item
			out[id] = &cp
		}
	}
	return out, nil
}

func (f *fakeStore) GetOpenOrder(_ context.Context, userID int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.UserID == userID && !order.Ordered {
			cp := *order
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("open order for user %d: %w", userID, store.ErrNotFound)
}

func (f *fakeStore) CreateOpenOrder(_ context.Context, userID int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.UserID == userID && !order.Ordered {
			return nil, fmt.Errorf("open order for user %d: %w", userID, store.ErrDuplicate)
		}
	}
	order := &models.Order{ID: f.id(), UserID: userID, StartDate: time.Now()}
	f.orders[order.ID] = order
	cp := *order
	return &cp, nil
}

func (f *fakeStore) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, store.ErrNotFound)
	}
	cp := *order
	return &cp, nil
}

func (f *fakeStore) GetOrdersByUserID(_ context.Context, userID int64) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, order := range f.orders {
		if order.UserID == userID && order.Ordered {
			out = append(out, *order)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) ListOrders(_ context.Context, ordered, beingDelivered, received *bool) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, order := range f.orders {
		if ordered != nil && order.Ordered != *ordered {
			continue
		}
		if beingDelivered != nil && order.BeingDelivered != *beingDelivered {
			continue
		}
		if received != nil && order.Received != *received {
			continue
		}
		out = append(out, *order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateOrderDelivery(_ context.Context, orderID int64, beingDelivered, received bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return fmt.Errorf("order %d: %w", orderID, store.ErrNotFound)
	}
	order.BeingDelivered = beingDelivered
	order.Received = received
	return nil
}

func (f *fakeStore) GetUnorderedLine(_ context.Context, userID, itemID int64) (*models.OrderLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found *models.OrderLine
	for _, line := range f.lines {
		if line.UserID == userID && line.ItemID == itemID && !line.Ordered {
			if found == nil || line.ID < found.ID {
				found = line
			}
		}
	}
	if found == nil {
		return nil, fmt.Errorf("line for user %d item %d: %w", userID, itemID, store.ErrNotFound)
	}
	cp := *found
	if found.OrderID != nil {
		oid := *found.OrderID
		cp.OrderID = &oid
	}
	return &cp, nil
}

func (f *fakeStore) CreateOrderLine(_ context.Context, line *models.OrderLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	line.ID = f.id()
	cp := *line
	f.lines[cp.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateOrderLine(_ context.Context, line *models.OrderLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.lines[line.ID]; !ok {
		return fmt.Errorf("line %d: %w", line.ID, store.ErrNotFound)
	}
	cp := *line
	f.lines[cp.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteOrderLine(_ context.Context, lineID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.lines, lineID)
	return nil
}

func (f *fakeStore) GetOrderLines(_ context.Context, orderID int64) ([]models.OrderLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.OrderLine
	for _, line := range f.lines {
		if line.OrderID != nil && *line.OrderID == orderID {
			out = append(out, *line)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpsertProfile(_ context.Context, profile *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile.UpdatedAt = time.Now()
	cp := *profile
	f.profiles[cp.UserID] = &cp
	return nil
}

func (f *fakeStore) GetProfile(_ context.Context, userID int64) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile for user %d: %w", userID, store.ErrNotFound)
	}
	cp := *profile
	return &cp, nil
}

func (f *fakeStore) CreatePayment(_ context.Context, payment *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	payment.ID = f.id()
	payment.CreatedAt = time.Now()
	cp := *payment
	f.payments[cp.ID] = &cp
	return nil
}

func (f *fakeStore) GetPaymentByID(_ context.Context, id int64) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payment, ok := f.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %d: %w", id, store.ErrNotFound)
	}
	cp := *payment
	return &cp, nil
}

func (f *fakeStore) FinalizeOrder(_ context.Context, orderID, paymentID int64, refCode string, orderedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.refCodeCollisions > 0 {
		f.refCodeCollisions--
		return fmt.Errorf("ref code %q: %w", refCode, store.ErrDuplicate)
	}
	for _, order := range f.orders {
		if order.RefCode != nil && *order.RefCode == refCode {
			return fmt.Errorf("ref code %q: %w", refCode, store.ErrDuplicate)
		}
	}

	order, ok := f.orders[orderID]
	if !ok || order.Ordered {
		return fmt.Errorf("open order %d: %w", orderID, store.ErrNotFound)
	}

	for _, line := range f.lines {
		if line.OrderID != nil && *line.OrderID == orderID {
			line.Ordered = true
		}
	}
	order.Ordered = true
	order.OrderedDate = &orderedAt
	order.PaymentID = &paymentID
	order.RefCode = &refCode
	return nil
}

func (f *fakeStore) CreateItem(_ context.Context, item *models.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.ID = f.id()
	item.CreatedAt = time.Now()
	cp := *item
	f.items[cp.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateItem(_ context.Context, item *models.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[item.ID]; !ok {
		return fmt.Errorf("item %d: %w", item.ID, store.ErrNotFound)
	}
	cp := *item
	f.items[cp.ID] = &cp
	return nil
}

func (f *fakeStore) AddItemImage(_ context.Context, image *models.ItemImage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	image.ID = f.id()
	f.images[image.ItemID] = append(f.images[image.ItemID], *image)
	return nil
}

func (f *fakeStore) CountItemImages(_ context.Context, itemID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.images[itemID]), nil
}

func (f *fakeStore) GetItemImages(_ context.Context, itemID int64) ([]models.ItemImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ItemImage(nil), f.images[itemID]...), nil
}

func (f *fakeStore) ListCategories(_ context.Context) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Category(nil), f.categories...), nil
}

func (f *fakeStore) ListItems(_ context.Context, search, category string, page, pageSize int) (*store.OffsetPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	categoryNames := map[int64]string{}
	for _, c := range f.categories {
		categoryNames[c.ID] = c.Name
	}

	var matched []models.Item
	for _, item := range f.items {
		hit := search == "" && category == ""
		if search != "" {
			hit = hit || strings.Contains(strings.ToLower(item.Title), strings.ToLower(search))
		}
		if category != "" && item.CategoryID != nil {
			name := categoryNames[*item.CategoryID]
			hit = hit || strings.Contains(strings.ToLower(name), strings.ToLower(category))
		}
		if hit {
			matched = append(matched, *item)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	return &store.OffsetPage{
		Items:      matched[start:end],
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// lineByID returns a copy of the raw line row, attached or not.
func (f *fakeStore) lineByID(id int64) (models.OrderLine, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	line, ok := f.lines[id]
	if !ok {
		return models.OrderLine{}, false
	}
	return *line, true
}

func (f *fakeStore) lineCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lines)
}

// fakeLocker implements CartLocker in memory.
type fakeLocker struct {
	mu   sync.Mutex
	held map[int64]bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[int64]bool{}}
}

func (l *fakeLocker) AcquireCartLock(_ context.Context, userID int64, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[userID] {
		return false, nil
	}
	l.held[userID] = true
	return true, nil
}

func (l *fakeLocker) ReleaseCartLock(_ context.Context, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, userID)
	return nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu        sync.Mutex
	placed    []*models.OrderPlacedEvent
	delivered []*models.DeliveryUpdatedEvent
}

func (p *fakePublisher) PublishOrderPlaced(_ context.Context, event *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = append(p.placed, event)
	return nil
}

func (p *fakePublisher) PublishDeliveryUpdated(_ context.Context, event *models.DeliveryUpdatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delivered = append(p.delivered, event)
	return nil
}
