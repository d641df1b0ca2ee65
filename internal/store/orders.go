package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
)

// GetOpenOrder retrieves the user's open order (the cart), if any.
func (s *Store) GetOpenOrder(ctx context.Context, userID int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE user_id = $1 AND NOT ordered", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("open order for user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateOpenOrder creates a new open order for the user. A concurrent create
// for the same user trips the orders_one_open_per_user index and surfaces as
// ErrDuplicate; callers re-read the winner's row.
func (s *Store) CreateOpenOrder(ctx context.Context, userID int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, `
		INSERT INTO orders (user_id) VALUES ($1)
		RETURNING *`, userID)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, fmt.Errorf("open order for user %d: %w", userID, ErrDuplicate)
		}
		return nil, err
	}
	return &order, nil
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByUserID retrieves the user's placed orders, most recent first.
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 AND ordered ORDER BY ordered_date DESC", userID)
	return orders, err
}

// ListOrders retrieves orders filtered by status flags for the admin surface.
// Nil filters are ignored.
func (s *Store) ListOrders(ctx context.Context, ordered, beingDelivered, received *bool) ([]models.Order, error) {
	query := "SELECT * FROM orders WHERE TRUE"
	args := []interface{}{}
	n := 1
	for _, f := range []struct {
		col string
		val *bool
	}{
		{"ordered", ordered},
		{"being_delivered", beingDelivered},
		{"received", received},
	} {
		if f.val != nil {
			query += fmt.Sprintf(" AND %s = $%d", f.col, n)
			args = append(args, *f.val)
			n++
		}
	}
	query += " ORDER BY id DESC"

	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, query, args...)
	return orders, err
}

// UpdateOrderDelivery sets the delivery flags on an order.
func (s *Store) UpdateOrderDelivery(ctx context.Context, orderID int64, beingDelivered, received bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET being_delivered = $1, received = $2 WHERE id = $3",
		beingDelivered, received, orderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	return nil
}

// GetUnorderedLine retrieves the user's not-yet-ordered line for an item,
// whether attached to an order or detached.
func (s *Store) GetUnorderedLine(ctx context.Context, userID, itemID int64) (*models.OrderLine, error) {
	var line models.OrderLine
	err := s.db.GetContext(ctx, &line, `
		SELECT * FROM order_lines
		WHERE user_id = $1 AND item_id = $2 AND NOT ordered
		ORDER BY id LIMIT 1`, userID, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("line for user %d item %d: %w", userID, itemID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// CreateOrderLine inserts a new order line
func (s *Store) CreateOrderLine(ctx context.Context, line *models.OrderLine) error {
	return s.db.GetContext(ctx, &line.ID, `
		INSERT INTO order_lines (user_id, item_id, order_id, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		line.UserID, line.ItemID, line.OrderID, line.Quantity)
}

// UpdateOrderLine persists quantity and attachment changes on a line.
func (s *Store) UpdateOrderLine(ctx context.Context, line *models.OrderLine) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE order_lines SET order_id = $1, quantity = $2 WHERE id = $3",
		line.OrderID, line.Quantity, line.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("line %d: %w", line.ID, ErrNotFound)
	}
	return nil
}

// DeleteOrderLine removes a line row entirely.
func (s *Store) DeleteOrderLine(ctx context.Context, lineID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM order_lines WHERE id = $1", lineID)
	return err
}

// GetOrderLines retrieves all lines attached to an order
func (s *Store) GetOrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM order_lines WHERE order_id = $1 ORDER BY id", orderID)
	return lines, err
}

// FinalizeOrder flips an open order and its attached lines to ordered in one
// transaction, stamping the ref code, payment and ordered date. The ref code
// unique index can reject the chosen code; callers retry with a fresh one.
func (s *Store) FinalizeOrder(ctx context.Context, orderID, paymentID int64, refCode string, orderedAt time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE order_lines SET ordered = TRUE WHERE order_id = $1", orderID); err != nil {
		return fmt.Errorf("failed to mark lines ordered: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET ordered = TRUE, ordered_date = $1, payment_id = $2, ref_code = $3
		WHERE id = $4 AND NOT ordered`,
		orderedAt, paymentID, refCode, orderID)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("ref code %q: %w", refCode, ErrDuplicate)
		}
		return fmt.Errorf("failed to mark order ordered: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("open order %d: %w", orderID, ErrNotFound)
	}

	return tx.Commit()
}
