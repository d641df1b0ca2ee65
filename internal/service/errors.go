package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error taxonomy recovered at the request boundary. Each maps to a
// user-visible notice and a fallback page, never a crash.
var (
	// ErrNotFound is returned for unknown items or orders.
	ErrNotFound = errors.New("not found")

	// ErrNoActiveOrder is returned for cart or checkout operations when the
	// user has no open order.
	ErrNoActiveOrder = errors.New("no active order")

	// ErrNotInCart is returned when removing or decrementing an item that is
	// not on the open order.
	ErrNotInCart = errors.New("item not in cart")

	// ErrNotDelivered rejects marking an order received before it is being
	// delivered.
	ErrNotDelivered = errors.New("order is not being delivered")

	// ErrCartBusy is returned when another request holds the user's cart lock.
	ErrCartBusy = errors.New("cart is being modified by another request")
)

// ValidationError reports malformed checkout form fields.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid fields: %s", strings.Join(names, ", "))
}

// AsValidationError returns the *ValidationError in err's chain, if any.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}
