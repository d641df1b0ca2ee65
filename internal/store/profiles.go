package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/models"
)

// UpsertProfile inserts or replaces the user's contact record.
func (s *Store) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, first_name, last_name, email, phone_number, address, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			phone_number = EXCLUDED.phone_number,
			address = EXCLUDED.address,
			updated_at = NOW()
		RETURNING updated_at`

	return s.db.GetContext(ctx, &profile.UpdatedAt, query,
		profile.UserID, profile.FirstName, profile.LastName,
		profile.Email, profile.PhoneNumber, profile.Address)
}

// GetProfile retrieves the user's contact record
func (s *Store) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.GetContext(ctx, &profile, "SELECT * FROM profiles WHERE user_id = $1", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile for user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
