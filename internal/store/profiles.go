package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/matching-service/internal/model"
)

// ProfileStore reads user matching profiles. Profiles are written by the
// user service; this service only consumes them.
type ProfileStore struct {
	pool *pgxpool.Pool
}

// NewProfileStore returns a store backed by pool.
func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

// GetProfile returns the matching profile for userID, or (nil, nil) when
// the user has not filled one in yet.
func (s *ProfileStore) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	var p model.UserProfile
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, skills, location, experience_level, preferences
		 FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.Skills, &p.Location, &p.ExperienceLevel, &p.Preferences)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}
