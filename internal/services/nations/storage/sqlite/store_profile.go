package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/TinyAII/dqcq/internal/services/nations/domain"
	"github.com/TinyAII/dqcq/internal/services/nations/storage"
)

// GetProfile returns the membership, balances, and check-in state for one
// identity.
func (s *Store) GetProfile(ctx context.Context, identity string) (storage.Profile, error) {
	if err := ctx.Err(); err != nil {
		return storage.Profile{}, err
	}
	if err := s.ready(); err != nil {
		return storage.Profile{}, err
	}
	if identity == "" {
		return storage.Profile{}, fmt.Errorf("identity is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT m.identity, m.nation_id, m.display_name, m.joined_at,
		        i.gold, i.silver, i.jade, i.checkin_count, i.last_checkin_day
		 FROM memberships m
		 JOIN inventories i ON i.identity = m.identity
		 WHERE m.identity = ?`,
		identity,
	)
	var profile storage.Profile
	var joinedAt int64
	err := row.Scan(
		&profile.Membership.Identity,
		&profile.Membership.NationID,
		&profile.Membership.DisplayName,
		&joinedAt,
		&profile.Balances.Gold,
		&profile.Balances.Silver,
		&profile.Balances.Jade,
		&profile.CheckInCount,
		&profile.LastCheckInDay,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Profile{}, storage.ErrNotFound
		}
		return storage.Profile{}, fmt.Errorf("get profile: %w", mapTransient(err))
	}
	profile.Membership.JoinedAt = fromMillis(joinedAt)
	return profile, nil
}

// RecordCheckIn credits the reward and advances the check-in counter at most
// once per day value. The day-guarded update is the idempotence point.
func (s *Store) RecordCheckIn(ctx context.Context, identity, day string, reward domain.Delta) error {
	if identity == "" {
		return fmt.Errorf("identity is required")
	}
	if day == "" {
		return fmt.Errorf("day is required")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var lastDay string
		err := tx.QueryRowContext(ctx, `SELECT last_checkin_day FROM inventories WHERE identity = ?`, identity).Scan(&lastDay)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("read check-in state: %w", mapTransient(err))
		}
		if lastDay == day {
			return storage.ErrAlreadyCheckedIn
		}

		if err := adjustInventoryTx(ctx, tx, identity, reward); err != nil {
			return err
		}

		result, err := tx.ExecContext(
			ctx,
			`UPDATE inventories SET checkin_count = checkin_count + 1, last_checkin_day = ?
			 WHERE identity = ? AND last_checkin_day != ?`,
			day,
			identity,
			day,
		)
		if err != nil {
			return fmt.Errorf("record check-in: %w", mapTransient(err))
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("record check-in rows affected: %w", err)
		}
		if affected == 0 {
			return storage.ErrAlreadyCheckedIn
		}
		return nil
	})
}
