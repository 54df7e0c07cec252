package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/TinyAII/dqcq/internal/services/nations/domain"
)

// AssignPosition creates the position definition if absent and grants it to
// the member. Re-assignment replaces the existing grant timestamp.
func (s *Store) AssignPosition(ctx context.Context, assignment domain.PositionAssignment) error {
	if assignment.NationID == "" || assignment.Title == "" || assignment.Identity == "" {
		return fmt.Errorf("nation id, title, and identity are required")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO positions (nation_id, title, created_at)
			 VALUES (?, ?, ?)
			 ON CONFLICT(nation_id, title) DO NOTHING`,
			assignment.NationID,
			assignment.Title,
			toMillis(assignment.AssignedAt),
		)
		if err != nil {
			return fmt.Errorf("ensure position: %w", mapTransient(err))
		}

		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO position_assignments (nation_id, title, identity, assigned_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(nation_id, title, identity) DO UPDATE SET
			   assigned_at = excluded.assigned_at`,
			assignment.NationID,
			assignment.Title,
			assignment.Identity,
			toMillis(assignment.AssignedAt),
		)
		if err != nil {
			return fmt.Errorf("assign position: %w", mapTransient(err))
		}
		return nil
	})
}

// ClearPositions removes every assignment the identity holds within the
// nation. Position definitions remain for future grants.
func (s *Store) ClearPositions(ctx context.Context, nationID, identity string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if nationID == "" || identity == "" {
		return fmt.Errorf("nation id and identity are required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM position_assignments WHERE nation_id = ? AND identity = ?`,
		nationID,
		identity,
	)
	if err != nil {
		return fmt.Errorf("clear positions: %w", mapTransient(err))
	}
	return nil
}
