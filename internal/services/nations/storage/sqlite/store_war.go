package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/TinyAII/dqcq/internal/services/nations/domain"
	"github.com/TinyAII/dqcq/internal/services/nations/storage"
)

const warColumns = "id, attacker_id, defender_id, status, declared_at, ended_at"

func scanWar(row interface{ Scan(...any) error }) (domain.War, error) {
	var war domain.War
	var status string
	var declaredAt, endedAt int64
	err := row.Scan(&war.ID, &war.AttackerID, &war.DefenderID, &status, &declaredAt, &endedAt)
	if err != nil {
		return domain.War{}, err
	}
	war.Status = domain.WarStatus(status)
	war.DeclaredAt = fromMillis(declaredAt)
	if endedAt > 0 {
		war.EndedAt = fromMillis(endedAt)
	}
	return war, nil
}

// DeclareWar inserts the active war and advances the attacker's
// last-declared timestamp in one transaction. The attacker cooldown and the
// one-active-war-per-pair constraint are both checked inside the transaction
// so concurrent declarations cannot slip through.
func (s *Store) DeclareWar(ctx context.Context, war domain.War, cooldown time.Duration) error {
	if war.ID == "" || war.AttackerID == "" || war.DefenderID == "" {
		return fmt.Errorf("war id, attacker id, and defender id are required")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		// An existing active war between the pair wins over the attacker
		// cooldown, whichever direction it was declared in.
		pairLow, pairHigh := domain.PairKey(war.AttackerID, war.DefenderID)
		var existing int
		err := tx.QueryRowContext(
			ctx,
			`SELECT 1 FROM wars WHERE pair_low = ? AND pair_high = ? AND status = ?`,
			pairLow,
			pairHigh,
			string(domain.WarStatusActive),
		).Scan(&existing)
		if err == nil {
			return storage.ErrActiveWarExists
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check active war: %w", mapTransient(err))
		}

		var lastWar int64
		err = tx.QueryRowContext(ctx, `SELECT last_war_declared FROM nations WHERE id = ?`, war.AttackerID).Scan(&lastWar)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("read attacker: %w", mapTransient(err))
		}
		if lastWar > 0 && cooldown > 0 {
			elapsed := war.DeclaredAt.Sub(fromMillis(lastWar))
			if elapsed < cooldown {
				return &domain.CooldownError{Remaining: cooldown - elapsed}
			}
		}

		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO wars (id, attacker_id, defender_id, pair_low, pair_high, status, declared_at, ended_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
			war.ID,
			war.AttackerID,
			war.DefenderID,
			pairLow,
			pairHigh,
			string(domain.WarStatusActive),
			toMillis(war.DeclaredAt),
		)
		if err != nil {
			if isUniqueViolation(err, "wars.pair_low") {
				return storage.ErrActiveWarExists
			}
			return fmt.Errorf("insert war: %w", mapTransient(err))
		}

		if _, err := tx.ExecContext(
			ctx,
			`UPDATE nations SET last_war_declared = ? WHERE id = ?`,
			toMillis(war.DeclaredAt),
			war.AttackerID,
		); err != nil {
			return fmt.Errorf("advance last war declared: %w", mapTransient(err))
		}
		return nil
	})
}

// EndWar marks the active war declared by attacker against defender as
// ended. The status-guarded update settles at most once.
func (s *Store) EndWar(ctx context.Context, attackerID, defenderID string, endedAt time.Time) error {
	if attackerID == "" || defenderID == "" {
		return fmt.Errorf("attacker id and defender id are required")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(
			ctx,
			`UPDATE wars SET status = ?, ended_at = ?
			 WHERE attacker_id = ? AND defender_id = ? AND status = ?`,
			string(domain.WarStatusEnded),
			toMillis(endedAt),
			attackerID,
			defenderID,
			string(domain.WarStatusActive),
		)
		if err != nil {
			return fmt.Errorf("end war: %w", mapTransient(err))
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("end war rows affected: %w", err)
		}
		if affected == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

// ListActiveWars returns every active war involving the nation, newest first.
func (s *Store) ListActiveWars(ctx context.Context, nationID string) ([]domain.War, error) {
	return s.listWars(ctx, nationID, true, 0)
}

// ListWarHistory returns the nation's most recent wars in any status,
// newest first, capped at limit.
func (s *Store) ListWarHistory(ctx context.Context, nationID string, limit int) ([]domain.War, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	return s.listWars(ctx, nationID, false, limit)
}

func (s *Store) listWars(ctx context.Context, nationID string, activeOnly bool, limit int) ([]domain.War, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	if nationID == "" {
		return nil, fmt.Errorf("nation id is required")
	}

	query := `SELECT ` + warColumns + ` FROM wars WHERE (attacker_id = ? OR defender_id = ?)`
	args := []any{nationID, nationID}
	if activeOnly {
		query += ` AND status = ?`
		args = append(args, string(domain.WarStatusActive))
	}
	query += ` ORDER BY declared_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list wars: %w", mapTransient(err))
	}
	defer rows.Close()

	var wars []domain.War
	for rows.Next() {
		war, err := scanWar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan war: %w", err)
		}
		wars = append(wars, war)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wars: %w", err)
	}
	return wars, nil
}
