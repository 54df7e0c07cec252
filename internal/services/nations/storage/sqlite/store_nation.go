package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/TinyAII/dqcq/internal/services/nations/domain"
	"github.com/TinyAII/dqcq/internal/services/nations/storage"
)

const nationColumns = "id, name, founder_id, member_count, last_war_declared, created_at"

func scanNation(row interface{ Scan(...any) error }) (domain.Nation, error) {
	var nation domain.Nation
	var lastWar, createdAt int64
	err := row.Scan(
		&nation.ID,
		&nation.Name,
		&nation.FounderID,
		&nation.MemberCount,
		&lastWar,
		&createdAt,
	)
	if err != nil {
		return domain.Nation{}, err
	}
	if lastWar > 0 {
		nation.LastWarDeclared = fromMillis(lastWar)
	}
	nation.CreatedAt = fromMillis(createdAt)
	return nation, nil
}

// CreateNation inserts the nation, founder membership, founding treasury, and
// founder inventory in one transaction.
func (s *Store) CreateNation(ctx context.Context, nation domain.Nation, founder domain.Membership, treasury domain.Balances) error {
	if nation.ID == "" {
		return fmt.Errorf("nation id is required")
	}
	if strings.TrimSpace(nation.Name) == "" {
		return fmt.Errorf("nation name is required")
	}
	if founder.Identity == "" {
		return fmt.Errorf("founder identity is required")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		// Inserted at zero; the founder membership insert below brings the
		// count to one.
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO nations (id, name, founder_id, member_count, last_war_declared, created_at)
			 VALUES (?, ?, ?, 0, 0, ?)`,
			nation.ID,
			nation.Name,
			nation.FounderID,
			toMillis(nation.CreatedAt),
		)
		if err != nil {
			if isUniqueViolation(err, "nations.name") {
				return storage.ErrNameExists
			}
			return fmt.Errorf("insert nation: %w", mapTransient(err))
		}

		if err := insertMembership(ctx, tx, founder); err != nil {
			return err
		}

		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO treasuries (nation_id, gold, silver, jade) VALUES (?, ?, ?, ?)`,
			nation.ID,
			treasury.Gold,
			treasury.Silver,
			treasury.Jade,
		)
		if err != nil {
			return fmt.Errorf("insert treasury: %w", mapTransient(err))
		}
		return nil
	})
}

// GetNation returns one nation by id.
func (s *Store) GetNation(ctx context.Context, nationID string) (domain.Nation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Nation{}, err
	}
	if err := s.ready(); err != nil {
		return domain.Nation{}, err
	}
	if nationID == "" {
		return domain.Nation{}, fmt.Errorf("nation id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+nationColumns+` FROM nations WHERE id = ?`,
		nationID,
	)
	nation, err := scanNation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Nation{}, storage.ErrNotFound
		}
		return domain.Nation{}, fmt.Errorf("get nation: %w", mapTransient(err))
	}
	return nation, nil
}

// GetNationByName returns one nation by its unique name.
func (s *Store) GetNationByName(ctx context.Context, name string) (domain.Nation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Nation{}, err
	}
	if err := s.ready(); err != nil {
		return domain.Nation{}, err
	}
	if strings.TrimSpace(name) == "" {
		return domain.Nation{}, fmt.Errorf("nation name is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+nationColumns+` FROM nations WHERE name = ?`,
		name,
	)
	nation, err := scanNation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Nation{}, storage.ErrNotFound
		}
		return domain.Nation{}, fmt.Errorf("get nation by name: %w", mapTransient(err))
	}
	return nation, nil
}

// DissolveNation cascades deletion of every row referencing the nation.
func (s *Store) DissolveNation(ctx context.Context, nationID string) error {
	if nationID == "" {
		return fmt.Errorf("nation id is required")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return dissolveNationTx(ctx, tx, nationID)
	})
}

// dissolveNationTx removes the nation and every dependent row inside the
// caller's transaction. Escrowed gifts on pending requests addressed to the
// nation are refunded to their senders before the rows go away; escrow on
// requests the nation itself sent disappears with its treasury.
func dissolveNationTx(ctx context.Context, tx *sql.Tx, nationID string) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM nations WHERE id = ?`, nationID)
	if err != nil {
		return fmt.Errorf("delete nation: %w", mapTransient(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete nation rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	if err := refundInboundEscrowTx(ctx, tx, nationID); err != nil {
		return err
	}

	statements := []struct {
		verb  string
		query string
		args  []any
	}{
		{"delete memberships", `DELETE FROM memberships WHERE nation_id = ?`, []any{nationID}},
		{"delete positions", `DELETE FROM positions WHERE nation_id = ?`, []any{nationID}},
		{"delete position assignments", `DELETE FROM position_assignments WHERE nation_id = ?`, []any{nationID}},
		{"delete treasury", `DELETE FROM treasuries WHERE nation_id = ?`, []any{nationID}},
		{"delete inventories", `DELETE FROM inventories WHERE nation_id = ?`, []any{nationID}},
		{"delete wars", `DELETE FROM wars WHERE attacker_id = ? OR defender_id = ?`, []any{nationID, nationID}},
		{"delete diplomacy requests", `DELETE FROM diplomacy_requests WHERE from_id = ? OR to_id = ?`, []any{nationID, nationID}},
		{"delete diplomacy relations", `DELETE FROM diplomacy_relations WHERE pair_low = ? OR pair_high = ?`, []any{nationID, nationID}},
	}
	for _, statement := range statements {
		if _, err := tx.ExecContext(ctx, statement.query, statement.args...); err != nil {
			return fmt.Errorf("%s: %w", statement.verb, mapTransient(err))
		}
	}
	return nil
}

// refundInboundEscrowTx returns escrowed gifts on pending requests addressed
// to the dissolving nation back to their sender treasuries.
func refundInboundEscrowTx(ctx context.Context, tx *sql.Tx, nationID string) error {
	rows, err := tx.QueryContext(
		ctx,
		`SELECT from_id, gift_kind, gift_amount
		 FROM diplomacy_requests
		 WHERE to_id = ? AND status = ? AND gift_amount > 0`,
		nationID,
		string(domain.RequestStatusPending),
	)
	if err != nil {
		return fmt.Errorf("query inbound escrow: %w", mapTransient(err))
	}
	defer rows.Close()

	type refund struct {
		fromID string
		kind   string
		amount int64
	}
	var refunds []refund
	for rows.Next() {
		var r refund
		if err := rows.Scan(&r.fromID, &r.kind, &r.amount); err != nil {
			return fmt.Errorf("scan inbound escrow: %w", err)
		}
		refunds = append(refunds, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate inbound escrow: %w", err)
	}

	for _, r := range refunds {
		kind, err := domain.ParseResource(r.kind)
		if err != nil {
			return fmt.Errorf("refund escrow kind %q: %w", r.kind, err)
		}
		if err := adjustTreasuryTx(ctx, tx, r.fromID, domain.Delta{kind: r.amount}); err != nil {
			// The sender may itself be mid-dissolution; a missing treasury
			// simply discards the escrow like any other dissolved balance.
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return fmt.Errorf("refund escrow to %s: %w", r.fromID, err)
		}
	}
	return nil
}
