package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/TinyAII/dqcq/internal/services/nations/domain"
	"github.com/TinyAII/dqcq/internal/services/nations/storage"
)

func insertMembership(ctx context.Context, tx *sql.Tx, member domain.Membership) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO memberships (identity, nation_id, display_name, joined_at)
		 VALUES (?, ?, ?, ?)`,
		member.Identity,
		member.NationID,
		member.DisplayName,
		toMillis(member.JoinedAt),
	)
	if err != nil {
		if isUniqueViolation(err, "memberships.identity") {
			return storage.ErrMembershipExists
		}
		return fmt.Errorf("insert membership: %w", mapTransient(err))
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO inventories (identity, nation_id) VALUES (?, ?)`,
		member.Identity,
		member.NationID,
	)
	if err != nil {
		return fmt.Errorf("insert inventory: %w", mapTransient(err))
	}

	_, err = tx.ExecContext(
		ctx,
		`UPDATE nations SET member_count = member_count + 1 WHERE id = ?`,
		member.NationID,
	)
	if err != nil {
		return fmt.Errorf("increment member count: %w", mapTransient(err))
	}
	return nil
}

// GetMembership returns the membership for one identity.
func (s *Store) GetMembership(ctx context.Context, identity string) (domain.Membership, error) {
	if err := ctx.Err(); err != nil {
		return domain.Membership{}, err
	}
	if err := s.ready(); err != nil {
		return domain.Membership{}, err
	}
	if identity == "" {
		return domain.Membership{}, fmt.Errorf("identity is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT identity, nation_id, display_name, joined_at
		 FROM memberships WHERE identity = ?`,
		identity,
	)
	var member domain.Membership
	var joinedAt int64
	err := row.Scan(&member.Identity, &member.NationID, &member.DisplayName, &joinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Membership{}, storage.ErrNotFound
		}
		return domain.Membership{}, fmt.Errorf("get membership: %w", mapTransient(err))
	}
	member.JoinedAt = fromMillis(joinedAt)
	return member, nil
}

// AddMember inserts a membership and an empty inventory and increments the
// nation's member count in one transaction. The target nation must exist.
func (s *Store) AddMember(ctx context.Context, member domain.Membership) error {
	if member.Identity == "" {
		return fmt.Errorf("identity is required")
	}
	if member.NationID == "" {
		return fmt.Errorf("nation id is required")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM nations WHERE id = ?`, member.NationID).Scan(&exists)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("check nation: %w", mapTransient(err))
		}
		return insertMembership(ctx, tx, member)
	})
}

// RemoveMember deletes the membership, its assignments, and its inventory,
// decrements the member count, and dissolves the nation when the count
// reaches zero, all in one transaction. The inventory balances are discarded
// with the row; nothing transfers to the treasury.
func (s *Store) RemoveMember(ctx context.Context, identity string) (storage.LeaveOutcome, error) {
	if identity == "" {
		return storage.LeaveOutcome{}, fmt.Errorf("identity is required")
	}

	var outcome storage.LeaveOutcome
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var nationID string
		err := tx.QueryRowContext(ctx, `SELECT nation_id FROM memberships WHERE identity = ?`, identity).Scan(&nationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("lookup membership: %w", mapTransient(err))
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM memberships WHERE identity = ?`, identity); err != nil {
			return fmt.Errorf("delete membership: %w", mapTransient(err))
		}
		if _, err := tx.ExecContext(
			ctx,
			`DELETE FROM position_assignments WHERE nation_id = ? AND identity = ?`,
			nationID,
			identity,
		); err != nil {
			return fmt.Errorf("delete position assignments: %w", mapTransient(err))
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM inventories WHERE identity = ?`, identity); err != nil {
			return fmt.Errorf("delete inventory: %w", mapTransient(err))
		}
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE nations SET member_count = member_count - 1 WHERE id = ?`,
			nationID,
		); err != nil {
			return fmt.Errorf("decrement member count: %w", mapTransient(err))
		}

		row := tx.QueryRowContext(ctx, `SELECT `+nationColumns+` FROM nations WHERE id = ?`, nationID)
		nation, err := scanNation(row)
		if err != nil {
			return fmt.Errorf("reload nation: %w", mapTransient(err))
		}
		outcome.Nation = nation

		if nation.MemberCount <= 0 {
			outcome.Dissolved = true
			return dissolveNationTx(ctx, tx, nationID)
		}
		return nil
	})
	if err != nil {
		return storage.LeaveOutcome{}, err
	}
	return outcome, nil
}

// ListMembers returns every member of a nation with the titles each holds,
// ordered by join time.
func (s *Store) ListMembers(ctx context.Context, nationID string) ([]storage.MemberRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	if nationID == "" {
		return nil, fmt.Errorf("nation id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT identity, nation_id, display_name, joined_at
		 FROM memberships WHERE nation_id = ?
		 ORDER BY joined_at ASC, identity ASC`,
		nationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", mapTransient(err))
	}
	defer rows.Close()

	var records []storage.MemberRecord
	index := make(map[string]int)
	for rows.Next() {
		var member domain.Membership
		var joinedAt int64
		if err := rows.Scan(&member.Identity, &member.NationID, &member.DisplayName, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		member.JoinedAt = fromMillis(joinedAt)
		index[member.Identity] = len(records)
		records = append(records, storage.MemberRecord{Membership: member})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}

	titleRows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT identity, title FROM position_assignments WHERE nation_id = ?`,
		nationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list position assignments: %w", mapTransient(err))
	}
	defer titleRows.Close()

	for titleRows.Next() {
		var identity, title string
		if err := titleRows.Scan(&identity, &title); err != nil {
			return nil, fmt.Errorf("scan position assignment: %w", err)
		}
		if i, ok := index[identity]; ok {
			records[i].Titles = append(records[i].Titles, title)
		}
	}
	if err := titleRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position assignments: %w", err)
	}

	for i := range records {
		sort.Strings(records[i].Titles)
	}
	return records, nil
}
