package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/TinyAII/dqcq/internal/services/nations/domain"
	"github.com/TinyAII/dqcq/internal/services/nations/storage"
)

// GetTreasury returns the balances of one nation treasury.
func (s *Store) GetTreasury(ctx context.Context, nationID string) (domain.Balances, error) {
	if err := ctx.Err(); err != nil {
		return domain.Balances{}, err
	}
	if err := s.ready(); err != nil {
		return domain.Balances{}, err
	}
	if nationID == "" {
		return domain.Balances{}, fmt.Errorf("nation id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT gold, silver, jade FROM treasuries WHERE nation_id = ?`,
		nationID,
	)
	var balances domain.Balances
	err := row.Scan(&balances.Gold, &balances.Silver, &balances.Jade)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Balances{}, storage.ErrNotFound
		}
		return domain.Balances{}, fmt.Errorf("get treasury: %w", mapTransient(err))
	}
	return balances, nil
}

// GetInventory returns the balances of one member inventory.
func (s *Store) GetInventory(ctx context.Context, identity string) (domain.Balances, error) {
	if err := ctx.Err(); err != nil {
		return domain.Balances{}, err
	}
	if err := s.ready(); err != nil {
		return domain.Balances{}, err
	}
	if identity == "" {
		return domain.Balances{}, fmt.Errorf("identity is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT gold, silver, jade FROM inventories WHERE identity = ?`,
		identity,
	)
	var balances domain.Balances
	err := row.Scan(&balances.Gold, &balances.Silver, &balances.Jade)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Balances{}, storage.ErrNotFound
		}
		return domain.Balances{}, fmt.Errorf("get inventory: %w", mapTransient(err))
	}
	return balances, nil
}

// AdjustTreasury applies delta to a treasury, rejecting any adjustment that
// would drive a balance negative.
func (s *Store) AdjustTreasury(ctx context.Context, nationID string, delta domain.Delta) error {
	if nationID == "" {
		return fmt.Errorf("nation id is required")
	}
	if len(delta) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return adjustTreasuryTx(ctx, tx, nationID, delta)
	})
}

// AdjustInventory applies delta to an inventory, rejecting any adjustment
// that would drive a balance negative.
func (s *Store) AdjustInventory(ctx context.Context, identity string, delta domain.Delta) error {
	if identity == "" {
		return fmt.Errorf("identity is required")
	}
	if len(delta) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return adjustInventoryTx(ctx, tx, identity, delta)
	})
}

func applyDelta(balances domain.Balances, delta domain.Delta) (domain.Balances, error) {
	for kind, amount := range delta {
		switch kind {
		case domain.ResourceGold:
			balances.Gold += amount
		case domain.ResourceSilver:
			balances.Silver += amount
		case domain.ResourceJade:
			balances.Jade += amount
		default:
			return domain.Balances{}, domain.ErrUnknownResource
		}
	}
	if balances.Gold < 0 || balances.Silver < 0 || balances.Jade < 0 {
		return domain.Balances{}, storage.ErrInsufficientBalance
	}
	return balances, nil
}

// adjustTreasuryTx is the tx-scoped treasury debit/credit primitive shared by
// the economy, diplomacy, and dissolution paths.
func adjustTreasuryTx(ctx context.Context, tx *sql.Tx, nationID string, delta domain.Delta) error {
	row := tx.QueryRowContext(ctx, `SELECT gold, silver, jade FROM treasuries WHERE nation_id = ?`, nationID)
	var balances domain.Balances
	if err := row.Scan(&balances.Gold, &balances.Silver, &balances.Jade); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("read treasury: %w", mapTransient(err))
	}

	next, err := applyDelta(balances, delta)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE treasuries SET gold = ?, silver = ?, jade = ? WHERE nation_id = ?`,
		next.Gold,
		next.Silver,
		next.Jade,
		nationID,
	); err != nil {
		return fmt.Errorf("update treasury: %w", mapTransient(err))
	}
	return nil
}

// adjustInventoryTx is the inventory analogue of adjustTreasuryTx.
func adjustInventoryTx(ctx context.Context, tx *sql.Tx, identity string, delta domain.Delta) error {
	row := tx.QueryRowContext(ctx, `SELECT gold, silver, jade FROM inventories WHERE identity = ?`, identity)
	var balances domain.Balances
	if err := row.Scan(&balances.Gold, &balances.Silver, &balances.Jade); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("read inventory: %w", mapTransient(err))
	}

	next, err := applyDelta(balances, delta)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE inventories SET gold = ?, silver = ?, jade = ? WHERE identity = ?`,
		next.Gold,
		next.Silver,
		next.Jade,
		identity,
	); err != nil {
		return fmt.Errorf("update inventory: %w", mapTransient(err))
	}
	return nil
}
