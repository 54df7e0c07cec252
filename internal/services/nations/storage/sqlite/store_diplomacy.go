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

const requestColumns = "id, from_id, to_id, kind, gift_kind, gift_amount, status, created_at, resolved_at"

func scanRequest(row interface{ Scan(...any) error }) (domain.DiplomacyRequest, error) {
	var request domain.DiplomacyRequest
	var kind, giftKind, status string
	var createdAt, resolvedAt int64
	err := row.Scan(
		&request.ID,
		&request.FromID,
		&request.ToID,
		&kind,
		&giftKind,
		&request.Gift.Amount,
		&status,
		&createdAt,
		&resolvedAt,
	)
	if err != nil {
		return domain.DiplomacyRequest{}, err
	}
	request.Kind = domain.RequestKind(kind)
	request.Gift.Kind = domain.Resource(giftKind)
	request.Status = domain.RequestStatus(status)
	request.CreatedAt = fromMillis(createdAt)
	if resolvedAt > 0 {
		request.ResolvedAt = fromMillis(resolvedAt)
	}
	return request, nil
}

// CreateRequest debits any gift out of the sender treasury and inserts the
// pending request in one transaction. A failed insert rolls the debit back.
func (s *Store) CreateRequest(ctx context.Context, request domain.DiplomacyRequest) error {
	if request.ID == "" || request.FromID == "" || request.ToID == "" {
		return fmt.Errorf("request id, from id, and to id are required")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if !request.Gift.IsZero() {
			err := adjustTreasuryTx(ctx, tx, request.FromID, domain.Delta{request.Gift.Kind: -request.Gift.Amount})
			if err != nil {
				return err
			}
		}

		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO diplomacy_requests (id, from_id, to_id, kind, gift_kind, gift_amount, status, created_at, resolved_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)`,
			request.ID,
			request.FromID,
			request.ToID,
			string(request.Kind),
			string(request.Gift.Kind),
			request.Gift.Amount,
			string(domain.RequestStatusPending),
			toMillis(request.CreatedAt),
		)
		if err != nil {
			if isUniqueViolation(err, "diplomacy_requests.from_id") {
				return storage.ErrPendingRequestExists
			}
			return fmt.Errorf("insert request: %w", mapTransient(err))
		}
		return nil
	})
}

// ResolveRequest settles the pending request from fromID to toID exactly
// once. The status-guarded update is the settlement point: a concurrent
// resolver loses the guard and reports no pending request, so escrow is
// never credited twice.
func (s *Store) ResolveRequest(ctx context.Context, fromID, toID string, accept bool, resolvedAt time.Time) (domain.DiplomacyRequest, error) {
	if fromID == "" || toID == "" {
		return domain.DiplomacyRequest{}, fmt.Errorf("from id and to id are required")
	}

	var resolved domain.DiplomacyRequest
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(
			ctx,
			`SELECT `+requestColumns+` FROM diplomacy_requests
			 WHERE from_id = ? AND to_id = ? AND status = ?`,
			fromID,
			toID,
			string(domain.RequestStatusPending),
		)
		request, err := scanRequest(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("load pending request: %w", mapTransient(err))
		}

		status := domain.RequestStatusRejected
		if accept {
			status = domain.RequestStatusAccepted
		}
		result, err := tx.ExecContext(
			ctx,
			`UPDATE diplomacy_requests SET status = ?, resolved_at = ?
			 WHERE id = ? AND status = ?`,
			string(status),
			toMillis(resolvedAt),
			request.ID,
			string(domain.RequestStatusPending),
		)
		if err != nil {
			return fmt.Errorf("settle request: %w", mapTransient(err))
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("settle request rows affected: %w", err)
		}
		if affected == 0 {
			return storage.ErrNotFound
		}

		if !request.Gift.IsZero() {
			creditTo := request.FromID
			if accept {
				creditTo = request.ToID
			}
			err := adjustTreasuryTx(ctx, tx, creditTo, domain.Delta{request.Gift.Kind: request.Gift.Amount})
			if err != nil {
				return fmt.Errorf("settle escrow: %w", err)
			}
		}

		if accept {
			pairLow, pairHigh := domain.PairKey(request.FromID, request.ToID)
			// A relation may already exist from an earlier accepted request;
			// the duplicate insert is swallowed rather than failing settlement.
			if _, err := tx.ExecContext(
				ctx,
				`INSERT OR IGNORE INTO diplomacy_relations (pair_low, pair_high, kind, created_at)
				 VALUES (?, ?, ?, ?)`,
				pairLow,
				pairHigh,
				string(domain.RelationKindFriendly),
				toMillis(resolvedAt),
			); err != nil {
				return fmt.Errorf("insert relation: %w", mapTransient(err))
			}
		}

		request.Status = status
		request.ResolvedAt = resolvedAt.UTC()
		resolved = request
		return nil
	})
	if err != nil {
		return domain.DiplomacyRequest{}, err
	}
	return resolved, nil
}

// ListPendingRequests returns pending requests addressed to the nation,
// oldest first.
func (s *Store) ListPendingRequests(ctx context.Context, toID string) ([]domain.DiplomacyRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	if toID == "" {
		return nil, fmt.Errorf("to id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+requestColumns+` FROM diplomacy_requests
		 WHERE to_id = ? AND status = ?
		 ORDER BY created_at ASC, id ASC`,
		toID,
		string(domain.RequestStatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", mapTransient(err))
	}
	defer rows.Close()

	var requests []domain.DiplomacyRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return requests, nil
}

// ListRelations returns every relation involving the nation.
func (s *Store) ListRelations(ctx context.Context, nationID string) ([]domain.DiplomacyRelation, error) {
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
		`SELECT pair_low, pair_high, kind, created_at FROM diplomacy_relations
		 WHERE pair_low = ? OR pair_high = ?
		 ORDER BY created_at ASC`,
		nationID,
		nationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", mapTransient(err))
	}
	defer rows.Close()

	var relations []domain.DiplomacyRelation
	for rows.Next() {
		var relation domain.DiplomacyRelation
		var kind string
		var createdAt int64
		if err := rows.Scan(&relation.NationA, &relation.NationB, &kind, &createdAt); err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		relation.Kind = domain.RelationKind(kind)
		relation.CreatedAt = fromMillis(createdAt)
		relations = append(relations, relation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relations: %w", err)
	}
	return relations, nil
}

// DeleteRelation removes the relation for an unordered nation pair.
func (s *Store) DeleteRelation(ctx context.Context, nationA, nationB string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if nationA == "" || nationB == "" {
		return fmt.Errorf("both nation ids are required")
	}

	pairLow, pairHigh := domain.PairKey(nationA, nationB)
	result, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM diplomacy_relations WHERE pair_low = ? AND pair_high = ?`,
		pairLow,
		pairHigh,
	)
	if err != nil {
		return fmt.Errorf("delete relation: %w", mapTransient(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete relation rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
