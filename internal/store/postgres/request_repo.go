package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/emperorhan/tx-relayer/internal/domain/model"
	"github.com/emperorhan/tx-relayer/internal/store"
)

type RequestRepo struct {
	db *DB
}

func NewRequestRepo(db *DB) *RequestRepo {
	return &RequestRepo{db: db}
}

const requestColumns = `id, chain, nonce, tx, hash, mined, superseded, stuck, attempts, last_broadcast_at, created_at, updated_at`

// Create inserts the request. On id conflict the existing row wins and is
// returned unchanged, which makes retried submissions idempotent.
func (r *RequestRepo) Create(ctx context.Context, req *model.Request) (*model.Request, error) {
	txJSON, err := model.MarshalTx(req.Tx)
	if err != nil {
		return nil, fmt.Errorf("marshal tx envelope: %w", err)
	}

	insertCtx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	row := r.db.QueryRowContext(insertCtx, `
		INSERT INTO requests (id, chain, nonce, tx, hash, mined, attempts, last_broadcast_at)
		VALUES ($1, $2, $3, $4, $5, false, 1, now())
		ON CONFLICT (id) DO NOTHING
		RETURNING `+requestColumns,
		req.ID, int64(req.Chain), int64(req.Nonce), txJSON, req.Hash,
	)

	created, err := scanRequest(row)
	if err == sql.ErrNoRows {
		// Conflict: the id already exists and the stored row wins.
		return r.Get(ctx, req.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return created, nil
}

func (r *RequestRepo) Get(ctx context.Context, id string) (*model.Request, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE id = $1
	`, id)

	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

// UpdateHash swaps in the replacement envelope and hash. The mined guard
// is part of the statement so a concurrent confirmation cannot be
// overwritten.
func (r *RequestRepo) UpdateHash(ctx context.Context, id, newHash string, newTx model.Envelope) error {
	txJSON, err := model.MarshalTx(newTx)
	if err != nil {
		return fmt.Errorf("marshal tx envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE requests
		SET hash = $2, tx = $3, attempts = attempts + 1, last_broadcast_at = now(), updated_at = now()
		WHERE id = $1 AND mined = false
	`, id, newHash, txJSON)
	if err != nil {
		return fmt.Errorf("update hash: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update hash rows affected: %w", err)
	}
	if affected == 0 {
		var mined bool
		err := r.db.QueryRowContext(ctx, `SELECT mined FROM requests WHERE id = $1`, id).Scan(&mined)
		if err == sql.ErrNoRows {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("update hash recheck: %w", err)
		}
		if mined {
			return store.ErrAlreadyMined
		}
		return fmt.Errorf("update hash: no row updated for %s", id)
	}
	return nil
}

func (r *RequestRepo) MarkMined(ctx context.Context, id string) error {
	return r.setFlag(ctx, id, "mined")
}

func (r *RequestRepo) MarkSuperseded(ctx context.Context, id string) error {
	return r.setFlag(ctx, id, "superseded")
}

func (r *RequestRepo) MarkStuck(ctx context.Context, id string) error {
	return r.setFlag(ctx, id, "stuck")
}

func (r *RequestRepo) setFlag(ctx context.Context, id, column string) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	// column is one of three fixed names, never user input.
	res, err := r.db.ExecContext(ctx, `
		UPDATE requests SET `+column+` = true, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark %s: %w", column, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark %s rows affected: %w", column, err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *RequestRepo) ListPending(ctx context.Context, chain model.Chain) ([]*model.Request, error) {
	return r.list(ctx, chain, `mined = false AND superseded = false AND stuck = false`)
}

func (r *RequestRepo) ListUnresolved(ctx context.Context, chain model.Chain) ([]*model.Request, error) {
	return r.list(ctx, chain, `mined = false AND superseded = false`)
}

func (r *RequestRepo) list(ctx context.Context, chain model.Chain, where string) ([]*model.Request, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE chain = $1 AND `+where+`
		ORDER BY nonce ASC
	`, int64(chain))
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []*model.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return out, nil
}

func (r *RequestRepo) HighestNonce(ctx context.Context, chain model.Chain) (uint64, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var nonce sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT MAX(nonce) FROM requests WHERE chain = $1
	`, int64(chain)).Scan(&nonce)
	if err != nil {
		return 0, false, fmt.Errorf("highest nonce: %w", err)
	}
	if !nonce.Valid {
		return 0, false, nil
	}
	return uint64(nonce.Int64), true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*model.Request, error) {
	var (
		req     model.Request
		chain   int64
		nonce   int64
		rawTx   json.RawMessage
	)
	err := row.Scan(
		&req.ID, &chain, &nonce, &rawTx, &req.Hash,
		&req.Mined, &req.Superseded, &req.Stuck, &req.Attempts,
		&req.LastBroadcastAt, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	req.Chain = model.Chain(chain)
	req.Nonce = uint64(nonce)
	if req.Tx, err = model.UnmarshalTx(rawTx); err != nil {
		return nil, fmt.Errorf("unmarshal tx envelope: %w", err)
	}
	return &req, nil
}
