// Copyright 2025 ClipSpark Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// SQLite backing for the users and cache collections.
//
// Logic Flow:
//  1. Open creates the database file, applies WAL and busy-timeout pragmas,
//     and runs the schema, all idempotently.
//  2. DebitUser relies on a conditional UPDATE so the check and the
//     decrement are a single statement the engine serializes; a naive
//     SELECT-then-UPDATE would race between two server instances sharing
//     the file.
//  3. CreditUser records the idempotency key and applies the grant inside
//     one transaction, so a replayed upgrade event cannot double-credit.
//  4. Analysis payloads are stored as JSON text; the cache never interprets
//     them.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/clipspark/clipspark/internal/core/model"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    id         TEXT PRIMARY KEY,
    email      TEXT NOT NULL,
    plan       TEXT NOT NULL,
    credits    INTEGER NOT NULL CHECK (credits >= 0),
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS cache (
    fingerprint TEXT PRIMARY KEY,
    result      TEXT NOT NULL,
    created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS credit_idempotency (
    key        TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
`

// SQLiteStore is the durable Store backing. A single *sql.DB is shared by
// all requests; SQLite's locking plus the conditional-UPDATE debit make
// balance mutations safe across connections and processes.
type SQLiteStore struct {
	db    *sql.DB
	clock func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and prepares
// the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// The pragmas ride on the DSN so they apply to every connection in the
	// database/sql pool, not just the one that happens to run an Exec.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, clock: time.Now}, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, plan, credits, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *SQLiteStore) PutUser(ctx context.Context, user *model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, plan, credits, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET email = excluded.email,
		     plan = excluded.plan, credits = excluded.credits`,
		user.ID, user.Email, string(user.Plan), user.Credits, user.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to persist user %s: %w", user.ID, err)
	}
	return nil
}

// DebitUser decrements the balance with a conditional UPDATE. Zero rows
// affected means either the user is unknown or the balance is exhausted;
// a follow-up read disambiguates the two.
func (s *SQLiteStore) DebitUser(ctx context.Context, id string) (*model.User, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET credits = credits - 1 WHERE id = ? AND credits > 0`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to debit user %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		if _, err := s.GetUser(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrInsufficientCredits
	}
	return s.GetUser(ctx, id)
}

func (s *SQLiteStore) CreditUser(ctx context.Context, id string, amount int, plan model.Plan, idemKey string) (*model.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	apply := true
	if idemKey != "" {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO credit_idempotency (key, user_id, created_at)
			 VALUES (?, ?, ?) ON CONFLICT (key) DO NOTHING`,
			idemKey, id, s.clock().UnixMilli())
		if err != nil {
			return nil, fmt.Errorf("failed to record idempotency key: %w", err)
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		// Key already seen: the grant was applied by an earlier delivery.
		apply = inserted > 0
	}

	if apply {
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET credits = credits + ?, plan = ? WHERE id = ?`,
			amount, string(plan), id)
		if err != nil {
			return nil, fmt.Errorf("failed to credit user %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, ErrNotFound
		}
	}

	row := tx.QueryRowContext(ctx,
		`SELECT id, email, plan, credits, created_at FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *SQLiteStore) LookupResult(ctx context.Context, fingerprint string) (*model.CachedResult, error) {
	var (
		payload   string
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT result, created_at FROM cache WHERE fingerprint = ?`, fingerprint).
		Scan(&payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up cache entry: %w", err)
	}

	result := &model.AnalysisResult{}
	if err := json.Unmarshal([]byte(payload), result); err != nil {
		return nil, fmt.Errorf("corrupt cache entry for %s: %w", fingerprint, err)
	}
	return &model.CachedResult{
		Fingerprint: fingerprint,
		Result:      result,
		CreatedAt:   time.UnixMilli(createdAt),
	}, nil
}

func (s *SQLiteStore) StoreResult(ctx context.Context, fingerprint string, result *model.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode analysis result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cache (fingerprint, result, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (fingerprint) DO UPDATE SET result = excluded.result,
		     created_at = excluded.created_at`,
		fingerprint, string(payload), s.clock().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		user      model.User
		plan      string
		createdAt int64
	)
	err := row.Scan(&user.ID, &user.Email, &plan, &user.Credits, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	user.Plan = model.Plan(plan)
	user.CreatedAt = time.UnixMilli(createdAt)
	return &user, nil
}
