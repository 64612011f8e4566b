/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Postgres driver registration.
	_ "github.com/lib/pq"

	"github.com/tempestauth/tempest/internal/system/config"
)

const (
	queryGetBlob = `SELECT blob FROM blob_store WHERE blob_key = $1 AND expires_at > $2`
	querySetBlob = `INSERT INTO blob_store (blob_key, blob, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (blob_key) DO UPDATE SET blob = EXCLUDED.blob, expires_at = EXCLUDED.expires_at`
	queryRemoveBlob = `DELETE FROM blob_store WHERE blob_key = $1`
)

// PostgresBlobStore provides a Postgres backed blob store.
type PostgresBlobStore struct {
	db    *sql.DB
	clock func() time.Time
}

// NewPostgresBlobStore opens a connection pool to the configured Postgres
// database and returns a blob store backed by it.
func NewPostgresBlobStore(cfg config.PostgresConfig, clock func() time.Time) (*PostgresBlobStore, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Hostname, cfg.Port, cfg.Name, cfg.Username, cfg.Password, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	return NewPostgresBlobStoreWithDB(db, clock), nil
}

// NewPostgresBlobStoreWithDB creates a Postgres backed blob store using an existing pool.
func NewPostgresBlobStoreWithDB(db *sql.DB, clock func() time.Time) *PostgresBlobStore {
	if clock == nil {
		clock = time.Now
	}
	return &PostgresBlobStore{
		db:    db,
		clock: clock,
	}
}

// Get retrieves a blob from the database. Expired or missing entries return a nil blob.
func (s *PostgresBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}

	var blob []byte
	err := s.db.QueryRowContext(ctx, queryGetBlob, key, s.clock()).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob from postgres: %w", err)
	}
	return blob, nil
}

// Set stores a blob with the given absolute expiration.
func (s *PostgresBlobStore) Set(ctx context.Context, key string, blob []byte, expiry time.Time) error {
	if key == "" {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, querySetBlob, key, blob, expiry); err != nil {
		return fmt.Errorf("failed to set blob in postgres: %w", err)
	}
	return nil
}

// Remove deletes a blob from the database.
func (s *PostgresBlobStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, queryRemoveBlob, key); err != nil {
		return fmt.Errorf("failed to remove blob from postgres: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresBlobStore) Close() error {
	return s.db.Close()
}
