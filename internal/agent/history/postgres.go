// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package history

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS agent_history (
    id         TEXT PRIMARY KEY,
    session_id TEXT NOT NULL DEFAULT '',
    ts         TIMESTAMPTZ NOT NULL,
    response   TEXT NOT NULL,
    type       TEXT NOT NULL CHECK (type IN ('answer', 'tool'))
);
CREATE INDEX IF NOT EXISTS idx_agent_history_ts ON agent_history (ts DESC);
`

// PgSink PostgreSQL sink
type PgSink struct {
	pool *pgxpool.Pool
}

// NewPgSink 连接并建表
func NewPgSink(ctx context.Context, dsn string) (*PgSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, err
	}
	return &PgSink{pool: pool}, nil
}

func (s *PgSink) Name() string { return "postgres" }

func (s *PgSink) Write(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO agent_history (id, session_id, ts, response, type) VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.SessionID, rec.Timestamp, rec.Response, string(rec.Type))
	return err
}

func (s *PgSink) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, ts, response, type FROM agent_history ORDER BY ts DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		var typ string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Timestamp, &rec.Response, &typ); err != nil {
			return nil, err
		}
		rec.Type = Type(typ)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PgSink) Close() error {
	s.pool.Close()
	return nil
}
