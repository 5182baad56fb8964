// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adpick/place-crawler/internal/crawl"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Conn is the subset of pgxpool.Pool the stores use; pgxmock satisfies it.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	RecordsTable    string
	ClientsTable    string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// NewPool builds a pgx pool from config.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// RecordStore writes append-only crawl records into Postgres.
type RecordStore struct {
	conn  Conn
	table string
}

// NewRecordStore constructs a store from an existing connection.
func NewRecordStore(conn Conn, table string) (*RecordStore, error) {
	if conn == nil {
		return nil, fmt.Errorf("connection is required")
	}
	if table == "" {
		table = "crawl_records"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &RecordStore{conn: conn, table: table}, nil
}

// Close releases the underlying connection resources.
func (s *RecordStore) Close() {
	if s == nil || s.conn == nil {
		return
	}
	s.conn.Close()
}

// SaveRecord inserts one crawl record. Records are never updated or deleted.
func (s *RecordStore) SaveRecord(ctx context.Context, record crawl.Record) error {
	if record.ID == "" {
		return fmt.Errorf("record id is required")
	}
	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	client_id,
	url,
	platform,
	result_data,
	created_at
) VALUES (
	$1,$2,$3,$4,$5,$6
)`, s.table)

	args := []any{
		record.ID,
		nullableText(record.ClientID),
		record.URL,
		string(record.Platform),
		resultJSON,
		record.CreatedAt,
	}
	if _, err := s.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert crawl record: %w", err)
	}
	return nil
}

// ListRecords returns the records persisted for one client, newest first.
func (s *RecordStore) ListRecords(ctx context.Context, clientID string) ([]crawl.Record, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client id is required")
	}
	query := fmt.Sprintf(`
SELECT id, client_id, url, platform, result_data, created_at
FROM %s
WHERE client_id = $1
ORDER BY created_at DESC`, s.table)

	rows, err := s.conn.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("query crawl records: %w", err)
	}
	defer rows.Close()

	var records []crawl.Record
	for rows.Next() {
		var (
			record     crawl.Record
			clientCol  *string
			platform   string
			resultData []byte
		)
		if err := rows.Scan(&record.ID, &clientCol, &record.URL, &platform, &resultData, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan crawl record: %w", err)
		}
		if clientCol != nil {
			record.ClientID = *clientCol
		}
		record.Platform = crawl.Platform(platform)
		if err := json.Unmarshal(resultData, &record.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result for record %s: %w", record.ID, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate crawl records: %w", err)
	}
	return records, nil
}

func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}
