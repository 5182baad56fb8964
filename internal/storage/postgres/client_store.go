package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/adpick/place-crawler/internal/crawl"
)

// ErrClientNotFound is returned when the client row does not exist.
var ErrClientNotFound = errors.New("client not found")

// ClientStore reads and tag-merges rows of the externally owned clients
// table. Only the status-tag column is ever written.
type ClientStore struct {
	conn  Conn
	table string
}

// NewClientStore constructs a store from an existing connection.
func NewClientStore(conn Conn, table string) (*ClientStore, error) {
	if conn == nil {
		return nil, fmt.Errorf("connection is required")
	}
	if table == "" {
		table = "clients"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ClientStore{conn: conn, table: table}, nil
}

// GetClient fetches a client and its current tag set.
func (s *ClientStore) GetClient(ctx context.Context, clientID string) (crawl.Client, error) {
	if clientID == "" {
		return crawl.Client{}, fmt.Errorf("client id is required")
	}
	query := fmt.Sprintf(`SELECT id, status_tags FROM %s WHERE id = $1`, s.table)

	var client crawl.Client
	err := s.conn.QueryRow(ctx, query, clientID).Scan(&client.ID, &client.Tags)
	if errors.Is(err, pgx.ErrNoRows) {
		return crawl.Client{}, fmt.Errorf("%w: %s", ErrClientNotFound, clientID)
	}
	if err != nil {
		return crawl.Client{}, fmt.Errorf("query client %s: %w", clientID, err)
	}
	return client, nil
}

// MergeTags unions tags into the client's tag set with a single atomic
// array-union update, so concurrent merges never lose each other's tags.
func (s *ClientStore) MergeTags(ctx context.Context, clientID string, tags []string) error {
	if clientID == "" {
		return fmt.Errorf("client id is required")
	}
	if len(tags) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
UPDATE %s
SET status_tags = (
	SELECT COALESCE(array_agg(DISTINCT tag ORDER BY tag), '{}')
	FROM unnest(status_tags || $2::text[]) AS tag
)
WHERE id = $1`, s.table)

	tag, err := s.conn.Exec(ctx, query, clientID, tags)
	if err != nil {
		return fmt.Errorf("merge tags for client %s: %w", clientID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrClientNotFound, clientID)
	}
	return nil
}
