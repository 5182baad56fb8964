package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestClientStore_GetClient(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewClientStore(mock, "")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT id, status_tags FROM clients`).
		WithArgs("c1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "status_tags"}).
			AddRow("c1", []string{"coupon-in-use", "crawl-complete"}))

	client, err := store.GetClient(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, "c1", client.ID)
	require.Equal(t, []string{"coupon-in-use", "crawl-complete"}, client.Tags)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClientStore_GetClientNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewClientStore(mock, "")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT id, status_tags FROM clients`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err = store.GetClient(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrClientNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClientStore_MergeTags(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewClientStore(mock, "")
	require.NoError(t, err)

	tags := []string{"coupon-in-use", "crawl-complete"}
	mock.ExpectExec(`UPDATE clients`).
		WithArgs("c1", tags).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.MergeTags(context.Background(), "c1", tags))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClientStore_MergeTagsUnknownClient(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewClientStore(mock, "")
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE clients`).
		WithArgs("ghost", []string{"crawl-complete"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.MergeTags(context.Background(), "ghost", []string{"crawl-complete"})
	require.ErrorIs(t, err, ErrClientNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClientStore_MergeTagsEmptyDeltaIsNoop(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewClientStore(mock, "")
	require.NoError(t, err)

	require.NoError(t, store.MergeTags(context.Background(), "c1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
