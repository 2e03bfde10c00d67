package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BulkLoader moves large row sets into a table through the COPY
// protocol. The seeding tool uses it to load entities and their value
// rows without paying per-INSERT round trips.
type BulkLoader struct {
	tm *TxManager
}

// NewBulkLoader creates a loader bound to a transaction manager.
func NewBulkLoader(tm *TxManager) *BulkLoader {
	return &BulkLoader{tm: tm}
}

// CopyRows streams rows from a channel into the table. Each row must
// match columns positionally. Requires an open transaction.
func (b *BulkLoader) CopyRows(ctx context.Context, table string, columns []string, rows <-chan []any) (int64, error) {
	tx := b.tm.GetTx(ctx)
	if tx == nil {
		return 0, fmt.Errorf("copy into %s requires a transaction", table)
	}
	return tx.CopyFrom(ctx, pgx.Identifier{table}, columns, &channelCopySource{rows: rows})
}

// CopySlice loads a materialized row set into the table. Requires an
// open transaction.
func (b *BulkLoader) CopySlice(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx := b.tm.GetTx(ctx)
	if tx == nil {
		return 0, fmt.Errorf("copy into %s requires a transaction", table)
	}
	return tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
}

type channelCopySource struct {
	rows    <-chan []any
	current []any
}

func (s *channelCopySource) Next() bool {
	row, ok := <-s.rows
	if !ok {
		return false
	}
	s.current = row
	return true
}

func (s *channelCopySource) Values() ([]any, error) { return s.current, nil }

func (s *channelCopySource) Err() error { return nil }
