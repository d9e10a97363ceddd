package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type ScanFunc[T any] func(row pgx.Row) (*T, error)

func QueryMany[T any](
	q querier,
	ctx context.Context,
	query string,
	scanFunc ScanFunc[T],
	args ...any,
) ([]*T, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*T
	for rows.Next() {
		item, err := scanFunc(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}

	return results, rows.Err()
}

func QueryOne[T any](
	q querier,
	ctx context.Context,
	query string,
	scanFunc ScanFunc[T],
	args ...any,
) (*T, error) {
	return scanFunc(q.QueryRow(ctx, query, args...))
}

// Amounts are stored as NUMERIC(20,0) and travel as decimal text so the full
// uint64 range round-trips without passing through int64.
func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseAmount(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("stored amount %q: %w", s, err)
	}
	return v, nil
}

func parseKey(s string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("stored key %q: %w", s, err)
	}
	return key, nil
}
