package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyRows_Empty(t *testing.T) {
	n, err := CopyRows(context.Background(), nil, "chains", []string{"date"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := [][]any{
		{"2024-01-01", 100.0},
		{"2024-01-02", 150.0},
	}
	mock.ExpectCopyFrom(pgx.Identifier{"chains"}, []string{"date", "ethereum"}).
		WillReturnResult(2)

	n, err := CopyRows(context.Background(), mock, "chains", []string{"date", "ethereum"}, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdent(t *testing.T) {
	assert.Equal(t, `"chains"`, Ident("chains"))
	assert.Equal(t, `"weird""name"`, Ident(`weird"name`))
}

func TestIdentList(t *testing.T) {
	assert.Equal(t, `"date", "total", "ethereum"`, IdentList([]string{"date", "total", "ethereum"}))
}
