package db

import (
	"strings"

	"github.com/jackc/pgx/v5"
)

// Ident quotes a single identifier for safe interpolation into DDL and
// dynamically-built DML. Wide-table column names are derived from
// remote entity names, so every one of them goes through here.
func Ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// IdentList quotes each column name and joins with commas.
func IdentList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = Ident(c)
	}
	return strings.Join(quoted, ", ")
}
