package postgres

import (
	"fmt"

	pgquery "github.com/pganalyze/pg_query_go/v2"
	"github.com/sqldef/dbevolve/database"
)

// ValidateStatements parses every statement with PostgreSQL's own parser, so that a plan can be
// checked without a server. Inert comments are accepted.
func ValidateStatements(statements []database.Statement) error {
	for _, stmt := range statements {
		result, err := pgquery.Parse(stmt.SQL)
		if err != nil {
			return fmt.Errorf("invalid statement '%s': %w", stmt.SQL, err)
		}
		if len(result.Stmts) > 1 {
			return fmt.Errorf("expected a single statement but got %d: '%s'", len(result.Stmts), stmt.SQL)
		}
	}
	return nil
}
