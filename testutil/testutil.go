package testutil

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/sqldef/dbevolve/database"
	"github.com/sqldef/dbevolve/database/file"
	"github.com/sqldef/dbevolve/database/sqlite3"
	"github.com/sqldef/dbevolve/schema"
	"github.com/sqldef/dbevolve/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stripHeredocRegex = regexp.MustCompile(`(?m)^\t*`)

type TestCase struct {
	Dialect    string
	Current    string  // catalog snapshot without the dialect line, default: no tables
	Desired    string  // schema document, default: no tables
	Statements *string // expected plan, one statement per line
	Error      *string // expected error message
	Config     struct {
		TargetTables string `yaml:"target_tables"`
		SkipTables   string `yaml:"skip_tables"`
	} `yaml:"config"`
}

func init() {
	util.InitSlog(slog.LevelWarn)
}

// ReadTests reads every YAML file matching pattern. Each file maps test names to test cases.
func ReadTests(pattern string) (map[string]TestCase, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	ret := map[string]TestCase{}
	testFileMap := map[string]string{}
	for _, file := range files {
		var tests map[string]*TestCase

		buf, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}

		dec := yaml.NewDecoder(bytes.NewReader(buf), yaml.DisallowUnknownField())
		if err := dec.Decode(&tests); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}

		for name, test := range tests {
			if test.Statements == nil && test.Error == nil {
				return nil, fmt.Errorf("%s: test case '%s' has neither 'statements' nor 'error'", file, name)
			}
			if test.Dialect == "" {
				test.Dialect = "postgres"
			}
			if existingFile, ok := testFileMap[name]; ok {
				return nil, fmt.Errorf("duplicate test case name '%s': defined in both '%s' and '%s'", name, existingFile, file)
			}
			testFileMap[name] = file
			ret[name] = *test
		}
	}
	return ret, nil
}

// RunTest plans the migration from test.Current to test.Desired and compares it with the
// expected statements or error.
func RunTest(t *testing.T, test TestCase) {
	t.Helper()

	statements, err := Plan(test)
	if test.Error != nil {
		require.Error(t, err)
		assert.Equal(t, strings.TrimSpace(*test.Error), err.Error())
		return
	}
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(*test.Statements), JoinStatements(statements))
}

// Plan returns the statements migrating test.Current into test.Desired.
func Plan(test TestCase) ([]database.Statement, error) {
	db, err := file.NewDatabaseFromYAML([]byte(fmt.Sprintf("dialect: %s\n%s", test.Dialect, test.Current)))
	if err != nil {
		return nil, err
	}
	config := database.GeneratorConfig{
		TargetTables: strings.Fields(test.Config.TargetTables),
		SkipTables:   strings.Fields(test.Config.SkipTables),
	}
	catalog, err := database.Introspect(context.Background(), db, config)
	if err != nil {
		return nil, err
	}

	registry := schema.NewRegistry()
	if err := schema.LoadYAML([]byte(test.Desired), registry); err != nil {
		return nil, err
	}
	changes, err := schema.GenerateChanges(catalog, registry, config)
	if err != nil {
		return nil, err
	}
	migrator, err := schema.MigratorForDialect(test.Dialect)
	if err != nil {
		return nil, err
	}
	return schema.GenerateStatements(migrator, changes)
}

func JoinStatements(statements []database.Statement) string {
	lines := make([]string, len(statements))
	for i, stmt := range statements {
		lines[i] = stmt.String() + ";"
	}
	return strings.Join(lines, "\n")
}

// OpenSqlite3 opens a fresh SQLite database file in a temporary directory.
func OpenSqlite3(t *testing.T) database.Database {
	t.Helper()
	db, err := sqlite3.NewDatabase(database.Config{DbName: filepath.Join(t.TempDir(), "dbevolve.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// MustExec runs statements outside of the migration flow, e.g. to seed a database.
func MustExec(t *testing.T, db database.Database, statements ...string) {
	t.Helper()
	for _, stmt := range statements {
		_, err := db.DB().Exec(stmt)
		require.NoError(t, err, stmt)
	}
}

// QueryRows returns the rows of a query as lines of comma-separated values.
func QueryRows(t *testing.T, db database.Database, query string, args ...any) string {
	t.Helper()
	rows, err := db.DB().Query(query, args...)
	require.NoError(t, err)
	defer rows.Close()

	columns, err := rows.Columns()
	require.NoError(t, err)

	var result strings.Builder
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}
	for rows.Next() {
		require.NoError(t, rows.Scan(pointers...))
		fields := make([]string, len(values))
		for i, value := range values {
			if b, ok := value.([]byte); ok {
				value = string(b)
			}
			fields[i] = fmt.Sprint(value)
		}
		result.WriteString(strings.Join(fields, ","))
		result.WriteString("\n")
	}
	require.NoError(t, rows.Err())
	return result.String()
}

func StripHeredoc(heredoc string) string {
	heredoc = strings.TrimPrefix(heredoc, "\n")
	return stripHeredocRegex.ReplaceAllLiteralString(heredoc, "")
}
