package postgres

import (
	"testing"

	"github.com/sqldef/dbevolve/database"
	"github.com/stretchr/testify/assert"
)

func TestValidateStatements(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		wantError bool
	}{
		{name: "create table", sql: `CREATE TABLE "people" ("id" integer NOT NULL PRIMARY KEY)`},
		{name: "parameterized update", sql: `UPDATE "people" SET "name" = $1`},
		{name: "comment", sql: "-- adding a not null column without a default will fail if the table is not empty"},
		{name: "syntax error", sql: `ALTER TABLE "people" ALTER "name" SET NOT`, wantError: true},
		{name: "multiple statements", sql: `DROP TABLE "a"; DROP TABLE "b"`, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStatements([]database.Statement{{SQL: tt.sql}})
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
