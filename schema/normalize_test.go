package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		typeName string
		expected string
	}{
		{typeName: "serial", expected: "integer"},
		{typeName: "SERIAL", expected: "integer"},
		{typeName: "character varying", expected: "varchar"},
		{typeName: "character varying(64)", expected: "varchar"},
		{typeName: "varchar(255)", expected: "varchar"},
		{typeName: "VARCHAR( 10 )", expected: "varchar"},
		{typeName: "timestamp without time zone", expected: "timestamp"},
		{typeName: "double precision", expected: "real"},
		{typeName: "int", expected: "integer"},
		{typeName: "int(11)", expected: "integer"},
		{typeName: "int4", expected: "integer"},
		{typeName: "tinyint(1)", expected: "boolean"},
		{typeName: "tinyint(4)", expected: "tinyint"},
		{typeName: "bool", expected: "boolean"},
		{typeName: " Text ", expected: "text"},
		{typeName: "numeric(10,2)", expected: "numeric"},
		{typeName: "decimal(10, 2)", expected: "numeric"},
		{typeName: "timestamp(3)  with time zone", expected: "timestamp with time zone"},
		{typeName: "nvarchar(max)", expected: "nvarchar"},
		{typeName: "jsonb", expected: "jsonb"},
	}

	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeType(tt.typeName))
		})
	}
}

// Declared types are written into DDL as they are, and the catalog reports them back under its
// own name. Both must normalize to the same type or the next run sees a type change.
func TestNormalizeTypeRoundTrip(t *testing.T) {
	tests := []struct {
		dialect  string
		declared string
		reported string
	}{
		{dialect: "postgres", declared: "serial", reported: "integer"},
		{dialect: "postgres", declared: "bigserial", reported: "bigint"},
		{dialect: "postgres", declared: "smallserial", reported: "smallint"},
		{dialect: "postgres", declared: "int8", reported: "bigint"},
		{dialect: "postgres", declared: "int2", reported: "smallint"},
		{dialect: "postgres", declared: "float4", reported: "real"},
		{dialect: "postgres", declared: "float8", reported: "double precision"},
		{dialect: "postgres", declared: "timestamptz", reported: "timestamp with time zone"},
		{dialect: "postgres", declared: "timestamp", reported: "timestamp without time zone"},
		{dialect: "postgres", declared: "timetz", reported: "time with time zone"},
		{dialect: "postgres", declared: "numeric(10,2)", reported: "numeric"},
		{dialect: "postgres", declared: "decimal(10,2)", reported: "numeric"},
		{dialect: "postgres", declared: "char(2)", reported: "character"},
		{dialect: "postgres", declared: "varchar(255)", reported: "character varying"},
		{dialect: "mysql", declared: "bigint", reported: "bigint(20)"},
		{dialect: "mysql", declared: "int", reported: "int(11)"},
		{dialect: "mysql", declared: "boolean", reported: "tinyint(1)"},
		{dialect: "mysql", declared: "numeric(10,2)", reported: "decimal(10,2)"},
		{dialect: "mssql", declared: "nvarchar(255)", reported: "nvarchar"},
		{dialect: "mssql", declared: "varchar(max)", reported: "varchar"},
		{dialect: "mssql", declared: "datetime2(7)", reported: "datetime2"},
		{dialect: "sqlite3", declared: "VARCHAR(255)", reported: "varchar(255)"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect+"/"+tt.declared, func(t *testing.T) {
			assert.Equal(t, NormalizeType(tt.reported), NormalizeType(tt.declared))
		})
	}
}

func TestNormalizeTypeIsIdempotent(t *testing.T) {
	for _, typeName := range []string{"serial", "character varying(10)", "timestamp without time zone", "blob", "timestamptz", "char(2)", "bigserial"} {
		once := NormalizeType(typeName)
		assert.Equal(t, once, NormalizeType(once))
	}
}

func TestCanConvert(t *testing.T) {
	assert.True(t, CanConvert("integer", "varchar"))
	assert.True(t, CanConvert("varchar", "varchar"))
}
