package schema

import (
	"regexp"
	"strings"
)

var (
	typeAliases = map[string]string{
		"serial":                      "integer",
		"character varying":           "varchar",
		"timestamp without time zone": "timestamp",
		"double precision":            "real",

		// Names the catalogs of the supported dialects report for the same types
		"int":                    "integer",
		"int4":                   "integer",
		"serial4":                "integer",
		"bigserial":              "bigint",
		"serial8":                "bigint",
		"int8":                   "bigint",
		"smallserial":            "smallint",
		"serial2":                "smallint",
		"int2":                   "smallint",
		"bool":                   "boolean",
		"double":                 "real",
		"float4":                 "real",
		"float8":                 "real",
		"decimal":                "numeric",
		"char":                   "character",
		"bpchar":                 "character",
		"timestamptz":            "timestamp with time zone",
		"time without time zone": "time",
		"timetz":                 "time with time zone",
	}

	// MySQL reports booleans as tinyint(1), so this width must survive until the alias lookup.
	mysqlBoolean = regexp.MustCompile(`^tinyint\s*\(\s*1\s*\)$`)
	// Width, precision and MySQL display width are discarded, so changes to them are never
	// detected. "timestamp(3) with time zone" keeps its suffix.
	typeParameters = regexp.MustCompile(`\s*\(\s*(?:\d+|max)\s*(?:,\s*\d+\s*)?\)`)
	whitespace     = regexp.MustCompile(`\s+`)
)

// NormalizeType folds a dialect-reported or declared column type into the canonical vocabulary
// used for comparison. Unknown types are returned lowercased without their parameters.
func NormalizeType(typeName string) string {
	normalized := whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(typeName)), " ")
	if mysqlBoolean.MatchString(normalized) {
		return "boolean"
	}
	normalized = typeParameters.ReplaceAllString(normalized, "")
	if alias, ok := typeAliases[normalized]; ok {
		return alias
	}
	return normalized
}

// CanConvert reports whether a column of type from may be renamed into a column of type to.
// Every conversion is accepted for now.
func CanConvert(from, to string) bool {
	return true
}
