package schema

import (
	"errors"
	"testing"

	"github.com/sqldef/dbevolve/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(tables map[string][]database.Column, order []string, fks ...database.ForeignKey) *database.Catalog {
	catalog := &database.Catalog{
		Tables:             order,
		Columns:            tables,
		Indexes:            map[string][]database.Index{},
		ForeignKeysByTable: map[string][]database.ForeignKey{},
	}
	for _, name := range order {
		catalog.ForeignKeysByTable[name] = []database.ForeignKey{}
	}
	for _, fk := range fks {
		catalog.ForeignKeysByTable[fk.Table] = append(catalog.ForeignKeysByTable[fk.Table], fk)
	}
	return catalog
}

func registryOf(t *testing.T, tables ...*DeclaredTable) *Registry {
	t.Helper()
	registry := NewRegistry()
	for _, table := range tables {
		require.NoError(t, registry.Register(table))
	}
	return registry
}

func changeStrings(changes []Change) []string {
	result := make([]string, len(changes))
	for i, change := range changes {
		result[i] = change.String()
	}
	return result
}

func TestGenerateChangesUsersToPeople(t *testing.T) {
	catalog := newCatalog(map[string][]database.Column{
		"users": {
			{Name: "id", Type: "integer", PrimaryKey: true},
			{Name: "name", Type: "character varying", Nullable: true},
			{Name: "email", Type: "character varying", Nullable: true},
		},
	}, []string{"users"})

	people := table("people", pk("id"), notNull("name", "varchar(255)"), column("email", "varchar(255)"), column("signup_ip", "varchar(255)"))
	people.Aliases = []string{"users"}

	changes, err := GenerateChanges(catalog, registryOf(t, people), database.GeneratorConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"rename table users to people",
		"add column people.signup_ip",
		"add not null on people.name",
	}, changeStrings(changes))
}

func TestGenerateChangesIsEmptyWhenUpToDate(t *testing.T) {
	catalog := newCatalog(map[string][]database.Column{
		"users": {
			{Name: "id", Type: "integer", PrimaryKey: true},
			{Name: "name", Type: "character varying", Nullable: true},
		},
		"posts": {
			{Name: "id", Type: "integer", PrimaryKey: true},
			{Name: "user_id", Type: "integer", Nullable: true},
		},
	}, []string{"posts", "users"}, database.ForeignKey{Column: "user_id", DestTable: "users", DestColumn: "id", Table: "posts", Name: "posts_user_id_fkey"})

	registry := registryOf(t,
		table("users", pk("id"), column("name", "varchar(255)")),
		table("posts", pk("id"), fk("user_id", "users")),
	)

	changes, err := GenerateChanges(catalog, registry, database.GeneratorConfig{})
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestGenerateChangesOrder(t *testing.T) {
	catalog := newCatalog(map[string][]database.Column{
		"accounts": {
			{Name: "id", Type: "integer", PrimaryKey: true},
			{Name: "nick", Type: "text", Nullable: true},
			{Name: "legacy", Type: "text", Nullable: true},
			{Name: "bio", Type: "text"},
		},
		"sessions": {
			{Name: "id", Type: "integer", PrimaryKey: true},
			{Name: "account_id", Type: "integer", Nullable: true},
		},
		"audit": {
			{Name: "id", Type: "integer", PrimaryKey: true},
		},
	}, []string{"accounts", "audit", "sessions"},
		database.ForeignKey{Column: "account_id", DestTable: "accounts", DestColumn: "id", Table: "sessions", Name: "sessions_account_id_fkey"},
	)

	nickname := column("nickname", "text")
	nickname.Aliases = []string{"nick"}
	email := notNull("email", "text")
	email.Default = "unknown@example.com"
	members := table("members", pk("id"), nickname, column("bio", "text"), email, notNull("age", "integer"), fk("team_id", "teams"))
	members.Aliases = []string{"accounts"}
	teams := table("teams", pk("id"), fk("owner_id", "members"))

	changes, err := GenerateChanges(catalog, registryOf(t, members, teams, table("audit", pk("id"))), database.GeneratorConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"add table teams(id, owner_id)",
		"rename table accounts to members",
		"add foreign key teams.owner_id -> members.id",
		"add column members.email",
		"set members.email = unknown@example.com",
		"add not null on members.email",
		"add column members.age",
		"warning: " + notNullWithoutDefaultWarning,
		"add not null on members.age",
		"add column members.team_id",
		"drop column members.legacy",
		"rename column members.nick to nickname",
		"drop not null on members.bio",
		"drop table sessions",
	}, changeStrings(changes))

	add, ok := changes[0].(*TableAdd)
	require.True(t, ok)
	assert.Equal(t, []string{"owner_id"}, add.DeferredReferences)
}

func TestGenerateChangesDropOrder(t *testing.T) {
	catalog := newCatalog(map[string][]database.Column{
		"a": {{Name: "id", Type: "integer", PrimaryKey: true}},
		"b": {{Name: "id", Type: "integer", PrimaryKey: true}, {Name: "c_id", Type: "integer"}},
		"c": {{Name: "id", Type: "integer", PrimaryKey: true}, {Name: "a_id", Type: "integer"}},
	}, []string{"a", "b", "c"},
		database.ForeignKey{Column: "c_id", DestTable: "c", DestColumn: "id", Table: "b", Name: "b_c_id_fkey"},
		database.ForeignKey{Column: "a_id", DestTable: "a", DestColumn: "id", Table: "c", Name: "c_a_id_fkey"},
	)

	changes, err := GenerateChanges(catalog, NewRegistry(), database.GeneratorConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{"drop table b", "drop table c", "drop table a"}, changeStrings(changes))
}

func TestGenerateChangesSkipsUnmanagedTables(t *testing.T) {
	catalog := newCatalog(map[string][]database.Column{
		"schema_migrations": {{Name: "version", Type: "text"}},
		"users":             {{Name: "id", Type: "integer", PrimaryKey: true}},
	}, []string{"schema_migrations", "users"})

	registry := registryOf(t, table("users", pk("id")), table("tmp_import", pk("id")))
	config := database.GeneratorConfig{SkipTables: []string{"schema_migrations", "tmp_.*"}}

	changes, err := GenerateChanges(catalog, registry, config)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestGenerateChangesFailsOnUnsupportedAlter(t *testing.T) {
	catalog := newCatalog(map[string][]database.Column{
		"users": {{Name: "id", Type: "integer", PrimaryKey: true}, {Name: "age", Type: "integer", Nullable: true}},
	}, []string{"users"})

	changes, err := GenerateChanges(catalog, registryOf(t, table("users", pk("id"), column("age", "text"))), database.GeneratorConfig{})
	assert.Nil(t, changes)
	assert.IsType(t, &UnsupportedColumnChangeError{}, err)
}

func TestGenerateChangesChecksReferences(t *testing.T) {
	catalog := newCatalog(map[string][]database.Column{
		"posts": {{Name: "id", Type: "integer", PrimaryKey: true}},
	}, []string{"posts"})

	tests := []struct {
		name     string
		tables   []*DeclaredTable
		config   database.GeneratorConfig
		expected string
	}{
		{
			name:     "undeclared table",
			tables:   []*DeclaredTable{table("posts", pk("id"), fk("author_id", "authors"))},
			expected: "foreign key posts.author_id references authors.id, which is not declared",
		},
		{
			name: "undeclared column",
			tables: []*DeclaredTable{
				table("users", pk("uid")),
				table("posts", pk("id"), fk("author_id", "users")),
			},
			expected: "foreign key posts.author_id references users.id, which is not declared",
		},
		{
			name:   "unmanaged table",
			tables: []*DeclaredTable{table("posts", pk("id"), fk("author_id", "legacy_users"))},
			config: database.GeneratorConfig{SkipTables: []string{"legacy_.*"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateChanges(catalog, registryOf(t, tt.tables...), tt.config)
			if tt.expected == "" {
				assert.NoError(t, err)
				return
			}
			var unknown *UnknownReferenceError
			require.True(t, errors.As(err, &unknown), "unexpected error: %v", err)
			assert.EqualError(t, err, tt.expected)
		})
	}
}
