package schema

import (
	"errors"
	"testing"

	"github.com/sqldef/dbevolve/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffTables(t *testing.T) {
	t.Run("rename takes precedence over add and delete", func(t *testing.T) {
		people := table("people", pk("id"))
		people.Aliases = []string{"users"}

		added, deleted, renamed, err := DiffTables([]string{"users"}, []*DeclaredTable{people})
		require.NoError(t, err)
		assert.Empty(t, added)
		assert.Empty(t, deleted)
		assert.Equal(t, []*TableRename{{Old: "users", New: "people"}}, renamed)
	})

	t.Run("alias missing from the database is a pure add", func(t *testing.T) {
		people := table("people", pk("id"))
		people.Aliases = []string{"members"}

		added, deleted, renamed, err := DiffTables([]string{"users"}, []*DeclaredTable{people})
		require.NoError(t, err)
		assert.Equal(t, []string{"people"}, tableNames(added))
		assert.Equal(t, []string{"users"}, deleted)
		assert.Empty(t, renamed)
	})

	t.Run("first matching alias wins", func(t *testing.T) {
		people := table("people", pk("id"))
		people.Aliases = []string{"members", "users", "accounts"}

		_, deleted, renamed, err := DiffTables([]string{"accounts", "users"}, []*DeclaredTable{people})
		require.NoError(t, err)
		assert.Equal(t, []*TableRename{{Old: "users", New: "people"}}, renamed)
		assert.Equal(t, []string{"accounts"}, deleted)
	})

	t.Run("alias of a declared table is never renamed", func(t *testing.T) {
		people := table("people", pk("id"))
		people.Aliases = []string{"users"}

		added, deleted, renamed, err := DiffTables([]string{"users"}, []*DeclaredTable{table("users", pk("id")), people})
		require.NoError(t, err)
		assert.Equal(t, []string{"people"}, tableNames(added))
		assert.Empty(t, deleted)
		assert.Empty(t, renamed)
	})

	t.Run("tables are created after the tables they reference", func(t *testing.T) {
		comments := table("comments", pk("id"), fk("post_id", "posts"), fk("author_id", "authors"))
		posts := table("posts", pk("id"), fk("author_id", "authors"), fk("parent_id", "posts"))
		authors := table("authors", pk("id"), fk("team_id", "teams"))

		added, _, _, err := DiffTables([]string{"teams"}, []*DeclaredTable{comments, posts, table("teams", pk("id")), authors})
		require.NoError(t, err)
		assert.Equal(t, []string{"authors", "posts", "comments"}, tableNames(added))
	})

	t.Run("cyclic references fail", func(t *testing.T) {
		a := table("a", pk("id"), fk("b_id", "b"))
		b := table("b", pk("id"), fk("a_id", "a"))

		_, _, _, err := DiffTables(nil, []*DeclaredTable{a, b})
		var cyclic *CyclicDependencyError
		require.True(t, errors.As(err, &cyclic), "unexpected error: %v", err)
		assert.ElementsMatch(t, []string{"a", "b"}, cyclic.Tables)
	})
}

func TestDiffColumns(t *testing.T) {
	t.Run("nullability changes", func(t *testing.T) {
		users := table("users", pk("id"), notNull("name", "varchar(255)"), column("email", "varchar(255)"))
		existing := []database.Column{
			{Name: "id", Type: "integer", PrimaryKey: true},
			{Name: "name", Type: "character varying", Nullable: true},
			{Name: "email", Type: "character varying"},
		}

		diff, err := DiffColumns(users, existing, nil)
		require.NoError(t, err)
		assert.Equal(t, []*ColumnAlter{
			{Table: users, Field: users.Field("name"), Kind: AddNotNull},
			{Table: users, Field: users.Field("email"), Kind: DropNotNull},
		}, diff.Altered)
		assert.Empty(t, diff.Added)
		assert.Empty(t, diff.Deleted)
	})

	t.Run("normalized types are equal", func(t *testing.T) {
		users := table("users", &DeclaredField{Name: "id", Type: "serial", PrimaryKey: true}, column("created_at", "timestamp"))
		existing := []database.Column{
			{Name: "id", Type: "integer", PrimaryKey: true},
			{Name: "created_at", Type: "timestamp without time zone", Nullable: true},
		}

		diff, err := DiffColumns(users, existing, nil)
		require.NoError(t, err)
		assert.True(t, diff.Empty())
	})

	t.Run("type change is unsupported", func(t *testing.T) {
		users := table("users", pk("id"), column("age", "text"))
		existing := []database.Column{
			{Name: "id", Type: "integer", PrimaryKey: true},
			{Name: "age", Type: "integer", Nullable: true},
		}

		_, err := DiffColumns(users, existing, nil)
		var unsupported *UnsupportedColumnChangeError
		require.True(t, errors.As(err, &unsupported), "unexpected error: %v", err)
		assert.Equal(t, "integer", unsupported.Existing.Type)
		assert.Equal(t, "text", unsupported.Declared.Type)
		assert.Contains(t, err.Error(), "users.age")
	})

	t.Run("primary key change is unsupported", func(t *testing.T) {
		users := table("users", notNull("id", "integer"))
		existing := []database.Column{{Name: "id", Type: "integer", PrimaryKey: true}}

		_, err := DiffColumns(users, existing, nil)
		var unsupported *UnsupportedColumnChangeError
		assert.True(t, errors.As(err, &unsupported))
	})

	t.Run("new primary key column is unsupported", func(t *testing.T) {
		users := table("users", pk("id"), column("name", "text"))
		existing := []database.Column{{Name: "name", Type: "text", Nullable: true}}

		_, err := DiffColumns(users, existing, nil)
		var unsupported *UnsupportedColumnChangeError
		require.True(t, errors.As(err, &unsupported), "unexpected error: %v", err)
		assert.Equal(t, ColumnMetadata{Name: "id", Type: "integer", Nullable: true, Table: "users"}, unsupported.Existing)
		assert.Equal(t, ColumnMetadata{Name: "id", Type: "integer", PrimaryKey: true, Table: "users"}, unsupported.Declared)
	})

	t.Run("nullability change together with a type change is unsupported", func(t *testing.T) {
		users := table("users", pk("id"), notNull("age", "text"))
		existing := []database.Column{
			{Name: "id", Type: "integer", PrimaryKey: true},
			{Name: "age", Type: "integer", Nullable: true},
		}

		_, err := DiffColumns(users, existing, nil)
		var unsupported *UnsupportedColumnChangeError
		assert.True(t, errors.As(err, &unsupported))
	})

	t.Run("rename by alias", func(t *testing.T) {
		fullName := column("full_name", "varchar(255)")
		fullName.Aliases = []string{"nickname", "name"}
		users := table("users", pk("id"), fullName, column("bio", "text"))
		existing := []database.Column{
			{Name: "id", Type: "integer", PrimaryKey: true},
			{Name: "name", Type: "varchar(100)", Nullable: true},
			{Name: "legacy", Type: "text", Nullable: true},
		}

		diff, err := DiffColumns(users, existing, nil)
		require.NoError(t, err)
		assert.Equal(t, []*ColumnRename{{Table: users, Old: "name", New: "full_name"}}, diff.Renamed)
		assert.Equal(t, []*DeclaredField{users.Field("bio")}, diff.Added)
		assert.Equal(t, []string{"legacy"}, diff.Deleted)
		assert.Empty(t, diff.Altered)
	})

	t.Run("alias of a kept column is not a rename", func(t *testing.T) {
		fullName := column("full_name", "text")
		fullName.Aliases = []string{"name"}
		users := table("users", pk("id"), column("name", "text"), fullName)
		existing := []database.Column{
			{Name: "id", Type: "integer", PrimaryKey: true},
			{Name: "name", Type: "text", Nullable: true},
		}

		diff, err := DiffColumns(users, existing, nil)
		require.NoError(t, err)
		assert.Empty(t, diff.Renamed)
		assert.Equal(t, []*DeclaredField{fullName}, diff.Added)
	})

	t.Run("foreign key added", func(t *testing.T) {
		posts := table("posts", pk("id"), fk("author_id", "users"))
		existing := []database.Column{
			{Name: "id", Type: "integer", PrimaryKey: true},
			{Name: "author_id", Type: "integer", Nullable: true},
		}

		diff, err := DiffColumns(posts, existing, nil)
		require.NoError(t, err)
		assert.Equal(t, []Change{&ForeignKeyAdd{Table: posts, Field: posts.Field("author_id")}}, diff.ForeignKeys)
	})

	t.Run("foreign key kept", func(t *testing.T) {
		posts := table("posts", pk("id"), fk("author_id", "users"))
		existing := []database.Column{
			{Name: "id", Type: "integer", PrimaryKey: true},
			{Name: "author_id", Type: "integer", Nullable: true},
		}
		fks := []database.ForeignKey{{Column: "author_id", DestTable: "users", DestColumn: "id", Table: "posts", Name: "posts_author_id_fkey"}}

		diff, err := DiffColumns(posts, existing, fks)
		require.NoError(t, err)
		assert.True(t, diff.Empty())
	})

	t.Run("foreign key dropped from a renamed column", func(t *testing.T) {
		writer := column("writer_id", "integer")
		writer.Aliases = []string{"author_id"}
		posts := table("posts", pk("id"), writer)
		existing := []database.Column{
			{Name: "id", Type: "integer", PrimaryKey: true},
			{Name: "author_id", Type: "integer", Nullable: true},
		}
		fks := []database.ForeignKey{{Column: "author_id", DestTable: "users", DestColumn: "id", Table: "posts", Name: "posts_author_id_fkey"}}

		diff, err := DiffColumns(posts, existing, fks)
		require.NoError(t, err)
		assert.Equal(t, []*ColumnRename{{Table: posts, Old: "author_id", New: "writer_id"}}, diff.Renamed)
		assert.Equal(t, []Change{&ForeignKeyDrop{Table: posts, Column: "writer_id", Constraint: "posts_author_id_fkey"}}, diff.ForeignKeys)
	})

	t.Run("foreign key of a deleted column", func(t *testing.T) {
		posts := table("posts", pk("id"))
		existing := []database.Column{
			{Name: "id", Type: "integer", PrimaryKey: true},
			{Name: "author_id", Type: "integer", Nullable: true},
		}
		fks := []database.ForeignKey{{Column: "author_id", DestTable: "users", DestColumn: "id", Table: "posts", Name: "fk_author"}}

		diff, err := DiffColumns(posts, existing, fks)
		require.NoError(t, err)
		assert.Equal(t, []string{"author_id"}, diff.Deleted)
		assert.Equal(t, []*ForeignKeyDrop{{Table: posts, Column: "author_id", Constraint: "fk_author"}}, diff.DeletedForeignKeys)
		assert.Empty(t, diff.ForeignKeys)
	})
}
