package sql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/schemagen/compiler/gen"
)

func TestCreationQuery(t *testing.T) {
	g := compile(t, blogSchema)

	t.Run("Auto-increment key has no PRIMARY KEY clause", func(t *testing.T) {
		require := require.New(t)
		require.Equal(
			"CREATE TABLE IF NOT EXISTS Author(`id` INTEGER,`name` TEXT NOT NULL UNIQUE ON CONFLICT IGNORE,`joined` INTEGER)",
			CreationQuery(g.Config, entity(t, g, "Author")),
		)
	})

	t.Run("Foreign keys and column options", func(t *testing.T) {
		require := require.New(t)
		require.Equal(
			"CREATE TABLE IF NOT EXISTS Post(`id` INTEGER,`title` TEXT DEFAULT 'untitled' COLLATE NOCASE,`author_id` INTEGER"+
				", FOREIGN KEY(`author_id`) REFERENCES Author(`id`) ON UPDATE NO ACTION ON DELETE CASCADE)",
			CreationQuery(g.Config, entity(t, g, "Post")),
		)
	})

	t.Run("Single composite member gets a PRIMARY KEY clause", func(t *testing.T) {
		require := require.New(t)
		require.Equal(
			"CREATE TABLE IF NOT EXISTS Tag(`name` TEXT, PRIMARY KEY(`name`))",
			CreationQuery(g.Config, entity(t, g, "Tag")),
		)
	})

	t.Run("Join table references both endpoints", func(t *testing.T) {
		require := require.New(t)
		require.Equal(
			"CREATE TABLE IF NOT EXISTS Post_Tag(`_id` INTEGER,`post_id` INTEGER NOT NULL,`tag_name` TEXT NOT NULL"+
				", FOREIGN KEY(`post_id`) REFERENCES Post(`id`) ON UPDATE NO ACTION ON DELETE CASCADE"+
				", FOREIGN KEY(`tag_name`) REFERENCES Tag(`name`) ON UPDATE NO ACTION ON DELETE CASCADE)",
			CreationQuery(g.Config, entity(t, g, "Post_Tag")),
		)
	})

	t.Run("View", func(t *testing.T) {
		require.Equal(t, "CREATE VIEW IF NOT EXISTS PostTitle AS SELECT id, title FROM Post", CreationQuery(g.Config, entity(t, g, "PostTitle")))
	})
}

func TestCreationQuery_Variants(t *testing.T) {
	t.Run("Round trip of an auto-increment table", func(t *testing.T) {
		require := require.New(t)
		g := compile(t, `
entities:
  - name: Table
    fields:
      - name: id
        type: int64
        primary_key:
          auto_increment: true
      - name: name
        type: string
`)
		e := entity(t, g, "Table")
		require.Equal("CREATE TABLE IF NOT EXISTS Table(`id` INTEGER,`name` TEXT)", CreationQuery(g.Config, e))
		require.Equal("INSERT INTO Table(`name`) VALUES (?)", InsertQuery(e))
		require.Equal("INSERT OR REPLACE INTO Table(`id`,`name`) VALUES (?,?)", SaveQuery(e))
		require.Equal("UPDATE Table SET `name`=? WHERE `id`=?", UpdateQuery(e))
		require.Equal("DELETE FROM Table WHERE `id`=?", DeleteQuery(e))
	})

	t.Run("Composite key with a conflict policy", func(t *testing.T) {
		require := require.New(t)
		g := compile(t, `
entities:
  - name: Pair
    primary_key_conflict: REPLACE
    fields:
      - name: a
        type: int64
        primary_key: {}
      - name: b
        type: int64
        primary_key: {}
      - name: note
        type: string
        length: 32
`)
		e := entity(t, g, "Pair")
		require.Equal("CREATE TABLE IF NOT EXISTS Pair(`a` INTEGER,`b` INTEGER,`note` TEXT(32), PRIMARY KEY(`a`,`b`) ON CONFLICT REPLACE)", CreationQuery(g.Config, e))
		require.Contains(CreationQuery(g.Config, e), "PRIMARY KEY(`a`,`b`) ON CONFLICT REPLACE")
		require.Equal("UPDATE Pair SET `a`=?,`b`=?,`note`=? WHERE `a`=? AND `b`=?", UpdateQuery(e))
		require.Equal("DELETE FROM Pair WHERE `a`=? AND `b`=?", DeleteQuery(e))
	})

	t.Run("Table holding only its key inserts NULL", func(t *testing.T) {
		require := require.New(t)
		g := compile(t, `
entities:
  - name: Counter
    fields:
      - name: id
        type: int64
        primary_key:
          auto_increment: true
`)
		e := entity(t, g, "Counter")
		require.Equal("INSERT INTO Counter(`id`) VALUES (NULL)", InsertQuery(e))
		require.Equal("INSERT OR REPLACE INTO Counter(`id`) VALUES (NULL)", SaveQuery(e))
		require.Empty(UpdateQuery(e))
	})

	t.Run("Temporary table with unique groups and conflict prefixes", func(t *testing.T) {
		require := require.New(t)
		g := compile(t, `
entities:
  - name: Session
    temporary: true
    insert_conflict: IGNORE
    update_conflict: ROLLBACK
    unique_groups:
      - number: 1
        conflict: FAIL
    fields:
      - name: id
        type: int64
        primary_key:
          rowid: true
      - name: user
        type: string
        not_null: true
        not_null_conflict: ABORT
        unique_groups: [1]
      - name: device
        type: string
        unique_groups: [1]
`)
		e := entity(t, g, "Session")
		require.Equal(
			"CREATE TEMP TABLE IF NOT EXISTS Session(`id` INTEGER,`user` TEXT NOT NULL ON CONFLICT ABORT,`device` TEXT, UNIQUE(`user`,`device`) ON CONFLICT FAIL)",
			CreationQuery(g.Config, e),
		)
		require.Equal("INSERT OR IGNORE INTO Session(`user`,`device`) VALUES (?,?)", InsertQuery(e))
		require.Equal("UPDATE OR ROLLBACK Session SET `user`=?,`device`=? WHERE `id`=?", UpdateQuery(e))
	})

	t.Run("Row id alias declares the key inline", func(t *testing.T) {
		require := require.New(t)
		g := compile(t, `
entities:
  - name: Note
    fields:
      - name: id
        type: int64
        primary_key:
          auto_increment: true
      - name: body
        type: string
  - name: Line
    fields:
      - name: id
        type: int64
        primary_key:
          rowid: true
`, gen.WithFeatures(gen.FeatureRowIDAlias))
		require.Equal("CREATE TABLE IF NOT EXISTS Note(`id` INTEGER PRIMARY KEY AUTOINCREMENT,`body` TEXT)", CreationQuery(g.Config, entity(t, g, "Note")))
		require.Equal("CREATE TABLE IF NOT EXISTS Line(`id` INTEGER PRIMARY KEY)", CreationQuery(g.Config, entity(t, g, "Line")))
	})

	t.Run("FTS table with external content", func(t *testing.T) {
		require := require.New(t)
		g := compile(t, `
entities:
  - name: Doc
    fields:
      - name: id
        type: int64
        primary_key:
          auto_increment: true
      - name: body
        type: string
  - name: DocSearch
    table: doc_search
    virtual:
      module: FTS4
      content: Doc
    fields:
      - name: id
        type: int64
        primary_key:
          rowid: true
      - name: body
        type: string
`)
		require.Equal(
			"CREATE VIRTUAL TABLE IF NOT EXISTS doc_search USING FTS4(`body`, content=`Doc`)",
			CreationQuery(g.Config, entity(t, g, "DocSearch")),
		)
	})

	t.Run("FTS statements address the key as rowid", func(t *testing.T) {
		require := require.New(t)
		g := compile(t, `
entities:
  - name: DocSearch
    table: doc_search
    virtual:
      module: FTS4
    fields:
      - name: id
        type: int64
        primary_key:
          rowid: true
      - name: body
        type: string
`)
		e := entity(t, g, "DocSearch")
		require.Equal("CREATE VIRTUAL TABLE IF NOT EXISTS doc_search USING FTS4(`body`)", CreationQuery(g.Config, e))
		require.Equal("INSERT INTO doc_search(`body`) VALUES (?)", InsertQuery(e))
		require.Equal("INSERT OR REPLACE INTO doc_search(rowid,`body`) VALUES (?,?)", SaveQuery(e))
		require.Equal("UPDATE doc_search SET `body`=? WHERE rowid=?", UpdateQuery(e))
		require.Equal("DELETE FROM doc_search WHERE rowid=?", DeleteQuery(e))
		require.Equal("SELECT rowid AS `id`, * FROM doc_search", SelectFrom(e))
		require.Equal("SELECT rowid AS `id`, * FROM doc_search WHERE rowid=?", SelectQuery(e, []string{"id"}))

		b := NewBinders(e)
		require.Equal([]string{"rowid"}, columns(b.Primary))
		require.Equal([]string{"rowid", "body"}, columns(b.Save))
		require.Equal([]string{"body", "rowid"}, columns(b.Update))

		a, err := BuildEntity(g.Config, e)
		require.NoError(err)
		require.Equal("SELECT rowid AS `id`, * FROM doc_search", a.SelectQuery)
	})

	t.Run("Query model has no creation statement", func(t *testing.T) {
		g := compile(t, `
entities:
  - name: Summary
    kind: query_model
    fields:
      - name: total
        type: int64
`)
		require.Empty(t, CreationQuery(g.Config, entity(t, g, "Summary")))
	})
}

func TestIndexQueries(t *testing.T) {
	require := require.New(t)
	g := compile(t, blogSchema)
	require.Equal([]string{"CREATE INDEX IF NOT EXISTS post_title ON Post(`title`)"}, IndexQueries(entity(t, g, "Post")))
	require.Empty(IndexQueries(entity(t, g, "Author")))
}

func TestDMLTemplates(t *testing.T) {
	require := require.New(t)
	g := compile(t, blogSchema)
	post := entity(t, g, "Post")
	require.Equal("INSERT OR REPLACE INTO Post(`title`,`author_id`) VALUES (?,?)", InsertQuery(post))
	require.Equal("INSERT OR REPLACE INTO Post(`id`,`title`,`author_id`) VALUES (?,?,?)", SaveQuery(post))
	require.Equal("UPDATE Post SET `title`=?,`author_id`=? WHERE `id`=?", UpdateQuery(post))
	require.Equal("DELETE FROM Post WHERE `id`=?", DeleteQuery(post))
	require.Equal("SELECT * FROM Author WHERE `id`=?", SelectQuery(entity(t, g, "Author"), []string{"id"}))
	require.Equal("SELECT * FROM Author", SelectFrom(entity(t, g, "Author")))

	t.Run("Read-only entities get no DML", func(t *testing.T) {
		tpl := NewTemplates(g.Config, entity(t, g, "PostTitle"))
		require.NotEmpty(tpl.Creation)
		require.Empty(tpl.Insert)
		require.Empty(tpl.Save)
		require.Empty(tpl.Update)
		require.Empty(tpl.Delete)
	})
}
