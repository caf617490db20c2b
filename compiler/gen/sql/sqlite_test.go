package sql

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/schemagen/adapter"
	"github.com/syssam/schemagen/compiler/gen"
)

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", "file:blog?mode=memory&cache=shared&_pragma=foreign_keys(1)")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	adapters, err := Build(compile(t, blogSchema, gen.WithFeatures(gen.FeatureRowIDAlias)))
	require.NoError(t, err)
	r := adapter.NewRegistry("blog", adapter.NewSQLQuerier(db))
	r.Register(adapters...)
	require.NoError(t, r.CreateAll(ctx, db))
	author, post := r.MustAdapter("Author"), r.MustAdapter("Post")

	t.Run("Insert assigns the row id", func(t *testing.T) {
		require := require.New(t)
		ann := adapter.Record{"name": "ann"}
		id, err := author.Insert(ctx, db, ann)
		require.NoError(err)
		require.Equal(int64(1), id)

		p := adapter.Record{"title": "first", "author": ann}
		_, err = post.Insert(ctx, db, p)
		require.NoError(err)
		require.Equal(int64(1), p["id"])
	})

	t.Run("Find loads the foreign key", func(t *testing.T) {
		require := require.New(t)
		p, err := post.Find(ctx, adapter.Record{"id": int64(1)})
		require.NoError(err)
		require.Equal("first", p["title"])
		a, ok := p["author"].(adapter.Record)
		require.True(ok)
		require.Equal("ann", a["name"])
		require.NotContains(a, "posts")

		require.NoError(author.LoadAccessor(ctx, a, "posts"))
		posts, ok := a["posts"].([]adapter.Record)
		require.True(ok)
		require.Len(posts, 1)
	})

	t.Run("Unique conflict is ignored", func(t *testing.T) {
		require := require.New(t)
		_, err := author.Insert(ctx, db, adapter.Record{"name": "ann"})
		require.NoError(err)
		rows, err := r.Querier.Query(ctx, "SELECT * FROM Author")
		require.NoError(err)
		require.Len(rows, 1)
	})

	t.Run("Update and delete match the key", func(t *testing.T) {
		require := require.New(t)
		p := adapter.Record{"id": int64(1), "title": "renamed", "author": adapter.Record{"id": int64(1)}}
		n, err := post.Update(ctx, db, p)
		require.NoError(err)
		require.Equal(int64(1), n)
		n, err = author.Delete(ctx, db, adapter.Record{"id": int64(1)})
		require.NoError(err)
		require.Equal(int64(1), n)
		found, err := post.Find(ctx, adapter.Record{"id": int64(1)})
		require.NoError(err)
		require.Nil(found, "post is deleted by the cascade")
	})
}
