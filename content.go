package pubfront

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/eringen/pubfront/cms"
)

var (
	// postProps adds the dates pages and feeds show to the fields every
	// other object is read with.
	postProps   = []string{"id", "title", "slug", "created_at", "published_at", "metadata"}
	entityProps = []string{"id", "title", "slug", "metadata"}
)

// content builds the queries behind each page and runs them through the
// safe wrappers. Every method returns either data or cms.ErrFetchFailed.
type content struct {
	client *cms.Client
}

// base starts a query; preview widens it to unpublished objects.
func base(t cms.ObjectType, preview bool) cms.Query {
	q := cms.NewQuery(t)
	if preview {
		q = q.WithStatus(cms.StatusAny)
	}
	return q
}

func postsQuery(preview bool) cms.Query {
	return base(cms.TypePosts, preview).Select(postProps...).WithDepth(1)
}

// homePage loads every post and every category concurrently.
func (ct content) homePage(ctx context.Context, preview bool) ([]cms.Post, []cms.Category, error) {
	var (
		g     errgroup.Group
		posts []cms.Post
		cats  []cms.Category
	)
	g.Go(func() error {
		var err error
		posts, err = cms.Fetch[cms.Post](ctx, ct.client, postsQuery(preview))
		return err
	})
	g.Go(func() error {
		var err error
		cats, err = cms.Fetch[cms.Category](ctx, ct.client, base(cms.TypeCategories, preview).Select(entityProps...))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return posts, cats, nil
}

func (ct content) post(ctx context.Context, slug string, preview bool) (cms.Post, bool, error) {
	return cms.FetchOne[cms.Post](ctx, ct.client, postsQuery(preview).Where("slug", slug))
}

func (ct content) author(ctx context.Context, slug string, preview bool) (cms.Author, bool, error) {
	q := base(cms.TypeAuthors, preview).Where("slug", slug).Select(entityProps...)
	return cms.FetchOne[cms.Author](ctx, ct.client, q)
}

func (ct content) category(ctx context.Context, slug string, preview bool) (cms.Category, bool, error) {
	q := base(cms.TypeCategories, preview).Where("slug", slug).Select(entityProps...)
	return cms.FetchOne[cms.Category](ctx, ct.client, q)
}

// postsBy returns the posts whose relationship field (metadata.author or
// metadata.category) points at id.
func (ct content) postsBy(ctx context.Context, field, id string, preview bool) ([]cms.Post, error) {
	return cms.Fetch[cms.Post](ctx, ct.client, postsQuery(preview).Where("metadata."+field, id))
}

// feed returns published posts, newest first.
func (ct content) feed(ctx context.Context) ([]cms.Post, error) {
	q := postsQuery(false)
	q.Sort = "-created_at"
	return cms.Fetch[cms.Post](ctx, ct.client, q)
}

// everything returns every published post, author and category for the
// sitemap.
func (ct content) everything(ctx context.Context) ([]cms.Post, []cms.Author, []cms.Category, error) {
	var (
		g       errgroup.Group
		posts   []cms.Post
		authors []cms.Author
		cats    []cms.Category
	)
	g.Go(func() error {
		var err error
		posts, err = cms.Fetch[cms.Post](ctx, ct.client, cms.NewQuery(cms.TypePosts).Select("slug", "created_at", "published_at", "modified_at"))
		return err
	})
	g.Go(func() error {
		var err error
		authors, err = cms.Fetch[cms.Author](ctx, ct.client, cms.NewQuery(cms.TypeAuthors).Select(entityProps...))
		return err
	})
	g.Go(func() error {
		var err error
		cats, err = cms.Fetch[cms.Category](ctx, ct.client, cms.NewQuery(cms.TypeCategories).Select(entityProps...))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return posts, authors, cats, nil
}
