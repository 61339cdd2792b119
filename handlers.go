package pubfront

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubfront/cms"
	"github.com/eringen/pubfront/markdown"
	"github.com/eringen/pubfront/views"
)

// notFound is returned by handlers when the requested object does not
// exist; the error handler renders it with its title.
type notFound struct {
	title string
}

func (e *notFound) Error() string { return "not found: " + e.title }

// page fills the data every template shares.
func (a *App) page(c echo.Context, meta views.PageMeta) views.Page {
	return views.Page{
		Site:      a.Config.View(),
		Meta:      meta,
		Preview:   IsPreview(c),
		CSRFToken: CsrfToken(c),
	}
}

func (a *App) handleHome(c echo.Context) error {
	posts, cats, err := a.content.homePage(c.Request().Context(), IsPreview(c))
	if err != nil {
		return err
	}
	featured, rest := views.SplitFeatured(posts)
	p := a.page(c, views.PageMeta{
		Title:       a.Config.Name,
		Description: a.Config.Description,
		URL:         views.BuildURL(a.Config.URL),
		OGType:      "website",
	})
	p.JSONLD = views.WebsiteJsonLD(a.Config.View())
	return Render(c, a.Views.Home(views.HomeData{
		Page:       p,
		Featured:   featured,
		Posts:      rest,
		Categories: cats,
	}))
}

func (a *App) handlePost(c echo.Context) error {
	post, found, err := a.content.post(c.Request().Context(), c.Param("slug"), IsPreview(c))
	if err != nil {
		return err
	}
	if !found {
		return &notFound{title: "Post Not Found"}
	}
	description := post.Metadata.Excerpt
	if description == "" {
		description = "Read this post on our blog"
	}
	p := a.page(c, views.PageMeta{
		Title:       post.Title,
		Description: description,
		Keywords:    strings.Join(post.Metadata.TagList(), ", "),
		URL:         views.BuildURL(a.Config.URL, "posts", post.Slug),
		OGType:      "article",
		Image:       views.ImageURL(post.Metadata.FeaturedImage, 1200, 630),
	})
	p.JSONLD = views.BlogPostingJsonLD(a.Config.View(), post)
	return Render(c, a.Views.Post(views.PostData{
		Page: p,
		Post: post,
		Body: markdown.ToHTML(post.Metadata.Content),
	}))
}

func (a *App) handleAuthor(c echo.Context) error {
	ctx := c.Request().Context()
	preview := IsPreview(c)
	author, found, err := a.content.author(ctx, c.Param("slug"), preview)
	if err != nil {
		return err
	}
	if !found {
		return &notFound{title: "Author Not Found"}
	}
	posts, err := a.content.postsBy(ctx, "author", author.ID, preview)
	if err != nil {
		return err
	}
	name := author.Metadata.Name
	description := author.Metadata.Bio
	if description == "" {
		description = "Posts by " + name
	}
	return Render(c, a.Views.Author(views.AuthorData{
		Page: a.page(c, views.PageMeta{
			Title:       name + " - Blog Author",
			Description: description,
			Keywords:    name + ", author, blog, articles",
			URL:         views.BuildURL(a.Config.URL, "authors", author.Slug),
			OGType:      "profile",
		}),
		Author: author,
		Posts:  posts,
	}))
}

func (a *App) handleCategory(c echo.Context) error {
	ctx := c.Request().Context()
	preview := IsPreview(c)
	cat, found, err := a.content.category(ctx, c.Param("slug"), preview)
	if err != nil {
		return err
	}
	if !found {
		return &notFound{title: "Category Not Found"}
	}
	posts, err := a.content.postsBy(ctx, "category", cat.ID, preview)
	if err != nil {
		return err
	}
	name := cat.Metadata.Name
	description := cat.Metadata.Description
	if description == "" {
		description = "Posts in the " + name + " category"
	}
	return Render(c, a.Views.Category(views.CategoryData{
		Page: a.page(c, views.PageMeta{
			Title:       name + " - Blog Category",
			Description: description,
			Keywords:    name + ", blog, articles",
			URL:         views.BuildURL(a.Config.URL, "categories", cat.Slug),
			OGType:      "website",
		}),
		Category: cat,
		Posts:    posts,
	}))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, authors, cats, err := a.content.everything(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts, authors, cats)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.content.feed(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func handleHomeRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/")
}

func (a *App) handleRobots(c echo.Context) error {
	body := fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /preview/\n\nSitemap: %s\n",
		strings.TrimSuffix(views.BuildURL(a.Config.URL), "/")+"/sitemap.xml")
	return c.String(http.StatusOK, body)
}

// handleHealth reports whether the content API is reachable as far as the
// circuit breaker knows. It never calls the API itself.
func (a *App) handleHealth(c echo.Context) error {
	status, code := "ok", http.StatusOK
	if a.Content.BreakerOpen() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]string{
		"status":      status,
		"bucket":      a.Content.Bucket(),
		"environment": a.Content.Environment(),
	})
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	site := a.Config.View()

	var nf *notFound
	if errors.As(err, &nf) {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(site, nf.title))
		return
	}
	if errors.Is(err, cms.ErrFetchFailed) {
		// The cause was logged by the wrapper.
		_ = RenderStatus(c, http.StatusInternalServerError, a.Views.ServerError(site))
		return
	}

	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(site, ""))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError(site))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
