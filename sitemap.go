package pubfront

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubfront/cms"
	"github.com/eringen/pubfront/views"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func (a *App) renderSitemap(c echo.Context, posts []cms.Post, authors []cms.Author, cats []cms.Category) error {
	base := a.Config.URL
	urls := make([]sitemapURL, 0, 1+len(posts)+len(authors)+len(cats))
	urls = append(urls, sitemapURL{Loc: views.BuildURL(base)})
	for _, p := range posts {
		lastMod := p.Date()
		if p.ModifiedAt != nil && p.ModifiedAt.After(lastMod) {
			lastMod = *p.ModifiedAt
		}
		u := sitemapURL{Loc: views.BuildURL(base, "posts", p.Slug)}
		if !lastMod.IsZero() {
			u.LastMod = lastMod.Format("2006-01-02")
		}
		urls = append(urls, u)
	}
	for _, au := range authors {
		urls = append(urls, sitemapURL{Loc: views.BuildURL(base, "authors", au.Slug)})
	}
	for _, cat := range cats {
		urls = append(urls, sitemapURL{Loc: views.BuildURL(base, "categories", cat.Slug)})
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
