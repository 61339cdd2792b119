package views

import (
	"html/template"

	"github.com/eringen/pubfront/cms"
)

// SiteConfig holds site-wide settings populated from the environment and the
// optional site file. Every page receives it so nothing is hardcoded.
type SiteConfig struct {
	Name        string    // SITE_NAME  (default "Blog")
	URL         string    // SITE_URL   (default "http://localhost:3000")
	Description string    // SITE_DESCRIPTION
	Author      string    // SITE_AUTHOR
	Nav         []NavLink // header and footer links
}

// NavLink is one entry of the site navigation.
type NavLink struct {
	Label string `yaml:"label"`
	Href  string `yaml:"href"`
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	Keywords    string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string // og:image
}

// Page is embedded in every page's data.
type Page struct {
	Site      SiteConfig
	Meta      PageMeta
	Preview   bool // drafts are visible
	CSRFToken string
	JSONLD    template.JS
}

// FullTitle is the <title> text.
func (p Page) FullTitle() string {
	switch p.Meta.Title {
	case "", p.Site.Name:
		return p.Site.Name
	}
	return p.Meta.Title + " | " + p.Site.Name
}

type HomeData struct {
	Page
	Featured   *cms.Post
	Posts      []cms.Post // everything but Featured
	Categories []cms.Category
}

type PostData struct {
	Page
	Post cms.Post
	Body template.HTML
}

type AuthorData struct {
	Page
	Author cms.Author
	Posts  []cms.Post
}

type CategoryData struct {
	Page
	Category cms.Category
	Posts    []cms.Post
}

// PreviewData drives the preview login form.
type PreviewData struct {
	Page
	Enabled   bool // a preview secret is configured
	ShowError bool
}

// ErrorData drives the 404 and 500 pages.
type ErrorData struct {
	Page
	Heading string
	Message string
}
