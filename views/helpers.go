package views

import (
	"encoding/json"
	"html/template"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/eringen/pubfront/cms"
)

// UnknownAuthor is shown when a post's author reference did not resolve.
const UnknownAuthor = "Unknown Author"

// DefaultCategoryColor is the badge color of categories without one.
const DefaultCategoryColor = "#6B7280"

// BuildURL joins path segments onto a base URL, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

func PostPath(slug string) string     { return "/posts/" + url.PathEscape(slug) + "/" }
func AuthorPath(slug string) string   { return "/authors/" + url.PathEscape(slug) + "/" }
func CategoryPath(slug string) string { return "/categories/" + url.PathEscape(slug) + "/" }

// Imgix appends crop and format parameters to an imgix image URL.
func Imgix(src string, w, h int) string {
	if src == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(src, "?") {
		sep = "&"
	}
	return src + sep + "w=" + strconv.Itoa(w) + "&h=" + strconv.Itoa(h) + "&fit=crop&auto=format,compress"
}

// ImageURL is Imgix for a media field; absent images yield "".
func ImageURL(img *cms.Image, w, h int) string {
	if !img.Present() {
		return ""
	}
	src := img.ImgixURL
	if src == "" {
		src = img.URL
	}
	return Imgix(src, w, h)
}

// AuthorOf returns the post's author when the reference was expanded.
func AuthorOf(p cms.Post) *cms.Author {
	if a, ok := p.Metadata.Author.Resolved(); ok {
		return &a
	}
	return nil
}

// CategoryOf returns the post's category when the reference was expanded.
func CategoryOf(p cms.Post) *cms.Category {
	if c, ok := p.Metadata.Category.Resolved(); ok {
		return &c
	}
	return nil
}

// AuthorName is the display name of the post's author.
func AuthorName(p cms.Post) string {
	if a := AuthorOf(p); a != nil {
		return a.Metadata.Name
	}
	return UnknownAuthor
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// CategoryColor returns the badge color, falling back to gray for empty or
// non-hex values.
func CategoryColor(c cms.Category) template.CSS {
	if hexColor.MatchString(c.Metadata.Color) {
		return template.CSS(c.Metadata.Color)
	}
	return DefaultCategoryColor
}

// FormatDate renders t as "January 2, 2006".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

// ShortDate renders t as "Jan 2, 2006".
func ShortDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

// SplitFeatured returns the first featured post and every other post, in
// their original order.
func SplitFeatured(posts []cms.Post) (*cms.Post, []cms.Post) {
	var featured *cms.Post
	rest := make([]cms.Post, 0, len(posts))
	for i := range posts {
		if posts[i].Metadata.Featured {
			if featured == nil {
				featured = &posts[i]
			}
			continue
		}
		rest = append(rest, posts[i])
	}
	return featured, rest
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block using cfg values.
func WebsiteJsonLD(cfg SiteConfig) template.JS {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.Name,
		"url":      BuildURL(cfg.URL),
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	if cfg.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		}
	}
	return marshalJsonLD(data)
}

// BlogPostingJsonLD produces a Schema.org BlogPosting JSON-LD block for a post.
func BlogPostingJsonLD(cfg SiteConfig, post cms.Post) template.JS {
	postURL := BuildURL(cfg.URL, "posts", post.Slug)
	data := map[string]interface{}{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      post.Title,
		"datePublished": post.Date().Format(time.RFC3339),
		"url":           postURL,
		"author": map[string]string{
			"@type": "Person",
			"name":  AuthorName(post),
		},
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if post.Metadata.Excerpt != "" {
		data["description"] = post.Metadata.Excerpt
	}
	if img := ImageURL(post.Metadata.FeaturedImage, 1200, 630); img != "" {
		data["image"] = img
	}
	if tags := post.Metadata.TagList(); len(tags) > 0 {
		data["keywords"] = strings.Join(tags, ", ")
	}
	return marshalJsonLD(data)
}

func marshalJsonLD(v interface{}) template.JS {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return template.JS(b)
}
