// Package views renders the site's pages. Templates are embedded HTML files
// wrapped as templ components, so handlers only ever see templ.Component.
package views

import (
	"embed"
	"html/template"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/pubfront/cms"
)

//go:embed templates/*.html
var templateFS embed.FS

type authorBio struct {
	cms.Author
	Full bool
}

var funcs = template.FuncMap{
	"imageURL":      ImageURL,
	"authorOf":      AuthorOf,
	"categoryOf":    CategoryOf,
	"authorName":    AuthorName,
	"categoryColor": CategoryColor,
	"formatDate":    FormatDate,
	"shortDate":     ShortDate,
	"postURL":       PostPath,
	"authorURL":     AuthorPath,
	"categoryURL":   CategoryPath,
	"year":          func() int { return time.Now().Year() },
	"bio":           func(a cms.Author, full bool) authorBio { return authorBio{Author: a, Full: full} },
}

// Each page is its own template set: layout + partials + the page's
// "content" definition.
var pages = map[string]*template.Template{
	"home":     parsePage("home.html"),
	"post":     parsePage("post.html"),
	"author":   parsePage("author.html"),
	"category": parsePage("category.html"),
	"preview":  parsePage("preview.html"),
	"error":    parsePage("error.html"),
}

func parsePage(name string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).ParseFS(templateFS,
		"templates/layout.html", "templates/partials.html", "templates/"+name))
}

func render(page string, data any) templ.Component {
	return templ.FromGoHTML(pages[page].Lookup("layout"), data)
}

func Home(d HomeData) templ.Component         { return render("home", d) }
func Post(d PostData) templ.Component         { return render("post", d) }
func Author(d AuthorData) templ.Component     { return render("author", d) }
func Category(d CategoryData) templ.Component { return render("category", d) }
func Preview(d PreviewData) templ.Component   { return render("preview", d) }

// NotFound renders the 404 page with the given title.
func NotFound(site SiteConfig, title string) templ.Component {
	if title == "" {
		title = "Page Not Found"
	}
	return render("error", ErrorData{
		Page:    Page{Site: site, Meta: PageMeta{Title: title}},
		Heading: title,
		Message: "The page you are looking for does not exist or has been moved.",
	})
}

// ServerError renders the 500 page. Failure details never reach it.
func ServerError(site SiteConfig) templ.Component {
	return render("error", ErrorData{
		Page:    Page{Site: site, Meta: PageMeta{Title: "Something went wrong"}},
		Heading: "Something went wrong",
		Message: "We could not load this page right now. Please try again in a moment.",
	})
}
