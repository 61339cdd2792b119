package pubfront

import (
	"github.com/a-h/templ"

	"github.com/eringen/pubfront/views"
)

// ViewFuncs holds the templ components the handlers render. Sites can swap
// any of them with WithViews; DefaultViews returns the built-in set.
type ViewFuncs struct {
	Home        func(views.HomeData) templ.Component
	Post        func(views.PostData) templ.Component
	Author      func(views.AuthorData) templ.Component
	Category    func(views.CategoryData) templ.Component
	Preview     func(views.PreviewData) templ.Component
	NotFound    func(site views.SiteConfig, title string) templ.Component
	ServerError func(site views.SiteConfig) templ.Component
}

// DefaultViews returns the embedded page templates.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:        views.Home,
		Post:        views.Post,
		Author:      views.Author,
		Category:    views.Category,
		Preview:     views.Preview,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
	}
}

// withDefaults fills every nil view from DefaultViews.
func (v ViewFuncs) withDefaults() ViewFuncs {
	d := DefaultViews()
	if v.Home == nil {
		v.Home = d.Home
	}
	if v.Post == nil {
		v.Post = d.Post
	}
	if v.Author == nil {
		v.Author = d.Author
	}
	if v.Category == nil {
		v.Category = d.Category
	}
	if v.Preview == nil {
		v.Preview = d.Preview
	}
	if v.NotFound == nil {
		v.NotFound = d.NotFound
	}
	if v.ServerError == nil {
		v.ServerError = d.ServerError
	}
	return v
}
