package web

import "html/template"

type ViewData struct {
	Title           string
	ContentTemplate string
	ContentHTML     template.HTML
	IsAdmin         bool

	SearchQuery string
	SelectedTag string
	Tags        []TagLink
	Posts       []PostCard
	Featured    *PostCard

	Post         *PostCard
	RenderedHTML template.HTML
	ReadTime     int

	Editor     *EditorView
	Notice     string
	LoginError string
}

type PostCard struct {
	Slug     string
	Title    string
	Tag      string
	Date     string
	ReadTime int
}

type TagLink struct {
	Name   string
	Href   string
	Active bool
}

type EditorView struct {
	Title       string
	Tag         string
	Markdown    string
	EditingSlug string
	Error       string
}
