// Package views renders the HTML pages.
package views

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/MrSnakeDoc/streammarks/internal/domain"
)

//go:embed templates/*.html
var files embed.FS

var pages = map[string]*template.Template{
	"home":     parse("home"),
	"list":     parse("list"),
	"notfound": parse("notfound"),
}

func parse(page string) *template.Template {
	return template.Must(template.ParseFS(files, "templates/layout.html", "templates/"+page+".html"))
}

type HomePage struct {
	PageTitle string
	Count     uint64
	HasCount  bool
}

type ListPage struct {
	PageTitle string
	Title     string
	Entries   []ListEntry
}

type ListEntry struct {
	Username    string
	Time        string
	Link        string
	Highlighted bool
}

type NotFoundPage struct {
	PageTitle string
}

// NewListPage builds the list page of vb, highlighting the bookmarks of highlight.
func NewListPage(vb domain.VideoBookmarks, highlight string) ListPage {
	p := ListPage{
		PageTitle: `Bookmarks for "` + vb.Title + `"`,
		Title:     vb.Title,
		Entries:   make([]ListEntry, 0, len(vb.Bookmarks)),
	}
	for _, bm := range vb.Bookmarks {
		p.Entries = append(p.Entries, ListEntry{
			Username:    bm.Username,
			Time:        bm.Formatted(),
			Link:        bm.Link(vb.VideoID),
			Highlighted: highlight != "" && bm.Username == highlight,
		})
	}
	return p
}

func Home(w http.ResponseWriter, status int, p HomePage) error {
	if p.PageTitle == "" {
		p.PageTitle = "Stream Bookmarks"
	}
	return render(w, status, "home", p)
}

func List(w http.ResponseWriter, status int, p ListPage) error {
	return render(w, status, "list", p)
}

func NotFound(w http.ResponseWriter, status int) error {
	return render(w, status, "notfound", NotFoundPage{PageTitle: "Stream not found"})
}

// render executes into a buffer first so a template error never leaves a half-written page.
func render(w http.ResponseWriter, status int, page string, data any) error {
	var buf bytes.Buffer
	if err := pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
