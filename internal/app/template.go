package app

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/gin-gonic/gin/render"
)

const (
	templateRoot    = "templates"
	htmlContentType = "text/html; charset=utf-8"
)

// sharedDirs hold templates parsed into every page set.
var sharedDirs = []string{"layouts", "partials"}

// TemplateRenderer is gin's HTML renderer for the dashboard.
//
// Every page under templates/ (report/page.html, errors/404.html, home.html)
// is compiled into its own set on top of the shared layouts and partials, so
// pages can redefine the "title" and "content" blocks of layouts/base.html
// without clashing. In debug mode the sets are rebuilt on every render.
type TemplateRenderer struct {
	pages   map[string]*template.Template
	fs      fs.FS
	funcMap template.FuncMap
	debug   bool
}

var _ render.HTMLRender = (*TemplateRenderer)(nil)

// NewTemplateRenderer reads templates from fsys, which must contain a
// templates/ directory. Release mode parses once here and fails fast.
func NewTemplateRenderer(fsys fs.FS, debug bool) (*TemplateRenderer, error) {
	r := &TemplateRenderer{
		fs:      fsys,
		funcMap: templateFuncMap(),
		debug:   debug,
	}
	if debug {
		return r, nil
	}

	pages, err := r.parse()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.pages = pages
	return r, nil
}

// Instance implements render.HTMLRender. name is relative to templates/.
func (r *TemplateRenderer) Instance(name string, data any) render.Render {
	pages := r.pages
	if r.debug {
		var err error
		if pages, err = r.parse(); err != nil {
			return &HTMLInstance{Name: name, err: err}
		}
	}
	return &HTMLInstance{Template: pages[name], Name: name, Data: data}
}

func (r *TemplateRenderer) parse() (map[string]*template.Template, error) {
	base, err := r.parseShared()
	if err != nil {
		return nil, err
	}

	files, err := r.pageFiles()
	if err != nil {
		return nil, fmt.Errorf("discover pages: %w", err)
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		set, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone base for %s: %w", file, err)
		}
		name := strings.TrimPrefix(file, templateRoot+"/")
		if err := parseFile(set, r.fs, file, name); err != nil {
			return nil, err
		}
		pages[name] = set
	}
	return pages, nil
}

func (r *TemplateRenderer) parseShared() (*template.Template, error) {
	base := template.New("").Funcs(r.funcMap)
	for _, dir := range sharedDirs {
		files, err := fs.Glob(r.fs, path.Join(templateRoot, dir, "*.html"))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", dir, err)
		}
		for _, file := range files {
			if err := parseFile(base, r.fs, file, file); err != nil {
				return nil, err
			}
		}
	}
	return base, nil
}

func parseFile(set *template.Template, fsys fs.FS, file, name string) error {
	content, err := fs.ReadFile(fsys, file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	if _, err := set.New(name).Parse(string(content)); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}
	return nil
}

// pageFiles lists every .html file under templates/ outside the shared dirs.
func (r *TemplateRenderer) pageFiles() ([]string, error) {
	var files []string
	err := fs.WalkDir(r.fs, templateRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != templateRoot && isSharedDir(strings.TrimPrefix(p, templateRoot+"/")) {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(p, ".html") {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

func isSharedDir(rel string) bool {
	for _, dir := range sharedDirs {
		if rel == dir {
			return true
		}
	}
	return false
}

// templateFuncMap is sprig's hermetic set (no env, no randomness) plus the
// dashboard helpers, which win on name clashes.
func templateFuncMap() template.FuncMap {
	funcs := sprig.HermeticHtmlFuncMap()

	funcs["json"] = func(v any) template.JS {
		b, err := json.Marshal(v)
		if err != nil {
			return template.JS("null")
		}
		return template.JS(b)
	}
	funcs["formatDate"] = func(t time.Time) string {
		return t.Format("2006-01-02 15:04:05")
	}
	funcs["reportURL"] = func(name string) string {
		return "/reports/" + url.PathEscape(name)
	}
	return funcs
}

// HTMLInstance executes one page template.
type HTMLInstance struct {
	Template *template.Template
	Name     string
	Data     any
	err      error // debug-mode parse failure
}

// Render writes the page, or the debug-mode parse error.
func (h *HTMLInstance) Render(w http.ResponseWriter) error {
	h.WriteContentType(w)
	switch {
	case h.err != nil:
		return h.err
	case h.Template == nil:
		return fmt.Errorf("template %q not found", h.Name)
	}
	return h.Template.ExecuteTemplate(w, h.Name, h.Data)
}

// WriteContentType sets an HTML Content-Type unless one is already present.
func (h *HTMLInstance) WriteContentType(w http.ResponseWriter) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", htmlContentType)
	}
}
