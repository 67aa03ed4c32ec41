package render

import (
	"bytes"
	"context"
	"fmt"
	"garden/internal/domain/content"
	"html/template"
	"os"
	"path/filepath"
	"time"
)

type TemplateRenderer struct {
	tpl *template.Template
}

func NewTemplateRenderer(themeDir, themeName string) (*TemplateRenderer, error) {
	root := filepath.Join(themeDir, themeName, "templates")
	if err := CheckThemeTemplates(root); err != nil {
		return nil, fmt.Errorf("theme %s: %w", themeName, err)
	}
	tpl, err := template.New("").Funcs(templateFuncs()).ParseGlob(filepath.Join(root, "*tmpl"))
	if err != nil {
		return nil, err
	}
	return &TemplateRenderer{tpl: tpl}, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"date": func(t interface{}, layout string) string {
			switch v := t.(type) {
			case nil:
				return ""
			case string:
				return v
			case interface{ Format(string) string }:
				return v.Format(layout)
			default:
				return ""
			}
		},
		"nowYear": func() int {
			return time.Now().Year()
		},
		"noteURL": func(m content.NoteMeta) string {
			return "/" + m.Slug + "/"
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}
}

func (r *TemplateRenderer) RenderHome(ctx context.Context, page HomePage) ([]byte, error) {
	return r.exec("home.tmpl", page)
}

func (r *TemplateRenderer) RenderNote(ctx context.Context, page NotePage) ([]byte, error) {
	return r.exec("note.tmpl", page)
}

func (r *TemplateRenderer) RenderFolder(ctx context.Context, page FolderPage) ([]byte, error) {
	return r.exec("folder.tmpl", page)
}

func (r *TemplateRenderer) RenderList(ctx context.Context, page ListPage) ([]byte, error) {
	return r.exec("list.tmpl", page)
}

func (r *TemplateRenderer) RenderNotFound(ctx context.Context, page NotFoundPage) ([]byte, error) {
	return r.exec("404.tmpl", page)
}

func (r *TemplateRenderer) RenderArchives(ctx context.Context, page ArchivesPage) ([]byte, error) {
	return r.exec("archives.tmpl", page)
}

func (r *TemplateRenderer) RenderTagsPage(ctx context.Context, page TagsPage) ([]byte, error) {
	return r.exec("tags-all.tmpl", page)
}

func (r *TemplateRenderer) RenderRedirect(ctx context.Context, page RedirectPage) ([]byte, error) {
	return r.exec("redirect.tmpl", page)
}

func (r *TemplateRenderer) exec(name string, data interface{}) ([]byte, error) {
	t := r.tpl.Lookup(name)
	if t == nil {
		return nil, fmt.Errorf("template %s not found", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func CheckThemeTemplates(themeDir string) error {
	required := []string{
		"home.tmpl",
		"note.tmpl",
		"folder.tmpl",
		"list.tmpl",
		"404.tmpl",
		"archives.tmpl",
		"tags-all.tmpl",
		"redirect.tmpl",
	}
	for _, name := range required {
		if _, err := os.Stat(filepath.Join(themeDir, name)); err != nil {
			return fmt.Errorf("missing template: %s", name)
		}
	}
	return nil
}
