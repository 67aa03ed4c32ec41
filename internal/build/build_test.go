package build

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"garden/internal/domain/config"
	"garden/internal/index"
)

var testTemplates = map[string]string{
	"home.tmpl":     `<ul>{{range .Items}}<li>{{.Kind}}</li>{{end}}</ul>`,
	"note.tmpl":     `<h1>{{.Meta.Title}}</h1><main>{{.HTML}}</main><nav>{{range .Backlinks}}<a href="{{noteURL .}}">{{.Title}}</a>{{end}}</nav>`,
	"folder.tmpl":   `<h1>{{.Name}}</h1><p>{{.Count}}</p>`,
	"list.tmpl":     `<h1>{{.Title}}</h1>{{range .Items}}<a href="{{noteURL .}}">{{.Title}}</a>{{end}}`,
	"404.tmpl":      `<h1>not found</h1>`,
	"archives.tmpl": `{{range .Groups}}<h2>{{.Year}}</h2>{{end}}`,
	"tags-all.tmpl": `{{range .Tags}}<span>{{.Name}} {{.Count}}</span>{{end}}`,
	"redirect.tmpl": `<meta http-equiv="refresh" content="0; url={{.Target}}">`,
}

func writeTestSite(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()

	srcDir := filepath.Join(root, "content")
	themeDir := filepath.Join(root, "themes")
	pubDir := filepath.Join(root, "public")

	tplDir := filepath.Join(themeDir, "default", "templates")
	require.NoError(t, os.MkdirAll(tplDir, 0o755))
	for name, body := range testTemplates {
		require.NoError(t, os.WriteFile(filepath.Join(tplDir, name), []byte(body), 0o644))
	}

	write := func(rel, content string) {
		p := filepath.Join(srcDir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	write("projects/bar.md", `---
title: Bar
date: 2026-01-02
tags: [demo]
---
See [notes/foo](./notes/foo.md) and [the web](https://example.com).
`)
	write("notes/foo.md", `---
title: Foo
date: 2026-01-01
tags: [demo]
aliases:
  - old/foo
---
Foo body.
`)

	cfg := config.Default()
	cfg.Site.Title = "Test Garden"
	cfg.Site.SiteURL = "https://garden.example"
	cfg.Build.SourceDir = srcDir
	cfg.Build.PublicDir = pubDir
	cfg.Build.ThemeDir = themeDir
	cfg.Build.Now = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestBuilderRun(t *testing.T) {
	cfg := writeTestSite(t)
	idxPath := filepath.Join(t.TempDir(), "index.db")

	b := &Builder{Cfg: cfg, IndexPath: idxPath}
	res, err := b.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, res.Notes)

	pub := cfg.Build.PublicDir
	mustRead := func(rel string) string {
		data, err := os.ReadFile(filepath.Join(pub, filepath.FromSlash(rel)))
		require.NoError(t, err, "expected output file %s", rel)
		return string(data)
	}

	require.FileExists(t, filepath.Join(pub, "index.html"))
	require.FileExists(t, filepath.Join(pub, "404.html"))
	require.FileExists(t, filepath.Join(pub, "archives", "index.html"))
	require.FileExists(t, filepath.Join(pub, "tags", "index.html"))
	require.FileExists(t, filepath.Join(pub, "tags", "demo", "index.html"))

	bar := mustRead("projects/bar/index.html")
	require.Contains(t, bar, `href="/notes/foo"`)
	require.Contains(t, bar, `data-slug="notes/foo"`)
	require.Contains(t, bar, `class="external`)

	// 反链在第二遍渲染时已经就位
	foo := mustRead("notes/foo/index.html")
	require.Contains(t, foo, `href="/projects/bar/"`)
	require.Contains(t, foo, "Bar")

	// alias 产出跳转占位页
	redirect := mustRead("old/foo/index.html")
	require.Contains(t, redirect, "/notes/foo/")

	var g struct {
		Nodes []struct{ ID string }
		Edges []struct{ Source, Target string }
	}
	require.NoError(t, json.Unmarshal([]byte(mustRead("graph.json")), &g))
	require.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	require.Equal(t, "projects/bar", g.Edges[0].Source)
	require.Equal(t, "notes/foo", g.Edges[0].Target)
}

func TestBuilderRun_RecordsFingerprint(t *testing.T) {
	cfg := writeTestSite(t)
	idxPath := filepath.Join(t.TempDir(), "index.db")

	b := &Builder{Cfg: cfg, IndexPath: idxPath}
	_, err := b.Run(context.Background())
	require.NoError(t, err)

	st, err := index.Open(index.OpenOptions{Path: idxPath})
	require.NoError(t, err)
	defer st.Close()

	fp, err := st.GetFingerprint()
	require.NoError(t, err)
	require.NotEmpty(t, fp.ContentHash)
	require.NotEmpty(t, fp.RenderHash)
	require.Equal(t, rendererVersion, fp.RendererHash)
}
