package serve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"garden/internal/domain/config"
)

var testTemplates = map[string]string{
	"home.tmpl":     `<ul>{{range .Items}}<li>{{.Kind}}</li>{{end}}</ul>`,
	"note.tmpl":     `<h1>{{.Meta.Title}}</h1><main>{{.HTML}}</main>{{range .Backlinks}}<a href="{{noteURL .}}">{{.Title}}</a>{{end}}`,
	"folder.tmpl":   `<h1>{{.Name}}</h1><p>{{.Count}} notes</p>`,
	"list.tmpl":     `<h1>{{.Title}}</h1>`,
	"404.tmpl":      `<h1>not found</h1>`,
	"archives.tmpl": `{{range .Groups}}<h2>{{.Year}}</h2>{{end}}`,
	"tags-all.tmpl": `{{range .Tags}}<span>{{.Name}}</span>{{end}}`,
	"redirect.tmpl": `<meta http-equiv="refresh" content="0; url={{.Target}}">`,
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()

	srcDir := filepath.Join(root, "content")
	themeDir := filepath.Join(root, "themes")

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
	write("linux/nvidia-drivers.md", `---
title: NVIDIA Drivers
date: 2026-01-02
short: nv
aliases:
  - old/nvidia
---
Driver notes, see [about](../about.md).
`)
	write("about.md", "---\ntitle: About\ndate: 2026-01-01\n---\nabout body\n")

	cfg := config.Default()
	cfg.Site.SiteURL = "https://garden.example"
	cfg.Build.SourceDir = srcDir
	cfg.Build.ThemeDir = themeDir

	s, err := New(cfg, filepath.Join(root, "index.db"), themeDir, cfg.Site.Theme, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.rebuild(context.Background()))
	return s
}

func get(t *testing.T, h http.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_NotePage(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s.handleNote, "/linux/nvidia-drivers/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "NVIDIA Drivers")
	require.Contains(t, body, `href="/about"`)
	require.Contains(t, body, `data-slug="about"`)
}

func TestServer_HomePage(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s.handleNote, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<li>")
}

func TestServer_BacklinksVisible(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s.handleNote, "/about/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `href="/linux/nvidia-drivers/"`)
}

func TestServer_AliasRedirects(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s.handleNote, "/old/nvidia/")
	require.Equal(t, http.StatusMovedPermanently, rec.Code)
	require.Equal(t, "/linux/nvidia-drivers/", rec.Header().Get("Location"))
}

func TestServer_FolderPage(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s.handleNote, "/linux/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<h1>linux</h1>")
}

func TestServer_ShortIDRedirects(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s.handleShort, "/s/nv")
	require.Equal(t, http.StatusMovedPermanently, rec.Code)
	require.Equal(t, "/linux/nvidia-drivers/", rec.Header().Get("Location"))

	rec = get(t, s.handleShort, "/s/zz")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_GraphJSON(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s.handleGraph, "/graph.json")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	require.Contains(t, rec.Body.String(), `"linux/nvidia-drivers"`)
}

func TestServer_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s.handleNote, "/missing/page/")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "not found")
}

func TestServer_RebuildSkippedWhenUnchanged(t *testing.T) {
	s := newTestServer(t)

	fp1, err := s.idx.GetFingerprint()
	require.NoError(t, err)

	// 内容没动：第二次 rebuild 走跳过分支，指纹不变
	require.NoError(t, s.rebuild(context.Background()))
	fp2, err := s.idx.GetFingerprint()
	require.NoError(t, err)
	require.Equal(t, fp1, fp2)
}
