package app

import (
	"garden/internal/domain/content"
	"garden/internal/domain/site"
	"garden/internal/index"
	"path/filepath"
)

type RouteBuilder struct {
	Index *index.Store
}

// BuildNoteRoutes：每篇笔记落在 /<slug>/index.html
func (rb *RouteBuilder) BuildNoteRoutes(notes []content.NoteMeta) []site.Route {
	var routes []site.Route
	for _, m := range notes {
		out := filepath.Join(filepath.FromSlash(m.Slug), "index.html")
		routes = append(routes, site.Route{
			Kind:    site.RouteNote,
			Slug:    m.Slug,
			OutPath: out,
		})
	}
	return routes
}

// BuildAliasRoutes：alias 产出跳转占位页，Key 存目标 slug
func (rb *RouteBuilder) BuildAliasRoutes(notes []content.NoteMeta) []site.Route {
	var routes []site.Route
	for _, m := range notes {
		for _, old := range m.Aliases {
			routes = append(routes, site.Route{
				Kind:    site.RouteAlias,
				Slug:    old,
				Key:     m.Slug,
				OutPath: filepath.Join(filepath.FromSlash(old), "index.html"),
			})
		}
	}
	return routes
}

func (rb *RouteBuilder) BuildFolderRoutes() ([]site.Route, error) {
	names, err := rb.Index.ListAllFolders()
	if err != nil {
		return nil, err
	}
	var routes []site.Route
	for _, name := range names {
		out := filepath.Join(name, "index.html")
		routes = append(routes, site.Route{
			Kind:    site.RouteFolder,
			Slug:    name,
			OutPath: out,
		})
	}
	return routes, nil
}
