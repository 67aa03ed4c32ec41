package site

import (
	"fmt"
	"strings"
)

type RouteKind string

const (
	RouteIndex    RouteKind = "index"
	RouteNote     RouteKind = "note"
	RouteTag      RouteKind = "tag"
	RouteFolder   RouteKind = "folder"
	RouteArchive  RouteKind = "archive"
	RouteAlias    RouteKind = "alias"
	RouteGraph    RouteKind = "graph"
	RouteNotFound RouteKind = "404"
	RouteShort    RouteKind = "short"
)

type Route struct {
	Kind    RouteKind
	Slug    string
	Key     string // tag / folder 名，alias 路由里是目标 slug
	Page    int
	OutPath string
}

func (r Route) String() string {
	var parts []string
	parts = append(parts, string(r.Kind))
	if r.Slug != "" {
		parts = append(parts, "slug="+r.Slug)
	}
	if r.Key != "" {
		parts = append(parts, "key="+r.Key)
	}
	if r.Page > 0 {
		parts = append(parts, fmt.Sprintf("page=%d", r.Page))
	}
	if r.OutPath != "" {
		parts = append(parts, "out="+r.OutPath)
	}
	return strings.Join(parts, " ")
}
