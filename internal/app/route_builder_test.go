package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"garden/internal/domain/content"
	"garden/internal/domain/site"
)

func TestBuildNoteRoutes(t *testing.T) {
	rb := RouteBuilder{}
	routes := rb.BuildNoteRoutes([]content.NoteMeta{
		{Slug: "linux/nvidia-drivers"},
		{Slug: "about"},
	})
	require.Len(t, routes, 2)
	require.Equal(t, site.RouteNote, routes[0].Kind)
	require.Equal(t, filepath.Join("linux", "nvidia-drivers", "index.html"), routes[0].OutPath)
	require.Equal(t, filepath.Join("about", "index.html"), routes[1].OutPath)
}

func TestBuildAliasRoutes(t *testing.T) {
	rb := RouteBuilder{}
	routes := rb.BuildAliasRoutes([]content.NoteMeta{
		{Slug: "new/home", Aliases: []string{"old/home", "legacy"}},
		{Slug: "no-alias"},
	})
	require.Len(t, routes, 2)
	for _, r := range routes {
		require.Equal(t, site.RouteAlias, r.Kind)
		require.Equal(t, "new/home", r.Key)
	}
	require.Equal(t, "old/home", routes[0].Slug)
	require.Equal(t, filepath.Join("old", "home", "index.html"), routes[0].OutPath)
}
