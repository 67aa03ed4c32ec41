package content

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	m := NoteMeta{
		Title:   "  Hello  ",
		Slug:    "/linux/nvidia-drivers/",
		Tags:    []string{"Go", "go", " ", "Linux"},
		Aliases: []string{"/old/path/", "old/path", ""},
		Pinned:  -3,
	}
	m.Normalize()

	require.Equal(t, "Hello", m.Title)
	require.Equal(t, "linux/nvidia-drivers", m.Slug)
	require.Equal(t, "linux", m.Folder)
	require.Equal(t, []string{"go", "linux"}, m.Tags)
	require.Equal(t, []string{"old/path"}, m.Aliases)
	require.Equal(t, 0, m.Pinned)
}

func TestNormalize_RootNoteHasNoFolder(t *testing.T) {
	m := NoteMeta{Slug: "about"}
	m.Normalize()
	require.Equal(t, "", m.Folder)
}

func TestNormalize_AliasCasePreserved(t *testing.T) {
	m := NoteMeta{Slug: "x", Aliases: []string{"Old/Path"}}
	m.Normalize()
	require.Equal(t, []string{"Old/Path"}, m.Aliases)
}
