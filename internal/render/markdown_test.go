package render

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarkdownRender_HeadingsExtracted(t *testing.T) {
	md := NewMarkdownRenderer()

	res, err := md.Render([]byte("# Hello World\n\nbody\n\n## Second Part\n"))
	require.NoError(t, err)
	require.Len(t, res.Headings, 2)
	require.Equal(t, 1, res.Headings[0].Level)
	require.Equal(t, "Hello World", res.Headings[0].Text)
	require.Equal(t, "hello-world", res.Headings[0].ID)
	require.Equal(t, 2, res.Headings[1].Level)
	require.Contains(t, string(res.HTML), `id="hello-world"`)
}

func TestMarkdownRender_GFMTable(t *testing.T) {
	md := NewMarkdownRenderer()

	res, err := md.Render([]byte("| a | b |\n|---|---|\n| 1 | 2 |\n"))
	require.NoError(t, err)
	require.Contains(t, string(res.HTML), "<table>")
}

func TestMarkdownRender_RawHTMLPassedThrough(t *testing.T) {
	md := NewMarkdownRenderer()

	res, err := md.Render([]byte("before\n\n<div class=\"embed\">x</div>\n"))
	require.NoError(t, err)
	require.Contains(t, string(res.HTML), `<div class="embed">`)
}

func TestMarkdownRender_LinksPreserved(t *testing.T) {
	md := NewMarkdownRenderer()

	res, err := md.Render([]byte("see [notes/foo](./notes/foo.md)\n"))
	require.NoError(t, err)
	require.Contains(t, string(res.HTML), `href="./notes/foo.md"`)
}
