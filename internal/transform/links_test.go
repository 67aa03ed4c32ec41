package transform

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parseOne(t *testing.T, fragment string) []*html.Node {
	t.Helper()
	nodes, err := ParseBody([]byte(fragment))
	require.NoError(t, err)
	require.NotEmpty(t, nodes)
	return nodes
}

func findElement(nodes []*html.Node, tag string) *html.Node {
	var found *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == tag {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return found
}

func attrOf(n *html.Node, key string) string {
	v, _ := getAttr(n, key)
	return v
}

func classesOf(n *html.Node) []string {
	return strings.Fields(attrOf(n, "class"))
}

func TestProcess_ExternalLinkClassifiedAndIconAppended(t *testing.T) {
	nodes := parseOne(t, `<p><a href="https://example.com/x">a site</a></p>`)
	opts := DefaultOptions()

	out := Process(nodes, "page", opts, nil)

	a := findElement(nodes, "a")
	require.NotNil(t, a)
	require.Contains(t, classesOf(a), "external")
	require.NotContains(t, classesOf(a), "internal")

	svg := findElement(nodes, "svg")
	require.NotNil(t, svg, "default external icon should be appended")
	require.Equal(t, DefaultExternalIcon.ViewBox, attrOf(svg, "viewBox"))

	require.Empty(t, out, "external links never enter the outgoing set")
}

func TestProcess_ExternalIconDisabled(t *testing.T) {
	nodes := parseOne(t, `<a href="https://example.com">x</a>`)
	opts := DefaultOptions()
	opts.ExternalLinkIcon = false

	Process(nodes, "page", opts, nil)

	require.Nil(t, findElement(nodes, "svg"))
}

func TestProcess_MailtoRuleRewritesDestinationAndInjectsGlyph(t *testing.T) {
	nodes := parseOne(t, `<a href="mailto:a@b.com">mail me</a>`)
	opts := DefaultOptions()
	opts.Rules = []Rule{
		{Pattern: regexp.MustCompile(`^mailto:(.+)$`), Icon: GlyphIcon{Text: "✉"}},
	}

	out := Process(nodes, "page", opts, nil)

	a := findElement(nodes, "a")
	require.Equal(t, "a@b.com", attrOf(a, "href"))
	require.Contains(t, classesOf(a), "external")

	// glyph 作为最后一个子节点追加
	last := a.LastChild
	require.NotNil(t, last)
	require.Equal(t, html.TextNode, last.Type)
	require.Equal(t, "✉", last.Data)

	require.Empty(t, out, "rule-matched links never enter the outgoing set")
}

func TestProcess_RuleOrderFirstMatchWins(t *testing.T) {
	nodes := parseOne(t, `<a href="mailto:a@b.com">m</a>`)
	opts := DefaultOptions()
	opts.Rules = []Rule{
		{Pattern: regexp.MustCompile(`^mailto:(.+)$`), Icon: GlyphIcon{Text: "first"}},
		{Pattern: regexp.MustCompile(`^mail(.+)$`), Icon: GlyphIcon{Text: "second"}},
	}

	Process(nodes, "page", opts, nil)

	a := findElement(nodes, "a")
	require.Equal(t, "a@b.com", attrOf(a, "href"))
	require.Equal(t, "first", a.LastChild.Data)
}

func TestProcess_RuleCaptureGroupsConcatenated(t *testing.T) {
	nodes := parseOne(t, `<a href="geo:12.5,-41.2">spot</a>`)
	opts := DefaultOptions()
	opts.Rules = []Rule{
		{Pattern: regexp.MustCompile(`^geo:([0-9.-]+),([0-9.-]+)$`), Icon: GlyphIcon{Text: "⌖"}},
	}

	Process(nodes, "page", opts, nil)

	a := findElement(nodes, "a")
	require.Equal(t, "12.5-41.2", attrOf(a, "href"))
}

func TestProcess_RuleImageIconSizedToLineHeight(t *testing.T) {
	nodes := parseOne(t, `<a href="gemini://example.org">capsule</a>`)
	opts := DefaultOptions()
	opts.Rules = []Rule{
		{Pattern: regexp.MustCompile(`^(gemini://.+)$`), Icon: ImageIcon{Src: "/static/gemini.png"}},
	}

	Process(nodes, "page", opts, nil)

	img := findElement(nodes, "img")
	require.NotNil(t, img)
	require.Equal(t, "/static/gemini.png", attrOf(img, "src"))
	require.Equal(t, "height:1em", attrOf(img, "style"))
}

func TestProcess_RuleWithoutIconFallsBackToDefault(t *testing.T) {
	nodes := parseOne(t, `<a href="mailto:a@b.com">m</a>`)
	opts := DefaultOptions()
	opts.Rules = []Rule{
		{Pattern: regexp.MustCompile(`^mailto:(.+)$`)},
	}

	Process(nodes, "page", opts, nil)

	svg := findElement(nodes, "svg")
	require.NotNil(t, svg)
}

func TestProcess_RuleIconInjectedEvenWhenDefaultIconDisabled(t *testing.T) {
	nodes := parseOne(t, `<a href="mailto:a@b.com">m</a>`)
	opts := DefaultOptions()
	opts.ExternalLinkIcon = false
	opts.Rules = []Rule{
		{Pattern: regexp.MustCompile(`^mailto:(.+)$`), Icon: GlyphIcon{Text: "✉"}},
	}

	Process(nodes, "page", opts, nil)

	a := findElement(nodes, "a")
	require.Equal(t, "✉", a.LastChild.Data)
}

func TestProcess_AtMostOneIconPerPass(t *testing.T) {
	nodes := parseOne(t, `<a href="https://example.com">x</a>`)
	opts := DefaultOptions()

	Process(nodes, "page", opts, nil)

	a := findElement(nodes, "a")
	count := 0
	for c := a.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "svg" {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestProcess_InternalLinkResolvedAndCollected(t *testing.T) {
	nodes := parseOne(t, `<a href="./notes/foo.md">notes/foo</a>`)
	opts := DefaultOptions()

	out := Process(nodes, "projects/bar", opts, nil)

	a := findElement(nodes, "a")
	require.Contains(t, classesOf(a), "internal")
	require.Equal(t, "/notes/foo", attrOf(a, "href"))
	require.Equal(t, "notes/foo", attrOf(a, "data-slug"))
	require.Contains(t, out, "notes/foo")
	require.Len(t, out, 1)
}

func TestProcess_DataSlugIdempotentUnderNormalization(t *testing.T) {
	nodes := parseOne(t, `<a href="./notes/some%20note.md">n</a>`)
	opts := DefaultOptions()

	out := Process(nodes, "projects/bar", opts, nil)
	require.Len(t, out, 1)

	a := findElement(nodes, "a")
	slug := attrOf(a, "data-slug")
	require.Equal(t, slug, NormalizeSlug(slug))
	require.Equal(t, slug, NormalizeSlug(NormalizeSlug(slug)))
}

func TestProcess_TrailingSlashAppendsIndex(t *testing.T) {
	nodes := parseOne(t, `<a href="docs/">docs</a>`)
	opts := DefaultOptions()

	out := Process(nodes, "page", opts, nil)

	// data-slug 留完整形态，出链键用简化形态
	a := findElement(nodes, "a")
	require.Equal(t, "docs/index", attrOf(a, "data-slug"))
	require.Contains(t, out, "docs")
	require.NotContains(t, out, "docs/index")
}

func TestProcess_OutgoingKeyMatchesTargetNoteSlug(t *testing.T) {
	// 写成 docs/ 的链接指向 slug 为 docs 的笔记：
	// 出链键必须命中那个 slug，反链和图谱才找得到这条边
	nodes := parseOne(t, `<a href="docs/">docs</a>`)
	opts := DefaultOptions()
	all := map[string]struct{}{"docs": {}}

	out := Process(nodes, "page", opts, all)

	require.Contains(t, out, "docs")
	require.Len(t, out, 1)
}

func TestProcess_RootIndexLinkKeptInOutgoingSet(t *testing.T) {
	nodes := parseOne(t, `<a href="/">home</a>`)
	opts := DefaultOptions()

	out := Process(nodes, "page", opts, nil)

	// 站点根解析成 index，简化后为空时退回完整形态
	require.Contains(t, out, "index")
}

func TestProcess_AnchorOnlyLinkNeverResolved(t *testing.T) {
	nodes := parseOne(t, `<a href="#section">jump</a>`)
	opts := DefaultOptions()

	out := Process(nodes, "page", opts, nil)

	a := findElement(nodes, "a")
	require.Equal(t, "#section", attrOf(a, "href"))
	require.Empty(t, attrOf(a, "data-slug"))
	require.Empty(t, out)
	// 锚点也不吃外链图标
	require.Nil(t, findElement(nodes, "svg"))
}

func TestProcess_OutgoingSetDeduplicated(t *testing.T) {
	nodes := parseOne(t, `<p><a href="notes/foo">a</a><a href="./notes/foo.md">b</a></p>`)
	opts := DefaultOptions()

	out := Process(nodes, "page", opts, nil)

	require.Len(t, out, 1)
	require.Contains(t, out, "notes/foo")
}

func TestProcess_AliasClassWhenTextDiffersFromDestination(t *testing.T) {
	nodes := parseOne(t, `<a href="https://example.com/x">click here</a>`)
	opts := DefaultOptions()

	Process(nodes, "page", opts, nil)

	a := findElement(nodes, "a")
	require.Contains(t, classesOf(a), "alias")
}

func TestProcess_NoAliasClassWhenTextEqualsDestination(t *testing.T) {
	nodes := parseOne(t, `<a href="https://example.com/x">https://example.com/x</a>`)
	opts := DefaultOptions()

	Process(nodes, "page", opts, nil)

	a := findElement(nodes, "a")
	require.NotContains(t, classesOf(a), "alias")
}

func TestProcess_PrettyLinkShortensTextOnly(t *testing.T) {
	nodes := parseOne(t, `<a href="notes/deep/page">notes/deep/page</a>`)
	opts := DefaultOptions()

	Process(nodes, "top", opts, nil)

	a := findElement(nodes, "a")
	require.Equal(t, "/notes/deep/page", attrOf(a, "href"))
	require.Equal(t, "page", a.FirstChild.Data)
}

func TestProcess_PrettyLinkDisabled(t *testing.T) {
	nodes := parseOne(t, `<a href="notes/deep/page">notes/deep/page</a>`)
	opts := DefaultOptions()
	opts.PrettyLinks = false

	Process(nodes, "top", opts, nil)

	a := findElement(nodes, "a")
	require.Equal(t, "notes/deep/page", a.FirstChild.Data)
}

func TestProcess_PrettyLinkTrailingSlashText(t *testing.T) {
	nodes := parseOne(t, `<a href="notes/foo/">notes/foo/</a>`)
	opts := DefaultOptions()

	Process(nodes, "top", opts, nil)

	// 尾斜杠不把显示文本缩成空串
	a := findElement(nodes, "a")
	require.Equal(t, "foo", a.FirstChild.Data)
}

func TestProcess_PrettyLinkSkipsExternal(t *testing.T) {
	nodes := parseOne(t, `<a href="https://example.com/a/b">https://example.com/a/b</a>`)
	opts := DefaultOptions()
	opts.ExternalLinkIcon = false

	Process(nodes, "top", opts, nil)

	a := findElement(nodes, "a")
	require.Equal(t, "https://example.com/a/b", a.FirstChild.Data)
}

func TestProcess_NewTabOnlyForExternal(t *testing.T) {
	nodes := parseOne(t, `<p><a href="https://example.com">e</a><a href="notes/foo">i</a></p>`)
	opts := DefaultOptions()
	opts.OpenLinksInNewTab = true

	Process(nodes, "page", opts, nil)

	var anchors []*html.Node
	var walkAll func(n *html.Node)
	walkAll = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			anchors = append(anchors, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walkAll(c)
		}
	}
	for _, n := range nodes {
		walkAll(n)
	}
	require.Len(t, anchors, 2)
	require.Equal(t, "_blank", attrOf(anchors[0], "target"))
	require.Equal(t, "noopener noreferrer", attrOf(anchors[0], "rel"))
	require.Empty(t, attrOf(anchors[1], "target"))
}

func TestProcess_ResourceLazyLoadAndResolution(t *testing.T) {
	nodes := parseOne(t, `<img src="attachments/pic.png" alt="p">`)
	opts := DefaultOptions()
	opts.LazyLoad = true

	Process(nodes, "notes/foo", opts, nil)

	img := findElement(nodes, "img")
	require.Equal(t, "lazy", attrOf(img, "loading"))
	require.Equal(t, "/attachments/pic.png", attrOf(img, "src"))
}

func TestProcess_AbsoluteResourceLeftAlone(t *testing.T) {
	nodes := parseOne(t, `<img src="https://cdn.example.com/pic.png">`)
	opts := DefaultOptions()

	Process(nodes, "notes/foo", opts, nil)

	img := findElement(nodes, "img")
	require.Equal(t, "https://cdn.example.com/pic.png", attrOf(img, "src"))
	require.Empty(t, attrOf(img, "loading"))
}

func TestProcess_IframeSourceResolved(t *testing.T) {
	nodes := parseOne(t, `<iframe src="embeds/demo"></iframe>`)
	opts := DefaultOptions()

	Process(nodes, "page", opts, nil)

	fr := findElement(nodes, "iframe")
	require.Equal(t, "/embeds/demo", attrOf(fr, "src"))
}

func TestProcess_MalformedDestinationTreatedAsInternal(t *testing.T) {
	// 控制字符让 url.Parse 报错：按相对路径处理，不是错误
	nodes := parseOne(t, `<a href="notes/%zz bad">x</a>`)
	opts := DefaultOptions()

	require.NotPanics(t, func() {
		Process(nodes, "page", opts, nil)
	})
	a := findElement(nodes, "a")
	require.Contains(t, classesOf(a), "internal")
}

func TestProcess_RoundTripSerialization(t *testing.T) {
	nodes := parseOne(t, `<p>see <a href="notes/foo">notes/foo</a></p>`)
	opts := DefaultOptions()

	Process(nodes, "page", opts, nil)

	out, err := RenderBody(nodes)
	require.NoError(t, err)
	require.Contains(t, string(out), `href="/notes/foo"`)
	require.Contains(t, string(out), `data-slug="notes/foo"`)
	require.Contains(t, string(out), `class="internal"`)
}
