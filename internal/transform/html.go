package transform

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseBody 把渲染出来的 HTML 片段解析成节点序列（body 上下文）
func ParseBody(fragment []byte) ([]*html.Node, error) {
	ctx := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	return html.ParseFragment(bytes.NewReader(fragment), ctx)
}

// RenderBody 把处理过的节点序列写回 HTML
func RenderBody(nodes []*html.Node) ([]byte, error) {
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func addClass(n *html.Node, class string) {
	cur, ok := getAttr(n, "class")
	if !ok || strings.TrimSpace(cur) == "" {
		setAttr(n, "class", class)
		return
	}
	for _, c := range strings.Fields(cur) {
		if c == class {
			return
		}
	}
	setAttr(n, "class", cur+" "+class)
}

// singleTextChild：元素内容恰好是一个文本节点时返回它
func singleTextChild(n *html.Node) (*html.Node, bool) {
	c := n.FirstChild
	if c == nil || c.NextSibling != nil || c.Type != html.TextNode {
		return nil, false
	}
	return c, true
}
