package transform

import (
	"golang.org/x/net/html"
)

// Icon 是三选一的图标载荷：图片 / 字符 / 矢量
// sealed：只有本包的三个变体能实现
type Icon interface {
	isIcon()
}

// ImageIcon 指向一张图片资源，渲染成一行文字高的 <img>
type ImageIcon struct {
	Src string
}

// GlyphIcon 是字面文本（emoji 之类），直接作为文本节点插入
type GlyphIcon struct {
	Text string
}

// VectorIcon 是内联 svg：viewBox + path 数据
type VectorIcon struct {
	ViewBox string
	Path    string
}

func (ImageIcon) isIcon()  {}
func (GlyphIcon) isIcon()  {}
func (VectorIcon) isIcon() {}

// DefaultExternalIcon 外链默认的小箭头
var DefaultExternalIcon = VectorIcon{
	ViewBox: "0 0 512 512",
	Path:    "M320 0c-17.7 0-32 14.3-32 32s14.3 32 32 32h82.7L201.4 265.4c-12.5 12.5-12.5 32.8 0 45.3s32.8 12.5 45.3 0L448 109.3V192c0 17.7 14.3 32 32 32s32-14.3 32-32V32c0-17.7-14.3-32-32-32H320zM80 32C35.8 32 0 67.8 0 112V432c0 44.2 35.8 80 80 80H400c44.2 0 80-35.8 80-80V320c0-17.7-14.3-32-32-32s-32 14.3-32 32V432c0 8.8-7.2 16-16 16H80c-8.8 0-16-7.2-16-16V112c0-8.8 7.2-16 16-16H192c17.7 0 32-14.3 32-32s-14.3-32-32-32H80z",
}

// iconNode 把图标载荷渲染成节点，三个变体一个 switch 搞定
func iconNode(icon Icon) *html.Node {
	switch ic := icon.(type) {
	case ImageIcon:
		return &html.Node{
			Type: html.ElementNode,
			Data: "img",
			Attr: []html.Attribute{
				{Key: "src", Val: ic.Src},
				{Key: "class", Val: "link-icon"},
				{Key: "style", Val: "height:1em"},
			},
		}
	case GlyphIcon:
		return &html.Node{
			Type: html.TextNode,
			Data: ic.Text,
		}
	case VectorIcon:
		svg := &html.Node{
			Type: html.ElementNode,
			Data: "svg",
			Attr: []html.Attribute{
				{Key: "class", Val: "external-icon"},
				{Key: "viewBox", Val: ic.ViewBox},
				{Key: "aria-hidden", Val: "true"},
			},
		}
		svg.AppendChild(&html.Node{
			Type: html.ElementNode,
			Data: "path",
			Attr: []html.Attribute{
				{Key: "d", Val: ic.Path},
			},
		})
		return svg
	}
	return nil
}
