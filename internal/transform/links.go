// Package transform 在 markdown 渲染和模板渲染之间改写页面里的链接：
// 分类 internal/external、应用替换规则、注入图标、收集站内出链。
// 每页一棵树，处理期间独占，页与页之间只共享只读的 Options 和 slug 集合。
package transform

import (
	"strings"

	"golang.org/x/net/html"
)

// Process 就地改写一页的节点树，返回这一页去重后的站内出链集合。
// 对任何输入都不会失败：解析不出绝对 URL 只是一个普通分支。
func Process(nodes []*html.Node, pageSlug string, opts Options, allSlugs map[string]struct{}) map[string]struct{} {
	outgoing := make(map[string]struct{})
	for _, n := range nodes {
		walk(n, pageSlug, opts, allSlugs, outgoing)
	}
	return outgoing
}

func walk(n *html.Node, pageSlug string, opts Options, allSlugs map[string]struct{}, outgoing map[string]struct{}) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "a":
			if _, ok := getAttr(n, "href"); ok {
				processAnchor(n, pageSlug, opts, allSlugs, outgoing)
			}
		case "img", "video", "audio", "iframe":
			if _, ok := getAttr(n, "src"); ok {
				processResource(n, pageSlug, opts, allSlugs)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, pageSlug, opts, allSlugs, outgoing)
	}
}

func processAnchor(n *html.Node, pageSlug string, opts Options, allSlugs map[string]struct{}, outgoing map[string]struct{}) {
	dest, _ := getAttr(n, "href")

	// 1. 规则匹配：第一条命中即停
	dest, ruleIcon, matched := matchRules(dest, opts.Rules)

	// 2. 分类：绝对 URL 或规则命中 → external
	external := matched || IsAbsoluteURL(dest)
	if external {
		addClass(n, "external")
	} else {
		addClass(n, "internal")
	}

	// 先记住图标注入前的文本内容，alias 和 pretty link 都只看原始文本
	textNode, onlyText := singleTextChild(n)

	// 3. 图标注入：规则图标优先于默认外链图标，且不看 internal/external；
	//    每次处理至多追加一个
	if matched || (external && opts.ExternalLinkIcon) {
		icon := ruleIcon
		if icon == nil {
			icon = DefaultExternalIcon
		}
		n.AppendChild(iconNode(icon))
	}

	// 4. alias：可见文本不等于最终目标
	if onlyText && textNode.Data != dest {
		addClass(n, "alias")
	}

	// 5. 外链新标签页打开
	if external && opts.OpenLinksInNewTab {
		setAttr(n, "target", "_blank")
		setAttr(n, "rel", "noopener noreferrer")
	}

	// 6. 站内解析：非绝对 URL、非纯锚点、未被规则改写的才算内部目标
	if !matched && !IsAbsoluteURL(dest) && !strings.HasPrefix(dest, "#") {
		dest = TransformLink(pageSlug, dest, opts.Strategy, allSlugs)
		if canonical := CanonicalSlug(pageSlug, dest); canonical != "" {
			// 出链集合按简化形态做键，反链 / 图谱查的是笔记 slug；
			// data-slug 保留完整形态
			key := SimplifySlug(canonical)
			if key == "" {
				key = canonical
			}
			outgoing[key] = struct{}{}
			setAttr(n, "data-slug", canonical)
		}

		// 7. pretty link：只改显示文本，不碰 href；尾斜杠不算分段
		if opts.PrettyLinks && onlyText && !strings.HasPrefix(textNode.Data, "#") {
			text := strings.TrimSuffix(textNode.Data, "/")
			if i := strings.LastIndex(text, "/"); i >= 0 {
				text = text[i+1:]
			}
			if text != "" {
				textNode.Data = text
			}
		}
	}

	setAttr(n, "href", dest)
}

// processResource：img / video / audio / iframe 的 src 走同一套路径解析
func processResource(n *html.Node, pageSlug string, opts Options, allSlugs map[string]struct{}) {
	if opts.LazyLoad {
		setAttr(n, "loading", "lazy")
	}
	src, _ := getAttr(n, "src")
	if !IsAbsoluteURL(src) {
		setAttr(n, "src", TransformLink(pageSlug, src, opts.Strategy, allSlugs))
	}
}
