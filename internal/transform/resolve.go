package transform

import (
	"net/url"
	"path"
	"strings"

	"garden/internal/domain/config"
)

// IsAbsoluteURL：能解析出 scheme 就算绝对链接（mailto: 也算）。
// 解析失败不是错误，只说明它是相对路径。
func IsAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != ""
}

// TransformLink 按策略把内部链接改写成最终 href。
// src 是当前页 slug，target 是原始（可能带扩展名、可能相对）的目标。
func TransformLink(src, target string, strategy config.ResolveStrategy, allSlugs map[string]struct{}) string {
	cleaned, anchor := splitAnchor(target)
	cleaned = normalizeTarget(cleaned)

	if strategy == config.ResolveRelative {
		// 相对策略：保留调用方写的相对形态，交给浏览器解析
		return cleaned + anchor
	}

	canonical := strings.TrimPrefix(cleaned, "./")
	canonical = strings.TrimPrefix(canonical, "/")
	// 点段（../）压平成站点根下的路径，尾斜杠要留着（隐式 index）
	trailing := strings.HasSuffix(canonical, "/")
	canonical = strings.TrimPrefix(path.Clean("/"+canonical), "/")
	if trailing && canonical != "" {
		canonical += "/"
	}

	if strategy == config.ResolveShortest {
		// 末段在全站唯一时用最短写法（Obsidian 风格）
		base := path.Base(canonical)
		var match string
		count := 0
		for s := range allSlugs {
			if path.Base(s) == base {
				match = s
				count++
			}
		}
		if count == 1 {
			return "/" + match + anchor
		}
	}

	// absolute 以及 shortest 的回退：目标按全站 slug 解释
	return "/" + canonical + anchor
}

// CanonicalSlug 把改写后的 href 对着当前页构成的合成 base 求绝对形态，
// 再归一化成 slug。尾斜杠补一个隐式 index 段。
func CanonicalSlug(pageSlug, dest string) string {
	base, err := url.Parse("https://base.example/" + pageSlug)
	if err != nil {
		return ""
	}
	u, err := base.Parse(dest)
	if err != nil {
		return ""
	}
	p := u.Path
	if strings.HasSuffix(p, "/") {
		p += "index"
	}
	return NormalizeSlug(p)
}

// NormalizeSlug 去首尾斜杠 + 百分号解码；重复调用结果不变
func NormalizeSlug(p string) string {
	p = strings.Trim(p, "/")
	if dec, err := url.PathUnescape(p); err == nil {
		p = dec
	}
	return p
}

// SimplifySlug 去掉尾部的隐式 index 段，得到笔记 slug 的标准形态；
// 出链集合、反链查询、图谱节点都用这个形态。
func SimplifySlug(full string) string {
	if full == "index" {
		return ""
	}
	return strings.TrimSuffix(full, "/index")
}

func splitAnchor(s string) (string, string) {
	i := strings.Index(s, "#")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

// normalizeTarget 解码并去掉 markdown 源里的扩展名
func normalizeTarget(s string) string {
	if dec, err := url.PathUnescape(s); err == nil {
		s = dec
	}
	for _, ext := range []string{".md", ".markdown", ".html"} {
		if strings.HasSuffix(strings.ToLower(s), ext) {
			return s[:len(s)-len(ext)]
		}
	}
	return s
}
