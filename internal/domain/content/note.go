package content

import (
	"strings"
	"time"
)

type NoteMeta struct {
	Title   string
	Slug    string // path-like: "linux/nvidia-drivers"
	Date    time.Time
	Updated time.Time

	Tags   []string
	Folder string // slug 的目录前缀，"" 表示根

	Description string
	Summary     string
	Cover       string

	Pinned int
	Hidden bool
	Draft  bool

	Aliases []string

	// 由解析阶段填充（但仍属于 domain 数据）
	WordCount int
	ReadMin   int

	// 反链 / 知识图谱会用
	OutLinks []string // 改写阶段收集到的站内 slug
	ShortID  string
}

type BodyRef struct {
	SourcePath  string
	ContentHash string
}

type Note struct {
	Meta NoteMeta
	Body BodyRef
}

func (m *NoteMeta) Normalize() {
	m.Title = strings.TrimSpace(m.Title)
	m.Slug = strings.Trim(strings.TrimSpace(m.Slug), "/")
	m.Folder = folderOf(m.Slug)

	m.Tags = normalizeStrings(m.Tags)
	m.Aliases = normalizeAliases(m.Aliases)
	if m.Pinned < 0 {
		m.Pinned = 0
	}
}

// folderOf 取 slug 的第一级目录；没有目录返回 ""
func folderOf(slug string) string {
	i := strings.Index(slug, "/")
	if i <= 0 {
		return ""
	}
	return slug[:i]
}

func normalizeStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		item = strings.ToLower(item)
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// alias 是 path-like slug，不做小写折叠以外的处理，只去重、去空、去首尾斜杠
func normalizeAliases(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.Trim(strings.TrimSpace(item), "/")
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
