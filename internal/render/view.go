package render

import (
	"garden/internal/domain/config"
	"garden/internal/domain/content"
	"html/template"
	"time"
)

type Heading struct {
	Level int
	ID    string
	Text  string
}

type NotePage struct {
	Site config.SiteConfig
	Meta content.NoteMeta
	HTML template.HTML
	TOC  []Heading

	// 反链面板：链接到本页的其他笔记
	Backlinks []content.NoteMeta
	// 本页链出去的笔记（知识图谱侧边栏用）
	OutNotes []content.NoteMeta

	FolderName string
	FolderList []content.NoteMeta

	IsDraft   bool
	PageTitle string
}

type ListPage struct {
	Site      config.SiteConfig
	Title     string
	SubTitle  string
	Items     []content.NoteMeta
	Page      int
	PageSize  int
	Total     int
	Tag       string
	Generated time.Time
}

type FolderPage struct {
	Site   config.SiteConfig
	Name   string
	Intro  string
	Items  []content.NoteMeta
	Count  int
	Latest time.Time
}

type HomeItemKind string

const (
	HomeItemNote   HomeItemKind = "note"
	HomeItemFolder HomeItemKind = "folder"
)

type HomeNoteItem struct {
	Meta content.NoteMeta
}

type HomeFolderItem struct {
	Name               string
	Count              int
	LatestUpdated      time.Time
	MaxPinned          int
	RepresentativeNote content.NoteMeta
}

type HomeItem struct {
	Kind   HomeItemKind
	Note   *HomeNoteItem
	Folder *HomeFolderItem
}

type HomePage struct {
	Site      config.SiteConfig
	Items     []HomeItem
	Page      int
	PageSize  int
	Generated time.Time
	PageTitle string
}

type NotFoundPage struct {
	Site config.SiteConfig
	Path string
}

type ArchivesGroup struct {
	Year  int
	Notes []content.NoteMeta
	Count int
}

type ArchivesPage struct {
	Site   config.SiteConfig
	Groups []ArchivesGroup
	Total  int
}

type TagStat struct {
	Name  string
	Count int
}

type TagsPage struct {
	Site  config.SiteConfig
	Tags  []TagStat
	Total int
}

// RedirectPage：alias 产出的跳转占位页
type RedirectPage struct {
	Site   config.SiteConfig
	Target string // 目标页的站内路径，如 "/notes/foo/"
}
