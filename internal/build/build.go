package build

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"garden/internal/app"
	domainbuild "garden/internal/domain/build"
	"garden/internal/domain/config"
	"garden/internal/domain/content"
	"garden/internal/index"
	"garden/internal/ingest"
	"garden/internal/render"
	"garden/internal/transform"
)

type Builder struct {
	Cfg       config.Config
	IndexPath string

	// 替换规则只能由代码提供（regexp + 图标载荷进不了 yaml）
	Rules []transform.Rule
}

type Result struct {
	Notes    int
	Warnings []ingest.Warning
}

// renderedNote：第一遍 渲染+改写 的产物，第二遍套模板时用
type renderedNote struct {
	note     content.Note
	html     []byte
	headings []render.Heading
}

func (b *Builder) Run(ctx context.Context) (*Result, error) {
	notes, warns, err := ingest.Ingest(b.Cfg.Build.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("ingest failed: %w", err)
	}

	st, err := index.Open(index.OpenOptions{Path: b.IndexPath})
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	defer st.Close()

	if err := st.Rebuild(notes, index.RebuildOptions{
		IncludeDraft: b.Cfg.Build.IncludeDraft,
	}); err != nil {
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}

	md := render.NewMarkdownRenderer()
	themeDir := b.Cfg.Build.ThemeDir
	themeName := b.Cfg.Site.Theme
	tpl, err := render.NewTemplateRenderer(themeDir, themeName)
	if err != nil {
		return nil, fmt.Errorf("load theme(%s): %w", themeDir, err)
	}

	outDir := b.Cfg.Build.PublicDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir public: %w", err)
	}

	if err := b.buildAll(ctx, st, md, tpl, outDir, notes); err != nil {
		return nil, err
	}

	if err := b.recordFingerprint(st, notes); err != nil {
		return nil, fmt.Errorf("record fingerprint: %w", err)
	}

	return &Result{
		Notes:    len(notes),
		Warnings: warns,
	}, nil
}

func (b *Builder) buildAll(
	ctx context.Context,
	st *index.Store,
	md *render.MarkdownRenderer,
	tpl render.Renderer,
	outDir string,
	notes []content.Note,
) error {
	// 第一遍：markdown -> HTML -> 链接改写，顺便收集全站出链
	rendered, links, err := b.renderNotes(md, notes)
	if err != nil {
		return err
	}
	if err := st.PutLinkSets(links); err != nil {
		return fmt.Errorf("store link sets: %w", err)
	}

	if err := b.buildHome(ctx, st, tpl, outDir); err != nil {
		return fmt.Errorf("build home: %w", err)
	}

	// 第二遍：套模板输出，此时反链已经齐了
	if err := b.buildNotes(ctx, st, tpl, outDir, rendered); err != nil {
		return fmt.Errorf("build notes: %w", err)
	}

	if err := b.buildAllFolders(ctx, st, tpl, outDir); err != nil {
		return fmt.Errorf("build folders: %w", err)
	}

	if err := b.buildAllTags(ctx, st, tpl, outDir); err != nil {
		return fmt.Errorf("build tags: %w", err)
	}

	if err := b.buildNotFound(ctx, tpl, outDir); err != nil {
		return fmt.Errorf("build 404: %w", err)
	}

	if err := b.buildArchives(ctx, st, tpl, outDir); err != nil {
		return fmt.Errorf("build archives: %w", err)
	}

	if err := b.buildTagsOverview(ctx, st, tpl, outDir); err != nil {
		return fmt.Errorf("build tags overview: %w", err)
	}

	if err := b.buildAliasRedirects(ctx, tpl, outDir, notes); err != nil {
		return fmt.Errorf("build alias redirects: %w", err)
	}

	if err := b.writeGraph(st, outDir); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}

	if err := b.copyStaticAssets(outDir); err != nil {
		return fmt.Errorf("copy static assets: %w", err)
	}
	return nil
}

// renderNotes：每页 渲染 -> 解析 -> 改写 -> 序列化。
// 树页独占，改写只共享只读的 Options 和 slug 集合。
func (b *Builder) renderNotes(
	md *render.MarkdownRenderer,
	notes []content.Note,
) ([]renderedNote, map[string][]string, error) {
	opts := transform.FromConfig(b.Cfg.Transform)
	opts.Rules = b.Rules

	allSlugs := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		allSlugs[n.Meta.Slug] = struct{}{}
	}

	var out []renderedNote
	links := make(map[string][]string, len(notes))

	for _, n := range notes {
		meta := n.Meta
		if meta.Hidden {
			continue
		}
		if meta.Draft && !b.Cfg.Build.IncludeDraft {
			continue
		}

		src, err := os.ReadFile(n.Body.SourcePath)
		if err != nil {
			return nil, nil, fmt.Errorf("read note source(%s): %w", n.Body.SourcePath, err)
		}

		// 去掉 frontmatter，只保留正文
		_, body, fmErr := ingest.ParseFrontMatter(src)
		if fmErr != nil {
			body = src
		}

		mdResult, err := md.Render(body)
		if err != nil {
			return nil, nil, fmt.Errorf("markdown render(%s): %w", meta.Slug, err)
		}

		nodes, err := transform.ParseBody(mdResult.HTML)
		if err != nil {
			return nil, nil, fmt.Errorf("parse html(%s): %w", meta.Slug, err)
		}
		outgoing := transform.Process(nodes, meta.Slug, opts, allSlugs)
		htmlBytes, err := transform.RenderBody(nodes)
		if err != nil {
			return nil, nil, fmt.Errorf("serialize html(%s): %w", meta.Slug, err)
		}

		outLinks := make([]string, 0, len(outgoing))
		for s := range outgoing {
			outLinks = append(outLinks, s)
		}
		sort.Strings(outLinks)
		links[meta.Slug] = outLinks
		n.Meta.OutLinks = outLinks

		out = append(out, renderedNote{
			note:     n,
			html:     htmlBytes,
			headings: mdResult.Headings,
		})
	}
	return out, links, nil
}

func (b *Builder) buildHome(
	ctx context.Context,
	st *index.Store,
	tpl render.Renderer,
	outDir string,
) error {
	opt := index.ListOptions{
		Sort:         b.Cfg.Site.SortMode,
		Page:         1,
		Size:         20,
		IncludeDraft: false,
	}
	items, err := st.HomeItems(opt)
	if err != nil {
		return err
	}

	var viewItems []render.HomeItem
	for _, it := range items {
		switch it.Kind {
		case index.HomeNote:
			viewItems = append(viewItems, render.HomeItem{
				Kind: render.HomeItemNote,
				Note: &render.HomeNoteItem{
					Meta: *it.Meta,
				},
			})
		case index.HomeFolder:
			var rep content.NoteMeta
			if it.Folder.RepresentativeSlug != "" {
				if m, err := st.GetMeta(it.Folder.RepresentativeSlug); err == nil {
					rep = m
				}
			}
			viewItems = append(viewItems, render.HomeItem{
				Kind: render.HomeItemFolder,
				Folder: &render.HomeFolderItem{
					Name:               it.Folder.Name,
					Count:              it.Folder.Count,
					LatestUpdated:      it.Folder.LatestUpdated,
					MaxPinned:          it.Folder.MaxPinned,
					RepresentativeNote: rep,
				},
			})
		}
	}

	page := render.HomePage{
		Site:      b.Cfg.Site,
		Items:     viewItems,
		Page:      1,
		PageSize:  opt.Size,
		Generated: b.Cfg.Build.Now,
		PageTitle: "Home",
	}
	htmlBytes, err := tpl.RenderHome(ctx, page)
	if err != nil {
		return err
	}

	return writeFile(outDir, "index.html", htmlBytes)
}

func (b *Builder) buildNotes(
	ctx context.Context,
	st *index.Store,
	tpl render.Renderer,
	outDir string,
	rendered []renderedNote,
) error {
	rb := app.RouteBuilder{Index: st}

	for _, rn := range rendered {
		meta := rn.note.Meta

		backSlugs, err := st.Backlinks(meta.Slug)
		if err != nil {
			return err
		}
		backs := b.metasOf(st, backSlugs)
		outs := b.metasOf(st, meta.OutLinks)

		// 目录侧栏：同目录下的其他笔记
		var folderList []content.NoteMeta
		if meta.Folder != "" {
			folderList, _ = st.ListByFolder(meta.Folder, index.ListOptions{
				Sort:         b.Cfg.Site.SortMode,
				Page:         1,
				Size:         1000,
				IncludeDraft: false,
			})
		}

		np := render.NotePage{
			Site:       b.Cfg.Site,
			Meta:       meta,
			HTML:       template.HTML(rn.html),
			TOC:        rn.headings,
			Backlinks:  backs,
			OutNotes:   outs,
			FolderName: meta.Folder,
			FolderList: folderList,
			IsDraft:    meta.Draft,
			PageTitle:  meta.Title,
		}

		htmlBytes, err := tpl.RenderNote(ctx, np)
		if err != nil {
			return fmt.Errorf("render note(%s): %w", meta.Slug, err)
		}

		routes := rb.BuildNoteRoutes([]content.NoteMeta{meta})
		if err := writeFile(outDir, routes[0].OutPath, htmlBytes); err != nil {
			return err
		}
	}
	return nil
}

// metasOf：忽略指向站外或已删除页面的 slug
func (b *Builder) metasOf(st *index.Store, slugs []string) []content.NoteMeta {
	var out []content.NoteMeta
	for _, s := range slugs {
		if m, err := st.GetMeta(transform.SimplifySlug(s)); err == nil {
			out = append(out, m)
		} else if m, err := st.GetMeta(s); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func (b *Builder) buildAllFolders(
	ctx context.Context,
	st *index.Store,
	tpl render.Renderer,
	outDir string,
) error {
	rb := app.RouteBuilder{Index: st}
	routes, err := rb.BuildFolderRoutes()
	if err != nil {
		return err
	}
	for _, route := range routes {
		name := route.Slug
		items, err := st.ListByFolder(name, index.ListOptions{
			Sort:         b.Cfg.Site.SortMode,
			Page:         1,
			Size:         1000,
			IncludeDraft: false,
		})
		if err != nil {
			return err
		}
		if len(items) == 0 {
			continue
		}
		sum, err := st.GetFolderSummary(name, false)
		if err != nil {
			continue
		}

		fp := render.FolderPage{
			Site:   b.Cfg.Site,
			Name:   name,
			Items:  items,
			Count:  sum.Count,
			Latest: sum.LatestUpdated,
		}

		htmlBytes, err := tpl.RenderFolder(ctx, fp)
		if err != nil {
			return fmt.Errorf("render folder(%s): %w", name, err)
		}

		if err := writeFile(outDir, route.OutPath, htmlBytes); err != nil {
			return err
		}
	}
	return nil
}

// =============== tags /tags/<tag>/index.html ===============

func (b *Builder) buildAllTags(
	ctx context.Context,
	st *index.Store,
	tpl render.Renderer,
	outDir string,
) error {
	metas, err := st.List(index.ListOptions{
		Sort:         b.Cfg.Site.SortMode,
		Page:         1,
		Size:         1000000,
		IncludeDraft: false,
	})
	if err != nil {
		return err
	}

	tagSet := make(map[string]struct{})
	for _, m := range metas {
		for _, t := range m.Tags {
			if t == "" {
				continue
			}
			tagSet[t] = struct{}{}
		}
	}

	for tag := range tagSet {
		items, err := st.ListByTag(tag, index.ListOptions{
			Sort:         b.Cfg.Site.SortMode,
			Page:         1,
			Size:         1000,
			IncludeDraft: false,
		})
		if err != nil {
			return err
		}
		if len(items) == 0 {
			continue
		}

		lp := render.ListPage{
			Site:      b.Cfg.Site,
			Title:     fmt.Sprintf("Tag: %s", tag),
			SubTitle:  "",
			Items:     items,
			Page:      1,
			PageSize:  len(items),
			Tag:       tag,
			Generated: b.Cfg.Build.Now,
		}

		htmlBytes, err := tpl.RenderList(ctx, lp)
		if err != nil {
			return fmt.Errorf("render tag(%s): %w", tag, err)
		}

		outPath := filepath.Join("tags", safePathSegment(tag), "index.html")
		if err := writeFile(outDir, outPath, htmlBytes); err != nil {
			return err
		}
	}
	return nil
}

// =============== 404 /404.html ===============

func (b *Builder) buildNotFound(
	ctx context.Context,
	tpl render.Renderer,
	outDir string,
) error {
	page := render.NotFoundPage{
		Site: b.Cfg.Site,
		Path: "",
	}
	htmlBytes, err := tpl.RenderNotFound(ctx, page)
	if err != nil {
		return err
	}
	return writeFile(outDir, "404.html", htmlBytes)
}

func (b *Builder) buildArchives(
	ctx context.Context,
	st *index.Store,
	tpl render.Renderer,
	outDir string,
) error {
	metas, err := st.List(index.ListOptions{
		Sort:         b.Cfg.Site.SortMode,
		Page:         1,
		Size:         1000000,
		IncludeDraft: false,
	})
	if err != nil {
		return err
	}

	groupsMap := make(map[int][]content.NoteMeta)
	for _, m := range metas {
		y := m.Date.Year()
		groupsMap[y] = append(groupsMap[y], m)
	}

	years := make([]int, 0, len(groupsMap))
	for y := range groupsMap {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	groups := make([]render.ArchivesGroup, 0, len(years))
	total := len(metas)
	for _, y := range years {
		posts := groupsMap[y]
		groups = append(groups, render.ArchivesGroup{
			Year:  y,
			Notes: posts,
			Count: len(posts),
		})
	}

	page := render.ArchivesPage{
		Site:   b.Cfg.Site,
		Groups: groups,
		Total:  total,
	}

	htmlBytes, err := tpl.RenderArchives(ctx, page)
	if err != nil {
		return err
	}
	return writeFile(outDir, filepath.Join("archives", "index.html"), htmlBytes)
}

func (b *Builder) buildTagsOverview(
	ctx context.Context,
	st *index.Store,
	tpl render.Renderer,
	outDir string,
) error {
	metas, err := st.List(index.ListOptions{
		Sort:         b.Cfg.Site.SortMode,
		Page:         1,
		Size:         1000000,
		IncludeDraft: false,
	})
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	for _, m := range metas {
		for _, t := range m.Tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			counts[t]++
		}
	}

	stats := make([]render.TagStat, 0, len(counts))
	for name, c := range counts {
		stats = append(stats, render.TagStat{
			Name:  name,
			Count: c,
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		// 按数量降序，数量相同按名字排序
		if stats[i].Count == stats[j].Count {
			return stats[i].Name < stats[j].Name
		}
		return stats[i].Count > stats[j].Count
	})

	page := render.TagsPage{
		Site:  b.Cfg.Site,
		Tags:  stats,
		Total: len(stats),
	}
	htmlBytes, err := tpl.RenderTagsPage(ctx, page)
	if err != nil {
		return err
	}
	return writeFile(outDir, filepath.Join("tags", "index.html"), htmlBytes)
}

// =============== alias 跳转页 ===============

func (b *Builder) buildAliasRedirects(
	ctx context.Context,
	tpl render.Renderer,
	outDir string,
	notes []content.Note,
) error {
	rb := app.RouteBuilder{}
	metas := make([]content.NoteMeta, 0, len(notes))
	for _, n := range notes {
		if n.Meta.Hidden {
			continue
		}
		if n.Meta.Draft && !b.Cfg.Build.IncludeDraft {
			continue
		}
		metas = append(metas, n.Meta)
	}

	for _, route := range rb.BuildAliasRoutes(metas) {
		page := render.RedirectPage{
			Site:   b.Cfg.Site,
			Target: "/" + route.Key + "/",
		}
		htmlBytes, err := tpl.RenderRedirect(ctx, page)
		if err != nil {
			return fmt.Errorf("render redirect(%s): %w", route.Slug, err)
		}
		if err := writeFile(outDir, route.OutPath, htmlBytes); err != nil {
			return err
		}
	}
	return nil
}

// =============== graph.json ===============

func (b *Builder) writeGraph(st *index.Store, outDir string) error {
	g, err := st.Graph()
	if err != nil {
		return err
	}
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return writeFile(outDir, "graph.json", data)
}

// =============== 构建指纹 ===============

func (b *Builder) recordFingerprint(st *index.Store, notes []content.Note) error {
	hashes := make([]string, 0, len(notes))
	for _, n := range notes {
		hashes = append(hashes, n.Body.ContentHash)
	}

	cfg := b.Cfg
	cfg.Build.Now = time.Time{} // Now 每次都变，不参与指纹
	cfgBytes, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	fp := domainbuild.Fingerprint{
		ContentHash:  domainbuild.HashStrings(hashes),
		ThemeHash:    b.themeHash(),
		ConfigHash:   domainbuild.HashBytes(cfgBytes),
		RendererHash: rendererVersion,
	}
	fp.ComputeRenderHash()
	return st.PutFingerprint(fp)
}

// rendererVersion 改渲染逻辑时手动抬版本号，让旧产物失效
const rendererVersion = "garden-render-1"

func (b *Builder) themeHash() string {
	root := filepath.Join(b.Cfg.Build.ThemeDir, b.Cfg.Site.Theme)
	var entries []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		entries = append(entries, fmt.Sprintf("%s:%d:%d", path, info.Size(), info.ModTime().UnixNano()))
		return nil
	})
	return domainbuild.HashStrings(entries)
}

func writeFile(root, rel string, data []byte) error {
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

func safePathSegment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "untitled"
	}
	repl := func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}
	return strings.Map(repl, s)
}

func (b *Builder) copyStaticAssets(outDir string) error {
	src := filepath.Join(b.Cfg.Build.ThemeDir, b.Cfg.Site.Theme, "static")
	// 没有 static 目录就算了
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return nil
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(outDir, rel)

		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}

		in, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(dst, in, 0o644)
	})
}
