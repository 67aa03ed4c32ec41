package serve

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	domainbuild "garden/internal/domain/build"
	"garden/internal/domain/config"
	"garden/internal/domain/content"
	"garden/internal/index"
	"garden/internal/ingest"
	"garden/internal/render"
	"garden/internal/transform"
)

type Server struct {
	cfg config.Config

	indexPath string
	idx       *index.Store
	md        *render.MarkdownRenderer
	tpl       render.Renderer

	topts transform.Options

	mu    sync.RWMutex
	notes map[string]content.Note
	slugs map[string]struct{}

	sseMu     sync.Mutex
	sseConns  map[chan string]struct{}
	watcher   *fsnotify.Watcher
	watchOnce sync.Once
}

func New(cfg config.Config, indexPath string, themeDir, themeName string, rules []transform.Rule) (*Server, error) {
	md := render.NewMarkdownRenderer()
	tpl, err := render.NewTemplateRenderer(themeDir, themeName)
	if err != nil {
		return nil, fmt.Errorf("serve: failed to create template renderer: %w", err)
	}
	st, err := index.Open(index.OpenOptions{Path: indexPath})
	if err != nil {
		return nil, fmt.Errorf("serve: failed to open index: %w", err)
	}

	topts := transform.FromConfig(cfg.Transform)
	topts.Rules = rules

	s := &Server{
		cfg:       cfg,
		indexPath: indexPath,
		idx:       st,
		md:        md,
		tpl:       tpl,
		topts:     topts,
		notes:     make(map[string]content.Note),
		slugs:     make(map[string]struct{}),
		sseConns:  make(map[chan string]struct{}),
	}
	return s, nil
}

func (s *Server) Close() error {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	if s.idx != nil {
		return s.idx.Close()
	}
	return nil
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if err := s.rebuild(ctx); err != nil {
		return err
	}

	// 启动文件监控
	if err := s.startWatch(ctx); err != nil {
		return err
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleNote) // 首页 + 笔记 + 目录都走这里
	mux.HandleFunc("/tags/", s.handleTag)
	mux.HandleFunc("/archives", s.handleArchives)
	mux.HandleFunc("/tags", s.handleTagsRoot)
	mux.HandleFunc("/graph.json", s.handleGraph)
	mux.HandleFunc("/s/", s.handleShort)

	// dev SSE
	mux.HandleFunc("/dev/events", s.handleSSE)

	staticDir := filepath.Join(s.cfg.Build.ThemeDir, s.cfg.Site.Theme, "static")
	fileServer := http.FileServer(http.Dir(staticDir))

	mux.Handle("/css/", fileServer)
	mux.Handle("/js/", fileServer)
	mux.Handle("/images/", fileServer)
	mux.Handle("/favicon.ico", fileServer)

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// 支持 ctx 取消
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	log.Printf("[serve] listening on %s", addr)
	return srv.ListenAndServe()
}

func (s *Server) rebuild(ctx context.Context) error {
	sourceDir := s.cfg.Build.SourceDir
	log.Printf("[serve] ingest from %s ...", sourceDir)
	notes, warns, err := ingest.Ingest(sourceDir)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	for _, w := range warns {
		log.Printf("[warn] %s: %s", w.Path, w.Msg)
	}
	log.Printf("[serve] ingested %d notes", len(notes))

	// 内容没变就跳过：省掉整轮索引重建和出链扫描
	hashes := make([]string, 0, len(notes))
	for _, n := range notes {
		hashes = append(hashes, n.Body.ContentHash)
	}
	contentHash := domainbuild.HashStrings(hashes)
	if fp, err := s.idx.GetFingerprint(); err == nil && fp.ContentHash == contentHash {
		log.Printf("[serve] content unchanged, skip rebuild")
		return nil
	}

	if err := s.idx.Rebuild(notes, index.RebuildOptions{
		IncludeDraft: true,
	}); err != nil {
		return fmt.Errorf("index rebuild: %w", err)
	}

	m := make(map[string]content.Note, len(notes))
	slugs := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		if strings.TrimSpace(n.Meta.Slug) == "" {
			continue
		}
		m[n.Meta.Slug] = n
		slugs[n.Meta.Slug] = struct{}{}
	}
	s.mu.Lock()
	s.notes = m
	s.slugs = slugs
	s.mu.Unlock()

	// 反链在 dev 下也要能看：整站扫一遍出链
	if err := s.collectLinkSets(m, slugs); err != nil {
		log.Printf("[warn] collect link sets: %v", err)
	}

	fp := domainbuild.Fingerprint{ContentHash: contentHash}
	fp.ComputeRenderHash()
	if err := s.idx.PutFingerprint(fp); err != nil {
		log.Printf("[warn] store fingerprint: %v", err)
	}

	log.Printf("[serve] rebuild complete")
	s.broadcastSSE("reload")

	return nil
}

func (s *Server) collectLinkSets(notes map[string]content.Note, slugs map[string]struct{}) error {
	links := make(map[string][]string, len(notes))
	for slug, n := range notes {
		src, err := os.ReadFile(n.Body.SourcePath)
		if err != nil {
			continue
		}
		_, body, fmErr := ingest.ParseFrontMatter(src)
		if fmErr != nil {
			body = src
		}
		mdResult, err := s.md.Render(body)
		if err != nil {
			continue
		}
		nodes, err := transform.ParseBody(mdResult.HTML)
		if err != nil {
			continue
		}
		outgoing := transform.Process(nodes, slug, s.topts, slugs)
		out := make([]string, 0, len(outgoing))
		for t := range outgoing {
			out = append(out, t)
		}
		sort.Strings(out)
		links[slug] = out
	}
	return s.idx.PutLinkSets(links)
}

func (s *Server) startWatch(ctx context.Context) error {
	var err error
	s.watchOnce.Do(func() {
		w, e := fsnotify.NewWatcher()
		if e != nil {
			err = e
			return
		}
		s.watcher = w

		go s.watchLoop(ctx)

		err = filepath.Walk(s.cfg.Build.SourceDir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return w.Add(path)
			}
			return nil
		})
	})
	return err
}

func (s *Server) watchLoop(ctx context.Context) {
	log.Printf("[serve] watching for file changes ...")
	debounce := time.NewTicker(time.Hour)
	debounce.Stop()

	trigger := func() {
		select {
		case <-debounce.C:
		default:
		}
		debounce.Reset(200 * time.Millisecond)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				trigger()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[warn] watcher error: %v", err)
		case <-debounce.C:
			ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := s.rebuild(ctx2); err != nil {
				log.Printf("[serve] rebuild error: %v", err)
			}
			cancel()
		}
	}
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan string, 8)

	s.sseMu.Lock()
	s.sseConns[ch] = struct{}{}
	s.sseMu.Unlock()

	defer func() {
		s.sseMu.Lock()
		delete(s.sseConns, ch)
		close(ch)
		s.sseMu.Unlock()
	}()
	fmt.Fprintf(w, "data: %s\n\n", "hello")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) broadcastSSE(msg string) {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()
	for ch := range s.sseConns {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	opt := index.ListOptions{
		Sort:         s.cfg.Site.SortMode,
		Page:         1,
		Size:         20,
		IncludeDraft: true,
	}
	items, err := s.idx.HomeItems(opt)
	if err != nil {
		http.Error(w, "home query error", http.StatusInternalServerError)
		return
	}

	var viewItems []render.HomeItem
	for _, it := range items {
		switch it.Kind {
		case index.HomeNote:
			viewItems = append(viewItems, render.HomeItem{
				Kind: render.HomeItemNote,
				Note: &render.HomeNoteItem{Meta: *it.Meta},
			})
		case index.HomeFolder:
			var rep content.NoteMeta
			if it.Folder.RepresentativeSlug != "" {
				if m, err := s.idx.GetMeta(it.Folder.RepresentativeSlug); err == nil {
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
		Site:      s.cfg.Site,
		Items:     viewItems,
		Page:      1,
		PageSize:  opt.Size,
		Generated: time.Now(),
		PageTitle: "Home",
	}
	htmlBytes, err := s.tpl.RenderHome(r.Context(), page)
	if err != nil {
		log.Printf("render home error: %v", err)
		http.Error(w, "render home error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, htmlBytes)
}

// 笔记页：path-like slug，/linux/nvidia-drivers/ 这样；
// 命不中 slug 再试 alias、目录页，最后 404
func (s *Server) handleNote(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		s.handleHome(w, r)
		return
	}

	slug := strings.Trim(r.URL.Path, "/")
	if slug == "" {
		s.handleNotFound(w, r)
		return
	}

	s.mu.RLock()
	note, ok := s.notes[slug]
	s.mu.RUnlock()

	if !ok {
		// alias：老地址 301 到新 slug
		if mapped, err := s.idx.ResolveAlias(slug); err == nil && mapped != slug {
			http.Redirect(w, r, "/"+mapped+"/", http.StatusMovedPermanently)
			return
		}
		// 目录页
		if s.tryFolder(w, r, slug) {
			return
		}
		s.handleNotFound(w, r)
		return
	}

	meta := note.Meta

	src, err := os.ReadFile(note.Body.SourcePath)
	if err != nil {
		log.Printf("read source error: %v", err)
		http.Error(w, "read source error", http.StatusInternalServerError)
		return
	}
	_, body, fmErr := ingest.ParseFrontMatter(src)
	if fmErr != nil {
		body = src
	}

	mdResult, err := s.md.Render(body)
	if err != nil {
		log.Printf("markdown render error: %v", err)
		http.Error(w, "markdown render error", http.StatusInternalServerError)
		return
	}

	// dev 下也走完整的链接改写，保证和 build 产物一致
	s.mu.RLock()
	slugs := s.slugs
	s.mu.RUnlock()

	nodes, err := transform.ParseBody(mdResult.HTML)
	if err != nil {
		log.Printf("parse html error: %v", err)
		http.Error(w, "parse html error", http.StatusInternalServerError)
		return
	}
	transform.Process(nodes, meta.Slug, s.topts, slugs)
	htmlBody, err := transform.RenderBody(nodes)
	if err != nil {
		log.Printf("serialize html error: %v", err)
		http.Error(w, "serialize html error", http.StatusInternalServerError)
		return
	}

	backs, _ := s.idx.Backlinks(meta.Slug)
	outs, _ := s.idx.OutLinks(meta.Slug)

	var folderList []content.NoteMeta
	if meta.Folder != "" {
		folderList, _ = s.idx.ListByFolder(meta.Folder, index.ListOptions{
			Sort:         s.cfg.Site.SortMode,
			Page:         1,
			Size:         1000,
			IncludeDraft: true,
		})
	}

	np := render.NotePage{
		Site:       s.cfg.Site,
		Meta:       meta,
		HTML:       template.HTML(htmlBody),
		TOC:        mdResult.Headings,
		Backlinks:  s.metasOf(backs),
		OutNotes:   s.metasOf(outs),
		FolderName: meta.Folder,
		FolderList: folderList,
		IsDraft:    meta.Draft,
		PageTitle:  meta.Title,
	}

	htmlBytes, err := s.tpl.RenderNote(r.Context(), np)
	if err != nil {
		log.Printf("render note error: %v", err)
		http.Error(w, "render note error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, htmlBytes)
}

func (s *Server) metasOf(slugs []string) []content.NoteMeta {
	var out []content.NoteMeta
	for _, sl := range slugs {
		if m, err := s.idx.GetMeta(transform.SimplifySlug(sl)); err == nil {
			out = append(out, m)
		} else if m, err := s.idx.GetMeta(sl); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// 目录页：/linux/
func (s *Server) tryFolder(w http.ResponseWriter, r *http.Request, name string) bool {
	items, err := s.idx.ListByFolder(name, index.ListOptions{
		Sort:         s.cfg.Site.SortMode,
		Page:         1,
		Size:         1000,
		IncludeDraft: true,
	})
	if err != nil || len(items) == 0 {
		return false
	}
	sum, err := s.idx.GetFolderSummary(name, true)
	if err != nil {
		return false
	}

	fp := render.FolderPage{
		Site:   s.cfg.Site,
		Name:   name,
		Items:  items,
		Count:  sum.Count,
		Latest: sum.LatestUpdated,
	}
	htmlBytes, err := s.tpl.RenderFolder(r.Context(), fp)
	if err != nil {
		log.Printf("render folder error: %v", err)
		http.Error(w, "render folder error", http.StatusInternalServerError)
		return true
	}
	writeHTML(w, htmlBytes)
	return true
}

// 标签页：/tags/<tag>/
func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/tags/")
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		s.handleTagsRoot(w, r)
		return
	}
	tag := path

	items, err := s.idx.ListByTag(tag, index.ListOptions{
		Sort:         s.cfg.Site.SortMode,
		Page:         1,
		Size:         1000,
		IncludeDraft: true,
	})
	if err != nil || len(items) == 0 {
		s.handleNotFound(w, r)
		return
	}

	lp := render.ListPage{
		Site:      s.cfg.Site,
		Title:     fmt.Sprintf("Tag: %s", tag),
		Items:     items,
		Page:      1,
		PageSize:  len(items),
		Tag:       tag,
		Generated: time.Now(),
	}
	htmlBytes, err := s.tpl.RenderList(r.Context(), lp)
	if err != nil {
		log.Printf("render tag error: %v", err)
		http.Error(w, "render tag error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, htmlBytes)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	page := render.NotFoundPage{
		Site: s.cfg.Site,
		Path: r.URL.Path,
	}
	htmlBytes, err := s.tpl.RenderNotFound(r.Context(), page)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNotFound)
	writeHTML(w, htmlBytes)
}

func (s *Server) handleArchives(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/archives" && r.URL.Path != "/archives/" {
		s.handleNotFound(w, r)
		return
	}

	metas, err := s.idx.List(index.ListOptions{
		Sort:         config.SortCreated,
		Page:         1,
		Size:         1000000,
		IncludeDraft: true,
	})
	if err != nil {
		log.Printf("archives query error: %v", err)
		http.Error(w, "archives query error", http.StatusInternalServerError)
		return
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].Date.After(metas[j].Date)
	})

	groupsMap := make(map[int][]content.NoteMeta)
	for _, m := range metas {
		if m.Hidden {
			continue
		}
		y := m.Date.Year()
		groupsMap[y] = append(groupsMap[y], m)
	}

	years := make([]int, 0, len(groupsMap))
	for y := range groupsMap {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	groups := make([]render.ArchivesGroup, 0, len(years))
	total := 0
	for _, y := range years {
		notes := groupsMap[y]
		total += len(notes)
		groups = append(groups, render.ArchivesGroup{
			Year:  y,
			Notes: notes,
			Count: len(notes),
		})
	}

	page := render.ArchivesPage{
		Site:   s.cfg.Site,
		Groups: groups,
		Total:  total,
	}

	htmlBytes, err := s.tpl.RenderArchives(r.Context(), page)
	if err != nil {
		log.Printf("render archives error: %v", err)
		http.Error(w, "render archives error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, htmlBytes)
}

func (s *Server) handleTagsRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/tags" && r.URL.Path != "/tags/" {
		s.handleNotFound(w, r)
		return
	}

	metas, err := s.idx.List(index.ListOptions{
		Sort:         s.cfg.Site.SortMode,
		Page:         1,
		Size:         1000000,
		IncludeDraft: true,
	})
	if err != nil {
		log.Printf("tags query error: %v", err)
		http.Error(w, "tags query error", http.StatusInternalServerError)
		return
	}

	counts := make(map[string]int)
	for _, m := range metas {
		if m.Hidden {
			continue
		}
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
		stats = append(stats, render.TagStat{Name: name, Count: c})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count == stats[j].Count {
			return stats[i].Name < stats[j].Name
		}
		return stats[i].Count > stats[j].Count
	})

	page := render.TagsPage{
		Site:  s.cfg.Site,
		Tags:  stats,
		Total: len(stats),
	}
	htmlBytes, err := s.tpl.RenderTagsPage(r.Context(), page)
	if err != nil {
		log.Printf("render tags overview error: %v", err)
		http.Error(w, "render tags overview error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, htmlBytes)
}

// 短链：/s/<id> 301 到笔记页
func (s *Server) handleShort(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/s/"), "/")
	if id == "" {
		s.handleNotFound(w, r)
		return
	}
	slug, err := s.idx.GetByShortID(id)
	if err != nil {
		s.handleNotFound(w, r)
		return
	}
	http.Redirect(w, r, "/"+slug+"/", http.StatusMovedPermanently)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.idx.Graph()
	if err != nil {
		http.Error(w, "graph query error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := writeJSON(w, g); err != nil {
		log.Printf("write graph error: %v", err)
	}
}

// ===================== 工具 =====================

func writeHTML(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, v interface{}) error {
	return json.NewEncoder(w).Encode(v)
}
