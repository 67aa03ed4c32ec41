package ingest

import (
	domainbuild "garden/internal/domain/build"
	"garden/internal/domain/content"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
	"unicode"
)

type Warning struct {
	Path string
	Msg  string
}
type Result struct {
	Note  content.Note
	Warns []Warning
	Skip  bool
	Err   error
}

func Ingest(sourceDir string) ([]content.Note, []Warning, error) {
	files, err := DiscoverSource(sourceDir)
	if err != nil {
		return nil, nil, err
	}

	workers := runtime.GOMAXPROCS(0)
	jobs := make(chan SourceFile)
	results := make(chan Result)

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sf := range jobs {
				st, statErr := os.Stat(sf.Path)
				if statErr != nil {
					results <- Result{Err: statErr}
					continue
				}
				raw, readErr := os.ReadFile(sf.Path)
				if readErr != nil {
					results <- Result{Err: readErr}
					continue
				}
				contentHash := domainbuild.HashBytes(raw)

				fm, body, fmErr := ParseFrontMatter(raw)

				var warns []Warning
				if fmErr != nil && fmErr != errNoFrontMatter {
					warns = append(warns, Warning{
						Path: sf.Path,
						Msg:  "failed to parse front matter: " + fmErr.Error(),
					})
					results <- Result{Warns: warns, Skip: true}
					continue
				}
				if fmErr == errNoFrontMatter {
					body = raw
				}
				if fm.Hidden {
					results <- Result{Skip: true}
					continue
				}
				slug := ResolveSlug(fm, sf.Rel)
				if slug == "" {
					warns = append(warns, Warning{Path: sf.Path, Msg: "empty slug"})
					results <- Result{Warns: warns, Skip: true}
					continue
				}
				meta := content.NoteMeta{
					Title:       fm.Title,
					Slug:        slug,
					Tags:        fm.Tags,
					Pinned:      fm.Pinned,
					Hidden:      fm.Hidden,
					Draft:       fm.Draft,
					Cover:       fm.Cover,
					Description: fm.Description,
					Aliases:     fm.Aliases,
					ShortID:     fm.ShortID,
				}
				meta.WordCount = countWords(body)
				meta.ReadMin = readMinutes(meta.WordCount)

				mt := st.ModTime().In(time.Local)
				meta.Date = ParseTime(fm.Date)
				meta.Updated = ParseTime(fm.Updated)
				if meta.Date.IsZero() {
					meta.Date = mt
					warns = append(warns, Warning{
						Path: sf.Path,
						Msg:  "using file modification time for date",
					})
				}
				if meta.Updated.IsZero() {
					meta.Updated = meta.Date
				}
				if strings.TrimSpace(meta.Title) == "" {
					// 没有标题就用 slug 末段顶上
					if i := strings.LastIndex(slug, "/"); i >= 0 {
						meta.Title = slug[i+1:]
					} else {
						meta.Title = slug
					}
					warns = append(warns, Warning{Path: sf.Path, Msg: "title is empty, using slug"})
				}
				meta.Normalize()
				results <- Result{
					Note: content.Note{
						Meta: meta,
						Body: content.BodyRef{
							SourcePath:  sf.Path,
							ContentHash: contentHash,
						},
					},
					Warns: warns,
				}
			}
		}()
	}

	go func() {
		for _, f := range files {
			jobs <- f
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	var out []content.Note
	var warns []Warning
	var firstErr error
	// 出错也要把 channel 读完，不然 worker 卡在发送上
	for r := range results {
		if r.Err != nil {
			if firstErr == nil {
				firstErr = r.Err
			}
			continue
		}
		if len(r.Warns) > 0 {
			warns = append(warns, r.Warns...)
		}
		if r.Skip {
			continue
		}
		out = append(out, r.Note)
	}
	if firstErr != nil {
		return nil, nil, firstErr
	}
	seen := make(map[string]struct{}, len(out))
	filtered := make([]content.Note, 0, len(out))
	for _, n := range out {
		if _, ok := seen[n.Meta.Slug]; ok {
			warns = append(warns, Warning{Path: n.Body.SourcePath, Msg: "slug 冲突（重复），已跳过: " + n.Meta.Slug})
			continue
		}
		seen[n.Meta.Slug] = struct{}{}
		filtered = append(filtered, n)
	}
	return filtered, warns, nil
}

func countWords(body []byte) int {
	inWord := false
	count := 0
	for _, r := range string(body) {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		// CJK 按字计数
		if unicode.Is(unicode.Han, r) {
			count++
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}

func readMinutes(words int) int {
	const perMin = 250
	min := (words + perMin - 1) / perMin
	if min < 1 {
		min = 1
	}
	return min
}
