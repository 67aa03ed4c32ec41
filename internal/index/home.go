package index

import (
	"garden/internal/domain/config"
	"garden/internal/domain/content"
	"sort"
)

type HomeItemKind string

const (
	HomeNote   HomeItemKind = "note"
	HomeFolder HomeItemKind = "folder"
)

type HomeItem struct {
	Kind   HomeItemKind
	Meta   *content.NoteMeta
	Folder *FolderSummary
}

// HomeItems：根目录笔记单列，目录折叠成一条 folder 项
func (s *Store) HomeItems(opt ListOptions) ([]HomeItem, error) {
	metas, err := s.List(opt)
	if err != nil {
		return nil, err
	}
	seenFolder := make(map[string]struct{})
	var items []HomeItem

	for _, m := range metas {
		m := m
		if m.Folder == "" {
			items = append(items, HomeItem{
				Kind: HomeNote,
				Meta: &m,
			})
			continue
		}

		if _, ok := seenFolder[m.Folder]; ok {
			continue
		}
		seenFolder[m.Folder] = struct{}{}

		sum, err := s.GetFolderSummary(m.Folder, opt.IncludeDraft)
		if err != nil {
			continue
		}

		items = append(items, HomeItem{
			Kind:   HomeFolder,
			Folder: sum,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		ai, aj := items[i], items[j]

		si, sj := 0, 0
		ti, tj := int64(0), int64(0)

		if ai.Kind == HomeNote {
			si = ai.Meta.Pinned
			if opt.Sort == config.SortCreated {
				ti = ai.Meta.Date.UnixNano()
			} else {
				ti = ai.Meta.Updated.UnixNano()
			}
		} else {
			si = ai.Folder.MaxPinned
			ti = ai.Folder.LatestUpdated.UnixNano()
		}

		if aj.Kind == HomeNote {
			sj = aj.Meta.Pinned
			if opt.Sort == config.SortCreated {
				tj = aj.Meta.Date.UnixNano()
			} else {
				tj = aj.Meta.Updated.UnixNano()
			}
		} else {
			sj = aj.Folder.MaxPinned
			tj = aj.Folder.LatestUpdated.UnixNano()
		}

		if si != sj {
			return si > sj
		}
		return ti > tj
	})
	return items, nil
}
