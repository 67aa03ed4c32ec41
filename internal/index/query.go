package index

import (
	"encoding/json"
	"strings"

	"garden/internal/domain/config"
	"garden/internal/domain/content"
	domainerr "garden/internal/domain/errors"

	bolt "go.etcd.io/bbolt"
)

var ErrNotFound = domainerr.ErrNotFound

type ListOptions struct {
	Sort         config.SortMode
	Page         int
	Size         int
	IncludeDraft bool
}

func (s *Store) GetMeta(slug string) (content.NoteMeta, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return content.NoteMeta{}, ErrNotFound
	}
	var m content.NoteMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bMeta)
		if b == nil {
			return ErrNotFound
		}
		v := b.Get([]byte(slug))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &m)
	})
	return m, err
}

// ResolveAlias：本身就是有效 slug 直接返回，否则查 alias 映射
func (s *Store) ResolveAlias(slugOrOld string) (string, error) {
	slugOrOld = strings.TrimSpace(slugOrOld)
	if slugOrOld == "" {
		return "", ErrNotFound
	}

	if _, err := s.GetMeta(slugOrOld); err == nil {
		return slugOrOld, nil
	}

	var mapped string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bAlias)
		if b == nil {
			return ErrNotFound
		}
		v := b.Get([]byte(slugOrOld))
		if v == nil {
			return ErrNotFound
		}
		mapped = string(v)
		return nil
	})
	return mapped, err
}

func (s *Store) GetByShortID(shortID string) (string, error) {
	shortID = strings.TrimSpace(shortID)
	if shortID == "" {
		return "", ErrNotFound
	}
	var slug string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bShort)
		if b == nil {
			return ErrNotFound
		}
		v := b.Get([]byte(shortID))
		if v == nil {
			return ErrNotFound
		}
		slug = string(v)
		return nil
	})
	return slug, err
}

func normalizePaging(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}
	if size > 1000000 {
		size = 1000000
	}
	return page, size
}

func (s *Store) List(opt ListOptions) ([]content.NoteMeta, error) {
	opt.Page, opt.Size = normalizePaging(opt.Page, opt.Size)

	var idxBucketName []byte
	switch opt.Sort {
	case config.SortCreated:
		idxBucketName = bIdxCreated
	default:
		idxBucketName = bIdxUpdated
	}
	var out []content.NoteMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		idx := tx.Bucket(idxBucketName)
		metaB := tx.Bucket(bMeta)
		if idx == nil || metaB == nil {
			return nil
		}

		skip := (opt.Page - 1) * opt.Size
		cur := idx.Cursor()

		for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
			slug := slugFromPinnedTimeSlugKey(k)
			if slug == "" {
				continue
			}
			v := metaB.Get([]byte(slug))
			if v == nil {
				continue
			}

			var m content.NoteMeta
			if err := json.Unmarshal(v, &m); err != nil {
				continue
			}
			if m.Hidden {
				continue
			}
			if m.Draft && !opt.IncludeDraft {
				continue
			}
			if skip > 0 {
				skip--
				continue
			}
			out = append(out, m)
			if len(out) >= opt.Size {
				break
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) ListByTag(tag string, opt ListOptions) ([]content.NoteMeta, error) {
	tag = strings.TrimSpace(strings.ToLower(tag))
	if tag == "" {
		return nil, nil
	}
	return s.listSub(bIdxTag, tag, opt)
}

func (s *Store) ListByFolder(folder string, opt ListOptions) ([]content.NoteMeta, error) {
	folder = strings.TrimSpace(folder)
	if folder == "" {
		return nil, nil
	}
	return s.listSub(bIdxFolder, folder, opt)
}

// listSub：tag / folder 子桶共用的分页遍历
func (s *Store) listSub(parentName []byte, key string, opt ListOptions) ([]content.NoteMeta, error) {
	opt.Page, opt.Size = normalizePaging(opt.Page, opt.Size)

	var out []content.NoteMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		parent := tx.Bucket(parentName)
		metaB := tx.Bucket(bMeta)
		if parent == nil || metaB == nil {
			return nil
		}
		sb := parent.Bucket([]byte(key))
		if sb == nil {
			return nil
		}

		skip := (opt.Page - 1) * opt.Size
		cur := sb.Cursor()
		for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
			slug := slugFromPinnedTimeSlugKey(k)
			v := metaB.Get([]byte(slug))
			if v == nil {
				continue
			}
			var m content.NoteMeta
			if err := json.Unmarshal(v, &m); err != nil {
				continue
			}
			if m.Hidden {
				continue
			}
			if m.Draft && !opt.IncludeDraft {
				continue
			}
			if skip > 0 {
				skip--
				continue
			}
			out = append(out, m)
			if len(out) >= opt.Size {
				break
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) ListAllFolders() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bIdxFolder)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

func (s *Store) GetFolderSummary(name string, includeDraft bool) (*FolderSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNotFound
	}
	var sum FolderSummary
	sum.Name = name
	err := s.db.View(func(tx *bolt.Tx) error {
		parent := tx.Bucket(bIdxFolder)
		metaB := tx.Bucket(bMeta)
		if parent == nil || metaB == nil {
			return ErrNotFound
		}
		sb := parent.Bucket([]byte(name))
		if sb == nil {
			return ErrNotFound
		}
		c := sb.Cursor()

		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			slug := slugFromPinnedTimeSlugKey(k)
			if slug == "" {
				continue
			}
			v := metaB.Get([]byte(slug))
			if v == nil {
				continue
			}
			var m content.NoteMeta
			if err := json.Unmarshal(v, &m); err != nil {
				continue
			}
			if m.Hidden {
				continue
			}
			if m.Draft && !includeDraft {
				continue
			}

			sum.Count++
			if m.Updated.After(sum.LatestUpdated) {
				sum.LatestUpdated = m.Updated
				sum.RepresentativeSlug = m.Slug
			}
			if m.Pinned > sum.MaxPinned {
				sum.MaxPinned = m.Pinned
			}
		}
		if sum.Count == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sum, nil
}
