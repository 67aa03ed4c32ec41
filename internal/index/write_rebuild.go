package index

import (
	"encoding/json"
	"sort"
	"strings"

	domainbuild "garden/internal/domain/build"
	"garden/internal/domain/content"

	bolt "go.etcd.io/bbolt"
)

type RebuildOptions struct {
	IncludeDraft bool
}

func (s *Store) Rebuild(notes []content.Note, opt RebuildOptions) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		_ = tx.DeleteBucket(bMeta)
		_ = tx.DeleteBucket(bAlias)
		_ = tx.DeleteBucket(bShort)
		_ = tx.DeleteBucket(bIdxTag)
		_ = tx.DeleteBucket(bIdxFolder)
		_ = tx.DeleteBucket(bIdxUpdated)
		_ = tx.DeleteBucket(bIdxCreated)

		metaB, _ := tx.CreateBucket(bMeta)
		aliasB, _ := tx.CreateBucket(bAlias)
		shortB, _ := tx.CreateBucket(bShort)

		idxUpdatedB, _ := tx.CreateBucket(bIdxUpdated)
		idxCreatedB, _ := tx.CreateBucket(bIdxCreated)

		idxTagB, _ := tx.CreateBucket(bIdxTag)
		idxFolderB, _ := tx.CreateBucket(bIdxFolder)

		for _, n := range notes {
			m := n.Meta
			if m.Draft && !opt.IncludeDraft {
				continue
			}
			if strings.TrimSpace(m.Slug) == "" {
				continue
			}
			mb, err := json.Marshal(m)
			if err != nil {
				return err
			}
			if err := metaB.Put([]byte(m.Slug), mb); err != nil {
				return err
			}

			uKey := makePinnedTimeSlugKey(m.Pinned, m.Updated.UnixNano(), m.Slug)
			if err := idxUpdatedB.Put(uKey, []byte{1}); err != nil {
				return err
			}

			cKey := makePinnedTimeSlugKey(m.Pinned, m.Date.UnixNano(), m.Slug)
			if err := idxCreatedB.Put(cKey, []byte{1}); err != nil {
				return err
			}

			for _, tag := range m.Tags {
				if tag == "" {
					continue
				}
				sb, err := idxTagB.CreateBucketIfNotExists([]byte(tag))
				if err != nil {
					return err
				}
				if err := sb.Put(uKey, []byte{1}); err != nil {
					return err
				}
			}

			if folder := strings.TrimSpace(m.Folder); folder != "" {
				sb, err := idxFolderB.CreateBucketIfNotExists([]byte(folder))
				if err != nil {
					return err
				}
				if err := sb.Put(uKey, []byte{1}); err != nil {
					return err
				}
			}

			for _, old := range m.Aliases {
				old = strings.TrimSpace(old)
				if old == "" {
					continue
				}
				if err := aliasB.Put([]byte(old), []byte(m.Slug)); err != nil {
					return err
				}
			}
			if sid := strings.TrimSpace(m.ShortID); sid != "" {
				if err := shortB.Put([]byte(sid), []byte(m.Slug)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// PutLinkSets 写入每页改写阶段收集到的出链集合，并一次性算好反链。
// links 的 value 是去重后的 slug 集合，这里排序后落盘，保证输出稳定。
func (s *Store) PutLinkSets(links map[string][]string) error {
	backMap := make(map[string][]string)
	for from, tos := range links {
		for _, to := range tos {
			backMap[to] = append(backMap[to], from)
		}
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		_ = tx.DeleteBucket(bOutLinks)
		_ = tx.DeleteBucket(bBackLinks)
		outB, _ := tx.CreateBucket(bOutLinks)
		backB, _ := tx.CreateBucket(bBackLinks)

		for from, tos := range links {
			sorted := dedupeSorted(tos)
			v, err := json.Marshal(sorted)
			if err != nil {
				return err
			}
			if err := outB.Put([]byte(from), v); err != nil {
				return err
			}
		}
		for to, froms := range backMap {
			sorted := dedupeSorted(froms)
			v, err := json.Marshal(sorted)
			if err != nil {
				return err
			}
			if err := backB.Put([]byte(to), v); err != nil {
				return err
			}
		}
		return nil
	})
}

func dedupeSorted(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

// PutFingerprint 记录这次构建的输入指纹，serve 端用来跳过无谓的重建
func (s *Store) PutFingerprint(fp domainbuild.Fingerprint) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bBuild)
		if err != nil {
			return err
		}
		v, err := json.Marshal(fp)
		if err != nil {
			return err
		}
		return b.Put(keyFingerprint, v)
	})
}

func (s *Store) GetFingerprint() (domainbuild.Fingerprint, error) {
	var fp domainbuild.Fingerprint
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bBuild)
		if b == nil {
			return ErrNotFound
		}
		v := b.Get(keyFingerprint)
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &fp)
	})
	return fp, err
}
