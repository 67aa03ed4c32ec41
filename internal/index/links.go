package index

import (
	"encoding/json"
	"strings"

	bolt "go.etcd.io/bbolt"
)

// OutLinks 返回某页改写阶段收集到的站内出链（已排序去重）
func (s *Store) OutLinks(slug string) ([]string, error) {
	return s.linkList(bOutLinks, slug)
}

// Backlinks 返回链接到某页的其他页面
func (s *Store) Backlinks(slug string) ([]string, error) {
	return s.linkList(bBackLinks, slug)
}

func (s *Store) linkList(bucket []byte, slug string) ([]string, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, nil
	}
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		v := b.Get([]byte(slug))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &out)
	})
	return out, err
}
