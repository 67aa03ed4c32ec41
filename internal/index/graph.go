package index

import (
	"encoding/json"

	bolt "go.etcd.io/bbolt"
)

// 知识图谱导出：构建时写成 graph.json，前端的 graph view 直接取用

type GraphNode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Tags  []string `json:"tags,omitempty"`
}

type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

func (s *Store) Graph() (*Graph, error) {
	g := &Graph{}
	err := s.db.View(func(tx *bolt.Tx) error {
		metaB := tx.Bucket(bMeta)
		outB := tx.Bucket(bOutLinks)
		if metaB == nil {
			return nil
		}

		known := make(map[string]struct{})
		if err := metaB.ForEach(func(k, v []byte) error {
			var m struct {
				Title string   `json:"Title"`
				Tags  []string `json:"Tags"`
			}
			if err := json.Unmarshal(v, &m); err != nil {
				return nil
			}
			known[string(k)] = struct{}{}
			g.Nodes = append(g.Nodes, GraphNode{
				ID:    string(k),
				Title: m.Title,
				Tags:  m.Tags,
			})
			return nil
		}); err != nil {
			return err
		}

		if outB == nil {
			return nil
		}
		return outB.ForEach(func(k, v []byte) error {
			var tos []string
			if err := json.Unmarshal(v, &tos); err != nil {
				return nil
			}
			for _, to := range tos {
				// 指向站外或不存在页面的边不进图
				if _, ok := known[to]; !ok {
					continue
				}
				g.Edges = append(g.Edges, GraphEdge{
					Source: string(k),
					Target: to,
				})
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}
