package index

import "time"

type FolderSummary struct {
	Name               string
	Count              int
	LatestUpdated      time.Time
	MaxPinned          int
	RepresentativeSlug string
}
