package browse

import (
	"strings"

	"github.com/five82/lumen/internal/imgapi"
)

// Mode is the fetch the result list came from.
type Mode int

const (
	ModeList Mode = iota
	ModeSearch
	ModeFilter
)

func (m Mode) String() string {
	switch m {
	case ModeSearch:
		return "search"
	case ModeFilter:
		return "filter"
	default:
		return "list"
	}
}

// Metadata holds the descriptive fields of a result.
type Metadata struct {
	Filename    string
	Format      string
	Width       int
	Height      int
	FileSize    int64
	ProcessedAt string
}

// ResultItem is one row of the result list.
type ResultItem struct {
	ID       string
	Path     string
	Caption  string
	Objects  []string
	Score    *float64
	Distance *float64
	Metadata Metadata
}

func itemFromInfo(info imgapi.ImageInfo) ResultItem {
	w, h := info.Dimensions()
	seen := make(map[string]struct{}, len(info.Objects))
	objects := make([]string, 0, len(info.Objects))
	for _, o := range info.Objects {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if _, dup := seen[o]; dup {
			continue
		}
		seen[o] = struct{}{}
		objects = append(objects, o)
	}
	return ResultItem{
		ID:       info.ID,
		Path:     info.Path,
		Caption:  info.Caption,
		Objects:  objects,
		Score:    info.Score,
		Distance: info.Distance,
		Metadata: Metadata{
			Filename:    info.Filename,
			Format:      info.Format,
			Width:       w,
			Height:      h,
			FileSize:    info.FileSize,
			ProcessedAt: info.ProcessedAt,
		},
	}
}

// ViewState is the controller's observable state. Results are replaced
// wholesale on each applied fetch.
type ViewState struct {
	Mode    Mode
	Query   string
	Objects []string
	Results []ResultItem
	Loading bool
	Err     error
}

// IsSearchMode reports whether a text query is active.
func (v ViewState) IsSearchMode() bool { return v.Query != "" }

// IsFilterMode reports whether an object filter is active.
func (v ViewState) IsFilterMode() bool { return len(v.Objects) > 0 }

// IDs returns the result ids in order.
func (v ViewState) IDs() []string {
	ids := make([]string, len(v.Results))
	for i, r := range v.Results {
		ids[i] = r.ID
	}
	return ids
}

// SearchOptions refine a search.
type SearchOptions struct {
	Objects []string
	Limit   int
}

// ParseObjects splits a comma separated tag list, dropping blanks and
// duplicates.
func ParseObjects(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
