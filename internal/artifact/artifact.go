package artifact

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies artifact content and determines the default file
// extension at naming time.
type Type string

const (
	TypeCode     Type = "code"
	TypeSVG      Type = "svg"
	TypeMarkdown Type = "markdown"
	TypeMermaid  Type = "mermaid"
	TypeHTML     Type = "html"
	TypeReact    Type = "react"
	TypeUnknown  Type = "unknown"
)

// SeriesInfo marks an artifact as the merged result of a multi-part
// series. It is set only by stitching, never by extraction.
type SeriesInfo struct {
	PartOfSeries bool `json:"part_of_series"`
	Position     int  `json:"position"`
	Total        int  `json:"total"`
}

// Artifact represents one extracted unit of conversation content.
//
// Zero values:
//   - ID: "" (invalid, assigned at extraction time)
//   - Title: "" (defaulted to a positional placeholder by the extractor)
//   - Type: "" (invalid, must be one of the Type constants)
//   - Content: "" (empty content allowed)
//   - Language: "" (only meaningful for TypeCode)
//   - CreatedAt: zero time (invalid, stamped at extraction)
//   - Series: nil (not part of a stitched series)
type Artifact struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Type      Type        `json:"type"`
	Content   string      `json:"content"`
	Language  string      `json:"language,omitempty"` // lowercase tag, code artifacts only
	CreatedAt time.Time   `json:"created_at"`
	Series    *SeriesInfo `json:"series,omitempty"`
}

// New constructs an Artifact with a fresh ID and the given creation
// time. Extraction is the only caller; transformations copy instead.
func New(title string, typ Type, content string, createdAt time.Time) Artifact {
	return Artifact{
		ID:        uuid.NewString(),
		Title:     title,
		Type:      typ,
		Content:   content,
		CreatedAt: createdAt,
	}
}

// Key identifies the logical artifact a record belongs to. Records
// sharing a Key are candidates for stitching. Language participates
// only for code artifacts; other types never carry a meaningful
// language tag.
type Key struct {
	Title    string
	Type     Type
	Language string
}

// GroupKey returns the stitching identity of the artifact.
func (a Artifact) GroupKey() Key {
	k := Key{Title: a.Title, Type: a.Type}
	if a.Type == TypeCode {
		k.Language = a.Language
	}
	return k
}

// File pairs an artifact with its resolved archive location. It is
// derived at archive-build time and never persisted.
type File struct {
	Artifact Artifact
	Name     string // leaf filename with extension
	Dir      string // relative directory prefix, "" for flat layout
}

// Path returns the full relative path inside the archive.
func (f File) Path() string {
	if f.Dir == "" {
		return f.Name
	}
	return f.Dir + "/" + f.Name
}
