package model

import "time"

// DocumentKind identifies a generated document or a stored artifact kept
// beside the documents.
type DocumentKind string

const (
	DocumentResearch DocumentKind = "research"
	DocumentProfile  DocumentKind = "profile"

	// DocumentSources is the JSON snapshot of the bundle the latest research
	// document was built from. It is stored but never rendered.
	DocumentSources DocumentKind = "sources"
)

// Valid reports whether k is a rendered document kind.
func (k DocumentKind) Valid() bool {
	return k == DocumentResearch || k == DocumentProfile
}

// Stored reports whether k can be kept in a document store.
func (k DocumentKind) Stored() bool {
	return k.Valid() || k == DocumentSources
}

// Ext is the file extension for k.
func (k DocumentKind) Ext() string {
	if k == DocumentSources {
		return ".json"
	}
	return ".md"
}

// GeneratedDocument is a rendered research report or profile. Its presence
// for a (prospect, kind) pair is what marks a workflow step as done.
type GeneratedDocument struct {
	ProspectID  string       `json:"prospect_id"`
	Kind        DocumentKind `json:"kind"`
	Content     string       `json:"content"`
	GeneratedAt time.Time    `json:"generated_at"`
	Location    string       `json:"location"`
}
