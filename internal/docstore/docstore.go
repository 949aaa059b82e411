// Package docstore reads and writes generated markdown documents, keyed by
// prospect and document kind.
package docstore

import (
	"context"
	"path"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-research/internal/config"
	"github.com/sells-group/prospect-research/internal/model"
)

// ErrNotFound is returned by Read when the document has not been written.
var ErrNotFound = eris.New("docstore: document not found")

// Store holds generated documents. A document's presence is the record
// that its workflow step completed. Writes replace the whole document
// atomically.
type Store interface {
	Exists(ctx context.Context, prospectID string, kind model.DocumentKind) (bool, error)
	Read(ctx context.Context, prospectID string, kind model.DocumentKind) (string, error)
	Write(ctx context.Context, prospectID string, kind model.DocumentKind, content string) (string, error)
	// Location is where the document lives, whether or not it exists yet.
	Location(prospectID string, kind model.DocumentKind) string
}

// Open creates the backend named by cfg.Backend.
func Open(ctx context.Context, cfg config.DocumentsConfig) (Store, error) {
	switch cfg.Backend {
	case "", "fs":
		return NewFS(cfg.Dir)
	case "s3":
		return NewS3(ctx, cfg.Bucket, cfg.Prefix, cfg.Region)
	default:
		return nil, eris.Errorf("docstore: unsupported backend %q", cfg.Backend)
	}
}

// Key is the backend-relative name of a document: <prospect>/<kind>.md, or
// <prospect>/sources.json for the source snapshot.
func Key(prospectID string, kind model.DocumentKind) string {
	return path.Join(prospectID, string(kind)+kind.Ext())
}

func contentType(kind model.DocumentKind) string {
	if kind.Ext() == ".json" {
		return "application/json"
	}
	return "text/markdown; charset=utf-8"
}

func checkKey(prospectID string, kind model.DocumentKind) error {
	if !kind.Stored() {
		return eris.Errorf("docstore: unknown document kind %q", kind)
	}
	if prospectID == "" || prospectID == "." || prospectID == ".." || strings.ContainsAny(prospectID, `/\`) {
		return eris.Errorf("docstore: invalid prospect id %q", prospectID)
	}
	return nil
}
