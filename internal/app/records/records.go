// Package records converts raw store documents into domain entities and
// back into the persisted shape.
//
// Stored documents have drifted over time: fields go missing, dates come in
// several representations, and older articles only record their owner in
// the collection path. Mapping either yields a complete entity or a
// *RejectError; callers drop rejected documents and keep going.
package records

import (
	"fmt"
	"strings"

	"github.com/dalemusser/newsdesk/internal/app/system/docstore"
)

// Kind names the entity a document was mapped to.
type Kind string

const (
	KindArticle      Kind = "article"
	KindNotification Kind = "notification"
)

// RejectError explains why a document could not become an entity.
type RejectError struct {
	Kind   Kind
	ID     string
	Path   string
	Reason string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("reject %s %s/%s: %s", e.Kind, e.Path, e.ID, e.Reason)
}

func reject(kind Kind, doc docstore.Document, format string, args ...any) *RejectError {
	return &RejectError{Kind: kind, ID: doc.ID, Path: doc.Path, Reason: fmt.Sprintf(format, args...)}
}

// str reads a string field, treating anything else as absent.
func str(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

// optionalStr reads a string field that may be absent or null. ok is false
// when the field holds a value of another type.
func optionalStr(data map[string]any, key string) (s string, ok bool) {
	switch v := data[key].(type) {
	case nil:
		return "", true
	case string:
		return v, true
	}
	return "", false
}

// strList reads a list of strings, skipping non-string entries.
func strList(data map[string]any, key string) []string {
	switch v := data[key].(type) {
	case []string:
		return append([]string{}, v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

func boolean(data map[string]any, key string) bool {
	b, _ := data[key].(bool)
	return b
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
