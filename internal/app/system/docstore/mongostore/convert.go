package mongostore

import (
	"github.com/dalemusser/newsdesk/internal/app/system/docstore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// toDocument strips _id from raw and turns driver container types into the
// plain maps and slices the record mapper expects. Date and timestamp values
// are left as BSON types; the date normalizer reads them directly.
func toDocument(path string, raw bson.M) docstore.Document {
	var id string
	switch v := raw["_id"].(type) {
	case string:
		id = v
	case primitive.ObjectID:
		id = v.Hex()
	}
	delete(raw, "_id")

	data := make(map[string]any, len(raw))
	for k, v := range raw {
		data[k] = plain(v)
	}
	return docstore.Document{ID: id, Path: path, Data: data}
}

func plain(v any) any {
	switch x := v.(type) {
	case bson.M:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = plain(e)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = plain(e)
		}
		return m
	case bson.D:
		m := make(map[string]any, len(x))
		for _, e := range x {
			m[e.Key] = plain(e.Value)
		}
		return m
	case bson.A:
		s := make([]any, len(x))
		for i, e := range x {
			s[i] = plain(e)
		}
		return s
	case []any:
		s := make([]any, len(x))
		for i, e := range x {
			s[i] = plain(e)
		}
		return s
	}
	return v
}
