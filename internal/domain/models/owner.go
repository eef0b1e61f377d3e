// internal/domain/models/owner.go
package models

import "strings"

// OwnerType is the category of publisher an Article belongs to. Each type is
// also the name of the collection holding that type's owner documents.
type OwnerType string

const (
	OwnerCompanies  OwnerType = "companies"
	OwnerMediaGroup OwnerType = "media-group"
)

// OwnerTypes lists the valid owner categories in display order.
var OwnerTypes = []OwnerType{OwnerCompanies, OwnerMediaGroup}

// IsValid reports whether t is one of the fixed owner categories.
func (t OwnerType) IsValid() bool {
	switch t {
	case OwnerCompanies, OwnerMediaGroup:
		return true
	}
	return false
}

// Owner is the publishing entity (company or media group) behind an Article.
// Owners are keyed by (Type, ID).
type Owner struct {
	ID   string    `bson:"_id" json:"id"`
	Name string    `bson:"name" json:"name"`
	Type OwnerType `bson:"-" json:"type"`
	Logo string    `bson:"logo,omitempty" json:"logo,omitempty"`
}

// Key returns the "type:id" form used by select lists and filters.
func (o Owner) Key() string {
	return OwnerKey(o.Type, o.ID)
}

// OwnerKey joins an owner type and id into the "type:id" form.
func OwnerKey(t OwnerType, id string) string {
	return string(t) + ":" + id
}

// UnknownOwnerName is displayed when an owner cannot be resolved or has no
// name.
const UnknownOwnerName = "不明"

// ParseOwnerKey splits a "type:id" key. It reports false when the type is
// unknown or the id is blank.
func ParseOwnerKey(key string) (OwnerType, string, bool) {
	t, id, ok := strings.Cut(key, ":")
	if !ok {
		return "", "", false
	}
	ot := OwnerType(strings.TrimSpace(t))
	id = strings.TrimSpace(id)
	if !ot.IsValid() || id == "" {
		return "", "", false
	}
	return ot, id, true
}
