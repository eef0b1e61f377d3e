// internal/domain/models/article.go
package models

import (
	"strings"
	"time"
)

// NewsCollection is the per-owner sub-collection that stores articles:
// <ownerType>/<ownerID>/news.
const NewsCollection = "news"

// PlaceholderImage is used when an article document carries no image URL.
const PlaceholderImage = "/static/placeholder.svg"

// Article is a curated news item published under an Owner.
//
// (OwnerType, OwnerID) addresses the sub-collection holding the document, so
// moving an article to another owner gives it a new ID.
type Article struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	ImageURL  string    `json:"imageUrl"`
	Date      time.Time `json:"date"`
	OwnerType OwnerType `json:"ownerType"`
	OwnerID   string    `json:"ownerId"`
}

// CollectionPath returns the path of the news sub-collection for this
// article's owner.
func (a Article) CollectionPath() string {
	return NewsPath(a.OwnerType, a.OwnerID)
}

// OwnerKey returns the "type:id" key of the article's owner.
func (a Article) OwnerKey() string {
	return OwnerKey(a.OwnerType, a.OwnerID)
}

// NewsPath builds <ownerType>/<ownerID>/news.
func NewsPath(t OwnerType, ownerID string) string {
	return strings.Join([]string{string(t), ownerID, NewsCollection}, "/")
}
