package records

import (
	"time"

	"github.com/dalemusser/newsdesk/internal/app/system/datetime"
	"github.com/dalemusser/newsdesk/internal/app/system/docstore"
	"github.com/dalemusser/newsdesk/internal/domain/models"
)

// Article field names in stored documents.
const (
	FieldTitle     = "title"
	FieldURL       = "url"
	FieldImageURL  = "imageUrl"
	FieldDate      = "date"
	FieldOwnerType = "ownerType"
	FieldOwnerID   = "ownerId"
	FieldDeleted   = "deleted"
)

// MapArticle builds an Article from doc. Owner type and id come from the
// document when present, otherwise from the first two path segments
// (<ownerType>/<ownerId>/news). Owner fields of any other type than string
// are rejected rather than replaced by the path. The owner type must be a known category and
// the owner id non-blank. A missing image URL becomes the placeholder.
func MapArticle(doc docstore.Document, n *datetime.Normalizer) (models.Article, error) {
	if blank(doc.ID) {
		return models.Article{}, reject(KindArticle, doc, "missing document id")
	}

	segs := doc.Segments()
	ownerType, ok := optionalStr(doc.Data, FieldOwnerType)
	if !ok {
		return models.Article{}, reject(KindArticle, doc, "%s is not a string", FieldOwnerType)
	}
	if ownerType == "" && len(segs) >= 2 {
		ownerType = segs[0]
	}
	ownerID, ok := optionalStr(doc.Data, FieldOwnerID)
	if !ok {
		return models.Article{}, reject(KindArticle, doc, "%s is not a string", FieldOwnerID)
	}
	if ownerID == "" && len(segs) >= 2 {
		ownerID = segs[1]
	}

	ot := models.OwnerType(ownerType)
	if !ot.IsValid() {
		return models.Article{}, reject(KindArticle, doc, "invalid owner type %q", ownerType)
	}
	if blank(ownerID) {
		return models.Article{}, reject(KindArticle, doc, "blank owner id")
	}

	img := str(doc.Data, FieldImageURL)
	if img == "" {
		img = models.PlaceholderImage
	}

	return models.Article{
		ID:        doc.ID,
		Title:     str(doc.Data, FieldTitle),
		URL:       str(doc.Data, FieldURL),
		ImageURL:  img,
		Date:      n.Normalize(doc.Data[FieldDate]),
		OwnerType: ot,
		OwnerID:   ownerID,
	}, nil
}

// ArticleFields returns the persisted shape of a.
func ArticleFields(a models.Article) map[string]any {
	return map[string]any{
		FieldTitle:     a.Title,
		FieldURL:       a.URL,
		FieldImageURL:  a.ImageURL,
		FieldDate:      a.Date.UTC().Truncate(time.Millisecond),
		FieldOwnerType: string(a.OwnerType),
		FieldOwnerID:   a.OwnerID,
	}
}
