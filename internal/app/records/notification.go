package records

import (
	"time"

	"github.com/dalemusser/newsdesk/internal/app/system/datetime"
	"github.com/dalemusser/newsdesk/internal/app/system/docstore"
	"github.com/dalemusser/newsdesk/internal/domain/models"
)

// Notification field names in stored documents.
const (
	FieldContent           = "content"
	FieldDepartment        = "department"
	FieldIsImportant       = "isImportant"
	FieldTargetFaculties   = "targetFaculties"
	FieldTargetGrades      = "targetGrades"
	FieldLinks             = "links"
	FieldUtasPublishedDate = "utasPublishedDate"
	FieldUtasPublishedTime = "utasPublishedTime"
	FieldDeliveryType      = "deliveryType"
	FieldScheduledDate     = "scheduledDate"
	FieldScheduledTime     = "scheduledTime"
	FieldPublishedAt       = "publishedAt"
	FieldStatus            = "status"
	FieldCreatedAt         = "createdAt"
	FieldUpdatedAt         = "updatedAt"
)

// MapNotification builds a Notification from doc. Fields map through as
// stored; missing createdAt/updatedAt stay nil. A document with no fields at
// all is rejected.
//
// Stored status values other than published/scheduled (older documents
// carried "draft") are replaced by classifying publishedAt against now.
func MapNotification(doc docstore.Document, n *datetime.Normalizer) (models.Notification, error) {
	if blank(doc.ID) {
		return models.Notification{}, reject(KindNotification, doc, "missing document id")
	}
	if len(doc.Data) == 0 {
		return models.Notification{}, reject(KindNotification, doc, "empty document")
	}

	d := doc.Data
	nt := models.Notification{
		ID:                doc.ID,
		Title:             str(d, FieldTitle),
		Content:           str(d, FieldContent),
		Department:        str(d, FieldDepartment),
		IsImportant:       boolean(d, FieldIsImportant),
		TargetFaculties:   strList(d, FieldTargetFaculties),
		TargetGrades:      strList(d, FieldTargetGrades),
		Links:             strList(d, FieldLinks),
		UtasPublishedDate: str(d, FieldUtasPublishedDate),
		UtasPublishedTime: str(d, FieldUtasPublishedTime),
		DeliveryType:      models.DeliveryType(str(d, FieldDeliveryType)),
		ScheduledDate:     str(d, FieldScheduledDate),
		ScheduledTime:     str(d, FieldScheduledTime),
		PublishedAt:       n.Normalize(d[FieldPublishedAt]),
		CreatedAt:         optionalTime(d, FieldCreatedAt, n),
		UpdatedAt:         optionalTime(d, FieldUpdatedAt, n),
	}
	if nt.DeliveryType == "" {
		nt.DeliveryType = models.DeliveryImmediate
	}

	switch st := models.Status(str(d, FieldStatus)); st {
	case models.StatusPublished, models.StatusScheduled:
		nt.Status = st
	default:
		if n.AtOrBefore(nt.PublishedAt, n.Now()) {
			nt.Status = models.StatusPublished
		} else {
			nt.Status = models.StatusScheduled
		}
	}
	return nt, nil
}

func optionalTime(d map[string]any, key string, n *datetime.Normalizer) *time.Time {
	v, ok := d[key]
	if !ok || v == nil {
		return nil
	}
	t, ok := n.TryNormalize(v)
	if !ok {
		return nil
	}
	return &t
}

// NotificationFields returns the persisted shape of nt. Timestamps are
// stored as native datetimes; schedule fields are written only for
// scheduled delivery.
func NotificationFields(nt models.Notification) map[string]any {
	m := map[string]any{
		FieldTitle:             nt.Title,
		FieldContent:           nt.Content,
		FieldDepartment:        nt.Department,
		FieldIsImportant:       nt.IsImportant,
		FieldTargetFaculties:   nonNil(nt.TargetFaculties),
		FieldTargetGrades:      nonNil(nt.TargetGrades),
		FieldLinks:             nonNil(nt.Links),
		FieldUtasPublishedDate: nt.UtasPublishedDate,
		FieldUtasPublishedTime: nt.UtasPublishedTime,
		FieldDeliveryType:      string(nt.DeliveryType),
		FieldPublishedAt:       nt.PublishedAt.UTC().Truncate(time.Millisecond),
		FieldStatus:            string(nt.Status),
	}
	if nt.DeliveryType == models.DeliveryScheduled {
		m[FieldScheduledDate] = nt.ScheduledDate
		m[FieldScheduledTime] = nt.ScheduledTime
	}
	if nt.CreatedAt != nil {
		m[FieldCreatedAt] = nt.CreatedAt.UTC().Truncate(time.Millisecond)
	}
	if nt.UpdatedAt != nil {
		m[FieldUpdatedAt] = nt.UpdatedAt.UTC().Truncate(time.Millisecond)
	}
	return m
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
