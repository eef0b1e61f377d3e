// internal/app/store/notifications/notificationstore.go
package notificationstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/newsdesk/internal/app/records"
	"github.com/dalemusser/newsdesk/internal/app/system/datetime"
	"github.com/dalemusser/newsdesk/internal/app/system/docstore"
	"github.com/dalemusser/newsdesk/internal/app/system/htmlsanitize"
	"github.com/dalemusser/newsdesk/internal/app/system/inputval"
	"github.com/dalemusser/newsdesk/internal/app/system/metrics"
	"github.com/dalemusser/newsdesk/internal/app/system/pubstatus"
	"github.com/dalemusser/newsdesk/internal/domain/models"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("notification not found")

// NotificationInput is a notification as submitted by staff. PublishedAt,
// Status and the timestamps are derived and cannot be set directly.
type NotificationInput struct {
	Title       string `json:"title" validate:"required,notblank,max=200" label:"Title"`
	Content     string `json:"content" validate:"required,notblank" label:"Content"`
	Department  string `json:"department" validate:"required,notblank,max=100" label:"Department"`
	IsImportant bool   `json:"isImportant"`

	TargetFaculties []string `json:"targetFaculties" validate:"required,min=1,dive,faculty" label:"Target faculties"`
	TargetGrades    []string `json:"targetGrades" validate:"required,min=1,dive,grade" label:"Target grades"`
	Links           []string `json:"links" validate:"max=20,dive,httpurl" label:"Links"`

	UtasPublishedDate string `json:"utasPublishedDate" validate:"required,notblank" label:"Portal publish date"`
	UtasPublishedTime string `json:"utasPublishedTime" validate:"required,notblank" label:"Portal publish time"`

	DeliveryType  models.DeliveryType `json:"deliveryType" validate:"required,deliverytype" label:"Delivery type"`
	ScheduledDate string              `json:"scheduledDate" validate:"required_if=DeliveryType scheduled" label:"Scheduled date"`
	ScheduledTime string              `json:"scheduledTime" validate:"required_if=DeliveryType scheduled" label:"Scheduled time"`
}

// LiveQuery selects every notification, most recently published first.
func LiveQuery() docstore.Query {
	return docstore.Query{
		Collection: models.NotificationsCollection,
		OrderBy:    records.FieldPublishedAt,
		Desc:       true,
	}
}

// Store writes notifications. Every write derives publishedAt and status
// from the delivery settings at the time of the call.
type Store struct {
	docs docstore.Store
	n    *datetime.Normalizer
	log  *zap.Logger
	rec  metrics.Recorder
}

type Option func(*Store)

func WithMetrics(r metrics.Recorder) Option {
	return func(s *Store) {
		if r != nil {
			s.rec = r
		}
	}
}

func New(docs docstore.Store, n *datetime.Normalizer, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{docs: docs, n: n, log: log, rec: metrics.Nop{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CleanLinks trims every link and drops the blank ones.
func CleanLinks(links []string) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// build validates in and returns the notification it describes as of now.
func (s *Store) build(in NotificationInput, now time.Time) (models.Notification, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Department = strings.TrimSpace(in.Department)
	in.UtasPublishedDate = strings.TrimSpace(in.UtasPublishedDate)
	in.UtasPublishedTime = strings.TrimSpace(in.UtasPublishedTime)
	in.ScheduledDate = strings.TrimSpace(in.ScheduledDate)
	in.ScheduledTime = strings.TrimSpace(in.ScheduledTime)
	in.Links = CleanLinks(in.Links)

	res := inputval.Validate(in)

	var scheduledAt time.Time
	if in.DeliveryType == models.DeliveryScheduled && in.ScheduledDate != "" && in.ScheduledTime != "" {
		at, ok := s.n.Combine(in.ScheduledDate, in.ScheduledTime)
		if !ok {
			res.Add("scheduledDate", "Scheduled date and time are not valid.")
		}
		scheduledAt = at
	}
	if err := inputval.Fail(res); err != nil {
		return models.Notification{}, err
	}

	content := in.Content
	if !htmlsanitize.IsPlainText(content) {
		content = htmlsanitize.Sanitize(content)
	}

	nt := models.Notification{
		Title:             in.Title,
		Content:           content,
		Department:        in.Department,
		IsImportant:       in.IsImportant,
		TargetFaculties:   in.TargetFaculties,
		TargetGrades:      in.TargetGrades,
		Links:             in.Links,
		UtasPublishedDate: in.UtasPublishedDate,
		UtasPublishedTime: in.UtasPublishedTime,
		DeliveryType:      in.DeliveryType,
	}
	if in.DeliveryType == models.DeliveryScheduled {
		nt.ScheduledDate = in.ScheduledDate
		nt.ScheduledTime = in.ScheduledTime
	}
	nt.PublishedAt, nt.Status = pubstatus.ForDelivery(in.DeliveryType, scheduledAt, now)
	return nt, nil
}

// Create stores a new notification.
func (s *Store) Create(ctx context.Context, in NotificationInput) (nt models.Notification, err error) {
	start := time.Now()
	defer func() { s.rec.RecordMutation("notification", "create", err, time.Since(start)) }()

	now := s.n.Now()
	nt, err = s.build(in, now)
	if err != nil {
		return models.Notification{}, err
	}
	nt.CreatedAt, nt.UpdatedAt = &now, &now

	id, err := s.docs.Add(ctx, models.NotificationsCollection, records.NotificationFields(nt))
	if err != nil {
		s.log.Error("notification create failed", zap.Error(err))
		return models.Notification{}, fmt.Errorf("create notification: %w", err)
	}
	nt.ID = id
	s.log.Info("notification created", zap.String("id", id), zap.String("status", string(nt.Status)))
	return nt, nil
}

// Update replaces the editable fields of notification id and recomputes
// publishedAt and status. createdAt is left untouched.
func (s *Store) Update(ctx context.Context, id string, in NotificationInput) (nt models.Notification, err error) {
	start := time.Now()
	defer func() { s.rec.RecordMutation("notification", "update", err, time.Since(start)) }()

	if strings.TrimSpace(id) == "" {
		return models.Notification{}, ErrNotFound
	}
	now := s.n.Now()
	nt, err = s.build(in, now)
	if err != nil {
		return models.Notification{}, err
	}
	nt.ID = id
	nt.UpdatedAt = &now

	fields := records.NotificationFields(nt)
	if nt.DeliveryType != models.DeliveryScheduled {
		// Clear a schedule left over from an earlier scheduled delivery.
		fields[records.FieldScheduledDate] = ""
		fields[records.FieldScheduledTime] = ""
	}
	if err := s.docs.Update(ctx, models.NotificationsCollection, id, fields); err != nil {
		return models.Notification{}, s.writeErr("update", id, err)
	}
	return nt, nil
}

// Delete removes a notification permanently.
func (s *Store) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.rec.RecordMutation("notification", "delete", err, time.Since(start)) }()

	if strings.TrimSpace(id) == "" {
		return ErrNotFound
	}
	if err := s.docs.Delete(ctx, models.NotificationsCollection, id); err != nil {
		return s.writeErr("delete", id, err)
	}
	s.log.Info("notification deleted", zap.String("id", id))
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (models.Notification, error) {
	if strings.TrimSpace(id) == "" {
		return models.Notification{}, ErrNotFound
	}
	doc, err := s.docs.Get(ctx, models.NotificationsCollection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.Notification{}, ErrNotFound
	}
	if err != nil {
		return models.Notification{}, fmt.Errorf("get notification: %w", err)
	}
	nt, err := records.MapNotification(doc, s.n)
	if err != nil {
		s.log.Warn("stored notification unreadable", zap.Error(err))
		return models.Notification{}, ErrNotFound
	}
	return nt, nil
}

// List runs LiveQuery once. Documents the mapper rejects are skipped.
func (s *Store) List(ctx context.Context) ([]models.Notification, error) {
	docs, err := s.docs.Query(ctx, LiveQuery())
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out := make([]models.Notification, 0, len(docs))
	for _, d := range docs {
		nt, err := records.MapNotification(d, s.n)
		if err != nil {
			s.log.Warn("dropping notification", zap.Error(err))
			continue
		}
		out = append(out, nt)
	}
	return out, nil
}

func (s *Store) writeErr(op, id string, err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	s.log.Error("notification "+op+" failed", zap.String("id", id), zap.Error(err))
	return fmt.Errorf("%s notification: %w", op, err)
}
