// internal/app/store/articles/articlestore.go
package articlestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dalemusser/newsdesk/internal/app/records"
	"github.com/dalemusser/newsdesk/internal/app/system/blobstore"
	"github.com/dalemusser/newsdesk/internal/app/system/datetime"
	"github.com/dalemusser/newsdesk/internal/app/system/docstore"
	"github.com/dalemusser/newsdesk/internal/app/system/inputval"
	"github.com/dalemusser/newsdesk/internal/app/system/metrics"
	"github.com/dalemusser/newsdesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.uber.org/zap"
)

var (
	ErrNotFound          = errors.New("article not found")
	ErrThumbnailRequired = errors.New("a thumbnail image is required")
)

// DefaultMaxThumbnailBytes caps thumbnail uploads when no limit is configured.
const DefaultMaxThumbnailBytes = 5 << 20

// ArticleInput is the editable part of an article as submitted by staff.
// Date may be blank, meaning now.
type ArticleInput struct {
	Title string `json:"title" validate:"required,notblank,min=5,max=200" label:"Title"`
	URL   string `json:"url" validate:"required,httpurl" label:"URL"`
	Owner string `json:"owner" validate:"required" label:"Owner"`
	Date  string `json:"date" label:"Date"`
}

// Thumbnail is an uploaded image.
type Thumbnail struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// LiveQuery selects every live article across all owners, newest first.
// Tombstoned documents are excluded.
func LiveQuery() docstore.Query {
	return docstore.Query{
		Collection: models.NewsCollection,
		Group:      true,
		OrderBy:    records.FieldDate,
		Desc:       true,
		Where:      []docstore.Filter{{Field: records.FieldDeleted, Op: docstore.OpNe, Value: true}},
	}
}

// Store creates, edits and removes articles and their thumbnails. It does
// not retry and does not cache; the live feed reflects every change.
type Store struct {
	docs     docstore.Store
	blobs    storage.Store
	n        *datetime.Normalizer
	log      *zap.Logger
	rec      metrics.Recorder
	maxThumb int64
}

type Option func(*Store)

func WithMetrics(r metrics.Recorder) Option {
	return func(s *Store) {
		if r != nil {
			s.rec = r
		}
	}
}

// WithMaxThumbnailBytes sets the upload size limit; n <= 0 keeps the default.
func WithMaxThumbnailBytes(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxThumb = n
		}
	}
}

func New(docs docstore.Store, blobs storage.Store, n *datetime.Normalizer, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		docs:     docs,
		blobs:    blobs,
		n:        n,
		log:      log,
		rec:      metrics.Nop{},
		maxThumb: DefaultMaxThumbnailBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// validated is an ArticleInput that passed validation.
type validated struct {
	title     string
	url       string
	ownerType models.OwnerType
	ownerID   string
	date      time.Time
}

// validate checks in and thumb. A blank date resolves to defaultDate.
func (s *Store) validate(in ArticleInput, thumb *Thumbnail, thumbRequired bool, defaultDate time.Time) (validated, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.URL = strings.TrimSpace(in.URL)

	res := inputval.Validate(in)
	var cause error

	v := validated{title: in.Title, url: in.URL}
	if in.Owner != "" {
		t, id, ok := models.ParseOwnerKey(in.Owner)
		if !ok {
			res.Add("owner", "Owner must be an existing company or media group.")
		}
		v.ownerType, v.ownerID = t, id
	}

	v.date = defaultDate
	if d := strings.TrimSpace(in.Date); d != "" {
		t, ok := s.n.TryNormalize(d)
		if !ok {
			res.Add("date", "Date is not a valid date.")
		}
		v.date = t
	}

	switch {
	case thumb == nil || thumb.Body == nil:
		if thumbRequired {
			res.Add("thumbnail", "A thumbnail image is required.")
			cause = ErrThumbnailRequired
		}
	default:
		if err := blobstore.CheckImage(thumb.ContentType, thumb.Size, s.maxThumb); err != nil {
			if errors.Is(err, blobstore.ErrTooLarge) {
				res.Add("thumbnail", fmt.Sprintf("Thumbnail must be at most %d KB.", s.maxThumb>>10))
			} else {
				res.Add("thumbnail", "Thumbnail must be an image file.")
			}
			cause = err
		}
	}

	if res.HasErrors() {
		return validated{}, &inputval.ValidationError{Result: res, Err: cause}
	}
	return v, nil
}

func (s *Store) upload(ctx context.Context, thumb *Thumbnail) (string, error) {
	path := blobstore.UploadPath(s.n.Now(), thumb.Filename)
	url, err := blobstore.PutImage(ctx, s.blobs, path, thumb.ContentType, thumb.Body)
	if err != nil {
		s.log.Error("thumbnail upload failed", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("upload thumbnail: %w", err)
	}
	return url, nil
}

// Create uploads the thumbnail and stores a new article under its owner.
// Nothing is written when validation fails.
func (s *Store) Create(ctx context.Context, in ArticleInput, thumb Thumbnail) (a models.Article, err error) {
	start := time.Now()
	defer func() { s.rec.RecordMutation("article", "create", err, time.Since(start)) }()

	v, err := s.validate(in, &thumb, true, s.n.Now())
	if err != nil {
		return models.Article{}, err
	}
	imageURL, err := s.upload(ctx, &thumb)
	if err != nil {
		return models.Article{}, err
	}

	a = models.Article{
		Title:     v.title,
		URL:       v.url,
		ImageURL:  imageURL,
		Date:      v.date,
		OwnerType: v.ownerType,
		OwnerID:   v.ownerID,
	}
	id, err := s.docs.Add(ctx, a.CollectionPath(), records.ArticleFields(a))
	if err != nil {
		s.log.Error("article create failed", zap.String("path", a.CollectionPath()), zap.Error(err))
		return models.Article{}, fmt.Errorf("create article: %w", err)
	}
	a.ID = id
	s.log.Info("article created", zap.String("id", id), zap.String("owner", a.OwnerKey()))
	return a, nil
}

// Update applies in to the article identified by current. A nil thumb keeps
// the existing image and a blank date keeps the existing date.
//
// When the owner changes the article moves: a new document is added under
// the new owner and the old one is marked deleted. The returned article then
// has a new ID that callers must use from now on.
func (s *Store) Update(ctx context.Context, current models.Article, in ArticleInput, thumb *Thumbnail) (a models.Article, err error) {
	start := time.Now()
	defer func() { s.rec.RecordMutation("article", "update", err, time.Since(start)) }()

	if strings.TrimSpace(current.ID) == "" || !current.OwnerType.IsValid() || strings.TrimSpace(current.OwnerID) == "" {
		return models.Article{}, ErrNotFound
	}
	keepDate := current.Date
	if keepDate.IsZero() {
		keepDate = s.n.Now()
	}
	v, err := s.validate(in, thumb, false, keepDate)
	if err != nil {
		return models.Article{}, err
	}

	imageURL := current.ImageURL
	if imageURL == "" {
		imageURL = models.PlaceholderImage
	}
	if thumb != nil && thumb.Body != nil {
		if imageURL, err = s.upload(ctx, thumb); err != nil {
			return models.Article{}, err
		}
	}

	a = models.Article{
		ID:        current.ID,
		Title:     v.title,
		URL:       v.url,
		ImageURL:  imageURL,
		Date:      v.date,
		OwnerType: v.ownerType,
		OwnerID:   v.ownerID,
	}

	if a.OwnerKey() == current.OwnerKey() {
		if err := s.docs.Update(ctx, current.CollectionPath(), current.ID, records.ArticleFields(a)); err != nil {
			return models.Article{}, s.writeErr("update", current, err)
		}
		return a, nil
	}

	id, err := s.docs.Add(ctx, a.CollectionPath(), records.ArticleFields(a))
	if err != nil {
		s.log.Error("article move failed", zap.String("from", current.OwnerKey()),
			zap.String("to", a.OwnerKey()), zap.Error(err))
		return models.Article{}, fmt.Errorf("move article: %w", err)
	}
	if err := s.docs.Update(ctx, current.CollectionPath(), current.ID, map[string]any{records.FieldDeleted: true}); err != nil {
		// Drop the copy so the article is not live under both owners.
		if derr := s.docs.Delete(ctx, a.CollectionPath(), id); derr != nil {
			s.log.Error("article move rollback failed", zap.String("id", id),
				zap.String("owner", a.OwnerKey()), zap.Error(derr))
		}
		return models.Article{}, s.writeErr("tombstone", current, err)
	}
	a.ID = id
	s.log.Info("article moved", zap.String("old_id", current.ID), zap.String("new_id", id),
		zap.String("from", current.OwnerKey()), zap.String("to", a.OwnerKey()))
	return a, nil
}

// Delete removes an article document permanently.
func (s *Store) Delete(ctx context.Context, ownerType models.OwnerType, ownerID, id string) (err error) {
	start := time.Now()
	defer func() { s.rec.RecordMutation("article", "delete", err, time.Since(start)) }()

	a := models.Article{ID: id, OwnerType: ownerType, OwnerID: ownerID}
	if strings.TrimSpace(id) == "" || !ownerType.IsValid() || strings.TrimSpace(ownerID) == "" {
		return ErrNotFound
	}
	if err := s.docs.Delete(ctx, a.CollectionPath(), id); err != nil {
		return s.writeErr("delete", a, err)
	}
	s.log.Info("article deleted", zap.String("id", id), zap.String("owner", a.OwnerKey()))
	return nil
}

// Get loads one live article. Tombstoned and unreadable documents are
// reported as ErrNotFound.
func (s *Store) Get(ctx context.Context, ownerType models.OwnerType, ownerID, id string) (models.Article, error) {
	if strings.TrimSpace(id) == "" || !ownerType.IsValid() || strings.TrimSpace(ownerID) == "" {
		return models.Article{}, ErrNotFound
	}
	doc, err := s.docs.Get(ctx, models.NewsPath(ownerType, ownerID), id)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.Article{}, ErrNotFound
	}
	if err != nil {
		return models.Article{}, fmt.Errorf("get article: %w", err)
	}
	if deleted, _ := doc.Data[records.FieldDeleted].(bool); deleted {
		return models.Article{}, ErrNotFound
	}
	a, err := records.MapArticle(doc, s.n)
	if err != nil {
		s.log.Warn("stored article unreadable", zap.Error(err))
		return models.Article{}, ErrNotFound
	}
	return a, nil
}

// List runs LiveQuery once. Documents the mapper rejects are skipped.
func (s *Store) List(ctx context.Context) ([]models.Article, error) {
	docs, err := s.docs.Query(ctx, LiveQuery())
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	out := make([]models.Article, 0, len(docs))
	for _, d := range docs {
		a, err := records.MapArticle(d, s.n)
		if err != nil {
			s.log.Warn("dropping article", zap.Error(err))
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) writeErr(op string, a models.Article, err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	s.log.Error("article "+op+" failed", zap.String("id", a.ID), zap.String("owner", a.OwnerKey()), zap.Error(err))
	return fmt.Errorf("%s article: %w", op, err)
}
