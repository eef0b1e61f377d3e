package viewmodel

import (
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/newsdesk/internal/app/system/datetime"
	"github.com/dalemusser/newsdesk/internal/app/system/pubstatus"
	"github.com/dalemusser/newsdesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
)

// NotificationKey is a sortable notification column.
type NotificationKey string

const (
	// NotificationByApp orders by when the notice appears in the app.
	NotificationByApp NotificationKey = "app"
	// NotificationByUtas orders by the portal publish date and time.
	NotificationByUtas NotificationKey = "utas"
)

// ParseNotificationKey reports false for unknown keys.
func ParseNotificationKey(s string) (NotificationKey, bool) {
	switch k := NotificationKey(s); k {
	case NotificationByApp, NotificationByUtas:
		return k, true
	}
	return "", false
}

// DefaultNotificationSort lists the latest app publications first.
var DefaultNotificationSort = Sort[NotificationKey]{Key: NotificationByApp, Dir: Desc}

// NotSet labels a portal date that is missing or unreadable.
const NotSet = "未設定"

// NotificationFilter holds the notification list predicates. Empty or "all"
// string fields and a nil Important do not restrict.
type NotificationFilter struct {
	Query     string        `json:"q"`
	Faculty   string        `json:"faculty"`
	Grade     string        `json:"grade"`
	Status    models.Status `json:"status"`
	Important *bool         `json:"important,omitempty"`
}

func (f NotificationFilter) equal(o NotificationFilter) bool {
	if f.Query != o.Query || f.Faculty != o.Faculty || f.Grade != o.Grade || f.Status != o.Status {
		return false
	}
	if (f.Important == nil) != (o.Important == nil) {
		return false
	}
	return f.Important == nil || *f.Important == *o.Important
}

// NotificationRow is one displayed notification with its status as of the
// view's current time.
type NotificationRow struct {
	models.Notification
	CurrentStatus  models.Status `json:"currentStatus"`
	Targets        string        `json:"targets"`
	PublishedLabel string        `json:"publishedLabel"`
	UtasLabel      string        `json:"utasLabel"`

	utasAt time.Time
	utasOK bool
}

// NotificationView derives notification rows. Safe for concurrent use.
type NotificationView struct {
	n *datetime.Normalizer

	mu     sync.Mutex
	source []models.Notification
	filter NotificationFilter
	sort   Sort[NotificationKey]
	now    time.Time
	rev    uint64

	builtRev uint64
	built    bool
	rows     []NotificationRow
}

// NewNotificationView starts with an empty list, DefaultNotificationSort,
// and the normalizer's current time.
func NewNotificationView(n *datetime.Normalizer) *NotificationView {
	return &NotificationView{n: n, sort: DefaultNotificationSort, now: n.Now()}
}

func (v *NotificationView) SetSource(list []models.Notification) {
	v.mu.Lock()
	v.source = list
	v.rev++
	v.mu.Unlock()
}

func (v *NotificationView) SetFilter(f NotificationFilter) {
	v.mu.Lock()
	if !f.equal(v.filter) {
		v.filter = f
		v.rev++
	}
	v.mu.Unlock()
}

func (v *NotificationView) Filter() NotificationFilter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

func (v *NotificationView) SetSort(s Sort[NotificationKey]) {
	v.mu.Lock()
	if s != v.sort {
		v.sort = s
		v.rev++
	}
	v.mu.Unlock()
}

func (v *NotificationView) ToggleSort(key NotificationKey) Sort[NotificationKey] {
	v.mu.Lock()
	v.sort = v.sort.Toggle(key)
	v.rev++
	s := v.sort
	v.mu.Unlock()
	return s
}

func (v *NotificationView) Sort() Sort[NotificationKey] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sort
}

// SetNow sets the reference time for status classification. Callers tick
// it periodically so scheduled items flip to published.
func (v *NotificationView) SetNow(t time.Time) {
	v.mu.Lock()
	if !t.Equal(v.now) {
		v.now = t
		v.rev++
	}
	v.mu.Unlock()
}

// Rows returns the filtered, sorted rows. The result is shared until the
// next input change and must not be modified.
func (v *NotificationView) Rows() []NotificationRow {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.built && v.builtRev == v.rev {
		return v.rows
	}

	rows := make([]NotificationRow, 0, len(v.source))
	for _, nt := range v.source {
		row := v.row(nt)
		if matchNotification(row, v.filter) {
			rows = append(rows, row)
		}
	}

	switch v.sort.Key {
	case NotificationByUtas:
		sortByNumber(rows, v.sort.Dir, func(r NotificationRow, fb float64) float64 {
			if !r.utasOK {
				return fb
			}
			return float64(r.utasAt.UnixMilli())
		})
	default:
		sortByNumber(rows, v.sort.Dir, func(r NotificationRow, fb float64) float64 {
			if r.PublishedAt.IsZero() {
				return fb
			}
			return float64(r.PublishedAt.UnixMilli())
		})
	}

	v.rows, v.builtRev, v.built = rows, v.rev, true
	return rows
}

func (v *NotificationView) row(nt models.Notification) NotificationRow {
	r := NotificationRow{
		Notification:   nt,
		CurrentStatus:  pubstatus.Classify(nt.PublishedAt, v.now, v.n),
		Targets:        models.FormatTargets(nt.TargetFaculties, nt.TargetGrades),
		PublishedLabel: v.n.Format(nt.PublishedAt, datetime.PatternDateTime),
		UtasLabel:      NotSet,
	}
	if at, ok := v.n.Combine(nt.UtasPublishedDate, nt.UtasPublishedTime); ok {
		r.utasAt, r.utasOK = at, true
		r.UtasLabel = v.n.Format(at, datetime.PatternDateTime)
	}
	return r
}

func matchNotification(r NotificationRow, f NotificationFilter) bool {
	if f.Faculty != "" && f.Faculty != AllValues && !models.Targets(r.TargetFaculties, models.Faculties, f.Faculty) {
		return false
	}
	if f.Grade != "" && f.Grade != AllValues && !models.Targets(r.TargetGrades, models.Grades, f.Grade) {
		return false
	}
	if f.Status != "" && f.Status != AllValues && r.CurrentStatus != f.Status {
		return false
	}
	if f.Important != nil && r.IsImportant != *f.Important {
		return false
	}
	q := strings.TrimSpace(f.Query)
	if q == "" {
		return true
	}
	needle := text.Fold(q)
	return strings.Contains(text.Fold(r.Title), needle) ||
		strings.Contains(text.Fold(r.Department), needle)
}

// NotificationStats counts notifications relative to now.
type NotificationStats struct {
	Total     int `json:"total"`
	Important int `json:"important"`
	ThisWeek  int `json:"thisWeek"`
}

// CountNotifications computes NotificationStats; this week means published
// within the last seven days or later.
func CountNotifications(list []models.Notification, now time.Time) NotificationStats {
	weekAgo := now.AddDate(0, 0, -7)
	st := NotificationStats{Total: len(list)}
	for _, nt := range list {
		if nt.IsImportant {
			st.Important++
		}
		if nt.PublishedAt.After(weekAgo) {
			st.ThisWeek++
		}
	}
	return st
}
