package viewmodel

import (
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/newsdesk/internal/app/system/datetime"
	"github.com/dalemusser/newsdesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
)

// ArticleKey is a sortable article column.
type ArticleKey string

const (
	ArticleByDate  ArticleKey = "date"
	ArticleByTitle ArticleKey = "title"
)

// ParseArticleKey reports false for unknown keys.
func ParseArticleKey(s string) (ArticleKey, bool) {
	switch k := ArticleKey(s); k {
	case ArticleByDate, ArticleByTitle:
		return k, true
	}
	return "", false
}

// DefaultArticleSort lists the newest articles first.
var DefaultArticleSort = Sort[ArticleKey]{Key: ArticleByDate, Dir: Desc}

// OwnerLookup resolves owner names from memory without remote calls.
// Version changes whenever an owner is added.
type OwnerLookup interface {
	Lookup(t models.OwnerType, id string) (models.Owner, bool)
	Version() uint64
}

// UnknownOwner is shown for articles whose owner is not known.
const UnknownOwner = models.UnknownOwnerName

// AllValues is the filter value meaning "no restriction".
const AllValues = "all"

// ArticleFilter holds the article list predicates. Empty or "all" fields
// do not restrict.
type ArticleFilter struct {
	Query     string           `json:"q"`
	Owner     string           `json:"owner"` // "type:id"
	OwnerType models.OwnerType `json:"ownerType"`
}

// ArticleRow is one displayed article.
type ArticleRow struct {
	models.Article
	OwnerName string `json:"ownerName"`
	OwnerLogo string `json:"ownerLogo,omitempty"`
	DateLabel string `json:"dateLabel"`
}

// ArticleView derives article rows. Safe for concurrent use.
type ArticleView struct {
	owners OwnerLookup
	n      *datetime.Normalizer

	mu     sync.Mutex
	source []models.Article
	filter ArticleFilter
	sort   Sort[ArticleKey]
	rev    uint64

	builtRev    uint64
	builtOwners uint64
	built       bool
	rows        []ArticleRow
}

// NewArticleView starts with an empty list and DefaultArticleSort.
func NewArticleView(owners OwnerLookup, n *datetime.Normalizer) *ArticleView {
	return &ArticleView{owners: owners, n: n, sort: DefaultArticleSort}
}

// SetSource replaces the entity list, typically with a live snapshot.
func (v *ArticleView) SetSource(list []models.Article) {
	v.mu.Lock()
	v.source = list
	v.rev++
	v.mu.Unlock()
}

func (v *ArticleView) SetFilter(f ArticleFilter) {
	v.mu.Lock()
	if f != v.filter {
		v.filter = f
		v.rev++
	}
	v.mu.Unlock()
}

func (v *ArticleView) Filter() ArticleFilter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

func (v *ArticleView) SetSort(s Sort[ArticleKey]) {
	v.mu.Lock()
	if s != v.sort {
		v.sort = s
		v.rev++
	}
	v.mu.Unlock()
}

// ToggleSort applies Sort.Toggle to the current sort.
func (v *ArticleView) ToggleSort(key ArticleKey) Sort[ArticleKey] {
	v.mu.Lock()
	v.sort = v.sort.Toggle(key)
	v.rev++
	s := v.sort
	v.mu.Unlock()
	return s
}

func (v *ArticleView) Sort() Sort[ArticleKey] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sort
}

// Rows returns the filtered, sorted rows. The result is shared until the
// next input change and must not be modified.
func (v *ArticleView) Rows() []ArticleRow {
	v.mu.Lock()
	defer v.mu.Unlock()

	ownersVer := v.ownersVersion()
	if v.built && v.builtRev == v.rev && v.builtOwners == ownersVer {
		return v.rows
	}

	rows := make([]ArticleRow, 0, len(v.source))
	for _, a := range v.source {
		row := v.row(a)
		if matchArticle(row, v.filter) {
			rows = append(rows, row)
		}
	}

	switch v.sort.Key {
	case ArticleByTitle:
		sortByString(rows, v.sort.Dir, func(r ArticleRow) string { return text.Fold(r.Title) })
	default:
		sortByNumber(rows, v.sort.Dir, func(r ArticleRow, fb float64) float64 {
			if r.Date.IsZero() {
				return fb
			}
			return float64(r.Date.UnixMilli())
		})
	}

	v.rows, v.builtRev, v.builtOwners, v.built = rows, v.rev, ownersVer, true
	return rows
}

func (v *ArticleView) ownersVersion() uint64 {
	if v.owners == nil {
		return 0
	}
	return v.owners.Version()
}

func (v *ArticleView) row(a models.Article) ArticleRow {
	r := ArticleRow{Article: a, OwnerName: UnknownOwner}
	if v.owners != nil {
		if o, ok := v.owners.Lookup(a.OwnerType, a.OwnerID); ok {
			if o.Name != "" {
				r.OwnerName = o.Name
			}
			r.OwnerLogo = o.Logo
		}
	}
	if v.n != nil {
		r.DateLabel = v.n.Format(a.Date, datetime.PatternDateTime)
	}
	return r
}

// FilterArticles applies f to list, keeping input order. Owner names are not
// consulted, so only the title is searched.
func FilterArticles(list []models.Article, f ArticleFilter) []models.Article {
	out := make([]models.Article, 0, len(list))
	for _, a := range list {
		if matchArticle(ArticleRow{Article: a}, f) {
			out = append(out, a)
		}
	}
	return out
}

func matchArticle(r ArticleRow, f ArticleFilter) bool {
	if f.OwnerType != "" && f.OwnerType != AllValues && r.OwnerType != f.OwnerType {
		return false
	}
	if f.Owner != "" && f.Owner != AllValues && r.OwnerKey() != f.Owner {
		return false
	}
	q := strings.TrimSpace(f.Query)
	if q == "" {
		return true
	}
	needle := text.Fold(q)
	return strings.Contains(text.Fold(r.Title), needle) ||
		strings.Contains(text.Fold(r.OwnerName), needle)
}

// ArticleStats counts articles relative to now in the display zone.
type ArticleStats struct {
	Total    int `json:"total"`
	Today    int `json:"today"`
	ThisWeek int `json:"thisWeek"`
}

// CountArticles computes ArticleStats. Today means the same calendar day as
// now in loc; this week means dated within the last seven days or later.
func CountArticles(list []models.Article, now time.Time, loc *time.Location) ArticleStats {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	y, m, d := now.Date()
	weekAgo := now.AddDate(0, 0, -7)

	st := ArticleStats{Total: len(list)}
	for _, a := range list {
		ad := a.Date.In(loc)
		if ay, am, add := ad.Date(); ay == y && am == m && add == d {
			st.Today++
		}
		if ad.After(weekAgo) {
			st.ThisWeek++
		}
	}
	return st
}
