// internal/app/store/owners/ownerstore.go
package ownerstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dalemusser/newsdesk/internal/app/system/docstore"
	"github.com/dalemusser/newsdesk/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrOwnerNotFound is returned when no owner document exists for a type and id.
var ErrOwnerNotFound = errors.New("owner not found")

// Directory resolves owners by (type, id) and remembers every owner it has
// seen for the life of the process. Entries are never evicted; a restart is
// the only way to pick up renamed owners.
//
// Concurrent misses for the same key share a single remote read.
type Directory struct {
	r   docstore.Reader
	log *zap.Logger

	mu      sync.RWMutex
	cache   map[string]models.Owner
	version atomic.Uint64

	group singleflight.Group
}

// New builds an empty Directory reading owner documents from r. Each owner
// type is the name of the collection holding that type's owners.
func New(r docstore.Reader, log *zap.Logger) *Directory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Directory{r: r, log: log, cache: make(map[string]models.Owner)}
}

// Lookup returns a cached owner without touching the store.
func (d *Directory) Lookup(t models.OwnerType, id string) (models.Owner, bool) {
	d.mu.RLock()
	o, ok := d.cache[models.OwnerKey(t, id)]
	d.mu.RUnlock()
	return o, ok
}

// Version increases every time an owner is added to the cache.
func (d *Directory) Version() uint64 { return d.version.Load() }

// Put caches o unless its key is already cached. The first owner seen for a
// key is kept. It reports whether o was added.
func (d *Directory) Put(o models.Owner) bool {
	d.mu.Lock()
	added := d.putLocked(o)
	d.mu.Unlock()
	if added {
		d.version.Add(1)
	}
	return added
}

func (d *Directory) putLocked(o models.Owner) bool {
	if _, ok := d.cache[o.Key()]; ok {
		return false
	}
	d.cache[o.Key()] = o
	return true
}

// Len returns the number of cached owners.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.cache)
}

// Get returns the owner for (t, id), reading it from the store on a cache
// miss. Misses are not remembered, so a later Get retries the read.
func (d *Directory) Get(ctx context.Context, t models.OwnerType, id string) (models.Owner, error) {
	if !t.IsValid() || strings.TrimSpace(id) == "" {
		return models.Owner{}, fmt.Errorf("%w: %s/%s", ErrOwnerNotFound, t, id)
	}
	if o, ok := d.Lookup(t, id); ok {
		return o, nil
	}

	key := models.OwnerKey(t, id)
	v, err, _ := d.group.Do(key, func() (any, error) {
		if o, ok := d.Lookup(t, id); ok {
			return o, nil
		}
		doc, err := d.r.Get(ctx, string(t), id)
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrOwnerNotFound, t, id)
		}
		if err != nil {
			d.log.Error("owner lookup failed", zap.String("owner", key), zap.Error(err))
			return nil, fmt.Errorf("get owner %s: %w", key, err)
		}
		o := toOwner(t, doc)
		if !d.Put(o) {
			o, _ = d.Lookup(t, id)
		}
		return o, nil
	})
	if err != nil {
		return models.Owner{}, err
	}
	return v.(models.Owner), nil
}

// Name returns the owner's display name, or models.UnknownOwnerName when it
// cannot be resolved.
func (d *Directory) Name(ctx context.Context, t models.OwnerType, id string) string {
	o, err := d.Get(ctx, t, id)
	if err != nil || o.Name == "" {
		return models.UnknownOwnerName
	}
	return o.Name
}

// Logo returns the owner's logo URL, or "" when it has none or cannot be
// resolved.
func (d *Directory) Logo(ctx context.Context, t models.OwnerType, id string) string {
	o, err := d.Get(ctx, t, id)
	if err != nil {
		return ""
	}
	return o.Logo
}

// All loads every owner of every type, caches the ones not yet seen, and
// returns them grouped by type in models.OwnerTypes order and sorted by name
// within a type. A failure on any collection fails the whole call.
func (d *Directory) All(ctx context.Context) ([]models.Owner, error) {
	var out []models.Owner
	for _, t := range models.OwnerTypes {
		docs, err := d.r.Query(ctx, docstore.Query{Collection: string(t)})
		if err != nil {
			d.log.Error("owner list failed", zap.String("type", string(t)), zap.Error(err))
			return nil, fmt.Errorf("list %s owners: %w", t, err)
		}
		batch := make([]models.Owner, 0, len(docs))
		for _, doc := range docs {
			batch = append(batch, toOwner(t, doc))
		}
		sort.SliceStable(batch, func(i, j int) bool { return batch[i].Name < batch[j].Name })
		out = append(out, batch...)
	}

	added := 0
	d.mu.Lock()
	for _, o := range out {
		if d.putLocked(o) {
			added++
		}
	}
	d.mu.Unlock()
	if added > 0 {
		d.version.Add(1)
	}

	return out, nil
}

func toOwner(t models.OwnerType, doc docstore.Document) models.Owner {
	o := models.Owner{ID: doc.ID, Type: t, Name: models.UnknownOwnerName}
	if name, _ := doc.Data["name"].(string); strings.TrimSpace(name) != "" {
		o.Name = name
	}
	if logo, _ := doc.Data["logo"].(string); logo != "" {
		o.Logo = logo
	}
	return o
}
