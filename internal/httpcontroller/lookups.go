package httpcontroller

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/console-panel/internal/datastore"
	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/datastore/repository"
	"github.com/tphakala/console-panel/internal/errors"
	"github.com/tphakala/console-panel/internal/observability/metrics"
)

// Lookup names, equal to the resource paths
const (
	lookupUsers       = "users"
	lookupTypes       = "types"
	lookupDevices     = "devices"
	lookupFrequencies = "frequencies"
	lookupInterfaces  = "interfaces"
	lookupSources     = "sources"
	lookupChannels    = "channels"
	lookupInputs      = "inputs"
)

// option is one entry of a select list.
type option struct {
	Value string
	Label string
}

// lookups caches the select-list options of every entity. Writes through
// the pages invalidate the affected list; writes through the API are
// picked up when the entry expires.
type lookups struct {
	store   *datastore.Store
	cache   *cache.Cache
	metrics *metrics.HTTPMetrics
}

func newLookups(store *datastore.Store, ttl time.Duration, m *metrics.HTTPMetrics) *lookups {
	// expired entries are dropped on read, no janitor goroutine
	c := cache.New(ttl, 0)
	return &lookups{store: store, cache: c, metrics: m}
}

// options returns the select list for name, ordered by ID.
func (l *lookups) options(ctx context.Context, name string) ([]option, error) {
	if v, ok := l.cache.Get(name); ok {
		l.record(name, true)
		return v.([]option), nil
	}
	l.record(name, false)

	opts, err := l.load(ctx, name)
	if err != nil {
		return nil, err
	}
	l.cache.SetDefault(name, opts)
	return opts, nil
}

// label resolves id to its display label, "" for nil and "#id" for an
// unknown ID.
func (l *lookups) label(ctx context.Context, name string, id *uint) string {
	if id == nil {
		return ""
	}
	return l.labelOf(ctx, name, *id)
}

func (l *lookups) labelOf(ctx context.Context, name string, id uint) string {
	want := strconv.FormatUint(uint64(id), 10)
	opts, err := l.options(ctx, name)
	if err == nil {
		for _, o := range opts {
			if o.Value == want {
				return o.Label
			}
		}
	}
	return "#" + want
}

// invalidate drops name and the lists whose labels embed it.
func (l *lookups) invalidate(name string) {
	l.cache.Delete(name)
	if name == lookupInterfaces {
		l.cache.Delete(lookupChannels)
	}
}

// flush drops every list, used after deletes that may cascade.
func (l *lookups) flush() {
	l.cache.Flush()
}

func (l *lookups) record(name string, hit bool) {
	if l.metrics != nil {
		l.metrics.RecordLookupCache(name, hit)
	}
}

func (l *lookups) load(ctx context.Context, name string) ([]option, error) {
	all := repository.ListOptions{}
	switch name {
	case lookupUsers:
		users, err := l.store.Users.List(ctx, all)
		return toOptions(users, err, func(u *entities.User) string { return u.DisplayName() })
	case lookupTypes:
		types, err := l.store.Types.List(ctx, all)
		return toOptions(types, err, func(t *entities.Type) string { return t.Name })
	case lookupDevices:
		devices, err := l.store.Devices.List(ctx, all)
		return toOptions(devices, err, func(d *entities.Device) string { return d.Name })
	case lookupFrequencies:
		freqs, err := l.store.Frequencies.List(ctx, all)
		return toOptions(freqs, err, func(f *entities.Frequency) string { return f.Label() })
	case lookupInterfaces:
		ifaces, err := l.store.Interfaces.List(ctx, all)
		return toOptions(ifaces, err, func(a *entities.AudioInterface) string { return a.ShortName })
	case lookupSources:
		sources, err := l.store.Sources.List(ctx, all)
		return toOptions(sources, err, func(s *entities.Source) string { return s.Name })
	case lookupChannels:
		channels, err := l.store.Channels.List(ctx, all)
		return toOptions(channels, err, func(c *entities.Channel) string {
			return fmt.Sprintf("%s (%s)", c.Label, l.labelOf(ctx, lookupInterfaces, c.InterfaceID))
		})
	case lookupInputs:
		inputs, err := l.store.Inputs.List(ctx, all)
		return toOptions(inputs, err, func(in *entities.Input) string { return in.Label })
	default:
		return nil, errors.Newf("unknown lookup %q", name).
			Component("httpcontroller").
			Category(errors.CategoryGeneric).
			Context("lookup", name).
			Build()
	}
}

func toOptions[E any, P record[E]](items []E, err error, labelFn func(P) string) ([]option, error) {
	if err != nil {
		return nil, err
	}
	opts := make([]option, 0, len(items))
	for i := range items {
		p := P(&items[i])
		opts = append(opts, option{
			Value: strconv.FormatUint(uint64(p.GetID()), 10),
			Label: labelFn(p),
		})
	}
	return opts, nil
}
