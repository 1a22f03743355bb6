package layout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Local storage keys.
const (
	LocalKeyPrefix = "layout-"
	LastLayoutKey  = "last-layout"
)

// LocalKey returns the local storage key holding the layout with id.
func LocalKey(id string) string { return LocalKeyPrefix + id }

// RemoteStore is the remote layout persistence capability.
type RemoteStore interface {
	List(ctx context.Context) ([]Layout, error)
	// Get returns ErrNotFound when no layout exists for id.
	Get(ctx context.Context, id string) (Layout, error)
	// Save creates or updates a layout and returns the stored record.
	Save(ctx context.Context, l Layout) (Layout, error)
	Delete(ctx context.Context, id string) error
}

// LocalStore is a string-keyed byte store with per-key atomic writes, the
// stand-in for browser local storage.
type LocalStore interface {
	// Get returns the value for key and whether it was present.
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Remove(key string) error
	Keys() ([]string, error)
}

// Tier names the persistence tier that served an operation.
type Tier string

const (
	TierRemote Tier = "remote"
	TierLocal  Tier = "local"
	TierNone   Tier = "none"
)

var fallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "autopilot",
	Subsystem: "layout",
	Name:      "fallbacks_total",
	Help:      "Layout persistence operations served by local storage after a remote failure.",
}, []string{"op"})

// RegisterMetrics registers the layout collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	return reg.Register(fallbacks)
}

// TieredStore tries the remote store first and falls back to local storage
// on any remote failure. A nil remote always uses local storage.
type TieredStore struct {
	remote RemoteStore
	local  LocalStore
	logger *slog.Logger
}

// NewTieredStore builds the fallback chain.
func NewTieredStore(remote RemoteStore, local LocalStore, logger *slog.Logger) *TieredStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TieredStore{remote: remote, local: local, logger: logger}
}

var errNoRemote = errors.New("no remote store configured")

func (s *TieredStore) tryRemote(op string, fn func(RemoteStore) error) error {
	if s.remote == nil {
		return errNoRemote
	}
	err := fn(s.remote)
	if err != nil {
		s.logger.Warn("layout: remote store failed, using local storage", "op", op, "err", err)
		fallbacks.WithLabelValues(op).Inc()
	}
	return err
}

// Save writes l remotely, or on failure to local storage under both
// layout-<id> and last-layout. A successful remote save also refreshes
// last-layout. The error is non-nil only when both tiers failed.
func (s *TieredStore) Save(ctx context.Context, l Layout) (Layout, Tier, error) {
	var saved Layout
	remoteErr := s.tryRemote("save", func(r RemoteStore) error {
		var err error
		saved, err = r.Save(ctx, l)
		return err
	})
	if remoteErr == nil {
		if err := s.writeLocal(LastLayoutKey, saved); err != nil {
			s.logger.Warn("layout: refresh last layout", "id", saved.ID, "err", err)
		}
		return saved, TierRemote, nil
	}

	if err := s.writeLocal(LocalKey(l.ID), l); err != nil {
		s.logger.Error("layout: local save failed", "id", l.ID, "err", err)
		return l, TierNone, fmt.Errorf("save layout %q: %w", l.ID, errors.Join(remoteErr, err))
	}
	if err := s.writeLocal(LastLayoutKey, l); err != nil {
		s.logger.Error("layout: local save failed", "key", LastLayoutKey, "err", err)
		return l, TierNone, fmt.Errorf("save layout %q: %w", l.ID, errors.Join(remoteErr, err))
	}
	return l, TierLocal, nil
}

// SaveLast writes l to local storage under last-layout only.
func (s *TieredStore) SaveLast(l Layout) error {
	return s.writeLocal(LastLayoutKey, l)
}

// Get reads a layout remotely, falling back to layout-<id> in local storage.
// It reports false when neither tier holds the layout.
func (s *TieredStore) Get(ctx context.Context, id string) (Layout, Tier, bool) {
	var l Layout
	err := s.tryRemote("load", func(r RemoteStore) error {
		var err error
		l, err = r.Get(ctx, id)
		return err
	})
	if err == nil {
		return l, TierRemote, true
	}
	l, ok := s.readLocal(LocalKey(id))
	if !ok {
		return Layout{}, TierNone, false
	}
	return l, TierLocal, true
}

// Last returns the layout stored under last-layout.
func (s *TieredStore) Last() (Layout, bool) {
	return s.readLocal(LastLayoutKey)
}

// List returns every layout remotely, or on failure every layout-* record in
// local storage ordered by key. Local failures yield an empty list.
func (s *TieredStore) List(ctx context.Context) ([]Layout, Tier) {
	var out []Layout
	err := s.tryRemote("list", func(r RemoteStore) error {
		var err error
		out, err = r.List(ctx)
		return err
	})
	if err == nil {
		return out, TierRemote
	}

	keys, err := s.local.Keys()
	if err != nil {
		s.logger.Error("layout: list local storage", "err", err)
		return nil, TierLocal
	}
	sort.Strings(keys)
	out = make([]Layout, 0, len(keys))
	for _, key := range keys {
		if !strings.HasPrefix(key, LocalKeyPrefix) {
			continue
		}
		if l, ok := s.readLocal(key); ok {
			out = append(out, l)
		}
	}
	return out, TierLocal
}

// Delete removes a layout remotely, or on failure removes layout-<id> from
// local storage. The error is non-nil only when both tiers failed.
func (s *TieredStore) Delete(ctx context.Context, id string) (Tier, error) {
	remoteErr := s.tryRemote("delete", func(r RemoteStore) error {
		return r.Delete(ctx, id)
	})
	if remoteErr == nil {
		return TierRemote, nil
	}
	if err := s.local.Remove(LocalKey(id)); err != nil {
		s.logger.Error("layout: local delete failed", "id", id, "err", err)
		return TierNone, fmt.Errorf("delete layout %q: %w", id, errors.Join(remoteErr, err))
	}
	return TierLocal, nil
}

func (s *TieredStore) writeLocal(key string, l Layout) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal layout: %w", err)
	}
	return s.local.Set(key, data)
}

// readLocal decodes the layout under key. Missing, unreadable and corrupt
// records all read as absent; the latter two are logged.
func (s *TieredStore) readLocal(key string) (Layout, bool) {
	data, ok, err := s.local.Get(key)
	if err != nil {
		s.logger.Error("layout: read local storage", "key", key, "err", err)
		return Layout{}, false
	}
	if !ok {
		return Layout{}, false
	}
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		s.logger.Warn("layout: corrupt local record ignored", "key", key, "err", err)
		return Layout{}, false
	}
	return l, true
}
