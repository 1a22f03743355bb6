package platform

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"autopilot/internal/layout"
	"autopilot/internal/messages"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/xid"
)

// LayoutsBucket is the KV bucket holding saved layouts.
const LayoutsBucket = "layouts"

// LayoutRepo stores layouts in the layouts KV bucket and publishes a layout
// event after every change. Keys are the base64url encoding of the layout id,
// so any id is a valid key.
type LayoutRepo struct {
	kv        jetstream.KeyValue
	publisher *messages.Publisher
	now       func() time.Time
}

// NewLayoutRepo opens the layouts bucket. EnsureStreams must have run.
func NewLayoutRepo(ctx context.Context, js jetstream.JetStream) (*LayoutRepo, error) {
	kv, err := js.KeyValue(ctx, LayoutsBucket)
	if err != nil {
		return nil, fmt.Errorf("open %s bucket: %w", LayoutsBucket, err)
	}
	return &LayoutRepo{
		kv:        kv,
		publisher: messages.NewPublisher(js),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func layoutKey(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

// List returns every stored layout, most recently saved first. Records that
// fail to decode are skipped.
func (r *LayoutRepo) List(ctx context.Context) (out []layout.Layout, err error) {
	defer func() { observeOp("list", err) }()

	lister, err := r.kv.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	defer lister.Stop()

	out = []layout.Layout{}
	for key := range lister.Keys() {
		entry, err := r.kv.Get(ctx, key)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("list layouts: %w", err)
		}
		var l layout.Layout
		if err := json.Unmarshal(entry.Value(), &l); err != nil {
			slog.Warn("skipping corrupt layout record", "key", key, "err", err)
			continue
		}
		out = append(out, l)
	}
	sortBySavedAt(out)
	return out, nil
}

func sortBySavedAt(ls []layout.Layout) {
	sort.SliceStable(ls, func(i, j int) bool {
		a, b := ls[i].SavedAt, ls[j].SavedAt
		switch {
		case a == nil && b == nil:
			return ls[i].ID < ls[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return ls[i].ID < ls[j].ID
		}
		return a.After(*b)
	})
}

// Get returns the layout with id, or an error wrapping layout.ErrNotFound.
func (r *LayoutRepo) Get(ctx context.Context, id string) (l layout.Layout, err error) {
	defer func() { observeOp("get", err) }()
	l, _, err = r.get(ctx, id)
	return l, err
}

func (r *LayoutRepo) get(ctx context.Context, id string) (layout.Layout, jetstream.KeyValueEntry, error) {
	entry, err := r.kv.Get(ctx, layoutKey(id))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return layout.Layout{}, nil, fmt.Errorf("layout %q: %w", id, layout.ErrNotFound)
	}
	if err != nil {
		return layout.Layout{}, nil, fmt.Errorf("get layout %q: %w", id, err)
	}
	var l layout.Layout
	if err := json.Unmarshal(entry.Value(), &l); err != nil {
		return layout.Layout{}, nil, fmt.Errorf("decode layout %q: %w", id, err)
	}
	return l, entry, nil
}

// Save creates or replaces l. A missing id is assigned an xid; savedAt is
// always stamped with the current time.
func (r *LayoutRepo) Save(ctx context.Context, l layout.Layout, correlationID string) (_ layout.Layout, err error) {
	defer func() { observeOp("save", err) }()

	if l.ID == "" {
		l.ID = xid.New().String()
	}
	if l.Panels == nil {
		l.Panels = map[string]layout.PanelGeometry{}
	}
	now := r.now()
	l.SavedAt = &now

	data, err := json.Marshal(l)
	if err != nil {
		return layout.Layout{}, fmt.Errorf("marshal layout: %w", err)
	}
	if _, err := r.kv.Put(ctx, layoutKey(l.ID), data); err != nil {
		return layout.Layout{}, fmt.Errorf("put layout %q: %w", l.ID, err)
	}
	slog.Info("saved layout", "id", l.ID, "name", l.Name, "panels", len(l.Panels))
	r.publishSaved(ctx, l, correlationID)
	return l, nil
}

// Patch applies an RFC 7386 merge patch or RFC 6902 JSON patch to the stored
// layout. The result must still validate and keep its id. The write is
// conditional on the revision that was read.
func (r *LayoutRepo) Patch(ctx context.Context, id string, patch []byte, typ messages.PatchType, correlationID string) (_ layout.Layout, err error) {
	defer func() { observeOp("patch", err) }()

	_, entry, err := r.get(ctx, id)
	if err != nil {
		return layout.Layout{}, err
	}

	var patched []byte
	switch typ {
	case messages.PatchMerge, "":
		patched, err = jsonpatch.MergePatch(entry.Value(), patch)
	case messages.PatchJSONPatch:
		var p jsonpatch.Patch
		p, err = jsonpatch.DecodePatch(patch)
		if err == nil {
			patched, err = p.Apply(entry.Value())
		}
	default:
		err = fmt.Errorf("unknown patch type %q", typ)
	}
	if err != nil {
		return layout.Layout{}, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}

	l, err := DecodeLayout(patched)
	if err != nil {
		return layout.Layout{}, err
	}
	if l.ID != id {
		return layout.Layout{}, fmt.Errorf("%w: id is immutable", ErrInvalidLayout)
	}
	now := r.now()
	l.SavedAt = &now

	data, err := json.Marshal(l)
	if err != nil {
		return layout.Layout{}, fmt.Errorf("marshal layout: %w", err)
	}
	if _, err := r.kv.Update(ctx, layoutKey(id), data, entry.Revision()); err != nil {
		return layout.Layout{}, fmt.Errorf("update layout %q: %w", id, err)
	}
	slog.Info("patched layout", "id", id, "type", typ)
	r.publishSaved(ctx, l, correlationID)
	return l, nil
}

// Delete removes the layout with id, or returns an error wrapping
// layout.ErrNotFound.
func (r *LayoutRepo) Delete(ctx context.Context, id, correlationID string) (err error) {
	defer func() { observeOp("delete", err) }()

	if _, _, err := r.get(ctx, id); err != nil {
		return err
	}
	if err := r.kv.Delete(ctx, layoutKey(id)); err != nil {
		return fmt.Errorf("delete layout %q: %w", id, err)
	}
	slog.Info("deleted layout", "id", id)

	evt := messages.NewLayoutDeletedEvent(id).WithCorrelation(correlationID)
	if err := r.publisher.PublishEvent(ctx, evt); err != nil {
		slog.Warn("publish layout event", "subject", evt.Subject(), "id", id, "err", err)
	}
	return nil
}

func (r *LayoutRepo) publishSaved(ctx context.Context, l layout.Layout, correlationID string) {
	evt := messages.NewLayoutSavedEvent(l).WithCorrelation(correlationID)
	if err := r.publisher.PublishEvent(ctx, evt); err != nil {
		slog.Warn("publish layout event", "subject", evt.Subject(), "id", l.ID, "err", err)
	}
}
