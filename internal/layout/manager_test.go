package layout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failingRemote returns err from every call.
type failingRemote struct{ err error }

func (r failingRemote) List(context.Context) ([]Layout, error)        { return nil, r.err }
func (r failingRemote) Get(context.Context, string) (Layout, error)   { return Layout{}, r.err }
func (r failingRemote) Save(context.Context, Layout) (Layout, error)  { return Layout{}, r.err }
func (r failingRemote) Delete(context.Context, string) error          { return r.err }

// memoryRemote is a working RemoteStore backed by a map.
type memoryRemote struct {
	mu      sync.Mutex
	layouts map[string]Layout
	now     time.Time
}

func newMemoryRemote() *memoryRemote {
	return &memoryRemote{layouts: make(map[string]Layout), now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (r *memoryRemote) List(context.Context) ([]Layout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Layout, 0, len(r.layouts))
	for _, l := range r.layouts {
		out = append(out, l.Clone())
	}
	return out, nil
}

func (r *memoryRemote) Get(_ context.Context, id string) (Layout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.layouts[id]
	if !ok {
		return Layout{}, ErrNotFound
	}
	return l.Clone(), nil
}

func (r *memoryRemote) Save(_ context.Context, l Layout) (Layout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l = l.Clone()
	t := r.now
	l.SavedAt = &t
	r.layouts[l.ID] = l
	return l.Clone(), nil
}

func (r *memoryRemote) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.layouts[id]; !ok {
		return ErrNotFound
	}
	delete(r.layouts, id)
	return nil
}

var errOffline = errors.New("connection refused")

type fixture struct {
	surface *MemorySurface
	local   *MemoryLocalStore
	mgr     *Manager
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	surface := NewMemorySurface(Size{Width: 1000, Height: 800})
	surface.AddElement("sidebar", PanelGeometry{Left: 0, Top: 0, Width: 300, Height: 600, Position: PositionStatic, Display: DisplayBlock}, true)
	surface.AddElement("editor", PanelGeometry{Left: 300, Top: 0, Width: 500, Height: 600, Position: PositionStatic, Display: DisplayBlock}, false)

	local := NewMemoryLocalStore()
	base := []Option{
		WithLogger(discardLogger()),
		WithLocalStore(local),
		WithAutoSaveDelay(time.Hour),
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
	}
	mgr := New(surface, append(base, opts...)...)
	t.Cleanup(mgr.Close)
	return &fixture{surface: surface, local: local, mgr: mgr}
}

func (f *fixture) localLayout(t *testing.T, key string) Layout {
	t.Helper()
	data, ok, err := f.local.Get(key)
	require.NoError(t, err)
	require.True(t, ok, "local key %q missing", key)
	var l Layout
	require.NoError(t, json.Unmarshal(data, &l))
	return l
}

func TestRegisterPanel_MissingElement(t *testing.T) {
	f := newFixture(t)

	err := f.mgr.RegisterPanel("terminal")
	require.ErrorIs(t, err, ErrPanelNotFound)
	_, ok := f.mgr.Config("terminal")
	assert.False(t, ok)
}

func TestRegisterPanel_CreatesHandlesOnce(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mgr.RegisterPanel("editor"))
	require.NoError(t, f.mgr.RegisterPanel("editor"))

	handles := f.surface.MemoryElement("editor").Handles()
	require.Len(t, handles, 9)
	assert.Equal(t, DragHandleName, handles[0])
	for i, dir := range Directions {
		assert.Equal(t, dir.HandleName(), handles[i+1])
	}
}

func TestRegisterPanel_HeaderIsDragSurface(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mgr.RegisterPanel("sidebar"))
	el := f.surface.MemoryElement("sidebar")
	assert.Nil(t, el.MemoryHandle(DragHandleName))
	assert.Len(t, el.Handles(), 8)

	require.True(t, el.HeaderHandle().Press(PointerEvent{X: 10, Y: 10}))
	_, dragging := f.mgr.Gesture().(Dragging)
	assert.True(t, dragging)
}

func TestRegisterPanel_Options(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mgr.RegisterPanel("editor", WithResizable(false)))
	assert.Equal(t, []string{DragHandleName}, f.surface.MemoryElement("editor").Handles())

	require.NoError(t, f.mgr.RegisterPanel("sidebar", WithMovable(false), WithMinSize(250, 0)))
	cfg, ok := f.mgr.Config("sidebar")
	require.True(t, ok)
	assert.False(t, cfg.Movable)
	assert.Equal(t, 250.0, cfg.MinWidth)
	assert.Equal(t, float64(DefaultMinHeight), cfg.MinHeight)
}

func TestRegisterPanel_AgainKeepsLiveGeometry(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mgr.RegisterPanel("editor"))
	el := f.surface.MemoryElement("editor")

	f.mgr.ApplyLayout(Layout{ID: "x", Panels: map[string]PanelGeometry{
		"editor": {Left: 10, Top: 10, Width: 400, Height: 300, Position: PositionAbsolute},
	}})
	require.NoError(t, f.mgr.StartDrag("editor", PointerEvent{X: 20, Y: 20}))
	f.mgr.PointerMove(PointerEvent{X: 120, Y: 70})
	f.mgr.PointerUp(PointerEvent{X: 120, Y: 70})
	before := el.Geometry()
	require.Equal(t, 110.0, before.Left)
	require.Equal(t, 60.0, before.Top)

	require.NoError(t, f.mgr.RegisterPanel("editor"))
	assert.Equal(t, before, el.Geometry())
}

func TestRegisterPanel_LateRegistrationTakesCurrentLayout(t *testing.T) {
	f := newFixture(t)
	f.mgr.ApplyLayout(Layout{ID: "x", Panels: map[string]PanelGeometry{
		"sidebar": {Left: 5, Top: 6, Width: 250, Height: 500, Position: PositionAbsolute},
	}})

	require.NoError(t, f.mgr.RegisterPanel("sidebar"))
	g := f.surface.MemoryElement("sidebar").Geometry()
	assert.Equal(t, 5.0, g.Left)
	assert.Equal(t, 250.0, g.Width)
}

func TestDragLifecycle(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mgr.RegisterPanel("editor"))
	el := f.surface.MemoryElement("editor")

	require.True(t, el.MemoryHandle(DragHandleName).Press(PointerEvent{X: 310, Y: 10}))
	assert.True(t, el.Flag(FlagDragging))
	assert.Equal(t, CursorMove, f.surface.Cursor())
	assert.False(t, f.surface.TextSelection())
	assert.Equal(t, PositionAbsolute, el.Geometry().Position)

	f.mgr.PointerMove(PointerEvent{X: 360, Y: 60})
	assert.Equal(t, 350.0, el.Geometry().Left)
	assert.Equal(t, 50.0, el.Geometry().Top)

	// Far outside the viewport on every move.
	f.mgr.PointerMove(PointerEvent{X: 5000, Y: 5000})
	assert.Equal(t, 500.0, el.Geometry().Left)
	assert.Equal(t, 200.0, el.Geometry().Top)

	f.mgr.PointerUp(PointerEvent{X: 5000, Y: 5000})
	assert.False(t, el.Flag(FlagDragging))
	assert.Equal(t, CursorDefault, f.surface.Cursor())
	assert.True(t, f.surface.TextSelection())
	assert.Equal(t, Idle{}, f.mgr.Gesture())
}

func TestStartDrag_IgnoresNonPrimaryButton(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mgr.RegisterPanel("editor"))

	require.NoError(t, f.mgr.StartDrag("editor", PointerEvent{Button: 2}))
	assert.Equal(t, Idle{}, f.mgr.Gesture())
	assert.False(t, f.surface.MemoryElement("editor").Overridden())
}

func TestSecondGestureStartIsIgnored(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mgr.RegisterPanel("editor"))
	require.NoError(t, f.mgr.RegisterPanel("sidebar"))

	require.NoError(t, f.mgr.StartDrag("editor", PointerEvent{X: 310, Y: 10}))
	before := f.mgr.Gesture()

	err := f.mgr.StartResize("sidebar", East, PointerEvent{X: 300, Y: 300})
	require.ErrorIs(t, err, ErrGestureActive)
	err = f.mgr.StartDrag("sidebar", PointerEvent{X: 10, Y: 10})
	require.ErrorIs(t, err, ErrGestureActive)

	assert.Equal(t, before, f.mgr.Gesture())
	assert.False(t, f.surface.MemoryElement("sidebar").Flag(FlagResizing))

	f.mgr.PointerMove(PointerEvent{X: 320, Y: 20})
	assert.Equal(t, 310.0, f.surface.MemoryElement("editor").Geometry().Left)
	assert.False(t, f.surface.MemoryElement("sidebar").Overridden())
}

func TestResizeSidebarClampedToMaxWidth(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mgr.RegisterPanel("sidebar", WithMinSize(200, 0), WithMaxSize(500, 0)))
	el := f.surface.MemoryElement("sidebar")

	require.True(t, el.MemoryHandle(East.HandleName()).Press(PointerEvent{X: 300, Y: 300}))
	assert.True(t, el.Flag(FlagResizing))
	assert.False(t, f.surface.TextSelection())

	f.mgr.PointerMove(PointerEvent{X: 1300, Y: 300})
	f.mgr.PointerUp(PointerEvent{X: 1300, Y: 300})

	assert.Equal(t, 500.0, el.Geometry().Width)
	assert.False(t, el.Flag(FlagResizing))
	assert.True(t, f.surface.TextSelection())
}

func TestStartResize_UnknownDirection(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mgr.RegisterPanel("editor"))

	require.Error(t, f.mgr.StartResize("editor", Direction("x"), PointerEvent{}))
	assert.Equal(t, Idle{}, f.mgr.Gesture())
}

func TestApplyCurrentLayoutIsNoOp(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mgr.RegisterPanel("editor"))
	require.NoError(t, f.mgr.RegisterPanel("sidebar"))

	require.NoError(t, f.mgr.StartDrag("editor", PointerEvent{X: 300, Y: 0}))
	f.mgr.PointerMove(PointerEvent{X: 333.5, Y: 41.25})
	f.mgr.PointerUp(PointerEvent{})

	before := f.mgr.CurrentLayout()
	f.mgr.ApplyLayout(before)
	after := f.mgr.CurrentLayout()

	assert.Equal(t, before.Panels, after.Panels)
}

func TestCurrentLayout_GeneratedIdentity(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mgr.RegisterPanel("editor"))

	l := f.mgr.CurrentLayout()
	assert.Equal(t, "custom-1700000000000", l.ID)
	assert.Equal(t, DefaultLayoutName, l.Name)
	assert.Contains(t, l.Panels, "editor")
	assert.NotContains(t, l.Panels, "sidebar")
}

func TestSaveLayout_FallsBackToLocalStorage(t *testing.T) {
	f := newFixture(t, WithRemoteStore(failingRemote{err: errOffline}))
	require.NoError(t, f.mgr.RegisterPanel("editor"))

	saved, err := f.mgr.SaveLayout(context.Background(), "Foo")
	require.NoError(t, err)
	assert.Equal(t, "foo", saved.ID)
	assert.Equal(t, "Foo", saved.Name)

	assert.Equal(t, saved, f.localLayout(t, "layout-foo"))
	assert.Equal(t, saved, f.localLayout(t, LastLayoutKey))

	current, ok := f.mgr.Current()
	require.True(t, ok)
	assert.Equal(t, "foo", current.ID)
}

func TestSaveLayout_BlankNameGetsGeneratedID(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mgr.RegisterPanel("editor"))

	saved, err := f.mgr.SaveLayout(context.Background(), " \t ")
	require.NoError(t, err)
	assert.Equal(t, "custom-1700000000000", saved.ID)
	assert.Equal(t, DefaultLayoutName, saved.Name)

	saved, err = f.mgr.SaveLayout(context.Background(), "  Trimmed Name ")
	require.NoError(t, err)
	assert.Equal(t, "trimmed-name", saved.ID)
}

func TestLayouts_FromLocalStorage(t *testing.T) {
	f := newFixture(t, WithRemoteStore(failingRemote{err: errOffline}))
	require.NoError(t, f.mgr.RegisterPanel("editor"))
	ctx := context.Background()

	_, err := f.mgr.SaveLayout(ctx, "A")
	require.NoError(t, err)
	_, err = f.mgr.SaveLayout(ctx, "B")
	require.NoError(t, err)

	for range 2 {
		layouts := f.mgr.Layouts(ctx)
		require.Len(t, layouts, 2)
		assert.Equal(t, "a", layouts[0].ID)
		assert.Equal(t, "A", layouts[0].Name)
		assert.Equal(t, "b", layouts[1].ID)
		assert.Equal(t, "B", layouts[1].Name)
	}
}

func TestSaveLayout_RemoteRefreshesLastLayout(t *testing.T) {
	remote := newMemoryRemote()
	f := newFixture(t, WithRemoteStore(remote))
	require.NoError(t, f.mgr.RegisterPanel("editor"))

	saved, err := f.mgr.SaveLayout(context.Background(), "Debug View")
	require.NoError(t, err)
	assert.Equal(t, "debug-view", saved.ID)
	require.NotNil(t, saved.SavedAt)

	_, ok, err := f.local.Get(LocalKey("debug-view"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, saved, f.localLayout(t, LastLayoutKey))
}

func TestLoadLayout_AppliesRemoteLayout(t *testing.T) {
	remote := newMemoryRemote()
	f := newFixture(t, WithRemoteStore(remote))
	require.NoError(t, f.mgr.RegisterPanel("editor"))
	ctx := context.Background()

	_, err := remote.Save(ctx, Layout{ID: "wide", Name: "Wide", Panels: map[string]PanelGeometry{
		"editor":  {Left: 10, Top: 20, Width: 900, Height: 700, Position: PositionAbsolute},
		"unknown": {Width: 1},
	}})
	require.NoError(t, err)

	l, ok := f.mgr.LoadLayout(ctx, "wide")
	require.True(t, ok)
	assert.Equal(t, "Wide", l.Name)
	assert.Equal(t, 900.0, f.surface.MemoryElement("editor").Geometry().Width)

	current, ok := f.mgr.Current()
	require.True(t, ok)
	assert.Equal(t, "wide", current.ID)
}

func TestLoadLayout_RemoteMissFallsBackToLocal(t *testing.T) {
	f := newFixture(t, WithRemoteStore(newMemoryRemote()))
	require.NoError(t, f.mgr.RegisterPanel("editor"))

	data, err := json.Marshal(Layout{ID: "offline", Name: "Offline", Panels: map[string]PanelGeometry{
		"editor": {Width: 321, Height: 222},
	}})
	require.NoError(t, err)
	require.NoError(t, f.local.Set(LocalKey("offline"), data))

	_, ok := f.mgr.LoadLayout(context.Background(), "offline")
	require.True(t, ok)
	assert.Equal(t, 321.0, f.surface.MemoryElement("editor").Geometry().Width)
}

func TestLoadLayout_Missing(t *testing.T) {
	f := newFixture(t, WithRemoteStore(failingRemote{err: errOffline}))
	require.NoError(t, f.mgr.RegisterPanel("editor"))

	_, ok := f.mgr.LoadLayout(context.Background(), "nope")
	assert.False(t, ok)
	assert.False(t, f.surface.MemoryElement("editor").Overridden())
}

func TestDeleteLayout(t *testing.T) {
	remote := newMemoryRemote()
	f := newFixture(t, WithRemoteStore(remote))
	require.NoError(t, f.mgr.RegisterPanel("editor"))
	ctx := context.Background()

	_, err := f.mgr.SaveLayout(ctx, "Gone")
	require.NoError(t, err)
	assert.True(t, f.mgr.DeleteLayout(ctx, "gone"))
	_, err = remote.Get(ctx, "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteLayout_Offline(t *testing.T) {
	f := newFixture(t, WithRemoteStore(failingRemote{err: errOffline}))
	require.NoError(t, f.mgr.RegisterPanel("editor"))
	ctx := context.Background()

	_, err := f.mgr.SaveLayout(ctx, "Gone")
	require.NoError(t, err)
	assert.True(t, f.mgr.DeleteLayout(ctx, "gone"))
	_, ok, err := f.local.Get(LocalKey("gone"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResetToDefault(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mgr.RegisterPanel("editor"))
	el := f.surface.MemoryElement("editor")

	f.mgr.ApplyLayout(Layout{ID: "x", Panels: map[string]PanelGeometry{
		"editor": {Left: 1, Top: 2, Width: 333, Height: 444, Position: PositionAbsolute, Display: DisplayNone, ZIndex: "5"},
	}})
	f.mgr.ResetToDefault()

	g := el.Geometry()
	assert.Equal(t, 300.0, g.Left)
	assert.Equal(t, 500.0, g.Width)
	assert.Equal(t, PositionStatic, g.Position)
	assert.Equal(t, DisplayNone, g.Display)
	assert.Equal(t, "5", g.ZIndex)
}

func TestAutoSaveWritesLastLayoutOnly(t *testing.T) {
	f := newFixture(t, WithRemoteStore(newMemoryRemote()))
	require.NoError(t, f.mgr.RegisterPanel("editor"))

	require.NoError(t, f.mgr.StartDrag("editor", PointerEvent{X: 300, Y: 0}))
	f.mgr.PointerMove(PointerEvent{X: 350, Y: 0})
	f.mgr.PointerUp(PointerEvent{})
	f.mgr.Close()

	last := f.localLayout(t, LastLayoutKey)
	assert.Equal(t, 350.0, last.Panels["editor"].Left)

	keys, err := f.local.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{LastLayoutKey}, keys)
}

func TestAutoSaveFiresAfterDelay(t *testing.T) {
	f := newFixture(t, WithAutoSaveDelay(10*time.Millisecond))
	require.NoError(t, f.mgr.RegisterPanel("editor"))

	f.mgr.ViewportResized()
	assert.Eventually(t, func() bool {
		_, ok, _ := f.local.Get(LastLayoutKey)
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestPersist_ReplacesPendingAutoSave(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mgr.RegisterPanel("editor"))

	f.mgr.ViewportResized()
	f.mgr.ResetToDefault()
	require.NoError(t, f.mgr.Persist())

	last := f.localLayout(t, LastLayoutKey)
	assert.Equal(t, 300.0, last.Panels["editor"].Left)
	assert.Equal(t, PositionStatic, last.Panels["editor"].Position)
}

func TestNew_RestoresLastLayout(t *testing.T) {
	local := NewMemoryLocalStore()
	data, err := json.Marshal(Layout{ID: "restored", Name: "Restored", Panels: map[string]PanelGeometry{
		"editor": {Left: 40, Top: 30, Width: 400, Height: 300, Position: PositionAbsolute},
	}})
	require.NoError(t, err)
	require.NoError(t, local.Set(LastLayoutKey, data))

	surface := NewMemorySurface(Size{Width: 1000, Height: 800})
	surface.AddElement("editor", PanelGeometry{Width: 500, Height: 600}, false)
	mgr := New(surface, WithLogger(discardLogger()), WithLocalStore(local))
	defer mgr.Close()

	// Panels registered after startup pick up the restored geometry.
	require.NoError(t, mgr.RegisterPanel("editor"))
	assert.Equal(t, 400.0, surface.MemoryElement("editor").Geometry().Width)

	l := mgr.CurrentLayout()
	assert.Equal(t, "restored", l.ID)
	assert.Equal(t, "Restored", l.Name)
}

func TestNew_CorruptLastLayoutIgnored(t *testing.T) {
	local := NewMemoryLocalStore()
	require.NoError(t, local.Set(LastLayoutKey, []byte("{not json")))

	surface := NewMemorySurface(Size{Width: 1000, Height: 800})
	mgr := New(surface, WithLogger(discardLogger()), WithLocalStore(local))
	defer mgr.Close()

	_, ok := mgr.Current()
	assert.False(t, ok)
}
