// Package layout manages draggable, resizable UI panels: registration, the
// single pointer gesture that moves or resizes one panel at a time, and the
// persistence of named layouts to a remote store with a local fallback.
package layout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultAutoSaveDelay is the quiet period before an auto-save runs.
const DefaultAutoSaveDelay = time.Second

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithRemoteStore sets the first persistence tier. Without one every
// operation goes straight to local storage.
func WithRemoteStore(r RemoteStore) Option {
	return func(m *Manager) { m.remote = r }
}

// WithLocalStore sets the fallback tier. The default is in memory.
func WithLocalStore(l LocalStore) Option {
	return func(m *Manager) { m.local = l }
}

// WithAutoSaveDelay overrides DefaultAutoSaveDelay.
func WithAutoSaveDelay(d time.Duration) Option {
	return func(m *Manager) { m.autoSaveDelay = d }
}

// WithClock sets the time source used for generated layout ids.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

type panel struct {
	cfg PanelConfig
	el  Element
}

// Manager owns the registered panels, the gesture state and layout
// persistence for one Surface. Methods are safe for concurrent use; the
// auto-save runs on its own goroutine.
type Manager struct {
	surface       Surface
	logger        *slog.Logger
	remote        RemoteStore
	local         LocalStore
	autoSaveDelay time.Duration
	now           func() time.Time

	store    *TieredStore
	autosave *Debouncer

	mu      sync.Mutex
	panels  map[string]*panel
	gesture GestureState
	current *Layout
}

// New returns a manager for surface and restores last-layout from local
// storage, if present.
func New(surface Surface, opts ...Option) *Manager {
	m := &Manager{
		surface:       surface,
		logger:        slog.Default(),
		autoSaveDelay: DefaultAutoSaveDelay,
		now:           time.Now,
		panels:        make(map[string]*panel),
		gesture:       Idle{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.local == nil {
		m.local = NewMemoryLocalStore()
	}
	m.logger = m.logger.With("component", "layout")
	m.store = NewTieredStore(m.remote, m.local, m.logger)
	m.autosave = NewDebouncer(m.autoSaveDelay, m.autoSave)

	m.logger.Info("initializing layout manager")
	m.restoreLast()
	return m
}

// Close flushes a pending auto-save and stops further ones.
func (m *Manager) Close() {
	m.autosave.Flush()
	m.autosave.Stop()
}

// RegisterPanel makes the element with the given id movable and resizable
// according to opts. A missing element is logged and reported as
// ErrPanelNotFound; nothing else changes. A first registration takes the
// current layout's geometry for id; registering again keeps the live geometry
// and reuses the existing handles.
func (m *Manager) RegisterPanel(id string, opts ...PanelOption) error {
	el := m.surface.Element(id)
	if el == nil {
		m.logger.Error("panel not found", "panel", id)
		return fmt.Errorf("register %q: %w", id, ErrPanelNotFound)
	}
	cfg := NewPanelConfig(id, opts...)

	m.mu.Lock()
	_, known := m.panels[id]
	m.panels[id] = &panel{cfg: cfg, el: el}
	if !known && m.current != nil {
		if g, ok := m.current.Panels[id]; ok {
			el.SetGeometry(g)
		}
	}
	m.mu.Unlock()

	if cfg.Movable {
		m.makeMovable(el, id)
	}
	if cfg.Resizable {
		m.makeResizable(el, id)
	}
	m.logger.Info("registered panel", "panel", id, "movable", cfg.Movable, "resizable", cfg.Resizable)
	return nil
}

// makeMovable wires the drag surface: an existing drag handle, else the
// header, else a new handle placed first in the panel.
func (m *Manager) makeMovable(el Element, id string) {
	h := el.Handle(DragHandleName)
	if h == nil {
		h = el.Header()
	}
	if h == nil {
		h = el.AddHandle(DragHandleName, true)
	}
	h.OnPress(func(ev PointerEvent) {
		if err := m.StartDrag(id, ev); err != nil {
			m.logger.Debug("drag not started", "panel", id, "err", err)
		}
	})
}

func (m *Manager) makeResizable(el Element, id string) {
	for _, dir := range Directions {
		h := el.Handle(dir.HandleName())
		if h == nil {
			h = el.AddHandle(dir.HandleName(), false)
		}
		dir := dir
		h.OnPress(func(ev PointerEvent) {
			if err := m.StartResize(id, dir, ev); err != nil {
				m.logger.Debug("resize not started", "panel", id, "dir", dir, "err", err)
			}
		})
	}
}

// Config returns the registration config of a panel.
func (m *Manager) Config(id string) (PanelConfig, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.panels[id]
	if !ok {
		return PanelConfig{}, false
	}
	return p.cfg, true
}

// Gesture returns the current gesture state.
func (m *Manager) Gesture() GestureState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gesture
}

// StartDrag begins moving panel id. Non-primary presses are ignored. While
// another gesture is active the call returns ErrGestureActive and the active
// gesture is left untouched.
func (m *Manager) StartDrag(id string, ev PointerEvent) error {
	if ev.Button != PrimaryButton {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !isIdle(m.gesture) {
		return ErrGestureActive
	}
	p, ok := m.panels[id]
	if !ok {
		return fmt.Errorf("drag %q: %w", id, ErrPanelNotFound)
	}
	if !p.cfg.Movable {
		return fmt.Errorf("drag %q: panel is not movable", id)
	}

	g := p.el.Geometry()
	if g.Position != PositionAbsolute {
		g.Position = PositionAbsolute
		p.el.SetGeometry(g)
	}
	m.gesture = Dragging{Target: id, Anchor: Anchor{Pointer: ev.Point(), Geometry: g}}

	p.el.SetFlag(FlagDragging, true)
	m.surface.SetCursor(CursorMove)
	m.surface.SetTextSelection(false)
	m.logger.Debug("started dragging", "panel", id)
	return nil
}

// StartResize begins resizing panel id along dir, with the same rules as
// StartDrag.
func (m *Manager) StartResize(id string, dir Direction, ev PointerEvent) error {
	if ev.Button != PrimaryButton {
		return nil
	}
	if !dir.Valid() {
		return fmt.Errorf("resize %q: unknown direction %q", id, dir)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !isIdle(m.gesture) {
		return ErrGestureActive
	}
	p, ok := m.panels[id]
	if !ok {
		return fmt.Errorf("resize %q: %w", id, ErrPanelNotFound)
	}
	if !p.cfg.Resizable {
		return fmt.Errorf("resize %q: panel is not resizable", id)
	}

	anchor := Anchor{Pointer: ev.Point(), Geometry: p.el.Geometry()}
	m.gesture = Resizing{Target: id, Anchor: anchor, Direction: dir}

	p.el.SetFlag(FlagResizing, true)
	m.surface.SetTextSelection(false)
	m.logger.Debug("started resizing", "panel", id, "dir", dir)
	return nil
}

// PointerMove advances the active gesture. It is a no-op when idle.
func (m *Manager) PointerMove(ev PointerEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch g := m.gesture.(type) {
	case Dragging:
		if p, ok := m.panels[g.Target]; ok {
			p.el.SetGeometry(DragGeometry(g.Anchor, ev.Point(), m.surface.Viewport()))
		}
	case Resizing:
		if p, ok := m.panels[g.Target]; ok {
			p.el.SetGeometry(ResizeGeometry(g.Anchor, ev.Point(), g.Direction, p.cfg))
		}
	}
}

// PointerUp ends the active gesture and schedules an auto-save.
func (m *Manager) PointerUp(ev PointerEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch g := m.gesture.(type) {
	case Dragging:
		if p, ok := m.panels[g.Target]; ok {
			p.el.SetFlag(FlagDragging, false)
		}
		m.surface.SetCursor(CursorDefault)
		m.logger.Debug("ended dragging", "panel", g.Target)
	case Resizing:
		if p, ok := m.panels[g.Target]; ok {
			p.el.SetFlag(FlagResizing, false)
		}
		m.logger.Debug("ended resizing", "panel", g.Target)
	default:
		return
	}
	m.surface.SetTextSelection(true)
	m.gesture = Idle{}
	m.autosave.Trigger()
}

// ViewportResized schedules an auto-save.
func (m *Manager) ViewportResized() {
	m.autosave.Trigger()
}

// CurrentLayout snapshots the live geometry of every registered panel under
// the id and name of the current layout, or a generated id when there is none.
func (m *Manager) CurrentLayout() Layout {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLayoutLocked()
}

func (m *Manager) currentLayoutLocked() Layout {
	l := Layout{Panels: make(map[string]PanelGeometry, len(m.panels))}
	if m.current != nil {
		l.ID, l.Name = m.current.ID, m.current.Name
	} else {
		l.ID, l.Name = GeneratedID(m.now()), DefaultLayoutName
	}
	for id, p := range m.panels {
		l.Panels[id] = p.el.Geometry()
	}
	return l
}

// ApplyLayout writes l's geometry onto the registered panels it names and
// makes it the current layout. Unregistered ids are ignored.
func (m *Manager) ApplyLayout(l Layout) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyLocked(l)
}

func (m *Manager) applyLocked(l Layout) {
	for id, g := range l.Panels {
		if p, ok := m.panels[id]; ok {
			p.el.SetGeometry(g)
		}
	}
	c := l.Clone()
	m.current = &c
	m.logger.Info("applied layout", "id", l.ID, "name", l.Name)
}

// Current returns the current layout as last applied or saved.
func (m *Manager) Current() (Layout, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Layout{}, false
	}
	return m.current.Clone(), true
}

// SaveLayout snapshots the panels and persists the result. A non-empty name
// sets the layout name and derives its id with Slugify; a blank one gets a
// generated id. The layout is
// returned whichever tier stored it; the error is non-nil only when both
// the remote store and local storage failed.
func (m *Manager) SaveLayout(ctx context.Context, name string) (Layout, error) {
	m.mu.Lock()
	l := m.currentLayoutLocked()
	m.mu.Unlock()
	if name != "" {
		l.Name = name
		l.ID = Slugify(name)
		if l.ID == "" {
			l.Name, l.ID = DefaultLayoutName, GeneratedID(m.now())
		}
	}

	saved, tier, err := m.store.Save(ctx, l)

	m.mu.Lock()
	c := saved.Clone()
	m.current = &c
	m.mu.Unlock()

	if err != nil {
		return saved, err
	}
	m.logger.Info("saved layout", "id", saved.ID, "name", saved.Name, "tier", tier)
	return saved, nil
}

// LoadLayout fetches the layout with id and applies it. It reports false,
// without error, when no tier holds the layout.
func (m *Manager) LoadLayout(ctx context.Context, id string) (Layout, bool) {
	l, tier, ok := m.store.Get(ctx, id)
	if !ok {
		m.logger.Info("layout not found", "id", id)
		return Layout{}, false
	}
	m.mu.Lock()
	m.applyLocked(l)
	m.mu.Unlock()
	m.logger.Info("loaded layout", "id", id, "tier", tier)
	return l, true
}

// Layouts lists the saved layouts.
func (m *Manager) Layouts(ctx context.Context) []Layout {
	out, _ := m.store.List(ctx)
	return out
}

// DeleteLayout removes a saved layout and reports success.
func (m *Manager) DeleteLayout(ctx context.Context, id string) bool {
	tier, err := m.store.Delete(ctx, id)
	if err != nil {
		return false
	}
	m.logger.Info("deleted layout", "id", id, "tier", tier)
	return true
}

// ResetToDefault drops the size, offset and positioning overrides of every
// registered panel. Display and stacking are kept.
func (m *Manager) ResetToDefault() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.panels {
		before := p.el.Geometry()
		p.el.ResetGeometry()
		natural := p.el.Geometry()
		if natural.Display != before.Display || natural.ZIndex != before.ZIndex {
			natural.Display, natural.ZIndex = before.Display, before.ZIndex
			p.el.SetGeometry(natural)
		}
	}
	m.logger.Info("reset to default layout")
}

func (m *Manager) autoSave() {
	m.mu.Lock()
	l := m.currentLayoutLocked()
	m.mu.Unlock()
	if err := m.store.SaveLast(l); err != nil {
		m.logger.Error("auto-save failed", "err", err)
		return
	}
	m.logger.Debug("auto-saved layout", "id", l.ID)
}

// Persist writes the current layout to last-layout now, replacing any
// pending auto-save.
func (m *Manager) Persist() error {
	m.autosave.Cancel()
	m.mu.Lock()
	l := m.currentLayoutLocked()
	m.mu.Unlock()
	return m.store.SaveLast(l)
}

func (m *Manager) restoreLast() {
	l, ok := m.store.Last()
	if !ok {
		return
	}
	m.mu.Lock()
	m.applyLocked(l)
	m.mu.Unlock()
	m.logger.Info("restored last layout", "id", l.ID)
}
