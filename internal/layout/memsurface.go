package layout

import "sync"

// SurfaceSnapshot is the serialisable state of a MemorySurface.
type SurfaceSnapshot struct {
	Viewport Size              `json:"viewport"`
	Panels   []ElementSnapshot `json:"panels"`
}

// ElementSnapshot is the serialisable state of one MemoryElement. Natural is
// the stylesheet-driven geometry; Geometry holds the explicit overrides, if any.
type ElementSnapshot struct {
	ID       string         `json:"id"`
	Header   bool           `json:"header,omitempty"`
	Natural  PanelGeometry  `json:"natural"`
	Geometry *PanelGeometry `json:"geometry,omitempty"`
	Handles  []string       `json:"handles,omitempty"`
}

// MemorySurface is an in-memory Surface. It is safe for concurrent use.
type MemorySurface struct {
	mu            sync.Mutex
	viewport      Size
	elements      map[string]*MemoryElement
	order         []string
	cursor        string
	textSelection bool
}

// NewMemorySurface returns an empty surface with the given viewport.
func NewMemorySurface(viewport Size) *MemorySurface {
	return &MemorySurface{
		viewport:      viewport,
		elements:      make(map[string]*MemoryElement),
		textSelection: true,
	}
}

// NewMemorySurfaceFromSnapshot rebuilds a surface from snap.
func NewMemorySurfaceFromSnapshot(snap SurfaceSnapshot) *MemorySurface {
	s := NewMemorySurface(snap.Viewport)
	for _, p := range snap.Panels {
		el := s.AddElement(p.ID, p.Natural, p.Header)
		if p.Geometry != nil {
			g := *p.Geometry
			el.override = &g
		}
		for _, name := range p.Handles {
			el.AddHandle(name, false)
		}
	}
	return s
}

// AddElement adds a panel element with the given natural geometry. An
// existing element with the same id is replaced.
func (s *MemorySurface) AddElement(id string, natural PanelGeometry, header bool) *MemoryElement {
	s.mu.Lock()
	defer s.mu.Unlock()
	el := &MemoryElement{
		surface: s,
		id:      id,
		natural: natural,
		flags:   make(map[string]bool),
	}
	if header {
		el.header = &MemoryHandle{name: "panel-header"}
	}
	if _, exists := s.elements[id]; !exists {
		s.order = append(s.order, id)
	}
	s.elements[id] = el
	return el
}

// Element implements Surface.
func (s *MemorySurface) Element(id string) Element {
	if el := s.MemoryElement(id); el != nil {
		return el
	}
	return nil
}

// MemoryElement returns the concrete element for id, or nil.
func (s *MemorySurface) MemoryElement(id string) *MemoryElement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elements[id]
}

// Viewport implements Surface.
func (s *MemorySurface) Viewport() Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// SetViewport changes the viewport size.
func (s *MemorySurface) SetViewport(v Size) {
	s.mu.Lock()
	s.viewport = v
	s.mu.Unlock()
}

// SetCursor implements Surface.
func (s *MemorySurface) SetCursor(cursor string) {
	s.mu.Lock()
	s.cursor = cursor
	s.mu.Unlock()
}

// Cursor returns the document cursor.
func (s *MemorySurface) Cursor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// SetTextSelection implements Surface.
func (s *MemorySurface) SetTextSelection(enabled bool) {
	s.mu.Lock()
	s.textSelection = enabled
	s.mu.Unlock()
}

// TextSelection reports whether document text selection is enabled.
func (s *MemorySurface) TextSelection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.textSelection
}

// Snapshot captures the surface state.
func (s *MemorySurface) Snapshot() SurfaceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := SurfaceSnapshot{Viewport: s.viewport}
	for _, id := range s.order {
		el := s.elements[id]
		p := ElementSnapshot{
			ID:      el.id,
			Header:  el.header != nil,
			Natural: el.natural,
		}
		if el.override != nil {
			g := *el.override
			p.Geometry = &g
		}
		for _, h := range el.handles {
			p.Handles = append(p.Handles, h.name)
		}
		snap.Panels = append(snap.Panels, p)
	}
	return snap
}

// MemoryElement is a panel on a MemorySurface.
type MemoryElement struct {
	surface  *MemorySurface
	id       string
	natural  PanelGeometry
	override *PanelGeometry
	header   *MemoryHandle
	handles  []*MemoryHandle
	flags    map[string]bool
}

// ID implements Element.
func (e *MemoryElement) ID() string { return e.id }

// Geometry implements Element.
func (e *MemoryElement) Geometry() PanelGeometry {
	e.surface.mu.Lock()
	defer e.surface.mu.Unlock()
	if e.override != nil {
		return *e.override
	}
	return e.natural
}

// SetGeometry implements Element.
func (e *MemoryElement) SetGeometry(g PanelGeometry) {
	e.surface.mu.Lock()
	e.override = &g
	e.surface.mu.Unlock()
}

// ResetGeometry implements Element.
func (e *MemoryElement) ResetGeometry() {
	e.surface.mu.Lock()
	e.override = nil
	e.surface.mu.Unlock()
}

// Overridden reports whether the element carries explicit geometry.
func (e *MemoryElement) Overridden() bool {
	e.surface.mu.Lock()
	defer e.surface.mu.Unlock()
	return e.override != nil
}

// Header implements Element.
func (e *MemoryElement) Header() Handle {
	e.surface.mu.Lock()
	defer e.surface.mu.Unlock()
	if e.header == nil {
		return nil
	}
	return e.header
}

// HeaderHandle returns the concrete header handle, or nil.
func (e *MemoryElement) HeaderHandle() *MemoryHandle {
	e.surface.mu.Lock()
	defer e.surface.mu.Unlock()
	return e.header
}

// Handle implements Element.
func (e *MemoryElement) Handle(name string) Handle {
	if h := e.MemoryHandle(name); h != nil {
		return h
	}
	return nil
}

// MemoryHandle returns the concrete child handle with the given name, or nil.
func (e *MemoryElement) MemoryHandle(name string) *MemoryHandle {
	e.surface.mu.Lock()
	defer e.surface.mu.Unlock()
	for _, h := range e.handles {
		if h.name == name {
			return h
		}
	}
	return nil
}

// AddHandle implements Element.
func (e *MemoryElement) AddHandle(name string, prepend bool) Handle {
	e.surface.mu.Lock()
	defer e.surface.mu.Unlock()
	h := &MemoryHandle{name: name}
	if prepend {
		e.handles = append([]*MemoryHandle{h}, e.handles...)
	} else {
		e.handles = append(e.handles, h)
	}
	return h
}

// Handles returns the child handle names in document order.
func (e *MemoryElement) Handles() []string {
	e.surface.mu.Lock()
	defer e.surface.mu.Unlock()
	names := make([]string, len(e.handles))
	for i, h := range e.handles {
		names[i] = h.name
	}
	return names
}

// SetFlag implements Element.
func (e *MemoryElement) SetFlag(flag string, on bool) {
	e.surface.mu.Lock()
	e.flags[flag] = on
	e.surface.mu.Unlock()
}

// Flag reports whether flag is set.
func (e *MemoryElement) Flag(flag string) bool {
	e.surface.mu.Lock()
	defer e.surface.mu.Unlock()
	return e.flags[flag]
}

// MemoryHandle is a handle on a MemoryElement. Press simulates a pointer press.
type MemoryHandle struct {
	name  string
	mu    sync.Mutex
	press func(PointerEvent)
}

// Name implements Handle.
func (h *MemoryHandle) Name() string { return h.name }

// OnPress implements Handle.
func (h *MemoryHandle) OnPress(fn func(PointerEvent)) {
	h.mu.Lock()
	h.press = fn
	h.mu.Unlock()
}

// Press delivers ev to the installed listener. It reports whether a listener
// was installed.
func (h *MemoryHandle) Press(ev PointerEvent) bool {
	h.mu.Lock()
	fn := h.press
	h.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(ev)
	return true
}
