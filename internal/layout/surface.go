package layout

// Handle names used on panel elements.
const (
	DragHandleName     = "panel-drag-handle"
	ResizeHandlePrefix = "resize-handle-"
)

// Surface is the UI hosting the panels. Implementations own the rendering;
// the manager only reads and writes geometry through it.
type Surface interface {
	// Element returns the panel element with the given id, or nil.
	Element(id string) Element
	// Viewport returns the current viewport size.
	Viewport() Size
	// SetCursor sets the document cursor; CursorDefault clears it.
	SetCursor(cursor string)
	// SetTextSelection enables or disables document text selection.
	SetTextSelection(enabled bool)
}

// Element is the live UI representation of one panel.
type Element interface {
	ID() string
	// Geometry returns the rendered geometry.
	Geometry() PanelGeometry
	// SetGeometry writes explicit geometry overrides.
	SetGeometry(g PanelGeometry)
	// ResetGeometry drops every override, returning to the natural layout.
	ResetGeometry()
	// Header returns the element's header region, or nil if it has none.
	Header() Handle
	// Handle returns the child handle with the given name, or nil.
	Handle(name string) Handle
	// AddHandle creates a child handle, first in the element when prepend is set.
	AddHandle(name string, prepend bool) Handle
	// SetFlag toggles a state flag such as FlagDragging.
	SetFlag(flag string, on bool)
}

// Handle is a pointer-sensitive region of an element.
type Handle interface {
	Name() string
	// OnPress installs fn as the press listener, replacing any previous one.
	OnPress(fn func(PointerEvent))
}
