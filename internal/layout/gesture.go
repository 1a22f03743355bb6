package layout

// GestureState is exactly one of Idle, Dragging or Resizing. A manager holds
// at most one non-idle gesture at any time.
type GestureState interface {
	isGesture()
}

// Idle means no pointer gesture is in progress.
type Idle struct{}

// Dragging is an in-progress move of Target.
type Dragging struct {
	Target string
	Anchor Anchor
}

// Resizing is an in-progress resize of Target along Direction.
type Resizing struct {
	Target    string
	Anchor    Anchor
	Direction Direction
}

func (Idle) isGesture()     {}
func (Dragging) isGesture() {}
func (Resizing) isGesture() {}

// Element flags toggled for gesture feedback.
const (
	FlagDragging = "dragging"
	FlagResizing = "resizing"
)

// Cursor values set on the surface while a gesture runs.
const (
	CursorDefault = ""
	CursorMove    = "move"
)

func isIdle(g GestureState) bool {
	_, ok := g.(Idle)
	return ok
}
