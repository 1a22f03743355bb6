package layout

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrPanelNotFound is returned when a panel id does not resolve to an element.
	ErrPanelNotFound = errors.New("layout: panel not found")
	// ErrGestureActive is returned when a gesture start arrives while another
	// gesture is still in progress.
	ErrGestureActive = errors.New("layout: gesture already active")
	// ErrNotFound is returned by stores when no layout exists for an id.
	ErrNotFound = errors.New("layout: not found")
)

// Position values for PanelGeometry.Position.
const (
	PositionStatic   = "static"
	PositionAbsolute = "absolute"
)

// Display values for PanelGeometry.Display.
const (
	DisplayBlock = "block"
	DisplayNone  = "none"
)

// Default registration bounds.
const (
	DefaultMinWidth  = 200
	DefaultMinHeight = 150
)

// PanelGeometry is the live spatial state of a panel.
type PanelGeometry struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Left     float64 `json:"left"`
	Top      float64 `json:"top"`
	Position string  `json:"position"`
	Display  string  `json:"display"`
	ZIndex   string  `json:"zIndex"`
}

// Right returns the x coordinate of the panel's right edge.
func (g PanelGeometry) Right() float64 { return g.Left + g.Width }

// Bottom returns the y coordinate of the panel's bottom edge.
func (g PanelGeometry) Bottom() float64 { return g.Top + g.Height }

// Layout is a named, persistable snapshot of panel geometry keyed by panel id.
type Layout struct {
	ID      string                   `json:"id"`
	Name    string                   `json:"name"`
	Panels  map[string]PanelGeometry `json:"panels"`
	SavedAt *time.Time               `json:"savedAt,omitempty"`
}

// Clone returns a deep copy of l.
func (l Layout) Clone() Layout {
	out := l
	out.Panels = make(map[string]PanelGeometry, len(l.Panels))
	for id, g := range l.Panels {
		out.Panels[id] = g
	}
	if l.SavedAt != nil {
		t := *l.SavedAt
		out.SavedAt = &t
	}
	return out
}

// PanelConfig is the registration-time contract for one panel. Bounds are
// fixed for the panel's lifetime. A zero MaxWidth or MaxHeight is unbounded.
type PanelConfig struct {
	ID        string
	Resizable bool
	Movable   bool
	MinWidth  float64
	MinHeight float64
	MaxWidth  float64
	MaxHeight float64
}

// PanelOption customises a PanelConfig at registration.
type PanelOption func(*PanelConfig)

// WithResizable toggles the eight resize handles.
func WithResizable(on bool) PanelOption {
	return func(c *PanelConfig) { c.Resizable = on }
}

// WithMovable toggles the drag handle.
func WithMovable(on bool) PanelOption {
	return func(c *PanelConfig) { c.Movable = on }
}

// WithMinSize sets the lower size bounds. Zero keeps the default.
func WithMinSize(width, height float64) PanelOption {
	return func(c *PanelConfig) {
		if width > 0 {
			c.MinWidth = width
		}
		if height > 0 {
			c.MinHeight = height
		}
	}
}

// WithMaxSize sets the upper size bounds. Zero means unbounded.
func WithMaxSize(width, height float64) PanelOption {
	return func(c *PanelConfig) {
		c.MaxWidth = width
		c.MaxHeight = height
	}
}

// NewPanelConfig builds a config with the registration defaults applied.
func NewPanelConfig(id string, opts ...PanelOption) PanelConfig {
	cfg := PanelConfig{
		ID:        id,
		Resizable: true,
		Movable:   true,
		MinWidth:  DefaultMinWidth,
		MinHeight: DefaultMinHeight,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// clampWidth restricts w to [MinWidth, MaxWidth].
func (c PanelConfig) clampWidth(w float64) float64 {
	return clampSize(w, c.MinWidth, c.MaxWidth)
}

// clampHeight restricts h to [MinHeight, MaxHeight].
func (c PanelConfig) clampHeight(h float64) float64 {
	return clampSize(h, c.MinHeight, c.MaxHeight)
}

func clampSize(v, lo, hi float64) float64 {
	if v < lo {
		v = lo
	}
	if hi > 0 && v > hi {
		v = hi
	}
	return v
}

// Direction identifies one of the eight resize edges or corners.
type Direction string

const (
	North     Direction = "n"
	East      Direction = "e"
	South     Direction = "s"
	West      Direction = "w"
	NorthEast Direction = "ne"
	SouthEast Direction = "se"
	SouthWest Direction = "sw"
	NorthWest Direction = "nw"
)

// Directions lists every resize direction in handle creation order.
var Directions = []Direction{North, East, South, West, NorthEast, SouthEast, SouthWest, NorthWest}

// Valid reports whether d is one of the eight known directions.
func (d Direction) Valid() bool {
	for _, known := range Directions {
		if d == known {
			return true
		}
	}
	return false
}

func (d Direction) has(edge byte) bool { return strings.IndexByte(string(d), edge) >= 0 }

// HandleName returns the element handle name for the direction.
func (d Direction) HandleName() string { return ResizeHandlePrefix + string(d) }

// Point is a pointer position in viewport pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Size is a width/height pair, used for the viewport.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PrimaryButton is the button index of a primary (left) press.
const PrimaryButton = 0

// PointerEvent is a pointer press, move or release delivered by the host.
type PointerEvent struct {
	X      float64
	Y      float64
	Button int
}

// Point returns the event position.
func (e PointerEvent) Point() Point { return Point{X: e.X, Y: e.Y} }
