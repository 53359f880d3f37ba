// Package viewport tracks the visible sub-range of a chart under pan and zoom
// gestures. A controller starts in Auto showing the full bounds, moves to
// Manual on the first real gesture, and returns to Auto on Reset or when new
// bounds replace the old ones. Visible ranges never leave the bounds.
package viewport

import (
	"errors"
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

var (
	ErrRangeDegenerate = errors.New("zoom would produce a degenerate range")
	ErrInvalidGesture  = errors.New("invalid gesture")
	ErrInvalidOptions  = errors.New("invalid viewport options")
	ErrEmptyBounds     = errors.New("bounds have no extent")
)

// relative tolerance when comparing a span against the minimum span
const spanTolerance = 1e-9

type Mode int

const (
	Auto Mode = iota
	Manual
)

func (m Mode) String() string {
	switch m {
	case Auto:
		return "auto"
	case Manual:
		return "manual"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Axis selects which axes a zoom gesture applies to.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisXY
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisXY:
		return "xy"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// ParseAxis parses "x", "y" or "xy". An empty string is the x axis.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "", "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "xy":
		return AxisXY, nil
	default:
		return AxisX, fmt.Errorf("axis %q, %w", s, ErrInvalidGesture)
	}
}

// State is a snapshot of the viewport. In Auto mode X and Y equal the full
// bounds and are serialized as "auto". ZoomFactor is the x-axis zoom.
type State struct {
	Mode       Mode
	X          Range
	Y          Range
	ZoomFactor float64
}

type stateJSON struct {
	Mode       Mode        `json:"mode"`
	XRange     interface{} `json:"x_range"`
	YRange     interface{} `json:"y_range"`
	ZoomFactor float64     `json:"zoom_factor"`
}

func (s State) MarshalJSON() ([]byte, error) {
	out := stateJSON{
		Mode:       s.Mode,
		XRange:     s.X,
		YRange:     s.Y,
		ZoomFactor: s.ZoomFactor,
	}
	if s.Mode == Auto {
		out.XRange = "auto"
		out.YRange = "auto"
	}
	return json.Marshal(out)
}

// PanGesture is a pointer drag in pixels over a plot of Width x Height
// pixels. Positive DX drags right, positive DY drags down.
type PanGesture struct {
	DX     float64
	DY     float64
	Width  float64
	Height float64
}

// Focus is a data-space zoom anchor.
type Focus struct {
	X float64
	Y float64
}

// ZoomGesture multiplies the zoom factor by Factor, so a factor above one
// narrows the visible span. A nil Focus anchors at the visible center.
type ZoomGesture struct {
	Factor float64
	Axis   Axis
	Focus  *Focus
}

// Controller is the viewport state machine for one set of bounds. It is not
// safe for concurrent use.
type Controller struct {
	opt    *Options
	bounds Bounds
	state  State
}

// New returns a controller in Auto mode over bounds. If no options are
// provided a default is used.
func New(bounds Bounds, opt *Options) (*Controller, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if err := opt.validate(); err != nil {
		return nil, err
	}
	c := &Controller{opt: opt}
	if _, err := c.Replace(bounds); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Controller) Options() *Options {
	return c.opt
}

func (c *Controller) Bounds() Bounds {
	return c.bounds
}

func (c *Controller) State() State {
	return c.state
}

// MinSpan returns the smallest span allowed on each axis.
func (c *Controller) MinSpan() (float64, float64) {
	return c.bounds.X.Span() / c.opt.MaxZoom, c.bounds.Y.Span() / c.opt.MaxZoom
}

// Reset returns to Auto over the full bounds.
func (c *Controller) Reset() State {
	c.state = State{
		Mode:       Auto,
		X:          c.bounds.X,
		Y:          c.bounds.Y,
		ZoomFactor: 1,
	}
	return c.state
}

// Replace swaps in new bounds and resets to Auto. An axis with no extent is
// widened to a unit span around its value.
func (c *Controller) Replace(bounds Bounds) (State, error) {
	bounds.X = bounds.X.widen()
	bounds.Y = bounds.Y.widen()
	if err := bounds.validate(); err != nil {
		return c.state, err
	}
	c.bounds = bounds
	return c.Reset(), nil
}

// Pan translates the visible range. In Auto a drag shorter than the drag
// threshold is ignored.
func (c *Controller) Pan(g PanGesture) (State, error) {
	if !(g.Width > 0) || !(g.Height > 0) || !finite(g.DX, g.DY, g.Width, g.Height) {
		return c.state, fmt.Errorf("pan over %gx%g plot, %w", g.Width, g.Height, ErrInvalidGesture)
	}
	if c.state.Mode == Auto && math.Hypot(g.DX, g.DY) <= c.opt.DragThreshold {
		return c.state, nil
	}

	dx := -g.DX * c.state.X.Span() / g.Width
	dy := g.DY * c.state.Y.Span() / g.Height

	c.state.Mode = Manual
	c.state.X = c.state.X.shift(dx, c.bounds.X)
	c.state.Y = c.state.Y.shift(dy, c.bounds.Y)
	return c.state, nil
}

// Zoom scales the visible span around the focus. Zooming out past the full
// range clamps to it. Zooming in past MaxZoom clamps to the minimum span, and
// a zoom-in on axes already at the minimum span is rejected with
// ErrRangeDegenerate leaving the state unchanged.
func (c *Controller) Zoom(g ZoomGesture) (State, error) {
	if !(g.Factor > 0) || !finite(g.Factor) {
		return c.state, fmt.Errorf("zoom factor %g, %w", g.Factor, ErrInvalidGesture)
	}
	if g.Axis != AxisX && g.Axis != AxisY && g.Axis != AxisXY {
		return c.state, fmt.Errorf("%s, %w", g.Axis, ErrInvalidGesture)
	}
	if g.Focus != nil && !finite(g.Focus.X, g.Focus.Y) {
		return c.state, fmt.Errorf("zoom focus, %w", ErrInvalidGesture)
	}

	minX, minY := c.MinSpan()
	zoomX := g.Axis == AxisX || g.Axis == AxisXY
	zoomY := g.Axis == AxisY || g.Axis == AxisXY

	if g.Factor > 1 {
		atMin := true
		if zoomX && !atMinimum(c.state.X.Span(), minX) {
			atMin = false
		}
		if zoomY && !atMinimum(c.state.Y.Span(), minY) {
			atMin = false
		}
		if atMin {
			return c.state, fmt.Errorf("zoom factor %g at max zoom %g, %w", g.Factor, c.opt.MaxZoom, ErrRangeDegenerate)
		}
	}

	next := c.state
	next.Mode = Manual
	if zoomX {
		focus := next.X.Center()
		if g.Focus != nil {
			focus = g.Focus.X
		}
		next.X = scale(next.X, c.bounds.X, g.Factor, focus, minX)
	}
	if zoomY {
		focus := next.Y.Center()
		if g.Focus != nil {
			focus = g.Focus.Y
		}
		next.Y = scale(next.Y, c.bounds.Y, g.Factor, focus, minY)
	}
	next.ZoomFactor = c.bounds.X.Span() / next.X.Span()
	if next.ZoomFactor < 1 {
		next.ZoomFactor = 1
	}
	c.state = next
	return c.state, nil
}

// scale narrows or widens r by factor keeping focus at the same relative
// position, then clamps the result inside bounds.
func scale(r, bounds Range, factor, focus, minSpan float64) Range {
	span := r.Span() / factor
	if span < minSpan {
		span = minSpan
	}
	if span >= bounds.Span() {
		return bounds
	}
	focus = math.Min(math.Max(focus, r.Min), r.Max)
	frac := (focus - r.Min) / r.Span()
	newMin := focus - frac*span
	out := Range{Min: newMin, Max: newMin + span}
	return out.shift(0, bounds)
}

func atMinimum(span, minSpan float64) bool {
	return span <= minSpan*(1+spanTolerance)
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
