package viewport

import "math"

const (
	DefaultDragThreshold    = 5.0
	DefaultMaxZoom          = 1000.0
	DefaultWheelSensitivity = 0.002
	DefaultPadding          = 0.05
)

// Options configures gesture handling and bounds.
type Options struct {
	// DragThreshold is the pixel distance a pan must exceed to leave Auto.
	DragThreshold float64
	// MaxZoom bounds the zoom factor. The smallest visible span on an axis is
	// the original span divided by MaxZoom.
	MaxZoom float64
	// WheelSensitivity scales wheel deltas into zoom factors.
	WheelSensitivity float64
	// Padding widens the y bounds by this fraction of their span on each side.
	Padding float64
}

func NewDefaultOptions() *Options {
	return &Options{
		DragThreshold:    DefaultDragThreshold,
		MaxZoom:          DefaultMaxZoom,
		WheelSensitivity: DefaultWheelSensitivity,
		Padding:          DefaultPadding,
	}
}

func (o *Options) validate() error {
	if o.DragThreshold < 0 || math.IsNaN(o.DragThreshold) {
		return ErrInvalidOptions
	}
	if o.MaxZoom < 1 || math.IsInf(o.MaxZoom, 0) || math.IsNaN(o.MaxZoom) {
		return ErrInvalidOptions
	}
	if o.WheelSensitivity <= 0 || o.Padding < 0 {
		return ErrInvalidOptions
	}
	return nil
}

// WheelFactor converts a wheel delta into a zoom factor. Negative deltas
// (scrolling up) zoom in.
func (o *Options) WheelFactor(delta float64) float64 {
	return math.Exp(-delta * o.WheelSensitivity)
}

// PinchFactor converts the previous and current distance between two touch
// points into a zoom factor. Spreading the fingers zooms in.
func PinchFactor(prev, cur float64) float64 {
	if prev <= 0 || cur <= 0 {
		return 0
	}
	return cur / prev
}
