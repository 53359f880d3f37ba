package forecastview

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/aouyang1/go-forecastview/normalize"
	"github.com/aouyang1/go-forecastview/quality"
	"github.com/aouyang1/go-forecastview/timedataset"
	"github.com/aouyang1/go-forecastview/viewport"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNoBundle    = errors.New("no bundle loaded")
	ErrStaleBundle = errors.New("gesture targets a bundle that has been replaced")
)

// Gesture names reported to a Recorder.
const (
	GesturePan   = "pan"
	GestureZoom  = "zoom"
	GestureReset = "reset"
)

// Recorder observes loads and gestures, typically to export metrics.
type Recorder interface {
	ObserveLoad(symbol string, points, warnings int, elapsed time.Duration, err error)
	ObserveGesture(gesture string, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveLoad(string, int, int, time.Duration, error) {}
func (nopRecorder) ObserveGesture(string, error)                      {}

// View owns exactly one active bundle and its viewport. Loading a new bundle
// swaps both at once, so a gesture always applies to a matching pair.
type View struct {
	opt        *Options
	logger     zerolog.Logger
	normalizer *normalize.Normalizer
	recorder   Recorder

	mu     sync.RWMutex
	bundle *Bundle
	ctrl   *viewport.Controller
}

// New creates a View using the provided options. If no options are provided
// a default is used.
func New(opt *Options, logger zerolog.Logger) *View {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if opt.ViewportOptions == nil {
		opt.ViewportOptions = viewport.NewDefaultOptions()
	}
	if opt.PlotOptions == nil {
		opt.PlotOptions = NewPlotOptions()
	}
	return &View{
		opt:        opt,
		logger:     logger,
		normalizer: normalize.New(logger),
		recorder:   nopRecorder{},
	}
}

func (v *View) Options() *Options {
	return v.opt
}

// SetRecorder replaces the recorder observing loads and gestures.
func (v *View) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	v.recorder = r
}

// Load aligns the series into a new bundle and replaces the active bundle and
// viewport with it. On error the previous pair is kept.
func (v *View) Load(symbol string, history, forecast *timedataset.Series, warnings []quality.Warning) (*Bundle, viewport.State, error) {
	start := time.Now()
	b, ctrl, err := v.build(symbol, history, forecast, warnings)
	if err != nil {
		v.recorder.ObserveLoad(symbol, 0, len(warnings), time.Since(start), err)
		v.logger.Warn().Err(err).Str("symbol", symbol).Msg("keeping previous bundle")
		return nil, viewport.State{}, err
	}

	v.mu.Lock()
	v.bundle = b
	v.ctrl = ctrl
	st := ctrl.State()
	v.mu.Unlock()

	v.recorder.ObserveLoad(symbol, b.Len(), len(b.Warnings), time.Since(start), nil)
	for _, w := range b.Warnings {
		v.logger.Warn().
			Str("symbol", symbol).
			Stringer("kind", w.Kind).
			Str("series", w.Series).
			Int("index", w.Index).
			Msg(w.Message)
	}
	v.logger.Info().
		Str("symbol", symbol).
		Str("bundle_id", b.ID.String()).
		Int("points", b.Len()).
		Int("warnings", len(b.Warnings)).
		Msg("loaded bundle")
	return b, st, nil
}

// LoadRecords decodes and normalizes raw payloads and loads the result. A nil
// payload is treated as an empty series.
func (v *View) LoadRecords(symbol string, historyPayload, forecastPayload []byte) (*Bundle, viewport.State, error) {
	history, forecast, warnings, err := v.normalizer.Records(historyPayload, forecastPayload)
	if err != nil {
		v.recorder.ObserveLoad(symbol, 0, 0, 0, err)
		return nil, viewport.State{}, fmt.Errorf("unable to normalize %s, %w", symbol, err)
	}
	return v.Load(symbol, history, forecast, warnings)
}

func (v *View) build(symbol string, history, forecast *timedataset.Series, warnings []quality.Warning) (*Bundle, *viewport.Controller, error) {
	b, err := Align(symbol, history, forecast, warnings, v.opt)
	if err != nil {
		return nil, nil, err
	}
	bounds, err := viewport.NewBounds(b.Timeline, v.opt.ViewportOptions.Padding, b.History, b.Forecast, b.Upper, b.Lower)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to compute bounds for %s, %w", symbol, err)
	}
	ctrl, err := viewport.New(bounds, v.opt.ViewportOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to initialize viewport for %s, %w", symbol, err)
	}
	return b, ctrl, nil
}

// Current returns the active bundle and viewport state.
func (v *View) Current() (*Bundle, viewport.State, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.bundle == nil {
		return nil, viewport.State{}, ErrNoBundle
	}
	return v.bundle, v.ctrl.State(), nil
}

// Snapshot is the viewport of one bundle together with the bundle's full
// data range, read under a single lock.
type Snapshot struct {
	BundleID uuid.UUID       `json:"bundle_id"`
	Viewport viewport.State  `json:"viewport"`
	Bounds   viewport.Bounds `json:"bounds"`
}

func (v *View) snapshot() Snapshot {
	return Snapshot{
		BundleID: v.bundle.ID,
		Viewport: v.ctrl.State(),
		Bounds:   v.ctrl.Bounds(),
	}
}

// Viewport returns a snapshot of the active bundle's viewport.
func (v *View) Viewport() (Snapshot, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.bundle == nil {
		return Snapshot{}, ErrNoBundle
	}
	return v.snapshot(), nil
}

// gesture applies fn to the controller if id matches the active bundle. The
// returned snapshot always describes the active bundle, so a caller holding
// a stale id learns the id to resync to.
func (v *View) gesture(name string, id uuid.UUID, fn func(*viewport.Controller) error) (Snapshot, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var (
		snap Snapshot
		err  error
	)
	switch {
	case v.bundle == nil:
		err = ErrNoBundle
	case v.bundle.ID != id:
		snap = v.snapshot()
		err = fmt.Errorf("%s against %s, active %s, %w", name, id, v.bundle.ID, ErrStaleBundle)
	default:
		err = fn(v.ctrl)
		snap = v.snapshot()
	}
	v.recorder.ObserveGesture(name, err)
	if err != nil {
		v.logger.Debug().Err(err).Str("gesture", name).Msg("gesture rejected")
	}
	return snap, err
}

func (v *View) Pan(id uuid.UUID, g viewport.PanGesture) (Snapshot, error) {
	return v.gesture(GesturePan, id, func(c *viewport.Controller) error {
		_, err := c.Pan(g)
		return err
	})
}

func (v *View) Zoom(id uuid.UUID, g viewport.ZoomGesture) (Snapshot, error) {
	return v.gesture(GestureZoom, id, func(c *viewport.Controller) error {
		_, err := c.Zoom(g)
		return err
	})
}

func (v *View) Reset(id uuid.UUID) (Snapshot, error) {
	return v.gesture(GestureReset, id, func(c *viewport.Controller) error {
		c.Reset()
		return nil
	})
}

// Summary returns the summary of the active bundle.
func (v *View) Summary() (*Summary, error) {
	b, _, err := v.Current()
	if err != nil {
		return nil, err
	}
	return Summarize(b), nil
}

// Plot renders the active bundle and viewport as an html page with the
// forecast chart and the band width over time.
func (v *View) Plot(w io.Writer) error {
	v.mu.RLock()
	if v.bundle == nil {
		v.mu.RUnlock()
		return ErrNoBundle
	}
	b, st := v.bundle, v.ctrl.State()
	v.mu.RUnlock()

	page := components.NewPage()
	page.SetPageTitle(v.opt.PlotOptions.Title)
	if v.opt.PlotOptions.AssetsHost != "" {
		page.SetAssetsHost(v.opt.PlotOptions.AssetsHost)
	}
	page.AddCharts(
		LineBundle(b, st, v.opt.PlotOptions),
		LineTSeries(
			"Forecast Band Width",
			[]string{"Width"},
			b.Labels,
			[]timedataset.Values{b.BandWidth()},
		),
	)
	return page.Render(w)
}

// PlotFile renders the active bundle to an html file at path.
func (v *View) PlotFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return v.Plot(file)
}
