package server

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"github.com/aouyang1/go-forecastview"
	"github.com/aouyang1/go-forecastview/timeline"
	"github.com/aouyang1/go-forecastview/viewport"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Response is the envelope of every JSON endpoint.
type Response struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type bundleResponse struct {
	Bundle   *forecastview.Bundle `json:"bundle"`
	Viewport viewport.State       `json:"viewport"`
	Warnings []string             `json:"warnings"`
}

type gestureRequest struct {
	BundleID string `json:"bundle_id" validate:"required,uuid"`
}

type panRequest struct {
	BundleID string  `json:"bundle_id" validate:"required,uuid"`
	DX       float64 `json:"dx"`
	DY       float64 `json:"dy"`
	Width    float64 `json:"width" default:"1200" validate:"gt=0"`
	Height   float64 `json:"height" default:"600" validate:"gt=0"`
}

// zoomRequest carries either a wheel delta or a pinch scale. Focus is given in
// data coordinates, x as epoch milliseconds.
type zoomRequest struct {
	BundleID string   `json:"bundle_id" validate:"required,uuid"`
	Delta    *float64 `json:"delta"`
	Scale    *float64 `json:"scale" validate:"omitempty,gt=0"`
	Axis     string   `json:"axis" default:"xy" validate:"oneof=x y xy"`
	FocusX   *float64 `json:"focus_x"`
	FocusY   *float64 `json:"focus_y"`
}

var (
	errZoomAmount = errors.New("zoom needs one of delta or scale")
	errZoomFocus  = errors.New("zoom focus needs both focus_x and focus_y")
)

func (r *zoomRequest) gesture(opt *viewport.Options) (viewport.ZoomGesture, error) {
	axis, err := viewport.ParseAxis(r.Axis)
	if err != nil {
		return viewport.ZoomGesture{}, err
	}
	g := viewport.ZoomGesture{Axis: axis}
	switch {
	case r.Scale != nil && r.Delta == nil:
		g.Factor = *r.Scale
	case r.Delta != nil && r.Scale == nil:
		g.Factor = opt.WheelFactor(*r.Delta)
	default:
		return g, errZoomAmount
	}
	switch {
	case r.FocusX != nil && r.FocusY != nil:
		g.Focus = &viewport.Focus{X: *r.FocusX, Y: *r.FocusY}
	case r.FocusX != nil || r.FocusY != nil:
		return g, errZoomFocus
	}
	return g, nil
}

func (s *Server) getBundle(c echo.Context) error {
	b, st, err := s.view.Current()
	if err != nil {
		return err
	}
	return ok(c, bundleResponse{
		Bundle:   b,
		Viewport: st,
		Warnings: b.Messages(),
	})
}

func (s *Server) getSummary(c echo.Context) error {
	sum, err := s.view.Summary()
	if err != nil {
		return err
	}
	return ok(c, sum)
}

func (s *Server) getViewport(c echo.Context) error {
	snap, err := s.view.Viewport()
	if err != nil {
		return err
	}
	return ok(c, snap)
}

func (s *Server) pan(c echo.Context) error {
	req := &panRequest{}
	if err := bindAndValidate(c, req); err != nil {
		return err
	}
	id, err := uuid.Parse(req.BundleID)
	if err != nil {
		return badRequest(err)
	}
	snap, err := s.view.Pan(id, viewport.PanGesture{
		DX:     req.DX,
		DY:     req.DY,
		Width:  req.Width,
		Height: req.Height,
	})
	return gestureResponse(c, snap, err)
}

func (s *Server) zoom(c echo.Context) error {
	req := &zoomRequest{}
	if err := bindAndValidate(c, req); err != nil {
		return err
	}
	g, err := req.gesture(s.view.Options().ViewportOptions)
	if err != nil {
		return badRequest(err)
	}
	id, err := uuid.Parse(req.BundleID)
	if err != nil {
		return badRequest(err)
	}
	snap, err := s.view.Zoom(id, g)
	return gestureResponse(c, snap, err)
}

func (s *Server) reset(c echo.Context) error {
	req := &gestureRequest{}
	if err := bindAndValidate(c, req); err != nil {
		return err
	}
	id, err := uuid.Parse(req.BundleID)
	if err != nil {
		return badRequest(err)
	}
	snap, err := s.view.Reset(id)
	return gestureResponse(c, snap, err)
}

// gestureResponse reports rejected gestures with the active bundle's
// viewport so the client can resync, including after a stale bundle id.
func gestureResponse(c echo.Context, snap forecastview.Snapshot, err error) error {
	if err == nil {
		return ok(c, snap)
	}
	status := statusOf(err)
	if status == http.StatusInternalServerError || errors.Is(err, forecastview.ErrNoBundle) {
		return err
	}
	return c.JSON(status, Response{
		Status:  status,
		Message: err.Error(),
		Data:    snap,
	})
}

func (s *Server) reload(c echo.Context) error {
	if s.loader == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "reload requires an api base url")
	}
	symbol, err := url.PathUnescape(c.Param("symbol"))
	if err != nil || symbol == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "symbol is required")
	}

	payloads, err := s.loader.Both(c.Request().Context(), symbol)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error()).SetInternal(err)
	}
	b, st, err := s.view.LoadRecords(symbol, payloads.History, payloads.Forecast)
	if err != nil {
		return err
	}

	resp := bundleResponse{Bundle: b, Viewport: st, Warnings: b.Messages()}
	if payloads.HistoryErr != nil {
		resp.Warnings = append(resp.Warnings, "history unavailable: "+payloads.HistoryErr.Error())
	}
	if payloads.ForecastErr != nil {
		resp.Warnings = append(resp.Warnings, "prediction unavailable: "+payloads.ForecastErr.Error())
	}
	return ok(c, resp)
}

func (s *Server) chart(c echo.Context) error {
	var buf bytes.Buffer
	if err := s.view.Plot(&buf); err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (s *Server) health(c echo.Context) error {
	_, _, err := s.view.Current()
	return ok(c, map[string]bool{"loaded": err == nil})
}

func ok(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, Response{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    data,
	})
}

// statusOf maps view errors onto http status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, forecastview.ErrStaleBundle):
		return http.StatusConflict
	case errors.Is(err, viewport.ErrRangeDegenerate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, viewport.ErrInvalidGesture):
		return http.StatusBadRequest
	case errors.Is(err, forecastview.ErrNoBundle), errors.Is(err, timeline.ErrNoData):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorHandler renders every returned error in the Response envelope.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := statusOf(err)
	message := err.Error()
	var data any

	var he *echo.HTTPError
	var ve validationErrors
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		message = http.StatusText(status)
		data = ve
	case errors.As(err, &he):
		status = he.Code
		if m, isStr := he.Message.(string); isStr {
			message = m
		} else {
			message = http.StatusText(status)
		}
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, Response{Status: status, Message: message, Data: data})
	}
	if writeErr != nil {
		s.logger.Warn().Err(writeErr).Msg("writing error response")
	}
}
