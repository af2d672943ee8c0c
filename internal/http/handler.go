package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lpr-service/internal/domain/lpr"
	"lpr-service/internal/service"
)

type DetectionService interface {
	Ingest(ctx context.Context, identifier string) (*lpr.Detection, error)
	Get(ctx context.Context, id uuid.UUID) (*service.DetectionView, error)
	Update(ctx context.Context, id uuid.UUID, patch service.DetectionPatch) (*lpr.Detection, bool, error)
	LastAlert(ctx context.Context, station, camera string) ([]lpr.Detection, error)
}

type CompanionService interface {
	Find(ctx context.Context, filter lpr.DetectionFilter) (*lpr.CompanionResult, error)
}

type Handler struct {
	detections DetectionService
	companions CompanionService
	stream     *Stream
	location   *time.Location
	log        zerolog.Logger
}

func NewHandler(
	detections DetectionService,
	companions CompanionService,
	stream *Stream,
	location *time.Location,
	log zerolog.Logger,
) *Handler {
	if location == nil {
		location = time.UTC
	}
	return &Handler{
		detections: detections,
		companions: companions,
		stream:     stream,
		location:   location,
		log:        log,
	}
}

// Middlewares groups the guards applied to route groups.
type Middlewares struct {
	Station gin.HandlerFunc
	Auth    gin.HandlerFunc
	Timeout gin.HandlerFunc
}

func (m Middlewares) withDefaults() Middlewares {
	next := func(c *gin.Context) { c.Next() }
	if m.Station == nil {
		m.Station = next
	}
	if m.Auth == nil {
		m.Auth = next
	}
	if m.Timeout == nil {
		m.Timeout = next
	}
	return m
}

func (h *Handler) Register(r *gin.Engine, mw Middlewares) {
	mw = mw.withDefaults()

	// станции
	internal := r.Group("/api/v1/internal")
	internal.Use(mw.Station, mw.Timeout)
	{
		internal.POST("/detections", h.ingestDetection)
	}

	protected := r.Group("/api/v1")
	protected.Use(mw.Auth)
	{
		api := protected.Group("")
		api.Use(mw.Timeout)
		api.POST("/vehicles/companion", h.findCompanions)
		api.GET("/vehicles/:id", h.getDetection)
		api.PUT("/vehicles/:id", h.updateDetection)
		api.GET("/alerts/last/:station/:camera", h.lastAlert)

		if h.stream != nil {
			protected.GET("/stream", h.stream.Serve)
		}
	}
}

type ingestRequest struct {
	Image string `json:"image"`
}

func (h *Handler) ingestDetection(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	d, err := h.detections.Ingest(c.Request.Context(), req.Image)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"id":      d.ID,
	})
}

type companionRequest struct {
	Plate     string `json:"plate"`
	Camera    string `json:"camera"`
	Color     string `json:"color"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (h *Handler) findCompanions(c *gin.Context) {
	var req companionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	filter := lpr.DetectionFilter{
		Plate:  strings.TrimSpace(req.Plate),
		Camera: strings.TrimSpace(req.Camera),
		Color:  strings.TrimSpace(req.Color),
	}

	var err error
	if filter.From, err = parseDate(req.StartDate, h.location, false); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	if filter.To, err = parseDate(req.EndDate, h.location, true); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	result, err := h.companions.Find(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"vehicles": result.Vehicles,
		"target":   result.Target,
		"total":    result.Total,
	})
}

func (h *Handler) getDetection(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	view, err := h.detections.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	resp := gin.H{
		"success": true,
		"vehicle": view.Detection,
	}
	if view.Location != nil {
		resp["station"] = view.Location.Station
		resp["camera"] = view.Location.Camera
		resp["city"] = view.Location.City
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) updateDetection(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var patch service.DetectionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	d, reprocessed, err := h.detections.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"vehicle":     d,
		"reprocessed": reprocessed,
	})
}

func (h *Handler) lastAlert(c *gin.Context) {
	detections, err := h.detections.LastAlert(c.Request.Context(), c.Param("station"), c.Param("camera"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"vehicles": detections,
	})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lpr.ErrMalformedIdentifier), errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

const dateLayout = "2006-01-02"

// parseDate accepts RFC 3339 timestamps or plain dates in loc. A plain end
// date covers the whole day.
func parseDate(raw string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}

	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", raw)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}

func errorResponse(message string) gin.H {
	return gin.H{
		"success": false,
		"error":   message,
	}
}
