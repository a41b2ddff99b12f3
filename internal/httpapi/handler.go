package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/cache"
	"rollcall/internal/config"
	"rollcall/internal/queue"
	"rollcall/internal/roster"
)

// Handler binds HTTP requests to the roster and attendance services.
type Handler struct {
	engine  *attendance.Service
	roster  *roster.Service
	staff   *auth.StaffRepository
	events  queue.Queue
	dash    *cache.Dashboard
	cfg     config.App
	healthy func(ctx context.Context) (db, redis bool)
}

// New creates a handler.
func New(engine *attendance.Service, rosterSvc *roster.Service, staff *auth.StaffRepository,
	events queue.Queue, dash *cache.Dashboard, cfg config.App,
	healthy func(ctx context.Context) (bool, bool)) *Handler {
	return &Handler{
		engine:  engine,
		roster:  rosterSvc,
		staff:   staff,
		events:  events,
		dash:    dash,
		cfg:     cfg,
		healthy: healthy,
	}
}

// writeError maps domain sentinels onto status codes; anything unrecognized
// is a server error and gets logged with its operation context.
func writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, attendance.ErrNoSuchClass),
		errors.Is(err, attendance.ErrNotMarked),
		errors.Is(err, attendance.ErrNoSuperPacc),
		errors.Is(err, roster.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, attendance.ErrAlreadyFullyRecorded):
		c.JSON(http.StatusOK, gin.H{"message": err.Error()})
	case errors.Is(err, roster.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	case errors.Is(err, attendance.ErrInvalidStatus),
		errors.Is(err, attendance.ErrInvalidInfoStatus):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		log.Printf("%s failed: %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "server error"})
	}
}

// classKeyQuery pulls the three class-key fields from query params.
func classKeyQuery(c *gin.Context) (roster.ClassKey, bool) {
	key := roster.ClassKey{
		YearOfStudy: c.Query("yearOfStudy"),
		Branch:      c.Query("branch"),
		Section:     c.Query("section"),
	}
	if !key.Complete() {
		c.JSON(http.StatusBadRequest, gin.H{"message": "please provide yearOfStudy, branch, section, and date"})
		return key, false
	}
	return key, true
}

func dateQuery(c *gin.Context) (time.Time, string, bool) {
	raw := c.Query("date")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "date is required"})
		return time.Time{}, "", false
	}
	date, err := attendance.ParseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return time.Time{}, "", false
	}
	return date, raw, true
}

// classKeyBody is the shared request shape for transition endpoints.
type classKeyBody struct {
	YearOfStudy string `json:"yearOfStudy" binding:"required"`
	Branch      string `json:"branch" binding:"required"`
	Section     string `json:"section" binding:"required"`
	Date        string `json:"date" binding:"required"`
}

func (b classKeyBody) key() roster.ClassKey {
	return roster.ClassKey{YearOfStudy: b.YearOfStudy, Branch: b.Branch, Section: b.Section}
}

func (b classKeyBody) date(c *gin.Context) (time.Time, bool) {
	date, err := attendance.ParseDate(b.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return time.Time{}, false
	}
	return date, true
}

// publishMarked tells the worker a date's attendance changed so it can
// refresh the dashboard cache. Best effort.
func (h *Handler) publishMarked(ctx context.Context, date string) {
	if h.events == nil {
		return
	}
	_ = h.dash.Invalidate(ctx, date)
	if err := h.events.Publish(ctx, queue.Message{Type: queue.TypeAttendanceMarked, Date: date}); err != nil {
		log.Printf("queue publish failed for %s: %v", date, err)
	}
}

// Healthz reports db and redis connectivity.
func (h *Handler) Healthz(c *gin.Context) {
	db, redisOK := h.healthy(c.Request.Context())
	status := http.StatusOK
	if !db || !redisOK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "db": db, "redis": redisOK})
}
