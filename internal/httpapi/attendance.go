package httpapi

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/cache"
)

// GetUnrecorded handles GET /api/attendance/rollnumbers, the roster diff.
func (h *Handler) GetUnrecorded(c *gin.Context) {
	key, ok := classKeyQuery(c)
	if !ok {
		return
	}
	date, _, ok := dateQuery(c)
	if !ok {
		return
	}
	res, err := h.engine.FindUnrecorded(c.Request.Context(), key, date)
	if err != nil {
		writeError(c, "roster diff", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": res.Students, "totalStudents": res.TotalStudents})
}

type markRequest struct {
	classKeyBody
	RollNumbers []string `json:"rollNumbers" binding:"required,min=1"`
}

// MarkOnDuty handles POST /api/attendance/onDuty.
func (h *Handler) MarkOnDuty(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	date, ok := req.date(c)
	if !ok {
		return
	}
	changed, err := h.engine.MarkOnDuty(c.Request.Context(), req.key(), date, req.RollNumbers)
	if err != nil {
		writeError(c, "mark on duty", err)
		return
	}
	h.publishMarked(c.Request.Context(), req.Date)
	c.JSON(http.StatusOK, gin.H{"message": "Marked as On Duty successfully", "recordsChanged": changed})
}

// MarkAbsent handles POST /api/attendance/absent.
func (h *Handler) MarkAbsent(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	date, ok := req.date(c)
	if !ok {
		return
	}
	res, err := h.engine.MarkAbsent(c.Request.Context(), req.key(), date, req.RollNumbers)
	if err != nil {
		writeError(c, "mark absent", err)
		return
	}
	h.publishMarked(c.Request.Context(), req.Date)
	c.JSON(http.StatusOK, gin.H{
		"message": "Marked as Absent successfully",
		"marked":  res.Marked,
		"skipped": res.Skipped,
	})
}

// SweepPresent handles POST /api/attendance/mark-remaining-present.
func (h *Handler) SweepPresent(c *gin.Context) {
	var req classKeyBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	date, ok := req.date(c)
	if !ok {
		return
	}
	inserted, err := h.engine.SweepPresent(c.Request.Context(), req.key(), date)
	if err != nil {
		writeError(c, "present sweep", err)
		return
	}
	h.publishMarked(c.Request.Context(), req.Date)
	c.JSON(http.StatusOK, gin.H{
		"message":         "Marked remaining students as Present",
		"markedAsPresent": inserted,
	})
}

// MarkSuperPacc handles POST /api/attendance/mark-SuperPacc.
func (h *Handler) MarkSuperPacc(c *gin.Context) {
	var req classKeyBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	date, ok := req.date(c)
	if !ok {
		return
	}
	res, err := h.engine.MarkSuperPacc(c.Request.Context(), req.key(), date)
	if err != nil {
		writeError(c, "mark superpacc", err)
		return
	}
	h.publishMarked(c.Request.Context(), req.Date)
	c.JSON(http.StatusOK, gin.H{
		"message":        "Attendance updated successfully to SuperPacc.",
		"recordsUpdated": res.Updated,
		"recordsAdded":   res.Added,
	})
}

type overrideRequest struct {
	classKeyBody
	RollNumberStateMapping map[string]attendance.Status `json:"rollNumberStateMapping" binding:"required"`
}

// OverrideStatus handles POST /api/attendance/mark-updatestatus (admin).
func (h *Handler) OverrideStatus(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	date, ok := req.date(c)
	if !ok {
		return
	}
	if err := h.engine.OverrideStatus(c.Request.Context(), req.key(), date, req.RollNumberStateMapping); err != nil {
		writeError(c, "status override", err)
		return
	}
	h.publishMarked(c.Request.Context(), req.Date)
	c.JSON(http.StatusOK, gin.H{"message": "Attendance updated successfully!"})
}

// GetSnapshot handles GET /api/attendance/get-attendancestatus (admin).
func (h *Handler) GetSnapshot(c *gin.Context) {
	key, ok := classKeyQuery(c)
	if !ok {
		return
	}
	date, _, ok := dateQuery(c)
	if !ok {
		return
	}
	res, err := h.engine.Snapshot(c.Request.Context(), key, date)
	if err != nil {
		writeError(c, "attendance snapshot", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendanceStates": res.States, "totalStudents": res.TotalStudents})
}

// GetStatusCounts handles GET /api/attendance/getAttendanceStatusCount.
// A day with zero records reports the "N/A" sentinel for both counts to
// keep "nobody absent" distinct from "not yet marked".
func (h *Handler) GetStatusCounts(c *gin.Context) {
	key, ok := classKeyQuery(c)
	if !ok {
		return
	}
	date, _, ok := dateQuery(c)
	if !ok {
		return
	}
	counts, err := h.engine.Counts(c.Request.Context(), key, date)
	if err != nil {
		writeError(c, "status counts", err)
		return
	}
	if !counts.Marked {
		c.JSON(http.StatusOK, gin.H{"classs": counts.Class, "absentCount": "N/A", "otherStatusCount": "N/A"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"classs": counts.Class, "absentCount": counts.Absent, "otherStatusCount": counts.Other})
}

// GetAbsentInfoStatus handles GET /api/attendance/absent-students-info.
func (h *Handler) GetAbsentInfoStatus(c *gin.Context) {
	key, ok := classKeyQuery(c)
	if !ok {
		return
	}
	date, _, ok := dateQuery(c)
	if !ok {
		return
	}
	students, err := h.engine.AbsentInfoStatus(c.Request.Context(), key, date)
	if err != nil {
		writeError(c, "absent info status", err)
		return
	}
	if len(students) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"message":  "No absent students found for the specified criteria",
			"students": []attendance.InfoStatusEntry{},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "students": students})
}

type bulkInfoStatusRequest struct {
	Date    string                        `json:"date" binding:"required"`
	Updates []attendance.InfoStatusUpdate `json:"updates" binding:"required,min=1"`
}

// BulkUpdateInfoStatus handles POST /api/attendance/bulk-update-info-status.
func (h *Handler) BulkUpdateInfoStatus(c *gin.Context) {
	var req bulkInfoStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	date, err := attendance.ParseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	report, err := h.engine.BulkUpdateInfoStatus(c.Request.Context(), date, req.Updates)
	if err != nil {
		writeError(c, "bulk info status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "information status updated",
		"updated": report.Updated,
		"errors":  report.Errors,
	})
}

// GetDashboard handles GET /api/report/hod-dashboard: the cached fan-out of
// every class's state for one date.
func (h *Handler) GetDashboard(c *gin.Context) {
	date, raw, ok := dateQuery(c)
	if !ok {
		return
	}
	if classes, err := h.dash.Get(c.Request.Context(), raw); err == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "date": raw, "data": classes})
		return
	} else if err != cache.ErrMiss {
		log.Printf("dashboard cache read failed for %s: %v", raw, err)
	}
	classes, err := h.engine.Dashboard(c.Request.Context(), date)
	if err != nil {
		writeError(c, "hod dashboard", err)
		return
	}
	if err := h.dash.Set(c.Request.Context(), raw, classes); err != nil {
		log.Printf("dashboard cache write failed for %s: %v", raw, err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "date": raw, "data": classes})
}
