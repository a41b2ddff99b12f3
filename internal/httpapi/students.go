package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/metrics"
	"rollcall/internal/roster"
)

// CreateStudent handles POST /api/students/create.
func (h *Handler) CreateStudent(c *gin.Context) {
	var st roster.Student
	if err := c.ShouldBindJSON(&st); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	created, err := h.roster.Create(c.Request.Context(), st)
	if err != nil {
		writeError(c, "create student", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Student created successfully", "data": created})
}

// GetStudent handles GET /api/students/search/:rollNo.
func (h *Handler) GetStudent(c *gin.Context) {
	st, err := h.roster.Get(c.Request.Context(), c.Param("rollNo"))
	if err != nil {
		writeError(c, "get student", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": st})
}

// SearchByName handles GET /api/students/search/name.
func (h *Handler) SearchByName(c *gin.Context) {
	students, err := h.roster.SearchByName(c.Request.Context(), c.Query("name"))
	if err != nil {
		writeError(c, "search by name", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(students), "data": students})
}

// SearchByRollNo handles GET /api/students/search/rollno (suggestions).
func (h *Handler) SearchByRollNo(c *gin.Context) {
	students, err := h.roster.SearchByRollNo(c.Request.Context(), c.Query("rollNo"))
	if err != nil {
		writeError(c, "search by roll number", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(students), "data": students})
}

// UpdateStudent handles PUT /api/students/update-student-data/:rollNo.
func (h *Handler) UpdateStudent(c *gin.Context) {
	var patch roster.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	updated, err := h.roster.Update(c.Request.Context(), c.Param("rollNo"), patch)
	if err != nil {
		writeError(c, "update student", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Student data updated successfully", "data": updated})
}

// DeleteStudent handles DELETE /api/students/delete/:rollNo.
func (h *Handler) DeleteStudent(c *gin.Context) {
	if err := h.roster.Delete(c.Request.Context(), c.Param("rollNo")); err != nil {
		writeError(c, "delete student", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Student deleted successfully"})
}

type bulkDeleteRequest struct {
	YearOfStudy string `json:"yearOfStudy" binding:"required"`
	Branch      string `json:"branch"`
	Section     string `json:"section"`
}

// BulkDeleteStudents handles DELETE /api/students with "All" wildcards.
func (h *Handler) BulkDeleteStudents(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	deleted, err := h.roster.BulkDelete(c.Request.Context(), req.YearOfStudy, req.Branch, req.Section)
	if err != nil {
		writeError(c, "bulk delete students", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deletedCount": deleted})
}

// ListBasicInfo handles GET /api/students/basic-info (suggestion data).
func (h *Handler) ListBasicInfo(c *gin.Context) {
	students, err := h.roster.ListBasic(c.Request.Context())
	if err != nil {
		writeError(c, "list basic info", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(students), "data": students})
}

// GetAbsentees handles GET /api/students/remaining: students currently
// marked Absent for the class and date.
func (h *Handler) GetAbsentees(c *gin.Context) {
	key, ok := classKeyQuery(c)
	if !ok {
		return
	}
	date, _, ok := dateQuery(c)
	if !ok {
		return
	}
	students, err := h.engine.CurrentAbsentees(c.Request.Context(), key, date)
	if err != nil {
		writeError(c, "current absentees", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

// GetLeaveCounts handles GET /api/students/leaves: absentees with a
// positive streak, longest first.
func (h *Handler) GetLeaveCounts(c *gin.Context) {
	key, ok := classKeyQuery(c)
	if !ok {
		return
	}
	date, raw, ok := dateQuery(c)
	if !ok {
		return
	}
	entries, err := h.engine.AbsenteesWithLeaveCount(c.Request.Context(), key, date)
	if err != nil {
		writeError(c, "leave counts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"date":        raw,
		"yearOfStudy": key.YearOfStudy,
		"branch":      key.Branch,
		"section":     key.Section,
		"count":       len(entries),
		"data":        entries,
	})
}

// GetSuperPaccStatus handles GET /api/students/superpacc/status.
func (h *Handler) GetSuperPaccStatus(c *gin.Context) {
	key := roster.ClassKey{
		YearOfStudy: c.Query("yearOfStudy"),
		Branch:      c.Query("branch"),
		Section:     c.Query("section"),
	}
	students, err := h.roster.SuperPaccStatus(c.Request.Context(), key)
	if err != nil {
		writeError(c, "superpacc status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(students), "data": students})
}

type superPaccUpdateRequest struct {
	SuperPacc *bool `json:"superPacc" binding:"required"`
}

// UpdateSuperPacc handles PUT /api/students/superpacc/update/:rollNo.
func (h *Handler) UpdateSuperPacc(c *gin.Context) {
	var req superPaccUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "SuperPacc status is required"})
		return
	}
	if err := h.roster.SetSuperPacc(c.Request.Context(), c.Param("rollNo"), *req.SuperPacc); err != nil {
		writeError(c, "update superpacc", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "SuperPacc status updated successfully"})
}

type batchSuperPaccRequest struct {
	RollNumberStateMapping map[string]bool `json:"rollNumberStateMapping" binding:"required"`
}

// BatchUpdateSuperPacc handles POST /api/students/superpacc/batch-update.
func (h *Handler) BatchUpdateSuperPacc(c *gin.Context) {
	var req batchSuperPaccRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	updated, skipped, err := h.roster.BatchSetSuperPacc(c.Request.Context(), req.RollNumberStateMapping)
	if err != nil {
		writeError(c, "batch superpacc", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated, "skipped": skipped})
}

type promoteYearRequest struct {
	FromYear string `json:"fromYear" binding:"required"`
	ToYear   string `json:"toYear" binding:"required"`
}

// PromoteYear handles PUT /api/students/update-year.
func (h *Handler) PromoteYear(c *gin.Context) {
	var req promoteYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	updated, err := h.roster.PromoteYear(c.Request.Context(), req.FromYear, req.ToYear)
	if err != nil {
		writeError(c, "promote year", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"fromYear": req.FromYear, "toYear": req.ToYear, "updatedCount": updated},
	})
}

// ListClasses handles GET /api/classes.
func (h *Handler) ListClasses(c *gin.Context) {
	classes, err := h.roster.DistinctClasses(c.Request.Context())
	if err != nil {
		writeError(c, "distinct classes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "classes": classes, "totalClasses": len(classes)})
}

// ImportCSV handles POST /api/upload/add-student: a multipart roster file.
func (h *Handler) ImportCSV(c *gin.Context) {
	file, _, err := c.Request.FormFile("csvfile")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "csvfile field is required"})
		return
	}
	defer file.Close()

	result, err := h.roster.ImportCSV(c.Request.Context(), file)
	if err != nil {
		writeError(c, "csv import", err)
		return
	}
	metrics.CSVImports.WithLabelValues("inserted").Add(float64(result.Inserted))
	metrics.CSVImports.WithLabelValues("skipped").Add(float64(len(result.Skipped)))
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"inserted": result.Inserted,
		"skipped":  result.Skipped,
	})
}
