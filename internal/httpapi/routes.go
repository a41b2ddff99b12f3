package httpapi

import (
	"github.com/gin-gonic/gin"

	"rollcall/internal/auth"
)

// Register wires every route onto the engine. Mutating and admin routes sit
// behind bearer auth; the admin-only correction and snapshot paths also
// require the admin role, matching the original service's guards.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/login/staff", h.LoginStaff)
	authGroup.POST("/login/admin", h.LoginAdmin)
	authGroup.PUT("/change-password",
		auth.RequireAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer), h.ChangePassword)

	authed := api.Group("", auth.RequireAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))
	admin := authed.Group("", auth.RequireRole("admin"))

	att := authed.Group("/attendance")
	att.GET("/rollnumbers", h.GetUnrecorded)
	att.POST("/onDuty", h.MarkOnDuty)
	att.POST("/absent", h.MarkAbsent)
	att.POST("/mark-remaining-present", h.SweepPresent)
	att.POST("/mark-SuperPacc", h.MarkSuperPacc)
	att.GET("/getAttendanceStatusCount", h.GetStatusCounts)
	att.GET("/absent-students-info", h.GetAbsentInfoStatus)
	att.POST("/bulk-update-info-status", h.BulkUpdateInfoStatus)

	attAdmin := admin.Group("/attendance")
	attAdmin.POST("/mark-updatestatus", h.OverrideStatus)
	attAdmin.GET("/get-attendancestatus", h.GetSnapshot)

	students := authed.Group("/students")
	students.GET("/remaining", h.GetAbsentees)
	students.GET("/search/name", h.SearchByName)
	students.GET("/search/rollno", h.SearchByRollNo)
	students.GET("/search/:rollNo", h.GetStudent)
	students.POST("/create", h.CreateStudent)
	students.PUT("/update-student-data/:rollNo", h.UpdateStudent)
	students.DELETE("/delete/:rollNo", h.DeleteStudent)
	students.GET("/basic-info", h.ListBasicInfo)
	students.GET("/leaves", h.GetLeaveCounts)
	students.GET("/superpacc/status", h.GetSuperPaccStatus)
	students.PUT("/superpacc/update/:rollNo", h.UpdateSuperPacc)
	students.POST("/superpacc/batch-update", h.BatchUpdateSuperPacc)
	students.PUT("/update-year", h.PromoteYear)

	admin.DELETE("/students", h.BulkDeleteStudents)

	authed.GET("/classes", h.ListClasses)
	authed.GET("/report/hod-dashboard", h.GetDashboard)
	authed.POST("/upload/add-student", h.ImportCSV)
}
