package router

import (
	"github.com/gin-gonic/gin"

	"github.com/raito-kakutani/timable/internal/handler"
	"github.com/raito-kakutani/timable/internal/middleware"
	"github.com/raito-kakutani/timable/internal/models"
	"github.com/raito-kakutani/timable/internal/service"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Auth      *handler.AuthHandler
	Teacher   *handler.TeacherHandler
	Class     *handler.ClassHandler
	Config    *handler.SchoolConfigHandler
	Priority  *handler.PriorityHandler
	Timetable *handler.TimetableHandler
	Scenario  *handler.ScenarioHandler
	Analytics *handler.AnalyticsHandler
	Export    *handler.ExportHandler
	Seed      *handler.SeedHandler
	System    *handler.SystemHandler
}

// Register mounts all API routes under the given prefix. Download and
// system endpoints stay outside the JWT guard: downloads carry their
// own signed token and probes must work unauthenticated.
func Register(r *gin.Engine, prefix string, auth *service.AuthService, h Handlers) {
	r.GET("/health", h.System.Health)
	r.GET("/ready", h.System.Ready)
	r.GET("/metrics", h.System.Prometheus)

	api := r.Group(prefix)

	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.GET("/exports/download/:token", h.Export.Download)

	planners := []models.UserRole{models.RoleAdmin, models.RolePlanner}

	protected := api.Group("")
	protected.Use(middleware.JWT(auth))
	{
		protected.POST("/auth/logout", h.Auth.Logout)
		protected.GET("/auth/me", h.Auth.Me)

		protected.GET("/teachers", h.Teacher.List)
		protected.GET("/teachers/:id", h.Teacher.Get)
		protected.POST("/teachers", middleware.RequireRoles(planners...), h.Teacher.Create)
		protected.PUT("/teachers/:id", middleware.RequireRoles(planners...), h.Teacher.Update)
		protected.DELETE("/teachers/:id", middleware.RequireRoles(planners...), h.Teacher.Delete)

		protected.GET("/classes", h.Class.List)
		protected.GET("/classes/:id", h.Class.Get)
		protected.POST("/classes", middleware.RequireRoles(planners...), h.Class.Create)
		protected.PUT("/classes/:id", middleware.RequireRoles(planners...), h.Class.Update)
		protected.DELETE("/classes/:id", middleware.RequireRoles(planners...), h.Class.Delete)

		protected.GET("/config", h.Config.Get)
		protected.PUT("/config", middleware.RequireRoles(planners...), h.Config.Put)

		protected.GET("/priorities", h.Priority.List)
		protected.GET("/priorities/:classId", h.Priority.Get)
		protected.PUT("/priorities/:classId", middleware.RequireRoles(planners...), h.Priority.Put)
		protected.DELETE("/priorities/:classId", middleware.RequireRoles(planners...), h.Priority.Delete)

		protected.POST("/timetables/solve", middleware.RequireRoles(planners...), h.Timetable.Solve)
		protected.GET("/timetables", h.Timetable.List)
		protected.GET("/timetables/:id", h.Timetable.Get)
		protected.POST("/timetables/:id/publish", middleware.RequireRoles(planners...), h.Timetable.Publish)
		protected.DELETE("/timetables/:id", middleware.RequireRoles(planners...), h.Timetable.Delete)
		protected.POST("/timetables/:id/validate", h.Timetable.Validate)
		protected.GET("/timetables/:id/classes/:classId", h.Timetable.ClassView)
		protected.GET("/timetables/:id/teachers/:teacherId", h.Timetable.TeacherView)

		protected.POST("/timetables/:id/scenarios/preview", h.Scenario.Preview)
		protected.GET("/timetables/:id/insights", h.Analytics.Insights)

		protected.POST("/timetables/:id/exports", h.Export.Enqueue)
		protected.GET("/exports/:jobId", h.Export.Status)

		protected.POST("/seed/demo", middleware.RequireRoles(models.RoleAdmin), h.Seed.Load)
	}
}
