package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-registration-api/internal/middleware"
	"github.com/noah-isme/course-registration-api/internal/models"
)

// Routes bundles the handlers mounted by RegisterRoutes.
type Routes struct {
	Tokens      middleware.TokenValidator
	Enrollments *EnrollmentHandler
	Students    *StudentHandler
	Semesters   *SemesterHandler
	Metrics     *MetricsHandler
}

// RegisterRoutes mounts the public API under prefix and the operational endpoints at the root.
func RegisterRoutes(r *gin.Engine, prefix string, routes Routes) {
	r.GET("/health", routes.Metrics.Health)
	r.GET("/ready", routes.Metrics.Ready)
	r.GET("/metrics", routes.Metrics.Prometheus)

	api := r.Group(prefix)
	api.Use(middleware.JWT(routes.Tokens))

	api.GET("/semesters/current", routes.Semesters.Current)

	student := api.Group("/enrollments", middleware.RequireRoles(models.RoleStudent))
	student.POST("", routes.Enrollments.Enroll)
	student.POST("/eligibility", routes.Enrollments.CheckEligibility)
	student.GET("/me", routes.Enrollments.ListMine)
	student.POST("/:id/drop", routes.Enrollments.Drop)
	student.POST("/:id/withdraw", routes.Enrollments.Withdraw)

	admin := api.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.POST("/enrollments/:id/complete", routes.Enrollments.Complete)
	admin.GET("/students/:id", routes.Students.Get)
	admin.PATCH("/students/:id", routes.Students.Patch)
	admin.POST("/semesters/:id/current", routes.Semesters.SetCurrent)
}
