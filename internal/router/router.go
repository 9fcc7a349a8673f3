package router

import (
	"github.com/fasthttp/router"

	apiHandler "github.com/planhr/backend/api/handler"
)

type Handlers struct {
	Task   *apiHandler.TaskHandler
	Sweep  *apiHandler.SweepHandler
	Health *apiHandler.HealthHandler
}

func New(handlers Handlers) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	r.GET("/api/v1/tasks", handlers.Task.GetTasks)
	r.POST("/api/v1/tasks", handlers.Task.CreateTask)
	r.POST("/api/v1/tasks/subject", handlers.Task.CreateForSubject)
	r.GET("/api/v1/tasks/{id}", handlers.Task.GetTask)
	r.PUT("/api/v1/tasks/{id}", handlers.Task.UpdateTask)
	r.DELETE("/api/v1/tasks/{id}", handlers.Task.DeleteTask)

	r.POST("/api/v1/tasks/{id}/state", handlers.Task.SetState)
	r.PUT("/api/v1/tasks/{id}/repeat", handlers.Task.SetRepeat)
	r.GET("/api/v1/tasks/{id}/leave-warning", handlers.Task.LeaveWarning)
	r.GET("/api/v1/tasks/{id}/overlaps", handlers.Task.OverlapCount)

	r.POST("/api/v1/sweeps/horizons", handlers.Sweep.Horizons)
	r.POST("/api/v1/sweeps/lifecycle", handlers.Sweep.Lifecycle)

	return r
}
