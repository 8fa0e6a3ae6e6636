// Package api is the HTTP Boundary (SPEC_FULL.md §4.12): a thin Gin
// router over the scheduler, grounded on the teacher's internal/api
// package (gin.Default, permissive CORS, an /api route group), with
// all-new routes over scenarios instead of vacation years.
package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/bruno.lopes/dutyplanner/internal/api/handlers"
	"github.com/bruno.lopes/dutyplanner/internal/store"
)

// Server wraps a configured gin.Engine.
type Server struct {
	router *gin.Engine
}

// NewServer builds a Server that loads scenarios from scenarioDir and
// persists runs through st.
func NewServer(scenarioDir string, st *store.Store) *Server {
	s := &Server{router: gin.Default()}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	s.router.Use(cors.New(corsConfig))

	s.setupRoutes(handlers.New(scenarioDir, st))
	return s
}

func (s *Server) setupRoutes(h *handlers.Handler) {
	group := s.router.Group("/api")
	{
		group.GET("/health", h.Health)
		group.POST("/schedules/:scenario/run", h.RunScenario)
		group.GET("/schedules/:scenario/latest", h.LatestSchedule)
		group.GET("/schedules/:scenario/trace", h.Trace)
		group.GET("/schedules/:scenario/ics", h.ExportICS)
	}
}

// Run starts the HTTP server on addr (e.g. ":8080").
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
