// Package api exposes the orchestrator over HTTP for UI clients:
// submission, status polling, incremental events, and single-stage
// regeneration.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"videoforge/internal/domain"
	"videoforge/internal/project"
	"videoforge/internal/regen"
	"videoforge/internal/status"
	"videoforge/internal/store"
)

// Server wires the HTTP surface.
type Server struct {
	store       *store.Store
	regen       *regen.Controller
	events      *status.Bus
	projectsDir string
	defaults    domain.RenderSettings
	log         *zap.SugaredLogger
}

// New creates the server. projectsDir is where new project folders are
// created; defaults fills settings a submission omits.
func New(st *store.Store, rc *regen.Controller, events *status.Bus, projectsDir string, defaults domain.RenderSettings, log *zap.SugaredLogger) *Server {
	return &Server{
		store:       st,
		regen:       rc,
		events:      events,
		projectsDir: projectsDir,
		defaults:    defaults,
		log:         log,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/jobs", s.submitJob)
		apiGroup.GET("/jobs", s.listJobs)
		apiGroup.GET("/jobs/:id", s.getJob)
		apiGroup.POST("/jobs/:id/regenerate/:stage", s.regenerateStage)
		apiGroup.GET("/events", s.listEvents)
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

type submitRequest struct {
	Title    string                 `json:"title" binding:"required"`
	Script   string                 `json:"script" binding:"required"`
	Voice    string                 `json:"voice"`
	Settings *domain.RenderSettings `json:"settings"`
}

func (s *Server) submitJob(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings := s.defaults
	if req.Settings != nil {
		settings = *req.Settings
	}

	layout := project.New(s.projectsDir, req.Title)
	if err := layout.Ensure(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create project folder: " + err.Error()})
		return
	}
	if err := layout.WriteScript(req.Script); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "write script: " + err.Error()})
		return
	}

	job := domain.JobRecord{
		Title:           req.Title,
		ScriptText:      req.Script,
		ScriptPath:      layout.ScriptPath(),
		OutputFolder:    layout.Root,
		VoiceDescriptor: req.Voice,
		Settings:        settings,
	}
	id, err := s.store.Submit(job)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := project.SaveSettings(layout, &job); err != nil {
		s.log.Warnw("writing initial settings.json failed", "job", id, "error", err)
	}

	s.log.Infow("job submitted", "job", id, "title", req.Title)
	c.JSON(http.StatusCreated, gin.H{"id": id, "output_folder": layout.Root})
}

func (s *Server) listJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.store.List()})
}

func (s *Server) getJob(c *gin.Context) {
	job, err := s.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) regenerateStage(c *gin.Context) {
	stage, ok := domain.ParseStage(c.Param("stage"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown stage: " + c.Param("stage")})
		return
	}

	err := s.regen.Request(c.Request.Context(), c.Param("id"), stage)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"job": c.Param("id"), "stage": string(stage)})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
	case errors.Is(err, domain.ErrPreconditionFailed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func (s *Server) listEvents(c *gin.Context) {
	since, _ := strconv.ParseInt(c.DefaultQuery("since", "0"), 10, 64)
	events := s.events.Since(since)
	last := since
	if n := len(events); n > 0 {
		last = events[n-1].Seq
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "last_seq": last})
}
