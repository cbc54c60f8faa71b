package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alkime/practice/internal/config"
	"github.com/alkime/practice/internal/store"
	"github.com/alkime/practice/internal/workdir"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
)

// Server represents the HTTP API over the stored recording.
type Server struct {
	config *config.Config
	logger *slog.Logger
	router *gin.Engine
	store  *store.Store

	// tempPath names upload staging files.
	tempPath func() string
}

// New creates a new Server instance
func New(cfg *config.Config, logger *slog.Logger, st *store.Store) *Server {
	// Set Gin mode based on environment
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	// Configure proxy trust for production (Fly.io)
	if cfg.Env == config.EnvProduction {
		router.TrustedPlatform = gin.PlatformFlyIO
		logger.Debug("Configured trusted platform", "platform", "fly.io")
	}

	server := &Server{
		config:   cfg,
		logger:   logger,
		router:   router,
		store:    st,
		tempPath: workdir.TempRecordingPath,
	}

	setupSecurityMiddleware(router, cfg, logger)
	server.setupRoutes()

	return server
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server
func Run(s *Server) error {
	s.logger.Info("Server listening", "port", s.config.Port)
	return s.router.Run(":" + s.config.Port)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api/v1")
	{
		api.GET("/recording", s.handleGetRecording)
		api.GET("/recording/audio", s.handleGetAudio)
		api.PUT("/recording", s.handlePutRecording)
		api.DELETE("/recording", s.handleDeleteRecording)
	}
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "practice",
	})
}

type recordingInfo struct {
	Exists     bool       `json:"exists"`
	Path       string     `json:"path"`
	SizeBytes  int64      `json:"sizeBytes,omitempty"`
	ModifiedAt *time.Time `json:"modifiedAt,omitempty"`
}

func (s *Server) handleGetRecording(c *gin.Context) {
	info := recordingInfo{Path: s.store.Path()} //nolint:exhaustruct // filled when stored

	stat, err := s.store.Info()
	switch {
	case errors.Is(err, afero.ErrFileNotFound):
	case err != nil:
		s.abort(c, http.StatusInternalServerError, "failed to stat recording", err)
		return
	default:
		modified := stat.ModTime().UTC()
		info.Exists = true
		info.SizeBytes = stat.Size()
		info.ModifiedAt = &modified
	}

	c.JSON(http.StatusOK, info)
}

func (s *Server) handleGetAudio(c *gin.Context) {
	file, err := s.store.Open()
	if errors.Is(err, afero.ErrFileNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no recording stored"})
		return
	}
	if err != nil {
		s.abort(c, http.StatusInternalServerError, "failed to open recording", err)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		s.abort(c, http.StatusInternalServerError, "failed to stat recording", err)
		return
	}

	c.DataFromReader(http.StatusOK, stat.Size(), "audio/mpeg", file, nil)
}

func (s *Server) handlePutRecording(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxUploadBytes)
	fs := s.store.Fs()
	tmp := s.tempPath()

	defer func() {
		if err := fs.Remove(tmp); err != nil && !errors.Is(err, afero.ErrFileNotFound) {
			s.logger.Warn("failed to remove upload", "path", tmp, "error", err)
		}
	}()

	if err := afero.WriteReader(fs, tmp, body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "recording too large"})
			return
		}
		s.abort(c, http.StatusBadRequest, "failed to read upload", err)
		return
	}

	stored, err := s.store.Save(c.Request.Context(), tmp)
	if err != nil {
		s.abort(c, http.StatusInternalServerError, "failed to save recording", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"path": stored})
}

func (s *Server) handleDeleteRecording(c *gin.Context) {
	if err := s.store.Delete(); err != nil {
		s.abort(c, http.StatusInternalServerError, "failed to delete recording", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) abort(c *gin.Context, status int, msg string, err error) {
	s.logger.Error(msg, "error", err)
	c.JSON(status, gin.H{"error": msg})
}
