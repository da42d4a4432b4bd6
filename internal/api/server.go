package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/amrrules-interpreter/internal/domain"
	"github.com/amrrules-interpreter/internal/middleware"
	"github.com/amrrules-interpreter/internal/service"
	"github.com/amrrules-interpreter/internal/store"
	"github.com/amrrules-interpreter/internal/tsvio"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	shutdownTimeout  = 30 * time.Second
)

// Dependencies are the loaded tables and defaults shared by every request.
type Dependencies struct {
	Rules     *domain.RuleTable
	Catalog   *domain.DrugCatalog
	Resources domain.ResourceProvider
	Options   service.InterpreterOptions
	// Organism is used when a request names none.
	Organism string
	// Store is optional; without it runs are not persisted and the runs
	// endpoints answer 503.
	Store store.Store
}

// Server represents the HTTP server
type Server struct {
	logger *logrus.Logger
	cfg    domain.ServerConfig
	deps   Dependencies
	router *gin.Engine
	server *http.Server

	// interpreter holds the compiled combination rules; requests derive
	// from it with their own organism and options.
	interpreter *service.Interpreter
}

// NewServer creates a new HTTP server instance
func NewServer(logger *logrus.Logger, cfg domain.ServerConfig, deps Dependencies) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	s := &Server{
		logger: logger,
		cfg:    cfg,
		deps:   deps,
		router: router,
	}
	s.interpreter = service.NewInterpreter(logger, deps.Rules, deps.Catalog, deps.Resources,
		domain.OrganismAssignment{Default: deps.Organism}, deps.Options)
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/organisms", s.handleOrganisms)
		v1.POST("/interpret", s.handleInterpret)
		v1.GET("/runs", s.handleListRuns)
		v1.GET("/runs/:id", s.handleGetRun)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	version, err := s.deps.Resources.DatabaseVersion(c.Request.Context())
	if err != nil {
		version = ""
	}
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"timestamp":        time.Now().UTC(),
		"rules":            s.deps.Rules.Len(),
		"ruleset_version":  s.deps.Options.RulesetVersion,
		"database_version": version,
		"store":            s.deps.Store != nil,
	})
}

func (s *Server) handleOrganisms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"organisms": s.deps.Rules.Organisms()})
}

// handleInterpret reads an AMRFinderPlus table from the request body and
// returns the annotated records and summary. Query parameters: organism,
// sample_name, level, policy, and format=tsv for a summary table.
func (s *Server) handleInterpret(c *gin.Context) {
	opts := s.deps.Options
	if v := c.Query("level"); v != "" {
		level, err := domain.ParseAnnotationLevel(v)
		if err != nil {
			s.fail(c, http.StatusBadRequest, err)
			return
		}
		opts.Level = level
	}
	if v := c.Query("policy"); v != "" {
		policy, err := domain.ParseNoRulePolicy(v)
		if err != nil {
			s.fail(c, http.StatusBadRequest, err)
			return
		}
		opts.Policy = policy
	}

	organism := c.DefaultQuery("organism", s.deps.Organism)
	if organism == "" {
		s.fail(c, http.StatusBadRequest, domain.ErrNoOrganism)
		return
	}
	if _, ok := s.deps.Rules.ForOrganism(organism); !ok {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("%w: %s", domain.ErrUnknownOrganism, organism))
		return
	}
	organisms, err := domain.NewOrganismAssignment(organism, nil)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	table, err := tsvio.ReadMarkers(c.Request.Body, tsvio.MarkerReaderOptions{SampleName: c.Query("sample_name")})
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, http.StatusRequestEntityTooLarge, err)
			return
		}
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	interp := s.interpreter.Derive(organisms, opts)
	result, err := interp.Run(c.Request.Context(), table.Calls)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}

	if s.deps.Store != nil {
		run := store.NewRun(result.Report, result.Summaries())
		if err := s.deps.Store.Save(c.Request.Context(), run); err != nil {
			s.logger.WithError(err).WithField("run_id", run.ID).Warn("Failed to persist run")
		}
	}

	c.Header("X-Run-ID", result.Report.RunID)
	if c.Query("format") == "tsv" {
		c.Header("Content-Type", "text/tab-separated-values; charset=utf-8")
		c.Status(http.StatusOK)
		if err := tsvio.WriteSummary(c.Writer, result.Summaries()); err != nil {
			_ = c.Error(err)
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListRuns(c *gin.Context) {
	if s.deps.Store == nil {
		s.fail(c, http.StatusServiceUnavailable, errors.New("run store is not configured"))
		return
	}
	limit, err := queryInt(c, "limit", defaultListLimit)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("invalid offset %q", c.Query("offset")))
		return
	}

	ctx := c.Request.Context()
	runs, err := s.deps.Store.List(ctx, limit, offset)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	total, err := s.deps.Store.Count(ctx)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "total": total, "limit": limit, "offset": offset})
}

func (s *Server) handleGetRun(c *gin.Context) {
	if s.deps.Store == nil {
		s.fail(c, http.StatusServiceUnavailable, errors.New("run store is not configured"))
		return
	}
	run, err := s.deps.Store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrRunNotFound) {
		s.fail(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error":      err.Error(),
		"request_id": c.GetString(middleware.RequestIDKey),
	})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}
