package api

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klavins/tender-finder/internal/config"
	"github.com/klavins/tender-finder/internal/fetch"
	"github.com/klavins/tender-finder/internal/models"
	"github.com/klavins/tender-finder/internal/search"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	Echo       *echo.Echo
	Config     *config.Config
	Scanner    *search.Scanner
	Downloader *fetch.Downloader

	// Background job tracking
	jobMu      sync.Mutex
	runningJob *backgroundJob
}

type backgroundJob struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"` // running, completed, failed
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at,omitempty"`
	Result    any                `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	Cancel    context.CancelFunc `json:"-"`
}

var (
	adminSecretOnce    sync.Once
	adminSecretRuntime string
	adminSecretErr     error
)

func NewServer(cfg *config.Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// CORS: allow frontend origins from env or default to localhost
	allowedOrigins := []string{"http://localhost:4200"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Admin-Secret"},
	}))

	scanner := search.NewScanner(cfg.CorpusDir)
	if cfg.BatchSize > 0 {
		scanner.BatchSize = cfg.BatchSize
	}
	if cfg.Workers > 0 {
		scanner.Workers = cfg.Workers
	}

	downloader := fetch.New(fetch.Config{
		Host:           cfg.FTP.Host,
		User:           cfg.FTP.User,
		Password:       cfg.FTP.Password,
		ArchiveDir:     cfg.ArchiveDir,
		CorpusDir:      cfg.CorpusDir,
		DaysToDownload: cfg.FTP.DaysToDownload,
		DaysToKeep:     cfg.FTP.DaysToKeep,
		TimeoutSeconds: cfg.FTP.TimeoutSeconds,
	})

	s := &Server{
		Echo:       e,
		Config:     cfg,
		Scanner:    scanner,
		Downloader: downloader,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	api := s.Echo.Group("/api")
	api.POST("/search", s.handleSearch)
	api.GET("/config", s.handleConfig)
	api.GET("/status", s.handleStatus)

	// Admin routes (archive mirror control)
	admin := api.Group("/admin")
	admin.Use(s.adminMiddleware)
	admin.POST("/fetch", s.handleTriggerFetch)
	admin.GET("/job/:id", s.handleJobStatus)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	StartDate       string   `json:"start_date"`
	EndDate         string   `json:"end_date"`
	Keywords        []string `json:"keywords"`
	CPVCodes        []string `json:"cpv_codes"`
	ExcludeKeywords []string `json:"exclude_keywords"`
	Statuses        []string `json:"statuses"`
	ProcedureTypes  []string `json:"procedure_types"`
	DeadlineStatus  string   `json:"deadline_status"`
	ShowAll         bool     `json:"show_all"`
	IncludeSnippets bool     `json:"include_snippets"`
}

type searchResult struct {
	TotalFound int              `json:"total_found"`
	Results    []searchResponse `json:"results"`
}

// searchResponse serializes the notice fields at the top level, with
// context snippets as an optional sibling key.
type searchResponse struct {
	models.NoticeRecord
	Snippets []search.Snippet `json:"context_snippets,omitempty"`
}

func (s *Server) handleSearch(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.StartDate == "" || req.EndDate == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "start_date and end_date are required"})
	}

	criteria := search.SearchCriteria{
		Keywords:        req.Keywords,
		CPVCodes:        req.CPVCodes,
		ExcludeKeywords: req.ExcludeKeywords,
		Statuses:        req.Statuses,
		ProcedureTypes:  req.ProcedureTypes,
		DeadlineStatus:  req.DeadlineStatus,
		ShowAll:         req.ShowAll,
	}

	records, err := s.Scanner.Scan(req.StartDate, req.EndDate, criteria)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	results := make([]searchResponse, 0, len(records))
	for i := range records {
		item := searchResponse{NoticeRecord: records[i]}
		if req.IncludeSnippets && len(records[i].MatchedKeywords) > 0 {
			text := strings.Join([]string{records[i].Title, records[i].Description}, " ")
			item.Snippets = search.ContextSnippets(text, records[i].MatchedKeywords, 100)
		}
		results = append(results, item)
	}

	return c.JSON(http.StatusOK, searchResult{TotalFound: len(records), Results: results})
}

func (s *Server) handleConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"suggested_keywords": s.Config.SuggestedKeywords,
		"common_cpv_codes":   s.Config.CommonCPVCodes,
		"statuses":           search.KnownStatuses,
		"deadline_statuses":  []string{search.DeadlineAll, search.DeadlineActive, search.DeadlineExpired},
		"procedure_groups":   search.ProcedureGroups(),
	})
}

func (s *Server) handleStatus(c echo.Context) error {
	if !s.Downloader.HasMetadata() {
		return c.JSON(http.StatusOK, map[string]any{
			"status":  "error",
			"message": "No downloaded files. Run the fetcher first.",
		})
	}

	status := s.Downloader.Status()
	totalXML, xmlByDate := fetch.CountCorpusFiles(s.Config.CorpusDir)
	return c.JSON(http.StatusOK, map[string]any{
		"status":          "ok",
		"last_update":     status.LastUpdate,
		"total_archives":  status.TotalFiles,
		"total_xml_files": totalXML,
		"files_by_date":   xmlByDate,
	})
}

func (s *Server) handleTriggerFetch(c echo.Context) error {
	s.jobMu.Lock()
	if s.runningJob != nil && s.runningJob.Status == "running" {
		job := s.runningJob
		s.jobMu.Unlock()
		return c.JSON(http.StatusConflict, map[string]any{
			"error":  "A fetch job is already running",
			"job_id": job.ID,
		})
	}

	// context.WithoutCancel detaches from HTTP lifecycle but preserves
	// trace values. We add our own timeout for safety.
	jobCtx, jobCancel := context.WithTimeout(
		context.WithoutCancel(c.Request().Context()), 30*time.Minute,
	)

	jobID := uuid.New().String()[:8]
	job := &backgroundJob{
		ID:        jobID,
		Status:    "running",
		StartedAt: time.Now(),
		Cancel:    jobCancel,
	}
	s.runningJob = job
	s.jobMu.Unlock()

	// Runs in a background goroutine; the handler returns 202 immediately.
	go func() {
		defer jobCancel()
		err := s.Downloader.Run(jobCtx)

		s.jobMu.Lock()
		defer s.jobMu.Unlock()
		job.EndedAt = time.Now()
		if err != nil {
			job.Status = "failed"
			job.Error = err.Error()
			log.Printf("[fetch-job %s] failed: %v", jobID, err)
			return
		}
		job.Status = "completed"
		job.Result = s.Downloader.Status()
		log.Printf("[fetch-job %s] completed", jobID)
	}()

	return c.JSON(http.StatusAccepted, map[string]any{
		"message": "Fetch job started",
		"job_id":  jobID,
		"poll":    fmt.Sprintf("/api/admin/job/%s", jobID),
	})
}

func (s *Server) handleJobStatus(c echo.Context) error {
	queried := c.Param("id")
	s.jobMu.Lock()
	job := s.runningJob
	s.jobMu.Unlock()

	if job == nil || job.ID != queried {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	s.jobMu.Lock()
	resp := map[string]any{
		"id":         job.ID,
		"status":     job.Status,
		"started_at": job.StartedAt,
	}
	if !job.EndedAt.IsZero() {
		resp["ended_at"] = job.EndedAt
		resp["duration"] = job.EndedAt.Sub(job.StartedAt).String()
	}
	if job.Result != nil {
		resp["result"] = job.Result
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	s.jobMu.Unlock()

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		secret, err := adminSecret()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server admin configuration error"})
		}

		// Check X-Admin-Secret header or Bearer token
		authHeader := c.Request().Header.Get("Authorization")
		adminHeader := c.Request().Header.Get("X-Admin-Secret")

		if adminHeader == secret {
			return next(c)
		}
		if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
			if authHeader[7:] == secret {
				return next(c)
			}
		}

		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized admin access"})
	}
}

func adminSecret() (string, error) {
	adminSecretOnce.Do(func() {
		secret := strings.TrimSpace(os.Getenv("ADMIN_SECRET"))
		if secret != "" {
			adminSecretRuntime = secret
			return
		}

		buf := make([]byte, 48)
		if _, err := rand.Read(buf); err != nil {
			adminSecretErr = fmt.Errorf("failed to generate ADMIN_SECRET fallback: %w", err)
			return
		}

		adminSecretRuntime = base64.RawURLEncoding.EncodeToString(buf)
		log.Print("ADMIN_SECRET is not set; using ephemeral in-memory fallback secret")
	})

	if adminSecretErr != nil {
		return "", adminSecretErr
	}
	if adminSecretRuntime == "" {
		return "", fmt.Errorf("admin secret unavailable")
	}

	return adminSecretRuntime, nil
}
