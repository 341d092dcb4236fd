package ui

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/adapters/stats/network"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/app"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/internal/config"
	apperrors "github.com/GrimCyberMed/MedResearch-AI-sub006/internal/errors"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/internal/report"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/ports"
)

// Server is the HTTP front end for the synthesis engine
type Server struct {
	router   *gin.Engine
	service  *app.SynthesisService
	networks *network.Analyzer
	reports  ports.AnalysisRepository
	rankSeed int64
}

// NewServer creates a server around an initialized service. The repository may
// be nil, in which case the report retrieval endpoints return 404.
func NewServer(cfg *config.Config, service *app.SynthesisService, reports ports.AnalysisRepository) *Server {
	gin.SetMode(cfg.Server.GinMode)
	s := &Server{
		router:   gin.Default(),
		service:  service,
		networks: network.NewAnalyzer(cfg.AnalysisConfig()),
		reports:  reports,
		rankSeed: cfg.Engine.RankingSeed,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api/v1")
	api.POST("/synthesize", s.handleSynthesize)
	api.POST("/network", s.handleNetwork)
	api.GET("/reports", s.handleListReports)
	api.GET("/reports/:id", s.handleGetReport)
	api.GET("/reports/:id/html", s.handleReportHTML)
}

// Start runs the server until the listener fails
func (s *Server) Start(addr string) error {
	log.Printf("[Server] Listening on http://%s", addr)
	return s.router.Run(addr)
}

// Router exposes the gin engine for tests
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSynthesize(c *gin.Context) {
	var req synthesis.OutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	rep, err := s.service.Synthesize(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

type networkRequest struct {
	Contrasts []synthesis.Contrast    `json:"contrasts"`
	Direction synthesis.RankDirection `json:"direction"`
	Seed      *int64                  `json:"seed,omitempty"`
}

func (s *Server) handleNetwork(c *gin.Context) {
	var req networkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Direction == "" {
		req.Direction = synthesis.HigherIsBetter
	}
	seed := s.rankSeed
	if req.Seed != nil {
		seed = *req.Seed
	}

	result, err := s.networks.Analyze(req.Contrasts, req.Direction, seed)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if c.Query("format") == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", report.ToHTML(report.NetworkMarkdown(result)))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListReports(c *gin.Context) {
	if s.reports == nil {
		c.JSON(http.StatusOK, gin.H{"reports": []ports.ReportSummary{}})
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	summaries, err := s.reports.ListReports(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": summaries, "count": len(summaries)})
}

func (s *Server) handleGetReport(c *gin.Context) {
	rep, ok := s.loadReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) handleReportHTML(c *gin.Context) {
	rep, ok := s.loadReport(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", report.ToHTML(report.Markdown(rep)))
}

func (s *Server) loadReport(c *gin.Context) (*synthesis.Report, bool) {
	if s.reports == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report persistence is not configured"})
		return nil, false
	}
	rep, err := s.reports.GetReport(c.Request.Context(), core.AnalysisID(c.Param("id")))
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}
	return rep, true
}

// writeError maps application error codes onto HTTP statuses
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperrors.GetCode(err) {
	case apperrors.CodeValidationError, apperrors.CodeInvalidInput, apperrors.CodeConfigInvalid:
		status = http.StatusBadRequest
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodeAnalysisError:
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		switch {
		case core.IsInsufficientStudies(err), core.IsConfigurationError(err),
			core.IsInsufficientData(err), core.IsDisconnectedNetwork(err):
			status = http.StatusUnprocessableEntity
		case core.IsNumericalInstability(err):
			status = http.StatusUnprocessableEntity
		}
	}
	log.Printf("[Server] Request failed (%d): %v", status, err)
	c.JSON(status, gin.H{"error": err.Error()})
}
