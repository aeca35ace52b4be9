// Package server exposes the import pipeline and the stored entities over
// a small HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rezonia/fiscal-processor/internal/cnpj"
	"github.com/rezonia/fiscal-processor/internal/importer"
	"github.com/rezonia/fiscal-processor/internal/model"
	xmlparser "github.com/rezonia/fiscal-processor/internal/parser/xml"
	"github.com/rezonia/fiscal-processor/internal/storage/sqlite"
)

// Config holds server configuration
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
}

// Server represents the HTTP API server
type Server struct {
	config   *Config
	router   *gin.Engine
	registry *xmlparser.Registry
	importer *importer.Service
	store    *sqlite.Store
}

// NewServer creates a new API server over an opened store
func NewServer(config *Config, store *sqlite.Store) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}

	registry := xmlparser.NewRegistry()

	s := &Server{
		config:   config,
		router:   router,
		registry: registry,
		importer: importer.New(registry, store),
		store:    store,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/import", s.handleImport)
		v1.POST("/validate", s.handleValidate)

		v1.GET("/clients", s.handleSearchClients)
		v1.GET("/products", s.handleSearchProducts)

		v1.GET("/info", s.handleInfo)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return srv.ListenAndServe()
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleImport(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return
	}

	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	summary, err := s.importer.Process(ctx, body)
	if err != nil {
		if model.IsDataError(err) {
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, ImportResponse{Imported: summary})
}

func (s *Server) handleValidate(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return
	}

	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty request body"})
		return
	}

	doc, err := s.registry.Parse(body)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ValidationResponse{
			Valid:  false,
			Errors: []string{err.Error()},
		})
		return
	}

	errors, warnings := validateDocument(doc)
	c.JSON(http.StatusOK, ValidationResponse{
		Valid:    len(errors) == 0,
		DocType:  string(doc.Type),
		Errors:   errors,
		Warnings: warnings,
	})
}

func (s *Server) handleSearchClients(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing query parameter q"})
		return
	}

	results, err := s.store.Receivers().Search(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SearchClientsResponse{Query: query, Results: results})
}

func (s *Server) handleSearchProducts(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing query parameter q"})
		return
	}

	results, err := s.store.Products().Search(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SearchProductsResponse{Query: query, Results: results})
}

func (s *Server) handleInfo(c *gin.Context) {
	kinds := make([]KindInfo, 0)
	for _, kind := range s.registry.Kinds() {
		kinds = append(kinds, KindInfo{
			Kind:   string(kind),
			Anchor: s.registry.GetExtractor(kind).Anchor(),
		})
	}
	c.JSON(http.StatusOK, InfoResponse{Kinds: kinds})
}

func validateDocument(doc *model.Document) ([]string, []string) {
	var errors, warnings []string

	if doc.AccessKey == "" {
		errors = append(errors, "missing access key")
	} else if len(doc.AccessKey) != 44 {
		warnings = append(warnings, "access key is not 44 digits")
	}

	if doc.Emitter.TaxID == "" {
		errors = append(errors, "missing emitter tax ID")
	} else if len(doc.Emitter.TaxID) == 14 && !cnpj.Valid(doc.Emitter.TaxID) {
		warnings = append(warnings, "emitter CNPJ check digits do not match")
	}

	if doc.Total.IsZero() {
		warnings = append(warnings, "total amount is zero or missing")
	}
	if doc.IssueDate == "" {
		warnings = append(warnings, "missing issue date")
	}

	return errors, warnings
}
