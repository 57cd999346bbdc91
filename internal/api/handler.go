package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"catalog-service/internal/clients"
	"catalog-service/internal/importer"
	"catalog-service/internal/models"
	"catalog-service/internal/service"
	"catalog-service/internal/store"
	"catalog-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Importer runs and dry-runs bulk imports
type Importer interface {
	Import(ctx context.Context, req service.ImportRequest) (*models.ImportResult, error)
	Validate(ctx context.Context, rows []importer.ProductRow, enrich bool) *service.ValidationReport
}

// JobReader reads bulk job status
type JobReader interface {
	GetJob(ctx context.Context, id string) (*models.ImportJob, error)
}

// ProductReader serves imported products
type ProductReader interface {
	GetProduct(ctx context.Context, sku string) (*service.ProductDetail, error)
}

// Sharer posts products to a social page
type Sharer interface {
	ShareProduct(ctx context.Context, session service.Poster, sku, link string) (*clients.SocialPostResult, error)
}

// UploadQueue parks uploads for the import worker
type UploadQueue interface {
	StoreUpload(ctx context.Context, id, fileName string, data []byte, ttl time.Duration) error
	SetJobStatus(ctx context.Context, job *models.ImportJob, ttl time.Duration) error
}

// RequestPublisher announces queued uploads
type RequestPublisher interface {
	PublishImportRequested(ctx context.Context, event *models.ImportRequestedEvent) error
}

// Pinger is a dependency checked by the readiness endpoint
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures request handling
type Options struct {
	Enrich         bool
	MaxUploadBytes int64
	FileTTL        time.Duration
	SocialEndpoint string
}

// Dependencies are the collaborators of the HTTP layer. Queue, Publisher,
// Social and the Pingers may be nil.
type Dependencies struct {
	Imports   Importer
	Jobs      JobReader
	Products  ProductReader
	Share     Sharer
	Queue     UploadQueue
	Publisher RequestPublisher
	Social    service.Poster
	Pingers   map[string]Pinger
}

// Handler contains HTTP handlers
type Handler struct {
	deps   Dependencies
	opts   Options
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(deps Dependencies, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.FileTTL <= 0 {
		opts.FileTTL = 24 * time.Hour
	}
	return &Handler{
		deps:   deps,
		opts:   opts,
		logger: util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/imports/template", h.downloadTemplate)
		v1.POST("/imports/validate", h.validateImport)
		v1.POST("/imports", h.createImport)
		v1.GET("/imports/:id", h.getImport)

		v1.GET("/products/:sku", h.getProduct)
		v1.POST("/products/:sku/share", h.shareProduct)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings the database and cache
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true
	for name, p := range h.deps.Pingers {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			checks[name] = err.Error()
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": status,
		"checks": checks,
		"time":   time.Now().Unix(),
	})
}

// downloadTemplate serves the import template as CSV (default) or XLSX
func (h *Handler) downloadTemplate(c *gin.Context) {
	switch c.DefaultQuery("format", "csv") {
	case "csv":
		c.Header("Content-Disposition", `attachment; filename="product_import_template.csv"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(importer.TemplateCSV()))
	case "xlsx":
		var buf bytes.Buffer
		if err := importer.TemplateXLSX(&buf); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to build template",
				"details": err.Error(),
			})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="product_import_template.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unsupported template format, use csv or xlsx",
		})
	}
}

// validateImport dry-runs an uploaded file
func (h *Handler) validateImport(c *gin.Context) {
	fileName, rows, ok := h.readUpload(c)
	if !ok {
		return
	}

	report := h.deps.Imports.Validate(c.Request.Context(), rows, h.enrich(c))
	h.logger.Info("Import validated",
		zap.String("file_name", fileName),
		zap.Int("rows", report.Total),
		zap.Int("invalid_rows", len(report.Errors)),
		zap.Int("warnings", len(report.Warnings)))

	c.JSON(http.StatusOK, report)
}

// createImport imports an uploaded file, or queues it when async=true
func (h *Handler) createImport(c *gin.Context) {
	fileName, data, ok := h.readFile(c)
	if !ok {
		return
	}
	rows, ok := h.parse(c, fileName, data)
	if !ok {
		return
	}
	enrich := h.enrich(c)

	if async, _ := formBool(c, "async"); async {
		h.queueImport(c, fileName, data, rows, enrich)
		return
	}

	result, err := h.deps.Imports.Import(c.Request.Context(), service.ImportRequest{
		FileName: fileName,
		Rows:     rows,
		Enrich:   enrich,
	})
	if err != nil {
		h.importError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) queueImport(c *gin.Context, fileName string, data []byte, rows []importer.ProductRow, enrich bool) {
	if h.deps.Queue == nil || h.deps.Publisher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Async import is not available",
		})
		return
	}

	// reject invalid files now instead of queueing them
	if invalid := importer.ValidateRows(rows); len(invalid) > 0 {
		h.importError(c, &service.ValidationError{Rows: invalid})
		return
	}

	ctx := c.Request.Context()
	job := &models.ImportJob{
		ID:        uuid.New().String(),
		Type:      models.JobTypeImport,
		Status:    models.JobStatusQueued,
		FileName:  fileName,
		TotalRows: len(rows),
		Errors:    models.ImportErrors{},
		StartedAt: time.Now(),
	}

	if err := h.deps.Queue.StoreUpload(ctx, job.ID, fileName, data, h.opts.FileTTL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to queue import",
			"details": err.Error(),
		})
		return
	}
	if err := h.deps.Queue.SetJobStatus(ctx, job, h.opts.FileTTL); err != nil {
		h.logger.Warn("Failed to cache queued job", zap.String("job_id", job.ID), zap.Error(err))
	}

	event := &models.ImportRequestedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeImportRequested),
		JobID:     job.ID,
		FileName:  fileName,
		Enrich:    enrich,
	}
	if err := h.deps.Publisher.PublishImportRequested(ctx, event); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to queue import",
			"details": err.Error(),
		})
		return
	}

	h.logger.Info("Import queued", zap.String("job_id", job.ID), zap.String("file_name", fileName))
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"jobId":   job.ID,
		"status":  job.Status,
		"total":   job.TotalRows,
	})
}

func (h *Handler) importError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error":   "Validation failed",
			"details": verr.Error(),
			"rows":    verr.Rows,
		})
	case errors.Is(err, service.ErrJobNotStarted):
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Import failed",
			"details": err.Error(),
		})
	}
}

// getImport returns a bulk job
func (h *Handler) getImport(c *gin.Context) {
	job, err := h.deps.Jobs.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Import job not found",
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get import job",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, job)
}

// getProduct returns a product with its variants and media
func (h *Handler) getProduct(c *gin.Context) {
	detail, err := h.deps.Products.GetProduct(c.Request.Context(), c.Param("sku"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Product not found",
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get product",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, detail)
}

// ShareRequest is the body of a share call. PageID and AccessToken select a
// page other than the configured one.
type ShareRequest struct {
	Link        string `json:"link"`
	PageID      string `json:"page_id"`
	AccessToken string `json:"access_token"`
}

// shareProduct posts a product to a social page
func (h *Handler) shareProduct(c *gin.Context) {
	var req ShareRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request body",
				"details": err.Error(),
			})
			return
		}
	}

	session := h.deps.Social
	if req.PageID != "" && req.AccessToken != "" {
		session = clients.NewSocialSession(h.opts.SocialEndpoint, req.PageID, req.AccessToken)
	}

	result, err := h.deps.Share.ShareProduct(c.Request.Context(), session, c.Param("sku"), req.Link)
	if err != nil {
		switch {
		case errors.Is(err, clients.ErrNotConfigured):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Social sharing is not configured",
			})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Product not found",
				"details": err.Error(),
			})
		default:
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "Failed to share product",
				"details": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"postId":  result.ID,
	})
}

// readUpload reads and parses the multipart "file" field. It writes the
// error response itself and returns ok=false on failure.
func (h *Handler) readUpload(c *gin.Context) (string, []importer.ProductRow, bool) {
	fileName, data, ok := h.readFile(c)
	if !ok {
		return "", nil, false
	}
	rows, ok := h.parse(c, fileName, data)
	return fileName, rows, ok
}

func (h *Handler) readFile(c *gin.Context) (string, []byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":   "File too large",
				"details": err.Error(),
			})
			return "", nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "A file is required in the \"file\" field",
			"details": err.Error(),
		})
		return "", nil, false
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to read file",
			"details": err.Error(),
		})
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to read file",
			"details": err.Error(),
		})
		return "", nil, false
	}
	return fh.Filename, data, true
}

func (h *Handler) parse(c *gin.Context, fileName string, data []byte) ([]importer.ProductRow, bool) {
	rows, err := importer.ParseFile(fileName, bytes.NewReader(data))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to parse file",
			"details": err.Error(),
		})
		return nil, false
	}
	return rows, true
}

func (h *Handler) enrich(c *gin.Context) bool {
	if b, ok := formBool(c, "enrich"); ok {
		return b
	}
	return h.opts.Enrich
}

// formBool reads a boolean from the form or, failing that, the query string
func formBool(c *gin.Context, key string) (bool, bool) {
	v := c.PostForm(key)
	if v == "" {
		v = c.Query(key)
	}
	b, err := strconv.ParseBool(v)
	return b, err == nil
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
