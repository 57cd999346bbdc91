package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"catalog-service/internal/clients"
	"catalog-service/internal/importer"
	"catalog-service/internal/models"
	"catalog-service/internal/service"
	"catalog-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type mockImporter struct {
	mock.Mock
}

func (m *mockImporter) Import(ctx context.Context, req service.ImportRequest) (*models.ImportResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImportResult), args.Error(1)
}

func (m *mockImporter) Validate(ctx context.Context, rows []importer.ProductRow, enrich bool) *service.ValidationReport {
	return m.Called(ctx, rows, enrich).Get(0).(*service.ValidationReport)
}

type mockJobs struct {
	mock.Mock
}

func (m *mockJobs) GetJob(ctx context.Context, id string) (*models.ImportJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImportJob), args.Error(1)
}

type mockProducts struct {
	mock.Mock
}

func (m *mockProducts) GetProduct(ctx context.Context, sku string) (*service.ProductDetail, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProductDetail), args.Error(1)
}

type mockSharer struct {
	mock.Mock
}

func (m *mockSharer) ShareProduct(ctx context.Context, session service.Poster, sku, link string) (*clients.SocialPostResult, error) {
	args := m.Called(ctx, session, sku, link)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.SocialPostResult), args.Error(1)
}

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) StoreUpload(ctx context.Context, id, fileName string, data []byte, ttl time.Duration) error {
	return m.Called(ctx, id, fileName, data, ttl).Error(0)
}

func (m *mockQueue) SetJobStatus(ctx context.Context, job *models.ImportJob, ttl time.Duration) error {
	return m.Called(ctx, job, ttl).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishImportRequested(ctx context.Context, event *models.ImportRequestedEvent) error {
	return m.Called(ctx, event).Error(0)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

func newRouter(deps Dependencies, opts Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(deps, opts).SetupRoutes(router)
	return router
}

func uploadRequest(t *testing.T, path, fileName, content string, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	part, err := w.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthAndReadiness(t *testing.T) {
	healthy := pingFunc(func(ctx context.Context) error { return nil })
	down := pingFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	router := newRouter(Dependencies{Pingers: map[string]Pinger{"database": healthy, "redis": healthy}}, Options{})
	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/ready", nil)).Code)

	router = newRouter(Dependencies{Pingers: map[string]Pinger{"database": healthy, "redis": down}}, Options{})
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, map[string]interface{}{"database": "ok", "redis": "connection refused"}, body["checks"])
}

func TestDownloadTemplate(t *testing.T) {
	router := newRouter(Dependencies{}, Options{})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/imports/template", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, importer.TemplateCSV(), rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "product_import_template.csv")

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/imports/template?format=xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.NotEmpty(t, f.GetSheetList())

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/imports/template?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateImport(t *testing.T) {
	imports := new(mockImporter)
	report := &service.ValidationReport{Valid: true, Total: 3, Errors: []importer.RowValidation{}, Preview: []service.RowPreview{}}
	imports.On("Validate", mock.Anything, mock.MatchedBy(func(rows []importer.ProductRow) bool {
		return len(rows) == 3 && rows[0].SKU == "ANK-002"
	}), false).Return(report).Once()

	router := newRouter(Dependencies{Imports: imports}, Options{Enrich: true})
	rec := serve(router, uploadRequest(t, "/api/v1/imports/validate", "stock.csv", importer.TemplateCSV(), map[string]string{"enrich": "false"}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["valid"])
	imports.AssertExpectations(t)
}

func TestCreateImport_Sync(t *testing.T) {
	imports := new(mockImporter)
	imports.On("Import", mock.Anything, mock.MatchedBy(func(req service.ImportRequest) bool {
		return req.FileName == "stock.csv" && req.Enrich && len(req.Rows) == 3 && req.JobID == ""
	})).Return(&models.ImportResult{Success: true, JobID: "job-1", Total: 3, SuccessCount: 3, Errors: []models.ImportRowError{}}, nil).Once()

	router := newRouter(Dependencies{Imports: imports}, Options{Enrich: true})
	rec := serve(router, uploadRequest(t, "/api/v1/imports", "stock.csv", importer.TemplateCSV(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "job-1", body["jobId"])
	assert.Equal(t, float64(3), body["successCount"])
	imports.AssertExpectations(t)
}

func TestCreateImport_Errors(t *testing.T) {
	verr := &service.ValidationError{Rows: []importer.RowValidation{
		{Row: 2, SKU: "ANK-002", Errors: []string{importer.MsgCategoryRequired}},
	}}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"validation", verr, http.StatusUnprocessableEntity, "Validation failed"},
		{"job not started", fmt.Errorf("%w: connection refused", service.ErrJobNotStarted), http.StatusInternalServerError, "import job could not be started: connection refused"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "Import failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imports := new(mockImporter)
			imports.On("Import", mock.Anything, mock.Anything).Return(nil, tt.err)

			router := newRouter(Dependencies{Imports: imports}, Options{})
			rec := serve(router, uploadRequest(t, "/api/v1/imports", "stock.csv", importer.TemplateCSV(), nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestCreateImport_BadUploads(t *testing.T) {
	router := newRouter(Dependencies{Imports: new(mockImporter)}, Options{})

	rec := serve(router, uploadRequest(t, "/api/v1/imports", "stock.pdf", "%PDF", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, importer.ErrUnsupportedFormat.Error(), decode(t, rec)["details"])

	rec = serve(router, uploadRequest(t, "/api/v1/imports", "stock.csv", "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, serve(router, req).Code)
}

func TestCreateImport_Async(t *testing.T) {
	queue := new(mockQueue)
	publisher := new(mockPublisher)
	csv := importer.TemplateCSV()

	var jobID string
	queue.On("StoreUpload", mock.Anything, mock.AnythingOfType("string"), "stock.csv", []byte(csv), 2*time.Hour).
		Run(func(args mock.Arguments) { jobID = args.String(1) }).
		Return(nil).Once()
	queue.On("SetJobStatus", mock.Anything, mock.MatchedBy(func(job *models.ImportJob) bool {
		return job.Status == models.JobStatusQueued && job.TotalRows == 3
	}), 2*time.Hour).Return(errors.New("cache down")).Once()
	publisher.On("PublishImportRequested", mock.Anything, mock.MatchedBy(func(e *models.ImportRequestedEvent) bool {
		return e.JobID == jobID && e.FileName == "stock.csv" && !e.Enrich
	})).Return(nil).Once()

	router := newRouter(Dependencies{Imports: new(mockImporter), Queue: queue, Publisher: publisher}, Options{FileTTL: 2 * time.Hour})
	rec := serve(router, uploadRequest(t, "/api/v1/imports", "stock.csv", csv, map[string]string{"async": "true", "enrich": "0"}))

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, jobID, body["jobId"])
	assert.Equal(t, models.JobStatusQueued, body["status"])
	queue.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestCreateImport_AsyncRejectsInvalidFile(t *testing.T) {
	queue := new(mockQueue)
	router := newRouter(Dependencies{Imports: new(mockImporter), Queue: queue, Publisher: new(mockPublisher)}, Options{})

	csv := strings.Join(importer.Columns, ",") + "\nANK-002,,Anarkali,,,,,S,S:1,,3299,,,,,,\n"
	rec := serve(router, uploadRequest(t, "/api/v1/imports", "stock.csv", csv, map[string]string{"async": "true"}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	queue.AssertNotCalled(t, "StoreUpload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateImport_AsyncUnavailable(t *testing.T) {
	router := newRouter(Dependencies{Imports: new(mockImporter)}, Options{})
	rec := serve(router, uploadRequest(t, "/api/v1/imports", "stock.csv", importer.TemplateCSV(), map[string]string{"async": "true"}))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetImport(t *testing.T) {
	jobs := new(mockJobs)
	jobs.On("GetJob", mock.Anything, "job-1").Return(&models.ImportJob{ID: "job-1", Status: models.JobStatusDone}, nil)
	jobs.On("GetJob", mock.Anything, "nope").Return(nil, fmt.Errorf("failed to get import job: %w", store.ErrNotFound))

	router := newRouter(Dependencies{Jobs: jobs}, Options{})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/imports/job-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "done", decode(t, rec)["status"])

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/imports/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetProduct(t *testing.T) {
	products := new(mockProducts)
	products.On("GetProduct", mock.Anything, "ANK-002").Return(&service.ProductDetail{
		Product:  &models.Product{SKU: "ANK-002", Name: "Anarkali Suit"},
		Variants: []models.ProductVariant{{SKUVariant: "ANK-002-S", Size: "S", StockQty: 5}},
	}, nil)
	products.On("GetProduct", mock.Anything, "NOPE").Return(nil, store.ErrNotFound)

	router := newRouter(Dependencies{Products: products}, Options{})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/products/ANK-002", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["variants"], 1)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/products/NOPE", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShareProduct(t *testing.T) {
	defaultPage := clients.NewSocialSession("https://graph.example.com", "page-1", "token-1")

	t.Run("configured page", func(t *testing.T) {
		share := new(mockSharer)
		share.On("ShareProduct", mock.Anything, service.Poster(defaultPage), "ANK-002", "https://shop.example.com/ank-002").
			Return(&clients.SocialPostResult{ID: "page-1_99"}, nil).Once()

		router := newRouter(Dependencies{Share: share, Social: defaultPage}, Options{})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products/ANK-002/share", strings.NewReader(`{"link":"https://shop.example.com/ank-002"}`))
		req.Header.Set("Content-Type", "application/json")

		rec := serve(router, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "page-1_99", decode(t, rec)["postId"])
		share.AssertExpectations(t)
	})

	t.Run("per request page", func(t *testing.T) {
		share := new(mockSharer)
		share.On("ShareProduct", mock.Anything, mock.MatchedBy(func(p service.Poster) bool {
			s, ok := p.(*clients.SocialSession)
			return ok && s.PageID() == "page-2"
		}), "ANK-002", "").Return(&clients.SocialPostResult{ID: "page-2_1"}, nil).Once()

		router := newRouter(Dependencies{Share: share, Social: defaultPage}, Options{SocialEndpoint: "https://graph.example.com"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products/ANK-002/share", strings.NewReader(`{"page_id":"page-2","access_token":"t"}`))
		req.Header.Set("Content-Type", "application/json")

		assert.Equal(t, http.StatusOK, serve(router, req).Code)
		share.AssertExpectations(t)
	})

	t.Run("error mapping", func(t *testing.T) {
		tests := []struct {
			err  error
			want int
		}{
			{clients.ErrNotConfigured, http.StatusServiceUnavailable},
			{store.ErrNotFound, http.StatusNotFound},
			{errors.New("invalid token"), http.StatusBadGateway},
		}
		for _, tt := range tests {
			share := new(mockSharer)
			share.On("ShareProduct", mock.Anything, mock.Anything, "ANK-002", "").Return(nil, tt.err)

			router := newRouter(Dependencies{Share: share}, Options{})
			rec := serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/products/ANK-002/share", nil))
			assert.Equal(t, tt.want, rec.Code, tt.err.Error())
		}
	})
}
