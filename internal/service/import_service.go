package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"catalog-service/internal/importer"
	"catalog-service/internal/models"
	"catalog-service/internal/store"
	"catalog-service/internal/util"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrJobNotStarted is returned when the bulk job record cannot be created.
// Nothing has been written when it is returned.
var ErrJobNotStarted = errors.New("import job could not be started")

// VariantPolicy decides how a re-imported product's variants are reconciled
type VariantPolicy int

const (
	// FullReplaceVariants deletes every existing variant and inserts the new set
	FullReplaceVariants VariantPolicy = iota
	// MergeVariants updates variants whose SKU is unchanged, inserts new sizes
	// and deletes sizes no longer declared
	MergeVariants
)

// MediaPolicy decides what happens to existing media on re-import
type MediaPolicy int

const (
	// AppendMedia always inserts the row's extra images
	AppendMedia MediaPolicy = iota
	// ReplaceMedia deletes the product's media before inserting
	ReplaceMedia
)

// Repository is the persistence the importer needs
type Repository interface {
	RunInTx(ctx context.Context, fn func(store.Catalog) error) error
	CreateImportJob(ctx context.Context, job *models.ImportJob) error
	FinishImportJob(ctx context.Context, job *models.ImportJob) error
}

// SKULocker serialises imports of the same SKU across processes
type SKULocker interface {
	LockSKU(ctx context.Context, sku string, ttl time.Duration) (func(), error)
}

// ImportCache receives job status and storefront stock after writes
type ImportCache interface {
	SetJobStatus(ctx context.Context, job *models.ImportJob, ttl time.Duration) error
	SetVariantStock(ctx context.Context, sku string, variants []models.ProductVariant) error
}

// ImportEvents receives import domain events
type ImportEvents interface {
	PublishImportCompleted(ctx context.Context, event *models.ImportCompletedEvent) error
	PublishProductImported(ctx context.Context, event *models.ProductImportedEvent) error
}

// ImportOptions tunes the orchestrator
type ImportOptions struct {
	Workers     int
	Variants    VariantPolicy
	Media       MediaPolicy
	LockTTL     time.Duration
	JobCacheTTL time.Duration
}

// ImportRequest is one parsed file to import
type ImportRequest struct {
	// JobID is used as the bulk job id when set; async uploads reserve it early.
	JobID    string
	FileName string
	Rows     []importer.ProductRow
	Enrich   bool
}

// ImportService runs the bulk import pipeline
type ImportService struct {
	repo   Repository
	locker SKULocker
	cache  ImportCache
	events ImportEvents
	opts   ImportOptions
	logger *zap.Logger
}

// NewImportService creates a new import service. locker, cache and events
// may be nil.
func NewImportService(
	repo Repository,
	locker SKULocker,
	cache ImportCache,
	events ImportEvents,
	opts ImportOptions,
) *ImportService {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	if opts.JobCacheTTL <= 0 {
		opts.JobCacheTTL = 24 * time.Hour
	}

	return &ImportService{
		repo:   repo,
		locker: locker,
		cache:  cache,
		events: events,
		opts:   opts,
		logger: util.GetLogger(),
	}
}

// Import validates the rows, then writes them one by one. Validation
// failures return *ValidationError before anything is written. Row failures
// are reported in the result and never abort the batch.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (*models.ImportResult, error) {
	ctx, span := util.StartSpan(ctx, "ImportService.Import")
	defer span.End()
	span.SetAttributes(
		attribute.String("file_name", req.FileName),
		attribute.Int("rows", len(req.Rows)),
	)

	if invalid := importer.ValidateRows(req.Rows); len(invalid) > 0 {
		util.ImportValidationRejectedTotal.Inc()
		s.logger.Info("Import blocked by validation",
			zap.String("file_name", req.FileName),
			zap.Int("invalid_rows", len(invalid)))
		return nil, &ValidationError{Rows: invalid}
	}

	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.New().String()
	}
	job := &models.ImportJob{
		ID:        jobID,
		Type:      models.JobTypeImport,
		Status:    models.JobStatusRunning,
		FileName:  req.FileName,
		TotalRows: len(req.Rows),
	}

	if err := s.repo.CreateImportJob(ctx, job); err != nil {
		util.RecordError(span, err)
		util.ImportJobsTotal.WithLabelValues("not_started").Inc()
		return nil, fmt.Errorf("%w: %v", ErrJobNotStarted, err)
	}
	span.SetAttributes(attribute.String("job_id", job.ID))
	s.cacheJob(ctx, job)

	s.logger.Info("Import started",
		zap.String("job_id", job.ID),
		zap.String("file_name", job.FileName),
		zap.Int("rows", job.TotalRows),
		zap.Bool("enrich", req.Enrich),
		zap.Int("workers", s.opts.Workers))

	started := time.Now()
	outcome := s.runRows(ctx, job, req.Rows, req.Enrich)

	job.ProcessedRows = len(outcome.Rows)
	job.SuccessCount = outcome.SuccessCount()
	job.ErrorCount = outcome.ErrorCount()
	job.Errors = outcome.Errors()
	job.Status = models.JobStatusDone
	if job.ErrorCount > 0 {
		job.Status = models.JobStatusFailed
	}

	// the job must be closed even when the import itself was cancelled
	closeCtx := context.WithoutCancel(ctx)
	if err := s.repo.FinishImportJob(closeCtx, job); err != nil {
		s.logger.Error("Failed to finish import job", zap.String("job_id", job.ID), zap.Error(err))
	}
	s.cacheJob(closeCtx, job)

	util.ImportJobsTotal.WithLabelValues(job.Status).Inc()
	util.ImportJobDuration.Observe(time.Since(started).Seconds())

	s.publishCompleted(closeCtx, job)

	s.logger.Info("Import finished",
		zap.String("job_id", job.ID),
		zap.String("status", job.Status),
		zap.Int("success", job.SuccessCount),
		zap.Int("errors", job.ErrorCount),
		zap.Duration("took", time.Since(started)))

	return outcome.Result(), nil
}

// RejectImport records a job that failed before any row was written, such as
// an async upload whose file did not parse or validate.
func (s *ImportService) RejectImport(ctx context.Context, req ImportRequest, errs models.ImportErrors) error {
	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.New().String()
	}
	if errs == nil {
		errs = models.ImportErrors{}
	}
	job := &models.ImportJob{
		ID:         jobID,
		Type:       models.JobTypeImport,
		Status:     models.JobStatusFailed,
		FileName:   req.FileName,
		TotalRows:  len(req.Rows),
		ErrorCount: len(errs),
		Errors:     errs,
	}

	if err := s.repo.CreateImportJob(ctx, job); err != nil {
		return fmt.Errorf("%w: %v", ErrJobNotStarted, err)
	}
	if err := s.repo.FinishImportJob(ctx, job); err != nil {
		return fmt.Errorf("failed to finish rejected job: %w", err)
	}

	util.ImportJobsTotal.WithLabelValues("rejected").Inc()
	s.cacheJob(ctx, job)
	s.publishCompleted(ctx, job)

	s.logger.Info("Import rejected",
		zap.String("job_id", job.ID),
		zap.String("file_name", job.FileName),
		zap.Int("errors", job.ErrorCount))
	return nil
}

// runRows fans rows out to workers. Rows of one SKU always land on the same
// worker, so they are applied in file order.
func (s *ImportService) runRows(ctx context.Context, job *models.ImportJob, rows []importer.ProductRow, enrich bool) *ImportOutcome {
	outcome := &ImportOutcome{JobID: job.ID, Rows: make([]RowOutcome, len(rows))}

	workers := s.opts.Workers
	if workers > len(rows) {
		workers = len(rows)
	}
	if workers <= 1 {
		for i, row := range rows {
			outcome.Rows[i] = s.processRow(ctx, job, i, row, enrich)
		}
		return outcome
	}

	shards := make([][]int, workers)
	for i, row := range rows {
		w := shardFor(row.SKU, workers)
		shards[w] = append(shards[w], i)
	}

	var g errgroup.Group
	for _, shard := range shards {
		shard := shard
		g.Go(func() error {
			for _, i := range shard {
				outcome.Rows[i] = s.processRow(ctx, job, i, rows[i], enrich)
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcome
}

func shardFor(sku string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(sku))
	return int(h.Sum32() % uint32(n))
}

func (s *ImportService) processRow(ctx context.Context, job *models.ImportJob, index int, row importer.ProductRow, enrich bool) RowOutcome {
	start := time.Now()
	out := RowOutcome{Row: rowNumber(index, row), SKU: row.SKU}

	defer func() {
		util.ImportRowLatency.Observe(time.Since(start).Seconds())
		if out.Err != nil {
			util.ImportRowsTotal.WithLabelValues("failed").Inc()
			s.logger.Warn("Import row failed",
				zap.String("job_id", job.ID),
				zap.Int("row", out.Row),
				zap.String("sku", out.SKU),
				zap.Error(out.Err))
			return
		}
		util.ImportRowsTotal.WithLabelValues("success").Inc()
	}()

	if err := ctx.Err(); err != nil {
		out.Err = fmt.Errorf("import cancelled: %w", err)
		return out
	}

	ctx, span := util.StartSpan(ctx, "ImportService.processRow")
	defer span.End()
	span.SetAttributes(attribute.String("sku", row.SKU), attribute.Int("row", out.Row))

	var enriched importer.EnrichedRow
	if enrich {
		enriched = importer.Enrich(row)
	} else {
		enriched = importer.Passthrough(row)
	}

	sizes, err := importer.ExpandSizes(row.SizesField(), row.StockField())
	if err != nil {
		out.Err = err
		util.RecordError(span, err)
		return out
	}

	if s.locker != nil {
		unlock, err := s.locker.LockSKU(ctx, row.SKU, s.opts.LockTTL)
		if err != nil {
			out.Err = err
			util.RecordError(span, err)
			return out
		}
		defer unlock()
	}

	var applied RowOutcome
	err = s.repo.RunInTx(ctx, func(c store.Catalog) error {
		applied = RowOutcome{Row: out.Row, SKU: out.SKU}
		return s.applyRow(ctx, c, job, enriched, sizes, &applied)
	})
	if err != nil {
		out.Err = err
		util.RecordError(span, err)
		return out
	}
	out = applied

	util.ImportVariantsCreatedTotal.Add(float64(out.VariantsCreated))
	util.StockMovementsWrittenTotal.Add(float64(out.Movements))

	s.afterRow(ctx, job, out)
	return out
}

// applyRow upserts the product, reconciles its variants, writes opening stock
// movements for new products and attaches media. It runs inside one
// transaction.
func (s *ImportService) applyRow(
	ctx context.Context,
	c store.Catalog,
	job *models.ImportJob,
	row importer.EnrichedRow,
	sizes []importer.SizeVariant,
	out *RowOutcome,
) error {
	total := importer.TotalStock(sizes)
	product, err := buildProduct(row, sizes, total)
	if err != nil {
		return err
	}

	existing, err := c.GetProductBySKU(ctx, row.SKU)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := c.CreateProduct(ctx, product); err != nil {
			return err
		}
		out.Created = true
	case err != nil:
		return fmt.Errorf("failed to look up product: %w", err)
	default:
		product.ID = existing.ID
		product.Status = existing.Status
		product.CreatedAt = existing.CreatedAt
		if err := c.UpdateProduct(ctx, product); err != nil {
			return err
		}
	}
	out.ProductID = product.ID
	out.StockQty = total

	wanted := buildVariants(product.ID, row.SKU, sizes)
	if out.Created {
		if err := c.CreateVariants(ctx, wanted); err != nil {
			return err
		}
		out.Variants = wanted
		out.VariantsCreated = len(wanted)
	} else if err := s.reconcileVariants(ctx, c, product.ID, wanted, out); err != nil {
		return err
	}

	if out.Created && total > 0 {
		movements := openingMovements(job, product.ID, out.Variants)
		if err := c.CreateStockMovements(ctx, movements); err != nil {
			return err
		}
		out.Movements = len(movements)
	}

	if s.opts.Media == ReplaceMedia && !out.Created {
		if err := c.DeleteMediaByProduct(ctx, product.ID); err != nil {
			return err
		}
	}
	if media := buildMedia(product.ID, row.ProductRow); len(media) > 0 {
		if err := c.CreateMedia(ctx, media); err != nil {
			return err
		}
	}

	return nil
}

func (s *ImportService) reconcileVariants(
	ctx context.Context,
	c store.Catalog,
	productID int64,
	wanted []models.ProductVariant,
	out *RowOutcome,
) error {
	if s.opts.Variants == FullReplaceVariants {
		if _, err := c.DeleteVariantsByProduct(ctx, productID); err != nil {
			return err
		}
		if err := c.CreateVariants(ctx, wanted); err != nil {
			return err
		}
		out.Variants = wanted
		out.VariantsCreated = len(wanted)
		return nil
	}

	current, err := c.ListVariants(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to list variants: %w", err)
	}
	bySKU := make(map[string]models.ProductVariant, len(current))
	for _, v := range current {
		bySKU[v.SKUVariant] = v
	}

	var toCreate []models.ProductVariant
	for i := range wanted {
		v := &wanted[i]
		prev, ok := bySKU[v.SKUVariant]
		if !ok {
			toCreate = append(toCreate, *v)
			continue
		}
		delete(bySKU, v.SKUVariant)
		v.ID = prev.ID
		v.CreatedAt = prev.CreatedAt
		if err := c.UpdateVariant(ctx, v); err != nil {
			return err
		}
	}

	var stale []int64
	for _, v := range current {
		if _, ok := bySKU[v.SKUVariant]; ok {
			stale = append(stale, v.ID)
		}
	}
	if err := c.DeleteVariants(ctx, stale); err != nil {
		return err
	}

	if len(toCreate) > 0 {
		if err := c.CreateVariants(ctx, toCreate); err != nil {
			return err
		}
		created := make(map[string]models.ProductVariant, len(toCreate))
		for _, v := range toCreate {
			created[v.SKUVariant] = v
		}
		for i := range wanted {
			if v, ok := created[wanted[i].SKUVariant]; ok {
				wanted[i] = v
			}
		}
	}

	out.Variants = wanted
	out.VariantsCreated = len(toCreate)
	return nil
}

// afterRow pushes side effects of a committed row. Failures are logged only.
func (s *ImportService) afterRow(ctx context.Context, job *models.ImportJob, out RowOutcome) {
	if s.cache != nil {
		if err := s.cache.SetVariantStock(ctx, out.SKU, out.Variants); err != nil {
			s.logger.Warn("Failed to cache stock", zap.String("sku", out.SKU), zap.Error(err))
		}
	}

	if s.events == nil {
		return
	}

	variants := make([]models.VariantStockData, 0, len(out.Variants))
	for _, v := range out.Variants {
		variants = append(variants, models.VariantStockData{
			SKUVariant: v.SKUVariant,
			Size:       v.Size,
			StockQty:   v.StockQty,
		})
	}

	event := &models.ProductImportedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeProductImported),
		JobID:     job.ID,
		ProductID: out.ProductID,
		SKU:       out.SKU,
		Created:   out.Created,
		StockQty:  out.StockQty,
		Variants:  variants,
	}
	if err := s.events.PublishProductImported(ctx, event); err != nil {
		s.logger.Warn("Failed to publish product imported event", zap.String("sku", out.SKU), zap.Error(err))
	}
}

func (s *ImportService) publishCompleted(ctx context.Context, job *models.ImportJob) {
	if s.events == nil {
		return
	}

	event := &models.ImportCompletedEvent{
		BaseEvent:    models.NewBaseEvent(models.EventTypeImportCompleted),
		JobID:        job.ID,
		FileName:     job.FileName,
		Status:       job.Status,
		Total:        job.TotalRows,
		SuccessCount: job.SuccessCount,
		ErrorCount:   job.ErrorCount,
		Errors:       job.Errors,
	}
	if err := s.events.PublishImportCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish import completed event", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (s *ImportService) cacheJob(ctx context.Context, job *models.ImportJob) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJobStatus(ctx, job, s.opts.JobCacheTTL); err != nil {
		s.logger.Warn("Failed to cache job status", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func buildProduct(row importer.EnrichedRow, sizes []importer.SizeVariant, total int) (*models.Product, error) {
	price, err := importer.ParsePrice(row.SellingPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid selling price %q: %w", row.SellingPrice, err)
	}

	names := make(pq.StringArray, 0, len(sizes))
	for _, v := range sizes {
		names = append(names, v.Size)
	}

	tags := pq.StringArray(row.TagList)
	if tags == nil {
		tags = pq.StringArray{}
	}

	return &models.Product{
		SKU:              row.SKU,
		DesignNo:         row.DesignNo,
		Name:             row.Name,
		Category:         row.Category,
		Subcategory:      row.Subcategory,
		Fabric:           row.Fabric,
		Color:            row.Color,
		Sizes:            names,
		StockQty:         total,
		CostPrice:        importer.ParseOptionalPrice(row.CostPrice),
		SellingPrice:     price,
		MRP:              importer.ParseOptionalPrice(row.MRP),
		Description:      row.Description,
		CareInstructions: row.CareInstructions,
		SEOTitle:         row.SEOTitle,
		Tags:             tags,
		ImageURL:         row.ImageURL1,
		AIGenerated:      row.AIGenerated,
		AIConfidence:     row.AIConfidence,
		Status:           models.ProductStatusActive,
	}, nil
}

func buildVariants(productID int64, sku string, sizes []importer.SizeVariant) []models.ProductVariant {
	variants := make([]models.ProductVariant, 0, len(sizes))
	for i, size := range sizes {
		variants = append(variants, models.ProductVariant{
			ProductID:    productID,
			SKUVariant:   importer.VariantSKU(sku, size.Size, ""),
			Size:         size.Size,
			StockQty:     size.Stock,
			IsAvailable:  size.Stock > 0,
			DisplayOrder: i + 1,
		})
	}
	return variants
}

func openingMovements(job *models.ImportJob, productID int64, variants []models.ProductVariant) []models.StockMovement {
	var movements []models.StockMovement
	for _, v := range variants {
		if v.StockQty <= 0 {
			continue
		}
		movements = append(movements, models.StockMovement{
			ProductID: productID,
			VariantID: v.ID,
			ChangeQty: v.StockQty,
			Reason:    models.MovementReasonBulkImport,
			Reference: job.ID,
			Note:      fmt.Sprintf("Bulk import from %s (size %s)", job.FileName, v.Size),
		})
	}
	return movements
}

func buildMedia(productID int64, row importer.ProductRow) []models.ProductMedia {
	var media []models.ProductMedia
	for i, url := range []string{row.ImageURL2, row.ImageURL3} {
		if url == "" {
			continue
		}
		media = append(media, models.ProductMedia{
			ProductID:    productID,
			URL:          url,
			MediaType:    models.MediaTypeImage,
			DisplayOrder: i + 2,
		})
	}
	return media
}

func rowNumber(index int, row importer.ProductRow) int {
	if row.Row > 0 {
		return row.Row
	}
	return index + 2
}
