package worker

import (
	"bytes"
	"context"
	"errors"

	"catalog-service/internal/broker"
	"catalog-service/internal/importer"
	"catalog-service/internal/models"
	"catalog-service/internal/redisclient"
	"catalog-service/internal/service"
	"catalog-service/internal/util"

	"go.uber.org/zap"
)

// ImportRunner runs or rejects a bulk import
type ImportRunner interface {
	Import(ctx context.Context, req service.ImportRequest) (*models.ImportResult, error)
	RejectImport(ctx context.Context, req service.ImportRequest, errs models.ImportErrors) error
}

// UploadStore holds files uploaded for async import
type UploadStore interface {
	LoadUpload(ctx context.Context, id string) (string, []byte, error)
	DeleteUpload(ctx context.Context, id string) error
}

// ImportWorker runs uploaded files queued by ImportRequested events
type ImportWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	imports      ImportRunner
	uploads      UploadStore
	logger       *zap.Logger
}

// NewImportWorker creates a new import worker
func NewImportWorker(
	consumer *broker.Consumer,
	imports ImportRunner,
	uploads UploadStore,
) *ImportWorker {
	w := &ImportWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		imports:      imports,
		uploads:      uploads,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnImportRequested(w.HandleImportRequested)
	return w
}

// Start starts the worker
func (w *ImportWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting import worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ImportWorker) Stop() error {
	w.logger.Info("Stopping import worker...")
	return w.consumer.Close()
}

// HandleImportRequested loads the stored upload, parses it and imports it.
// Files that fail to parse or validate are recorded as failed jobs. Only
// infrastructure errors are returned, leaving the message uncommitted.
func (w *ImportWorker) HandleImportRequested(ctx context.Context, event *models.ImportRequestedEvent) error {
	ctx, span := util.StartSpan(ctx, "ImportWorker.HandleImportRequested")
	defer span.End()

	logger := w.logger.With(zap.String("job_id", event.JobID))

	fileName, data, err := w.uploads.LoadUpload(ctx, event.JobID)
	if errors.Is(err, redisclient.ErrCacheMiss) {
		logger.Warn("Upload expired before import", zap.String("file_name", event.FileName))
		return w.imports.RejectImport(ctx, service.ImportRequest{JobID: event.JobID, FileName: event.FileName},
			models.ImportErrors{{Error: "uploaded file expired before it could be imported"}})
	}
	if err != nil {
		util.RecordError(span, err)
		return err
	}

	req := service.ImportRequest{JobID: event.JobID, FileName: fileName, Enrich: event.Enrich}

	rows, err := importer.ParseFile(fileName, bytes.NewReader(data))
	if err != nil {
		logger.Warn("Upload could not be parsed", zap.Error(err))
		if err := w.imports.RejectImport(ctx, req, models.ImportErrors{{Error: err.Error()}}); err != nil {
			return err
		}
		return w.dropUpload(ctx, event.JobID)
	}
	req.Rows = rows

	result, err := w.imports.Import(ctx, req)
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		if err := w.imports.RejectImport(ctx, req, verr.ImportErrors()); err != nil {
			return err
		}
	case err != nil:
		util.RecordError(span, err)
		return err
	default:
		logger.Info("Async import finished",
			zap.Int("success", result.SuccessCount),
			zap.Int("errors", result.ErrorCount))
	}

	return w.dropUpload(ctx, event.JobID)
}

func (w *ImportWorker) dropUpload(ctx context.Context, id string) error {
	if err := w.uploads.DeleteUpload(ctx, id); err != nil {
		w.logger.Warn("Failed to delete upload", zap.String("job_id", id), zap.Error(err))
	}
	return nil
}

// CompletionHandler reacts to finished imports
type CompletionHandler interface {
	HandleImportCompleted(ctx context.Context, event *models.ImportCompletedEvent) error
}

// NotificationWorker emails a summary of every finished import
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, handler CompletionHandler) *NotificationWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnImportCompleted(handler.HandleImportCompleted)

	return &NotificationWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start starts the notification worker
func (nw *NotificationWorker) Start(ctx context.Context) error {
	nw.logger.Info("Starting notification worker...")
	return nw.consumer.StartConsuming(ctx, nw.eventHandler.HandleMessage)
}

// Stop stops the notification worker
func (nw *NotificationWorker) Stop() error {
	nw.logger.Info("Stopping notification worker...")
	return nw.consumer.Close()
}
