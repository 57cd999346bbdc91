package service

import (
	"context"
	"fmt"
	"strings"

	"catalog-service/internal/models"
	"catalog-service/internal/util"

	"go.uber.org/zap"
)

// maxErrorLines caps the failed rows listed in a summary email
const maxErrorLines = 20

// Mailer sends plain-text email
type Mailer interface {
	Enabled() bool
	Send(ctx context.Context, to []string, subject, text string) error
}

// NotificationService emails import summaries
type NotificationService struct {
	mailer    Mailer
	recipient string
	logger    *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(mailer Mailer, recipient string) *NotificationService {
	return &NotificationService{
		mailer:    mailer,
		recipient: recipient,
		logger:    util.GetLogger(),
	}
}

// HandleImportCompleted emails the job summary. It does nothing when no
// recipient or mail endpoint is configured.
func (ns *NotificationService) HandleImportCompleted(ctx context.Context, event *models.ImportCompletedEvent) error {
	ctx, span := util.StartSpan(ctx, "NotificationService.HandleImportCompleted")
	defer span.End()

	if ns.recipient == "" || !ns.mailer.Enabled() {
		return nil
	}

	subject, body := ImportSummary(event)
	if err := ns.mailer.Send(ctx, []string{ns.recipient}, subject, body); err != nil {
		util.NotificationsSentTotal.WithLabelValues("email", "failed").Inc()
		util.RecordError(span, err)
		return fmt.Errorf("failed to send import summary: %w", err)
	}

	util.NotificationsSentTotal.WithLabelValues("email", "sent").Inc()
	ns.logger.Info("Import summary sent",
		zap.String("job_id", event.JobID),
		zap.String("recipient", ns.recipient))
	return nil
}

// ImportSummary renders the subject and body of a summary email
func ImportSummary(event *models.ImportCompletedEvent) (string, string) {
	subject := fmt.Sprintf("Stock import %s: %d of %d rows imported", event.Status, event.SuccessCount, event.Total)

	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", event.FileName)
	fmt.Fprintf(&b, "Job: %s\n", event.JobID)
	fmt.Fprintf(&b, "Total rows: %d\nImported: %d\nFailed: %d\n", event.Total, event.SuccessCount, event.ErrorCount)

	if len(event.Errors) > 0 {
		b.WriteString("\nFailed rows:\n")
		for i, e := range event.Errors {
			if i == maxErrorLines {
				fmt.Fprintf(&b, "... and %d more\n", len(event.Errors)-maxErrorLines)
				break
			}
			fmt.Fprintf(&b, "  row %d (%s): %s\n", e.Row, e.SKU, e.Error)
		}
		b.WriteString("\nFix these rows and re-upload the whole file; unchanged rows are updated in place.\n")
	}

	return subject, b.String()
}
