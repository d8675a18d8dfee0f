package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	aws_pkg "storefront-service/pkg/aws"
	"storefront-service/repository"

	"go.uber.org/zap"
)

// ConsentArchiveJob copies each UTC day of consent records to S3 as JSON lines.
type ConsentArchiveJob struct {
	consents repository.ConsentRepository
	store    aws_pkg.ObjectPutter
	bucket   string
	metrics  *aws_pkg.MetricsClient
	logger   *zap.Logger
	now      func() time.Time
}

func NewConsentArchiveJob(consents repository.ConsentRepository, store aws_pkg.ObjectPutter, bucket string, metrics *aws_pkg.MetricsClient, logger *zap.Logger) *ConsentArchiveJob {
	return &ConsentArchiveJob{
		consents: consents,
		store:    store,
		bucket:   bucket,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Run archives the previous UTC day.
func (j *ConsentArchiveJob) Run(ctx context.Context) error {
	return j.ArchiveDay(ctx, j.now().UTC().AddDate(0, 0, -1))
}

// ArchiveDay writes every record created on day (UTC) to
// consent/YYYY/MM/DD.jsonl. Rerunning a day overwrites the same object.
func (j *ConsentArchiveJob) ArchiveDay(ctx context.Context, day time.Time) error {
	day = day.UTC()
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	records, err := j.consents.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list consent records: %w", err)
	}
	if len(records) == 0 {
		j.logger.Info("No consent records to archive", zap.String("day", from.Format("2006-01-02")))
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			return fmt.Errorf("encode consent record %d: %w", records[i].ID, err)
		}
	}

	key := ArchiveKey(from)
	if err := j.store.PutObject(ctx, j.bucket, key, "application/x-ndjson", buf.Bytes()); err != nil {
		return err
	}

	_ = j.metrics.PutMetric(ctx, aws_pkg.MetricConsentArchived, float64(len(records)), "Count", nil)
	j.logger.Info("Consent records archived",
		zap.String("bucket", j.bucket),
		zap.String("key", key),
		zap.Int("records", len(records)),
	)
	return nil
}

// ArchiveKey is the object key for the archive of day.
func ArchiveKey(day time.Time) string {
	return fmt.Sprintf("consent/%04d/%02d/%02d.jsonl", day.Year(), int(day.Month()), day.Day())
}
