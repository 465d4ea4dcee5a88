package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

// multipartThreshold switches uploads to the multipart manager.
const multipartThreshold = 8 * 1024 * 1024

// OpportunitySource is the slice of domain.OpportunityStore the archiver uses.
type OpportunitySource interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Alert, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// OpportunityArchiver implements domain.Archiver: it exports opportunities
// older than a cutoff as JSONL and, when configured, prunes them from the
// database once the upload succeeded.
type OpportunityArchiver struct {
	writer domain.BlobWriter
	source OpportunitySource
	audit  domain.AuditStore
	prefix string
	prune  bool
	now    func() time.Time
}

// ArchiverConfig configures an OpportunityArchiver.
type ArchiverConfig struct {
	Writer domain.BlobWriter
	Source OpportunitySource
	Audit  domain.AuditStore // optional
	// Prefix is the key prefix, "opportunities" by default.
	Prefix string
	// Prune deletes archived rows after a successful upload.
	Prune bool
}

// NewArchiver creates an OpportunityArchiver.
func NewArchiver(cfg ArchiverConfig) *OpportunityArchiver {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "opportunities"
	}
	return &OpportunityArchiver{
		writer: cfg.Writer,
		source: cfg.Source,
		audit:  cfg.Audit,
		prefix: prefix,
		prune:  cfg.Prune,
		now:    time.Now,
	}
}

// ArchiveOpportunities uploads every opportunity detected before the cutoff
// to <prefix>/YYYY/MM/DD/<unix>.jsonl and returns how many were archived.
func (a *OpportunityArchiver) ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error) {
	alerts, err := a.source.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive query: %w", err)
	}
	if len(alerts) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(alerts)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive marshal: %w", err)
	}

	path := archivePath(a.prefix, before, a.now())
	if len(buf) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), jsonlContentType)
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive upload: %w", err)
	}
	count := int64(len(alerts))

	var pruned int64
	if a.prune {
		if pruned, err = a.source.DeleteBefore(ctx, before); err != nil {
			return count, fmt.Errorf("s3blob: archive prune: %w", err)
		}
	}

	if a.audit != nil {
		if err := a.audit.Log(ctx, "opportunities_archived", map[string]any{
			"path":   path,
			"count":  count,
			"pruned": pruned,
			"before": before.Format(time.RFC3339),
		}); err != nil {
			return count, fmt.Errorf("s3blob: archive audit log: %w", err)
		}
	}
	return count, nil
}

// archivePath partitions archives by the cutoff day:
//
//	opportunities/2026/03/01/1772323200.jsonl
func archivePath(prefix string, before, now time.Time) string {
	return fmt.Sprintf("%s/%s/%d.jsonl", prefix, before.UTC().Format("2006/01/02"), now.Unix())
}

// marshalJSONL encodes one compact JSON value per line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.Archiver = (*OpportunityArchiver)(nil)
