package catalog

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/parishmedia/hls-encoder/internal/config"
	"github.com/parishmedia/hls-encoder/internal/models"
	"github.com/parishmedia/hls-encoder/pkg/logger"
)

// ErrNoMatch means the retry budget ran out without locating a content
// record. Terminal for the job: there is no id to patch, so the published
// assets stay orphaned.
var ErrNoMatch = errors.New("no catalog record matched the source object")

var errNotFoundYet = errors.New("record not listed yet")

// Reconciler locates the content record for a raw upload. The catalog has no
// foreign key back to the storage object, so matching is heuristic: exact
// stored-path first, then URL-embeds-encoded-path, then the permissive
// filename-substring rule.
type Reconciler struct {
	client   Client
	logger   logger.Logger
	retries  int
	interval time.Duration
}

func NewReconciler(client Client, cfg config.CatalogConfig, logger logger.Logger) *Reconciler {
	// At least one attempt: retries-1 feeds a uint64 max-retry budget, so a
	// zero or negative config value must not underflow into an unbounded poll.
	retries := cfg.LookupRetries
	if retries < 1 {
		retries = 1
	}
	return &Reconciler{
		client:   client,
		logger:   logger,
		retries:  retries,
		interval: time.Duration(cfg.LookupInterval) * time.Second,
	}
}

// FindRecordID polls the catalog list until a record matches srcPath or the
// attempt budget is spent. Transport errors count as attempts and are
// retried, not escalated.
func (r *Reconciler) FindRecordID(ctx context.Context, srcPath string) (string, error) {
	encodedPath := url.PathEscape(srcPath)
	fileName := path.Base(srcPath)

	var recordID string
	attempt := 0
	operation := func() error {
		attempt++
		records, err := r.client.ListRecords(ctx)
		if err != nil {
			r.logger.Warnf("catalog lookup attempt %d failed: %v", attempt, err)
			return err
		}
		id, rule := matchRecord(records, srcPath, encodedPath, fileName)
		if id == "" {
			return errNotFoundYet
		}
		r.logger.Infof("matched catalog record %s via %s rule on attempt %d", id, rule, attempt)
		recordID = id
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.interval), uint64(r.retries-1)),
		ctx,
	)
	if err := backoff.Retry(operation, bo); err != nil {
		return "", ErrNoMatch
	}
	return recordID, nil
}

func matchRecord(records []models.ContentRecord, srcPath, encodedPath, fileName string) (string, string) {
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		if rec.StoragePath != "" && rec.StoragePath == srcPath {
			return rec.ID, "storage_path"
		}
		if rec.VideoURL == "" {
			continue
		}
		base := strings.SplitN(rec.VideoURL, "?", 2)[0]
		if strings.Contains(base, "/o/"+encodedPath) {
			return rec.ID, "encoded_path"
		}
		if fileName != "" && strings.Contains(strings.ToLower(base), strings.ToLower(fileName)) {
			return rec.ID, "filename"
		}
	}
	return "", ""
}
