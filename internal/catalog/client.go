package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/parishmedia/hls-encoder/internal/config"
	"github.com/parishmedia/hls-encoder/internal/models"
	"github.com/pkg/errors"
)

const secretHeader = "X-HLS-SECRET"

// Client talks to the external content service. Listing may be retried at
// the transport level; the completion callback is a single best-effort
// attempt, because by then all expensive work is done and a non-2xx needs a
// human, not a hammer.
type Client interface {
	ListRecords(ctx context.Context) ([]models.ContentRecord, error)
	NotifyHLSReady(ctx context.Context, recordID string, payload *models.HLSCallback) error
}

type httpClient struct {
	baseURL        string
	secret         string
	listClient     *retryablehttp.Client
	callbackClient *http.Client
}

func NewClient(cfg config.CatalogConfig) Client {
	listClient := retryablehttp.NewClient()
	listClient.RetryMax = 2
	listClient.RetryWaitMin = 200 * time.Millisecond
	listClient.RetryWaitMax = 1 * time.Second
	listClient.HTTPClient = &http.Client{
		Timeout: 10 * time.Second,
	}
	listClient.Logger = nil

	return &httpClient{
		baseURL:    cfg.BaseURL,
		secret:     cfg.Secret,
		listClient: listClient,
		callbackClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *httpClient) ListRecords(ctx context.Context) ([]models.ContentRecord, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sermons", nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build catalog list request")
	}

	resp, err := c.listClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "catalog list request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("catalog list returned %d", resp.StatusCode)
	}

	var records []models.ContentRecord
	if err = json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, errors.Wrap(err, "failed to decode catalog list")
	}
	return records, nil
}

func (c *httpClient) NotifyHLSReady(ctx context.Context, recordID string, payload *models.HLSCallback) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to marshal callback payload")
	}

	endpoint := fmt.Sprintf("%s/sermons/%s/hls-callback", c.baseURL, url.PathEscape(recordID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build callback request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(secretHeader, c.secret)

	resp, err := c.callbackClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "callback request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("callback returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
