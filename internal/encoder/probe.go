package encoder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gopkg.in/vansante/go-ffprobe.v2"
)

const probeTimeout = 60 * time.Second

// Duration probes the source once and returns its length in seconds. Probing
// transient failures are retried briefly; a persistent failure is reported
// to the caller, who may still publish without a duration.
func (e *ffmpegEncoder) Duration(ctx context.Context, sourcePath string) (float64, error) {
	var data *ffprobe.ProbeData
	operation := func() error {
		probeCtx, probeCancel := context.WithTimeout(ctx, probeTimeout)
		defer probeCancel()
		var err error
		data, err = ffprobe.ProbeURL(probeCtx, sourcePath)
		return err
	}

	backOff := backoff.NewExponentialBackOff()
	backOff.InitialInterval = 500 * time.Millisecond
	backOff.MaxInterval = 2 * time.Second
	backOff.MaxElapsedTime = 0
	if err := backoff.Retry(operation, backoff.WithMaxRetries(backOff, 3)); err != nil {
		return 0, fmt.Errorf("error probing %s: %w", sourcePath, err)
	}

	if data.Format == nil {
		return 0, errors.New("probe returned no format information")
	}
	return data.Format.DurationSeconds, nil
}
