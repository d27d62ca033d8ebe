package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/errors"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/logger"
)

type service struct {
	url    string
	client *http.Client
}

func NewService(cfg Config) (Reporter, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		logger.Debug().Msg("Telemetry disabled, using no-op reporter")
		return &noopReporter{}, nil
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &service{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (s *service) Report(ctx context.Context, snapshot *Snapshot) error {
	errFactory := errors.New()

	if snapshot == nil {
		return errFactory.New(ErrInvalidSnapshot)
	}

	query := url.Values{}
	query.Set("aqi", strconv.Itoa(snapshot.Index))
	query.Set("switch", snapshot.Switch.String())
	query.Set("vent", boolToState(snapshot.Ventilating))
	if snapshot.Reason != "" {
		query.Set("reason", snapshot.Reason)
	}
	if snapshot.IndoorIndex >= 0 {
		query.Set("indoor_aqi", strconv.Itoa(snapshot.IndoorIndex))
	}

	sep := "?"
	if strings.Contains(s.url, "?") {
		sep = "&"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url+sep+query.Encode(), http.NoBody)
	if err != nil {
		return errFactory.Wrap(ErrSubmitFailed, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return errFactory.Wrap(ErrSubmitFailed, err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	// Form-style collectors answer success with a redirect, so anything
	// below 4xx counts as accepted.
	if resp.StatusCode >= http.StatusBadRequest {
		return errFactory.New(ErrBadResponse).WithData(resp.StatusCode)
	}

	return nil
}

func (s *service) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

type noopReporter struct{}

func (n *noopReporter) Report(_ context.Context, _ *Snapshot) error {
	return nil
}

func (n *noopReporter) Close() error {
	return nil
}
