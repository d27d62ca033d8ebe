package purpleair

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/aqi"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/errors"
)

const (
	defaultCloudBaseURL = "https://api.purpleair.com"
	defaultCloudTimeout = 10 * time.Second
	defaultMaxAge       = time.Hour

	// concentrationField is the averaged column requested from the API.
	concentrationField = "pm2.5_10minute"
)

// CloudConfig holds the PurpleAir API parameters.
type CloudConfig struct {
	// Name labels the measurement channel, e.g. "outdoor".
	Name string

	// BaseURL is the API root.
	BaseURL string

	// APIKey is the read key sent in the credential header.
	APIKey string

	// SensorIDs selects the public sensors to average.
	SensorIDs []string

	// MaxAge excludes sensors whose last report is older than this.
	MaxAge time.Duration

	// Timeout bounds the full HTTP request.
	Timeout time.Duration

	// Converter turns the averaged concentration into an index value.
	Converter aqi.Converter
}

// CloudSource reads the rate-limited PurpleAir API. The response is
// column-oriented: a fields array names the columns and each data row holds
// one sensor's values. The concentration column is located by name and
// averaged across rows carrying a usable number.
type CloudSource struct {
	name      string
	url       string
	apiKey    string
	client    *http.Client
	converter aqi.Converter

	// buf is reused across fetches; the mutex guards it and keeps a single
	// fetch in flight.
	mu  sync.Mutex
	buf bytes.Buffer
}

func NewCloudSource(cfg CloudConfig) (*CloudSource, error) {
	errFactory := errors.New()

	if cfg.APIKey == "" {
		return nil, errFactory.New(errors.ErrMissingCredential)
	}
	if len(cfg.SensorIDs) == 0 {
		return nil, errFactory.New(errors.ErrNoSensors)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultCloudBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultCloudTimeout
	}

	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}

	query := url.Values{}
	query.Set("fields", concentrationField)
	query.Set("show_only", strings.Join(cfg.SensorIDs, ","))
	query.Set("max_age", strconv.Itoa(int(maxAge.Seconds())))

	name := cfg.Name
	if name == "" {
		name = "cloud"
	}

	return &CloudSource{
		name:      name,
		url:       strings.TrimSuffix(baseURL, "/") + "/v1/sensors?" + query.Encode(),
		apiKey:    cfg.APIKey,
		client:    &http.Client{Timeout: timeout},
		converter: cfg.Converter,
	}, nil
}

func (s *CloudSource) Name() string {
	return s.name
}

// Fetch requests the selected sensors and averages the concentration column.
// Rows with a missing, non-numeric, or negative value are skipped; zero
// usable rows is a failure, not a zero reading.
func (s *CloudSource) Fetch(now time.Time) (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	errFactory := errors.New()

	req, err := http.NewRequest(http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return Reading{}, errFactory.Wrap(ErrTransport, err)
	}
	req.Header.Set("X-API-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return Reading{}, errFactory.Wrap(ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Reading{}, errFactory.New(ErrBadStatus).WithData(resp.StatusCode)
	}

	s.buf.Reset()
	if _, err := s.buf.ReadFrom(resp.Body); err != nil {
		return Reading{}, errFactory.Wrap(ErrTransport, err)
	}

	var payload struct {
		Fields []string `json:"fields"`
		Data   [][]any  `json:"data"`
	}
	if err := json.Unmarshal(s.buf.Bytes(), &payload); err != nil {
		return Reading{}, errFactory.Wrap(ErrMalformed, err)
	}

	column := -1
	for i, field := range payload.Fields {
		if field == concentrationField {
			column = i
			break
		}
	}
	if column < 0 {
		return Reading{}, errFactory.WithMessage(ErrNoData, "concentration column missing from response")
	}

	var sum float64
	var count int
	for _, row := range payload.Data {
		if column >= len(row) {
			continue
		}

		value, ok := row[column].(float64)
		if !ok || value < 0 {
			continue
		}

		sum += value
		count++
	}

	if count == 0 {
		return Reading{}, errFactory.New(ErrNoData)
	}

	return Reading{
		Index:      s.converter.Convert(sum / float64(count)),
		Source:     KindCloud,
		ObtainedAt: now,
		Valid:      true,
	}, nil
}
