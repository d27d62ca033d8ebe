package purpleair

import (
	"bytes"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/aqi"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/connectivity"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/errors"
)

const (
	defaultLocalTimeout = 5 * time.Second
	defaultProbeTimeout = 2 * time.Second
	localSensorPort     = "80"
)

// sensorRecord is the per-sensor slice of a local response. The unit
// firmware has shipped several shapes over the years, but each carries
// either the raw concentration or a precomputed index under these names.
type sensorRecord struct {
	PM25Atm *float64 `json:"pm2_5_atm"`
	PM25AQI *float64 `json:"pm2.5_aqi"`
}

type parsedValue struct {
	value       float64
	precomputed bool
}

// extract pulls the preferred field from one record: the raw concentration
// when present, the provider-computed index otherwise. Negative values are
// never usable.
func (r sensorRecord) extract() (parsedValue, bool) {
	if r.PM25Atm != nil && *r.PM25Atm >= 0 {
		return parsedValue{value: *r.PM25Atm}, true
	}
	if r.PM25AQI != nil && *r.PM25AQI >= 0 {
		return parsedValue{value: *r.PM25AQI, precomputed: true}, true
	}

	return parsedValue{}, false
}

func parseObject(payload []byte) (parsedValue, bool) {
	var record sensorRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return parsedValue{}, false
	}

	return record.extract()
}

func parseArray(payload []byte) (parsedValue, bool) {
	var records []sensorRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return parsedValue{}, false
	}

	for _, record := range records {
		if value, ok := record.extract(); ok {
			return value, true
		}
	}

	return parsedValue{}, false
}

func parseResults(payload []byte) (parsedValue, bool) {
	var wrapper struct {
		Results []sensorRecord `json:"results"`
	}
	if err := json.Unmarshal(payload, &wrapper); err != nil {
		return parsedValue{}, false
	}

	for _, record := range wrapper.Results {
		if value, ok := record.extract(); ok {
			return value, true
		}
	}

	return parsedValue{}, false
}

// localStrategies is the fixed shape priority: flat object, bare array,
// nested results array. The first strategy yielding a usable value wins, so
// new shapes can be added without touching the fetch flow.
var localStrategies = []struct {
	name  string
	parse func([]byte) (parsedValue, bool)
}{
	{"object", parseObject},
	{"array", parseArray},
	{"results", parseResults},
}

// LocalConfig holds the LAN sensor parameters.
type LocalConfig struct {
	// Name labels the measurement channel, e.g. "outdoor".
	Name string

	// Address is the sensor's host or host:port on the LAN.
	Address string

	// Timeout bounds the full HTTP request.
	Timeout time.Duration

	// ProbeTimeout bounds the reachability pre-check.
	ProbeTimeout time.Duration

	// Converter turns raw concentrations into index values.
	Converter aqi.Converter

	// Prober overrides the reachability pre-check, for tests.
	Prober connectivity.Prober
}

// LocalSource reads the PurpleAir unit on the LAN. A cheap reachability
// probe runs before every request so an unplugged sensor fails in
// milliseconds instead of a full client timeout.
type LocalSource struct {
	name         string
	url          string
	client       *http.Client
	prober       connectivity.Prober
	probeTimeout time.Duration
	converter    aqi.Converter

	// buf is reused across fetches; the mutex guards it and keeps a single
	// fetch in flight.
	mu  sync.Mutex
	buf bytes.Buffer
}

func NewLocalSource(cfg LocalConfig) (*LocalSource, error) {
	if cfg.Address == "" {
		return nil, errors.New().WithMessage(errors.ErrMissingConfig, "local sensor address is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultLocalTimeout
	}

	probeTimeout := cfg.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}

	addr := ensurePort(cfg.Address, localSensorPort)

	prober := cfg.Prober
	if prober == nil {
		prober = connectivity.DialProber{Address: addr}
	}

	name := cfg.Name
	if name == "" {
		name = "local"
	}

	return &LocalSource{
		name:         name,
		url:          "http://" + addr + "/json",
		client:       &http.Client{Timeout: timeout},
		prober:       prober,
		probeTimeout: probeTimeout,
		converter:    cfg.Converter,
	}, nil
}

func (s *LocalSource) Name() string {
	return s.name
}

// Fetch probes the sensor, requests its JSON endpoint, and tries each
// recognized payload shape in priority order.
func (s *LocalSource) Fetch(now time.Time) (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	errFactory := errors.New()

	if err := s.prober.Probe(s.probeTimeout); err != nil {
		return Reading{}, errFactory.Wrap(ErrTransport, err)
	}

	resp, err := s.client.Get(s.url)
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

	payload := s.buf.Bytes()
	if !json.Valid(payload) {
		return Reading{}, errFactory.New(ErrMalformed)
	}

	for _, strategy := range localStrategies {
		value, ok := strategy.parse(payload)
		if !ok {
			continue
		}

		index := s.converter.Convert(value.value)
		if value.precomputed {
			index = int(math.Round(value.value))
		}

		return Reading{
			Index:      index,
			Source:     KindLocal,
			ObtainedAt: now,
			Valid:      true,
		}, nil
	}

	return Reading{}, errFactory.New(ErrNoData)
}

func ensurePort(addr, port string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}

	return net.JoinHostPort(addr, port)
}
