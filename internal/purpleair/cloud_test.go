package purpleair_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/aqi"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/errors"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/purpleair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCloudSource(t *testing.T, handler http.HandlerFunc) *purpleair.CloudSource {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	source, err := purpleair.NewCloudSource(purpleair.CloudConfig{
		Name:      "outdoor",
		BaseURL:   srv.URL,
		APIKey:    "test-key",
		SensorIDs: []string{"111", "222"},
		MaxAge:    time.Hour,
		Converter: aqi.New(),
	})
	require.NoError(t, err)

	return source
}

func TestCloudFetchAveragesValidRows(t *testing.T) {
	source := newCloudSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/sensors", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "pm2.5_10minute", r.URL.Query().Get("fields"))
		assert.Equal(t, "111,222", r.URL.Query().Get("show_only"))
		assert.Equal(t, "3600", r.URL.Query().Get("max_age"))

		_, _ = w.Write([]byte(`{
			"fields": ["sensor_index", "pm2.5_10minute"],
			"data": [[111, 10.0], [222, null], [333, -4.0], [444, 14.0]]
		}`))
	})

	now := time.Now()
	reading, err := source.Fetch(now)
	require.NoError(t, err)

	assert.Equal(t, 50, reading.Index, "Expected the average of 10 and 14 to convert to 50")
	assert.Equal(t, purpleair.KindCloud, reading.Source)
	assert.Equal(t, now, reading.ObtainedAt)
	assert.True(t, reading.Valid)
}

func TestCloudFetchLocatesColumnByName(t *testing.T) {
	source := newCloudSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"fields": ["pm2.5_10minute", "sensor_index"],
			"data": [[12.0, 111]]
		}`))
	})

	reading, err := source.Fetch(time.Now())
	require.NoError(t, err)

	assert.Equal(t, 50, reading.Index, "Expected the column to be found regardless of position")
}

func TestCloudFetchMissingColumn(t *testing.T) {
	source := newCloudSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"fields": ["sensor_index"], "data": [[111]]}`))
	})

	_, err := source.Fetch(time.Now())
	require.Error(t, err)

	assert.True(t, purpleair.IsNoData(err))
}

func TestCloudFetchZeroValidRows(t *testing.T) {
	source := newCloudSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"fields": ["sensor_index", "pm2.5_10minute"],
			"data": [[111, null], [222, -1.0]]
		}`))
	})

	_, err := source.Fetch(time.Now())
	require.Error(t, err)

	assert.True(t, purpleair.IsNoData(err), "Expected zero valid rows to be a failure, not a zero reading")
}

func TestCloudFetchEmptyData(t *testing.T) {
	source := newCloudSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"fields": ["sensor_index", "pm2.5_10minute"], "data": []}`))
	})

	_, err := source.Fetch(time.Now())
	require.Error(t, err)

	assert.True(t, purpleair.IsNoData(err))
}

func TestCloudFetchBadStatus(t *testing.T) {
	source := newCloudSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := source.Fetch(time.Now())
	require.Error(t, err)

	assert.True(t, errors.HasCode(err, purpleair.ErrBadStatus))
	assert.True(t, purpleair.IsRetryLater(err))
}

func TestCloudFetchMalformedPayload(t *testing.T) {
	source := newCloudSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	})

	_, err := source.Fetch(time.Now())
	require.Error(t, err)

	assert.True(t, errors.HasCode(err, purpleair.ErrMalformed))
}

func TestNewCloudSourceValidation(t *testing.T) {
	_, err := purpleair.NewCloudSource(purpleair.CloudConfig{
		SensorIDs: []string{"111"},
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrMissingCredential))

	_, err = purpleair.NewCloudSource(purpleair.CloudConfig{
		APIKey: "test-key",
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrNoSensors))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "local", purpleair.KindLocal.String())
	assert.Equal(t, "cloud", purpleair.KindCloud.String())
}
