package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/taxigrad/core/factory"
	coremetrics "github.com/kilianp07/taxigrad/core/metrics"
)

// influxServer answers the health check and records line protocol writes.
func (l *lineRecorder) influxServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"name":"influxdb","message":"ready for queries and writes","status":"pass","checks":[],"version":"2.7.0"}`)
	})
	mux.HandleFunc("/api/v2/write", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		l.mu.Lock()
		l.bodies = append(l.bodies, strings.TrimSpace(string(data)))
		l.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (l *lineRecorder) linesWith(measurement, tag string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, b := range l.bodies {
		for _, line := range strings.Split(b, "\n") {
			if strings.HasPrefix(line, measurement+",") && strings.Contains(line, tag) {
				n++
			}
		}
	}
	return n
}

func TestNewMetricsSink_PrometheusAndInfluxFromYAML(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.influxServer(t)
	data := fmt.Sprintf(`metrics:
  prometheus_addr: ":9100"
  sinks:
    - type: prometheus
    - type: influx
      conf:
        url: %s
        token: fleet-token
        org: depot
        bucket: taxigrad
`, srv.URL)
	var cfg struct {
		Metrics coremetrics.Config `yaml:"metrics"`
	}
	if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	require.Equal(t, ":9100", cfg.Metrics.PrometheusAddr)

	s, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		t.Fatalf("create sinks: %v", err)
	}
	multi, ok := s.(*coremetrics.MultiSink)
	if !ok {
		t.Fatalf("expected MultiSink, got %T", s)
	}
	require.Len(t, multi.Sinks, 2)
	prom, ok := multi.Sinks[0].(*PromSink)
	require.True(t, ok, "first sink is %T", multi.Sinks[0])
	_, ok = multi.Sinks[1].(*InfluxSink)
	require.True(t, ok, "second sink is %T", multi.Sinks[1])

	// the prometheus factory shares the default registerer with other runs
	before := testutil.ToFloat64(prom.trips.WithLabelValues("taxi-yaml"))
	now := time.Now()
	trip := coremetrics.TripResult{
		RunID:      "run-yaml",
		TaxiID:     "taxi-yaml",
		CustomerID: "c0001",
		Pickup:     3,
		Dropoff:    9,
		Wait:       2 * time.Second,
		Trip:       7 * time.Second,
		Time:       now,
	}
	require.NoError(t, multi.RecordTrips([]coremetrics.TripResult{trip}))
	require.NoError(t, multi.RecordPickup(coremetrics.PickupEvent{
		RunID: "run-yaml", TaxiID: "taxi-yaml", CustomerID: "c0002", Wait: time.Second, Time: now,
	}))

	assert.Equal(t, before+1, testutil.ToFloat64(prom.trips.WithLabelValues("taxi-yaml")))
	assert.Equal(t, 1, rec.linesWith("trip", "taxi_id=taxi-yaml"))
	assert.Equal(t, 1, rec.linesWith("pickup", "customer_id=c0002"))
}

func TestNewMetricsSink_InfluxFromJSON(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.influxServer(t)
	data := fmt.Sprintf(`{"sinks":[{"type":"influx","conf":{"url":%q,"token":"t","org":"depot","bucket":"taxigrad"}}]}`,
		srv.URL+"/api/v2/write")
	var cfg coremetrics.Config
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	s, err := coremetrics.NewMetricsSink(cfg.Sinks)
	if err != nil {
		t.Fatalf("create influx: %v", err)
	}
	influx, ok := s.(*InfluxSink)
	if !ok {
		t.Fatalf("expected InfluxSink, got %T", s)
	}
	t.Cleanup(influx.Close)

	err = influx.RecordTrips([]coremetrics.TripResult{{
		RunID: "run-json", TaxiID: "taxi-json", CustomerID: "c0003", Pickup: 1, Dropoff: 4, Time: time.Now(),
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.linesWith("trip", "taxi_id=taxi-json"))
}

func TestNewMetricsSink_UnreachableInfluxRecordsNothing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{
		Type: "influx",
		Conf: map[string]any{"url": url, "token": "t", "org": "depot", "bucket": "taxigrad"},
	}})
	if err != nil {
		t.Fatalf("create influx: %v", err)
	}
	if _, ok := s.(coremetrics.NopSink); !ok {
		t.Fatalf("expected NopSink fallback, got %T", s)
	}
}

func TestNewMetricsSink_EmptyAndUnknown(t *testing.T) {
	s, err := coremetrics.NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("create default: %v", err)
	}
	if _, ok := s.(coremetrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}

	var cfg coremetrics.Config
	require.NoError(t, json.Unmarshal([]byte(`{"sinks":[{"type":"nop"},{"type":"statsd"}]}`), &cfg))
	_, err = coremetrics.NewMetricsSink(cfg.Sinks)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics sink 1 (statsd)")
}
