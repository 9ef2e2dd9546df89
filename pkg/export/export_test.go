package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/taxigrad/core/stats"
)

func records() []stats.CustomerRecord {
	picked, delivered := 2*time.Second, 5500*time.Millisecond
	return []stats.CustomerRecord{
		{ID: "c1", RegisteredAt: time.Second, PickedUpAt: &picked, DeliveredAt: &delivered, PickedUpBy: "t1"},
		{ID: "c2", RegisteredAt: 3 * time.Second},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records()))
	want := "customer_id,registered_s,picked_up_s,delivered_s,taxi_id\n" +
		"c1,1,2,5.5,t1\n" +
		"c2,3,,,\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, records()))
	var out []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "t1", out[0]["picked_up_by"])
	assert.NotContains(t, out[1], "picked_up_at")
}

func TestJSONLZstdRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONLZstd(&buf, records()))
	got, err := ReadJSONLZstd(&buf)
	require.NoError(t, err)
	assert.Equal(t, records(), got)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"out.csv", "out.json", "out.jsonl.zst"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, records()), name)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.NotZero(t, info.Size(), name)
	}
	assert.Error(t, WriteFile(filepath.Join(dir, "out.xml"), records()))
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, stats.Summary{Customers: 3, Delivered: 2}))
	assert.True(t, strings.HasPrefix(buf.String(), "customers: 3 picked up: 0 delivered: 2"))
}
