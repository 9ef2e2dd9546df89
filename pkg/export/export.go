// Package export writes raw customer records of a run in CSV, JSON or
// zstd compressed JSON lines.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/kilianp07/taxigrad/core/stats"
)

// WriteJSON writes the customer records to w as one JSON array.
func WriteJSON(w io.Writer, recs []stats.CustomerRecord) error {
	enc := json.NewEncoder(w)
	return enc.Encode(recs)
}

// WriteCSV writes one row per customer. Times are in seconds; unreached
// milestones are left empty.
func WriteCSV(w io.Writer, recs []stats.CustomerRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"customer_id", "registered_s", "picked_up_s", "delivered_s", "taxi_id"}); err != nil {
		return err
	}
	for _, r := range recs {
		rec := []string{
			r.ID,
			seconds(&r.RegisteredAt),
			seconds(r.PickedUpAt),
			seconds(r.DeliveredAt),
			r.PickedUpBy,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSONLZstd writes one JSON object per line through a zstd encoder.
func WriteJSONLZstd(w io.Writer, recs []stats.CustomerRecord) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(zw)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			_ = zw.Close()
			return err
		}
	}
	return zw.Close()
}

// ReadJSONLZstd reads records written by WriteJSONLZstd.
func ReadJSONLZstd(r io.Reader) ([]stats.CustomerRecord, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	dec := json.NewDecoder(zr)
	var out []stats.CustomerRecord
	for {
		var rec stats.CustomerRecord
		if err := dec.Decode(&rec); err == io.EOF {
			return out, nil
		} else if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

// WriteFile picks the format from the file name: .csv, .json or .jsonl.zst.
func WriteFile(path string, recs []stats.CustomerRecord) error {
	var write func(io.Writer, []stats.CustomerRecord) error
	switch {
	case strings.HasSuffix(path, ".csv"):
		write = WriteCSV
	case strings.HasSuffix(path, ".json"):
		write = WriteJSON
	case strings.HasSuffix(path, ".jsonl.zst"):
		write = WriteJSONLZstd
	default:
		return fmt.Errorf("export: unsupported file type %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, recs); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteSummary prints a human readable run summary.
func WriteSummary(w io.Writer, s stats.Summary) error {
	_, err := fmt.Fprintf(w,
		"customers: %d picked up: %d delivered: %d abandoned: %d\n"+
			"wait (s): mean %.2f std %.2f over %d\n"+
			"trip (s): mean %.2f std %.2f over %d\n"+
			"distance per taxi: mean %.2f std %.2f\n"+
			"odometer per taxi: mean %.2f std %.2f\n"+
			"served per taxi: mean %.2f std %.2f\n"+
			"refuels: %d step failures: %d\n",
		s.Customers, s.PickedUp, s.Delivered, s.AbandonedCustomer,
		s.WaitSeconds.Mean, s.WaitSeconds.StdDev, s.WaitSeconds.N,
		s.TripSeconds.Mean, s.TripSeconds.StdDev, s.TripSeconds.N,
		s.DistancePerTaxi.Mean, s.DistancePerTaxi.StdDev,
		s.OdometerPerTaxi.Mean, s.OdometerPerTaxi.StdDev,
		s.ServedPerTaxi.Mean, s.ServedPerTaxi.StdDev,
		s.Refuels, s.StepFailures)
	return err
}

func seconds(d *time.Duration) string {
	if d == nil {
		return ""
	}
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
