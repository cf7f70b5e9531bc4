package results

import (
	"time"

	"todoperf/internal/measure"
)

// TimestampLayout is the exported timestamp format, microsecond precision.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// OperationRecord is one entry of a per-operation list.
type OperationRecord struct {
	TransactionTime float64 `json:"transaction_time"`
	CPUUsage        float64 `json:"cpu_usage"`
	MemoryUsage     float64 `json:"memory_usage"`
	Timestamp       string  `json:"timestamp"`
	Size            int     `json:"size"`
}

// TimeSeriesRecord is a sample tagged with the milliseconds elapsed since the
// first sample of the run.
type TimeSeriesRecord struct {
	Operation       string  `json:"operation"`
	Size            int     `json:"size"`
	TransactionTime float64 `json:"transaction_time"`
	CPUUsage        float64 `json:"cpu_usage"`
	MemoryUsage     float64 `json:"memory_usage"`
	Timestamp       string  `json:"timestamp"`
	ElapsedTime     float64 `json:"elapsed_time"`
}

// Document is the exported form of a sweep.
type Document struct {
	Create     []OperationRecord  `json:"create"`
	Update     []OperationRecord  `json:"update"`
	Delete     []OperationRecord  `json:"delete"`
	TimeSeries []TimeSeriesRecord `json:"time_series"`
}

// Document builds the exported form of the recorded samples. Empty lists are
// exported as [] rather than null.
func (r *Recorder) Document() Document {
	doc := Document{
		Create:     records(r.Samples(measure.OpCreate)),
		Update:     records(r.Samples(measure.OpUpdate)),
		Delete:     records(r.Samples(measure.OpDelete)),
		TimeSeries: timeSeries(r.Series()),
	}
	return doc
}

func records(samples []measure.Sample) []OperationRecord {
	out := make([]OperationRecord, 0, len(samples))
	for _, s := range samples {
		out = append(out, OperationRecord{
			TransactionTime: s.DurationMs(),
			CPUUsage:        s.CPUPercent,
			MemoryUsage:     s.MemoryDeltaMB,
			Timestamp:       FormatTimestamp(s.Timestamp),
			Size:            s.Size,
		})
	}
	return out
}

func timeSeries(samples []measure.Sample) []TimeSeriesRecord {
	out := make([]TimeSeriesRecord, 0, len(samples))
	if len(samples) == 0 {
		return out
	}

	start := samples[0].Timestamp
	for _, s := range samples {
		out = append(out, TimeSeriesRecord{
			Operation:       string(s.Operation),
			Size:            s.Size,
			TransactionTime: s.DurationMs(),
			CPUUsage:        s.CPUPercent,
			MemoryUsage:     s.MemoryDeltaMB,
			Timestamp:       FormatTimestamp(s.Timestamp),
			ElapsedTime:     elapsedMs(start, s.Timestamp),
		})
	}
	return out
}

// FormatTimestamp renders t in local time using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

// elapsedMs is the time from start to t in milliseconds, rounded to the
// exported microsecond. The monotonic clock readings are used when present.
func elapsedMs(start, t time.Time) float64 {
	return float64(t.Sub(start).Round(time.Microsecond)) / float64(time.Millisecond)
}
