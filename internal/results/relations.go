package results

import "todoperf/internal/measure"

// RelationshipsFile is the file name of the relationship benchmark results.
const RelationshipsFile = "category_relationships_results.json"

// RelationMetrics are the measurements of one relationship call.
type RelationMetrics struct {
	TransactionTime float64 `json:"transaction_time"`
	CPUUsage        float64 `json:"cpu_usage"`
	MemoryUsage     float64 `json:"memory_usage"`
	Timestamp       string  `json:"timestamp"`
}

// RelationRecord is one entry of the relationship results file.
type RelationRecord struct {
	Operation  string          `json:"operation"`
	StatusCode int             `json:"status_code"`
	Metrics    RelationMetrics `json:"metrics"`
}

// NewRelationRecord converts a sample of a relationship call.
func NewRelationRecord(sample measure.Sample, status int) RelationRecord {
	return RelationRecord{
		Operation:  string(sample.Operation),
		StatusCode: status,
		Metrics: RelationMetrics{
			TransactionTime: sample.DurationMs(),
			CPUUsage:        sample.CPUPercent,
			MemoryUsage:     sample.MemoryDeltaMB,
			Timestamp:       FormatTimestamp(sample.Timestamp),
		},
	}
}
