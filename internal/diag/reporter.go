// Package diag collects per-import diagnostics. Every stage of the conversion
// pipeline reports recoverable problems here instead of failing the import;
// callers decide which conditions are fatal.
package diag

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Severity classifies a diagnostic record.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic codes emitted by the pipeline.
const (
	CodeParseWarning      = "PARSE_WARNING"
	CodeMalformedFile     = "MALFORMED_FILE"
	CodeEmptyContent      = "EMPTY_CONTENT"
	CodeUnsupportedEntity = "UNSUPPORTED_ENTITY"
	CodeInvalidPosition   = "INVALID_POSITION"
	CodeInvalidGeometry   = "INVALID_GEOMETRY"
	CodeUnresolvedBlock   = "UNRESOLVED_BLOCK"
	CodeCircularReference = "CIRCULAR_REFERENCE"
	CodeConversionError   = "CONVERSION_ERROR"
	CodeTransformError    = "TRANSFORM_ERROR"
	CodeCRSDetection      = "CRS_DETECTION"
)

// Record is a single diagnostic event.
type Record struct {
	Severity Severity       `json:"severity"`
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Context  map[string]any `json:"context,omitempty"`
}

// Reporter is a concurrent-safe diagnostics sink. The zero value is not
// usable; construct with NewReporter.
type Reporter struct {
	mu      sync.Mutex
	records []Record
	log     *zap.Logger
}

// NewReporter creates an empty reporter that mirrors records to the global
// zap logger.
func NewReporter() *Reporter {
	return &Reporter{log: zap.L().With(zap.String("component", "diag"))}
}

// Error records an error-severity diagnostic.
func (r *Reporter) Error(code, format string, args ...any) {
	r.add(Record{Severity: SeverityError, Code: code, Message: fmt.Sprintf(format, args...)})
}

// Warn records a warning-severity diagnostic.
func (r *Reporter) Warn(code, format string, args ...any) {
	r.add(Record{Severity: SeverityWarning, Code: code, Message: fmt.Sprintf(format, args...)})
}

// Info records an info-severity diagnostic.
func (r *Reporter) Info(code, format string, args ...any) {
	r.add(Record{Severity: SeverityInfo, Code: code, Message: fmt.Sprintf(format, args...)})
}

// Report records a fully built diagnostic, context included.
func (r *Reporter) Report(rec Record) {
	r.add(rec)
}

func (r *Reporter) add(rec Record) {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()

	fields := []zap.Field{zap.String("code", rec.Code)}
	if rec.Context != nil {
		fields = append(fields, zap.Any("context", rec.Context))
	}
	switch rec.Severity {
	case SeverityError:
		r.log.Warn(rec.Message, fields...) // entity-level errors are recoverable
	case SeverityWarning:
		r.log.Debug(rec.Message, fields...)
	default:
		r.log.Debug(rec.Message, fields...)
	}
}

// Records returns a snapshot of all recorded diagnostics.
func (r *Reporter) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Count returns the number of records with the given severity.
func (r *Reporter) Count(sev Severity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for _, rec := range r.records {
		if rec.Severity == sev {
			n++
		}
	}
	return n
}

// CountCode returns the number of records with the given code.
func (r *Reporter) CountCode(code string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for _, rec := range r.records {
		if rec.Code == code {
			n++
		}
	}
	return n
}

// HasErrors reports whether any error-severity diagnostics were recorded.
func (r *Reporter) HasErrors() bool {
	return r.Count(SeverityError) > 0
}
