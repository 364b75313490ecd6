// Package services holds the forecast orchestration that sits between the
// transport layers (HTTP handlers, CLI) and the analytics packages.
package services

import (
	"errors"

	"github.com/soltixdb/seasoncast/internal/analytics"
	"github.com/soltixdb/seasoncast/internal/analytics/anomaly"
	"github.com/soltixdb/seasoncast/internal/analytics/evaluation"
	"github.com/soltixdb/seasoncast/internal/analytics/forecast"
	"github.com/soltixdb/seasoncast/internal/analytics/montecarlo"
)

// Error codes recorded against a key or returned for a whole request
const (
	CodeOK                 = "OK"
	CodeInsufficientData   = "INSUFFICIENT_DATA"
	CodeNonPositiveSeries  = "NON_POSITIVE_SERIES"
	CodeInvalidSeries      = "INVALID_SERIES"
	CodeInvalidConfig      = "INVALID_CONFIG"
	CodeModelDiverged      = "MODEL_DIVERGED"
	CodeUndefinedMetric    = "UNDEFINED_METRIC"
	CodeNoOverlap          = "NO_OVERLAP"
	CodeInsufficientSample = "INSUFFICIENT_SAMPLE"
	CodeEmptyResidualSet   = "EMPTY_RESIDUAL_SET"
	CodeInvalidKey         = "INVALID_KEY"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrInvalidKey is recorded for a key with an empty metric or group name.
var ErrInvalidKey = errors.New("series key needs non-empty metric and group")

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{Code: code, Message: message, Details: details}
}

var errorCodes = []struct {
	err  error
	code string
}{
	{forecast.ErrInsufficientData, CodeInsufficientData},
	{forecast.ErrNonPositiveSeries, CodeNonPositiveSeries},
	{forecast.ErrNonFiniteValue, CodeInvalidSeries},
	{forecast.ErrIrregularSeries, CodeInvalidSeries},
	{analytics.ErrUnorderedPeriods, CodeInvalidSeries},
	{forecast.ErrInvalidConfig, CodeInvalidConfig},
	{forecast.ErrInvalidHorizon, CodeInvalidConfig},
	{montecarlo.ErrInvalidOptions, CodeInvalidConfig},
	{anomaly.ErrUnknownDetector, CodeInvalidConfig},
	{forecast.ErrDiverged, CodeModelDiverged},
	{evaluation.ErrNonFinite, CodeInvalidSeries},
	{evaluation.ErrUndefinedMetric, CodeUndefinedMetric},
	{evaluation.ErrNoOverlap, CodeNoOverlap},
	{evaluation.ErrInsufficientSample, CodeInsufficientSample},
	{montecarlo.ErrEmptyResidualSet, CodeEmptyResidualSet},
	{ErrInvalidKey, CodeInvalidKey},
}

// ErrorCode maps an engine error to its machine-readable code.
func ErrorCode(err error) string {
	if err == nil {
		return CodeOK
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}
