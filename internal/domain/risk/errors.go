package risk

import (
	"fmt"

	apperrors "github.com/yanqian/rockwatch/pkg/errors"
)

// Error codes used across the pipeline.
const (
	CodeInsufficientData    = "insufficient_data"
	CodeModelAdapterFailure = "model_adapter_failure"
	CodeTranslationGap      = "translation_gap"
	CodeConfiguration       = "configuration_error"
)

// ErrInsufficientData is returned when a cycle has no usable sensor readings.
// The caller should skip the cycle.
var ErrInsufficientData = apperrors.Wrap(CodeInsufficientData, "no usable sensor readings", nil)

// IsInsufficientData reports whether err means the cycle had nothing to score.
func IsInsufficientData(err error) bool {
	return apperrors.IsCode(err, CodeInsufficientData)
}

// ConfigurationError marks a static configuration problem that must stop startup.
func ConfigurationError(format string, args ...any) error {
	return apperrors.Wrap(CodeConfiguration, fmt.Sprintf(format, args...), nil)
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	return apperrors.IsCode(err, CodeConfiguration)
}

func modelAdapterFailure(model string, err error) error {
	return apperrors.Wrap(CodeModelAdapterFailure, "model adapter "+model+" failed", err)
}
