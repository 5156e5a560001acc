package image

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/BaSui01/imageflow/types"
)

// Input bounds.
const (
	MinDimension = 256
	MaxDimension = 2048
	MinSteps     = 1
	MaxSteps     = 50
	MinScale     = 2
	MaxScale     = 4

	MaxPromptLength         = 4000
	MaxOptimizePromptLength = 10000
)

// ValidationResult is returned by the validators instead of an error so the
// caller decides when to convert it.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
	Field string `json:"field,omitempty"`
}

var valid = ValidationResult{Valid: true}

func invalid(field, format string, args ...any) ValidationResult {
	return ValidationResult{Error: fmt.Sprintf(format, args...), Field: field}
}

// Err converts a failed result into a taxonomy error with the field attached.
// It returns nil for a valid result.
func (r ValidationResult) Err(code types.ErrorCode) *types.Error {
	if r.Valid {
		return nil
	}
	return types.NewError(code, r.Error).WithField(r.Field)
}

// ValidatePrompt checks that text is non-empty and at most maxLen characters.
func ValidatePrompt(text string, maxLen int) ValidationResult {
	if strings.TrimSpace(text) == "" {
		return invalid("prompt", "Prompt is required")
	}
	if n := utf8.RuneCountInString(text); n > maxLen {
		return invalid("prompt", "Prompt exceeds maximum length of %d characters (got %d)", maxLen, n)
	}
	return valid
}

// ValidateDimensions checks both sides against [MinDimension, MaxDimension].
func ValidateDimensions(width, height int) ValidationResult {
	if width < MinDimension || width > MaxDimension {
		return invalid("width", "Width must be between %d and %d", MinDimension, MaxDimension)
	}
	if height < MinDimension || height > MaxDimension {
		return invalid("height", "Height must be between %d and %d", MinDimension, MaxDimension)
	}
	return valid
}

// ValidateSteps checks steps against [MinSteps, MaxSteps].
func ValidateSteps(steps int) ValidationResult {
	if steps < MinSteps || steps > MaxSteps {
		return invalid("steps", "Steps must be between %d and %d", MinSteps, MaxSteps)
	}
	return valid
}

// ValidateScale checks an upscale factor against [MinScale, MaxScale].
func ValidateScale(scale int) ValidationResult {
	if scale < MinScale || scale > MaxScale {
		return invalid("scale", "Scale must be between %d and %d", MinScale, MaxScale)
	}
	return valid
}
