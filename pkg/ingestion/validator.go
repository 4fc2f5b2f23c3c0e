package ingestion

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/synaptica-ai/medrecords/pkg/common/models"
)

var (
	errInvalidSource = errors.New("invalid source")
	errEmptyText     = errors.New("missing record text")
	errTextTooLarge  = errors.New("record text too large")
	errInvalidText   = errors.New("record text is not valid UTF-8")
)

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

type Validator struct {
	allowedSources map[string]struct{}
	maxTextBytes   int
}

// NewValidator accepts any source when sources is empty and any text size
// when maxTextBytes is not positive.
func NewValidator(sources []string, maxTextBytes int) *Validator {
	vs := make(map[string]struct{})
	for _, src := range sources {
		if trimmed := strings.TrimSpace(strings.ToLower(src)); trimmed != "" {
			vs[trimmed] = struct{}{}
		}
	}
	return &Validator{allowedSources: vs, maxTextBytes: maxTextBytes}
}

func (v *Validator) Validate(req models.IngestRequest) error {
	if v == nil {
		return ValidationError{reason: errors.New("validator not initialised")}
	}

	source := strings.TrimSpace(strings.ToLower(req.Source))
	if source == "" {
		return ValidationError{reason: fmt.Errorf("source required: %w", errInvalidSource)}
	}
	if len(v.allowedSources) > 0 {
		if _, ok := v.allowedSources[source]; !ok {
			return ValidationError{reason: fmt.Errorf("source '%s' not allowed: %w", source, errInvalidSource)}
		}
	}

	if strings.TrimSpace(req.Text) == "" {
		return ValidationError{reason: errEmptyText}
	}
	if v.maxTextBytes > 0 && len(req.Text) > v.maxTextBytes {
		return ValidationError{reason: fmt.Errorf("%d bytes exceeds %d: %w", len(req.Text), v.maxTextBytes, errTextTooLarge)}
	}
	if !utf8.ValidString(req.Text) {
		return ValidationError{reason: errInvalidText}
	}

	return nil
}
