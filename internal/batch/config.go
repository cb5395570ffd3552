package batch

import (
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"preview-fetcher/internal/failure"
	"preview-fetcher/internal/retry"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is returned by Run when the RunConfig breaks an invariant.
var ErrInvalidConfig = errors.Mark(errors.New("invalid run configuration"), failure.ErrInvalidInput)

// RunConfig is resolved once per run and read-only afterwards.
type RunConfig struct {
	BatchSize         int           `json:"batchSize" yaml:"batch_size" validate:"min=1"`
	MaxConcurrency    int           `json:"maxConcurrency" yaml:"max_concurrency" validate:"min=1,ltefield=BatchSize"`
	MetadataTimeout   time.Duration `json:"metadataTimeout" yaml:"metadata_timeout" validate:"gt=0"`
	PreviewTimeout    time.Duration `json:"previewTimeout" yaml:"preview_timeout" validate:"gt=0"`
	MaxRetries        int           `json:"maxRetries" yaml:"max_retries" validate:"min=0,max=10"`
	BaseRetryDelay    time.Duration `json:"baseRetryDelay" yaml:"base_retry_delay" validate:"min=0"`
	BackoffMultiplier float64       `json:"backoffMultiplier" yaml:"backoff_multiplier" validate:"gte=1"`
	InterBatchDelay   time.Duration `json:"interBatchDelay" yaml:"inter_batch_delay" validate:"min=0"`
	StaggerDelay      time.Duration `json:"staggerDelay" yaml:"stagger_delay" validate:"min=0"`
	SkipVideoPreviews bool          `json:"skipVideoPreviews" yaml:"skip_video_previews"`
	// Filter is an optional glob matched against asset names before selection.
	Filter string `json:"filter,omitempty" yaml:"filter" validate:"omitempty,glob"`
}

// DefaultRunConfig returns the canonical defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		BatchSize:         5,
		MaxConcurrency:    3,
		MetadataTimeout:   30 * time.Second,
		PreviewTimeout:    60 * time.Second,
		MaxRetries:        2,
		BaseRetryDelay:    time.Second,
		BackoffMultiplier: 2,
		InterBatchDelay:   500 * time.Millisecond,
		StaggerDelay:      200 * time.Millisecond,
	}
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("glob", func(fl validator.FieldLevel) bool {
			_, err := path.Match(fl.Field().String(), "")
			return err == nil
		})
		validateInst = v
	})
	return validateInst
}

// Validate checks the RunConfig invariants, notably
// 1 <= MaxConcurrency <= BatchSize and MaxRetries >= 0.
func (c RunConfig) Validate() error {
	err := validatorInstance().Struct(c)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		msgs = append(msgs, describeFieldError(fe))
	}
	return errors.WithHint(
		errors.Wrap(ErrInvalidConfig, strings.Join(msgs, "; ")),
		"maxConcurrency must be between 1 and batchSize")
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "ltefield":
		return fmt.Sprintf("%s must not exceed %s", fe.Field(), fe.Param())
	case "glob":
		return fmt.Sprintf("%s %q is not a valid glob pattern", fe.Field(), fe.Value())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}

func (c RunConfig) fetchPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries:  c.MaxRetries,
		BaseTimeout: c.MetadataTimeout,
		BaseDelay:   c.BaseRetryDelay,
		Multiplier:  c.BackoffMultiplier,
	}
}

func (c RunConfig) previewPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries:  c.MaxRetries,
		BaseTimeout: c.PreviewTimeout,
		BaseDelay:   c.BaseRetryDelay,
		Multiplier:  c.BackoffMultiplier,
	}
}
