package core

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"bedsight/internal/types"
)

// Validator wraps go-playground/validator for request DTO validation.
// Struct tags carry the rules (latitude, longitude, gte/lte ranges); this
// layer translates validator failures into client-facing AppErrors.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator with the struct-tag rule set.
func NewValidator(logger *slog.Logger) *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// ValidateStruct checks dst against its validation tags. On failure it returns
// a *types.AppError with code "validation_missing_required_field" and a
// per-field breakdown in the details map.
func (v *Validator) ValidateStruct(dst any) error {
	err := v.validate.Struct(dst)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// InvalidValidationError: a nil or non-struct value reached this
		// point, which is a programming error, not client input.
		return types.NewAppError(types.ErrCodeInternalUnexpected, "validation failed", err)
	}

	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		details[strings.ToLower(fe.Field())] = fmt.Sprintf("failed rule %q", fe.Tag())
	}

	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationMissingField,
		"request validation failed",
		err,
		details,
	)
}
