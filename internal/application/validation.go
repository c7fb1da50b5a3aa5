package application

import (
	"errors"
	"fmt"

	"github.com/bnema/lfg-coordinator/internal/domain"
	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("streamurl", func(fl validator.FieldLevel) bool {
		return domain.ValidateStreamURL(fl.Field().String()) == nil
	})
	return v
}

// validateCommand maps validator failures onto the domain taxonomy so callers
// only ever see *domain.Error for bad input.
func validateCommand(v *validator.Validate, cmd any) error {
	err := v.Struct(cmd)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domain.Reject(domain.KindValidation, domain.ErrInvalidField, err.Error())
	}

	first := fieldErrs[0]
	switch first.Field() {
	case "Capacity":
		return domain.Reject(domain.KindValidation, domain.ErrInvalidCapacity,
			fmt.Sprintf("capacity must be between %d and %d", domain.MinCapacity, domain.MaxCapacity))
	case "StreamURL":
		return domain.Reject(domain.KindValidation, domain.ErrInvalidStreamURL, fmt.Sprintf("unsupported stream url %q", first.Value()))
	default:
		return domain.Reject(domain.KindValidation, domain.ErrInvalidField,
			fmt.Sprintf("%s failed %q", first.Namespace(), first.Tag()))
	}
}
