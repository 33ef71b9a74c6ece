// Package command contains write operations (CQRS - Commands). Every handler
// runs its write and the resulting event cascade in one unit of work.
package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs the struct tags and converts failures into a domain
// validation error naming every offending field.
func validateStruct(op string, cmd interface{}) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return shared.WrapError("command", op, shared.ErrValidation, "invalid command", err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Sprintf("%s failed '%s'", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return shared.NewDomainError("command", op, shared.ErrValidation, strings.Join(problems, "; "))
}
