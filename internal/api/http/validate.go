package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
)

const maxSmallBody = 1 << 20

var bodyValidator = validator.New()

// decodeValid decodes a small JSON body and checks its validate tags.
func decodeValid(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decode(w, r, maxSmallBody, dst); err != nil {
		return err
	}
	if err := bodyValidator.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return exam.Validationf("Invalid %s (%s)", strings.ToLower(fe.Field()), fe.Tag())
		}
		return exam.Validationf("Invalid request: %v", err)
	}
	return nil
}
