package simpleauthority

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// MaxValueBytes bounds the size of an authority value.
const MaxValueBytes = 1024

// RenameRequest contains parameters for renaming an authority value
type RenameRequest struct {
	AuthorityID string `json:"authority_id" validate:"required,max=255"`
	Value       string `json:"value" validate:"required,maxbytes,printable"`
}

var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New()
	_ = requestValidate.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxValueBytes
	})
	_ = requestValidate.RegisterValidation("printable", func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), unicode.IsControl) < 0
	})
}

// Normalize trims surrounding whitespace from the id and the value.
func (r RenameRequest) Normalize() RenameRequest {
	return RenameRequest{
		AuthorityID: strings.TrimSpace(r.AuthorityID),
		Value:       strings.TrimSpace(r.Value),
	}
}

// Validate checks the request. The value must be non-empty, at most
// MaxValueBytes long and free of control characters.
func (r RenameRequest) Validate() error {
	if err := requestValidate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("field %s failed %q check", strings.ToLower(fe.Field()), fe.Tag())
		}
		return err
	}
	return nil
}
