package vendors

import (
	"strings"

	"github.com/go-playground/validator/v10"

	internalShared "github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

var validate = validator.New()

func normalize(v Vendor) Vendor {
	v.Name = strings.TrimSpace(v.Name)
	v.ContactEmail = strings.ToLower(strings.TrimSpace(v.ContactEmail))
	v.PhoneNumber = strings.TrimSpace(v.PhoneNumber)
	v.Address = strings.TrimSpace(v.Address)
	return v
}

func (s *Service) validate(v Vendor) error {
	verr := &internalShared.ValidationError{}
	if v.Name == "" {
		verr.Add("name", "vendor name is required")
	} else if len(v.Name) > 100 {
		verr.Add("name", "vendor name must be at most 100 characters")
	}
	if v.ContactEmail != "" {
		if err := validate.Var(v.ContactEmail, "email,max=254"); err != nil {
			verr.Add("contact_email", "contact email must be a valid email address")
		}
	}
	if len(v.PhoneNumber) > 20 {
		verr.Add("phone_number", "phone number must be at most 20 characters")
	}
	return verr.Err()
}
