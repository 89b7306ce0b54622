package request

import "github.com/edvin/mailapi/internal/validate"

type CreateAlias struct {
	Alias       string `json:"alias" validate:"required,mail_user" msg:"Invalid alias username format"`
	Domain      string `json:"domain" validate:"required,mail_domain" msg:"Invalid domain format"`
	Destination string `json:"destination" validate:"required"`

	// Address is populated by Check.
	Address string `json:"-"`
}

func (r *CreateAlias) Normalize() {
	r.Alias = validate.Normalize(r.Alias)
	r.Domain = validate.Normalize(r.Domain)
	r.Destination = validate.Normalize(r.Destination)
}

func (r *CreateAlias) RequiredMessage() string { return "Alias, domain, and destination required" }

// Check validates the composed alias address before the destination, so a
// bad alias is reported ahead of a bad destination.
func (r *CreateAlias) Check() error {
	r.Address = r.Alias + "@" + r.Domain
	if !validate.Email(r.Address) {
		return invalid("Invalid alias email format")
	}
	if err := structValidator.Var(r.Destination, "mail_address"); err != nil {
		return invalid("Invalid destination email format")
	}
	return nil
}
