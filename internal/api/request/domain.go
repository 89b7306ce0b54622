package request

import "github.com/edvin/mailapi/internal/validate"

type CreateDomain struct {
	Domain string `json:"domain" validate:"required,mail_domain" msg:"Invalid domain format"`
}

func (r *CreateDomain) Normalize() { r.Domain = validate.Normalize(r.Domain) }

func (r *CreateDomain) RequiredMessage() string { return "Domain required" }
