package request

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/edvin/mailapi/internal/validate"
)

// CreateMailbox carries the local part and domain separately; the address
// is composed and validated as a whole in Check.
type CreateMailbox struct {
	Email    string          `json:"email" validate:"required,mail_user" msg:"Invalid email username format"`
	Domain   string          `json:"domain" validate:"required,mail_domain" msg:"Invalid domain format"`
	Password string          `json:"password" validate:"required,min=8" msg:"Password must be at least 8 characters"`
	Quota    json.RawMessage `json:"quota_bytes"`

	// Address and QuotaBytes are populated by Check.
	Address    string `json:"-"`
	QuotaBytes int64  `json:"-"`
}

func (r *CreateMailbox) Normalize() {
	r.Email = validate.Normalize(r.Email)
	r.Domain = validate.Normalize(r.Domain)
	r.Password = strings.TrimSpace(r.Password)
}

func (r *CreateMailbox) RequiredMessage() string { return "Email, domain, and password required" }

func (r *CreateMailbox) Check() error {
	r.Address = r.Email + "@" + r.Domain
	if !validate.Email(r.Address) {
		return invalid("Invalid email format")
	}

	q, err := parseQuota(r.Quota)
	if err != nil {
		return err
	}
	r.QuotaBytes = q
	return nil
}

// parseQuota treats an absent field as the default quota. An explicit null
// is rejected like any other non-integer.
func parseQuota(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return validate.DefaultQuotaBytes, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, invalid(MsgInvalidBody)
	}

	q, err := validate.Quota(v)
	if err != nil {
		return 0, invalid(err.Error())
	}
	return q, nil
}

type ChangePassword struct {
	Password string `json:"password" validate:"required,min=8" msg:"Password must be at least 8 characters"`
}

func (r *ChangePassword) Normalize() { r.Password = strings.TrimSpace(r.Password) }

func (r *ChangePassword) RequiredMessage() string { return "Password required" }
