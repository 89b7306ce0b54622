package client

import "github.com/edvin/mailapi/internal/model"

type CreateMailboxRequest struct {
	Email      string `json:"email"`
	Domain     string `json:"domain"`
	Password   string `json:"password"`
	QuotaBytes *int64 `json:"quota_bytes,omitempty"`
}

type CreateAliasRequest struct {
	Alias       string `json:"alias"`
	Domain      string `json:"domain"`
	Destination string `json:"destination"`
}

type CreatedMailbox struct {
	Message string  `json:"message"`
	Email   string  `json:"email"`
	QuotaMB float64 `json:"quota_mb"`
}

type CreatedAlias struct {
	Message     string `json:"message"`
	Alias       string `json:"alias"`
	Destination string `json:"destination"`
}

type Health struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Version  string `json:"version"`
}

type domainList struct {
	Domains []model.Domain `json:"domains"`
}

type mailboxList struct {
	Mailboxes []model.Mailbox `json:"mailboxes"`
}

type aliasList struct {
	Aliases []model.Alias `json:"aliases"`
}

type messageResponse struct {
	Message string `json:"message"`
}
