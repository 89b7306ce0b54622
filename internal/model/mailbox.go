package model

// Mailbox is a row of the mail user table. The password hash is never
// loaded into this type.
type Mailbox struct {
	Email          string `json:"email" db:"email"`
	QuotaBytes     int64  `json:"quota_bytes" db:"quota_bytes"`
	QuotaBytesUsed int64  `json:"quota_bytes_used" db:"quota_bytes_used"`
}

// NewMailbox is the write model for mailbox creation.
type NewMailbox struct {
	Email        string
	PasswordHash string
	QuotaBytes   int64
}
