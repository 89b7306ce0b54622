package model

type Alias struct {
	Email       string `json:"email" db:"email"`
	Destination string `json:"destination" db:"destination"`
}
