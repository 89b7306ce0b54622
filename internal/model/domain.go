package model

type Domain struct {
	Name string `json:"name" db:"name"`
}
