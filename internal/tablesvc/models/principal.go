package models

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Principal is an identity issued by the identity provider.
type Principal struct {
	ID          string `json:"id"`
	IsAnonymous bool   `json:"is_anonymous"`
	DisplayName string `json:"display_name,omitempty"`
}

// Account is the persisted record behind a principal. Provider and Subject
// are empty while the account is anonymous.
type Account struct {
	ID          string    `json:"id" bson:"_id"`
	Provider    string    `json:"provider,omitempty" bson:"provider,omitempty"`
	Subject     string    `json:"subject,omitempty" bson:"subject,omitempty"`
	DisplayName string    `json:"display_name,omitempty" bson:"display_name,omitempty"`
	IsAnonymous bool      `json:"is_anonymous" bson:"is_anonymous"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

func (a *Account) Principal() Principal {
	return Principal{ID: a.ID, IsAnonymous: a.IsAnonymous, DisplayName: a.DisplayName}
}
