package models

import (
	"fmt"
	"time"
)

// Account holds a provider credential plus the two path roots the completion
// pipeline writes under. The core engine reads accounts but never mutates them.
type Account struct {
	id        string
	sequence  int
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time

	Name string

	// Credential is the opaque provider session credential (cookie string).
	Credential string

	// PointerRoot is the local media-server-visible directory pointer files
	// are written under; CloudRoot is the externally reachable URL prefix the
	// pointer file contents resolve against.
	PointerRoot string
	CloudRoot   string
}

// NewAccount creates an account with the given name and provider credential.
func NewAccount(name, credential string) *Account {
	now := time.Now()
	return &Account{
		Name:       name,
		Credential: credential,
		createdAt:  now,
		updatedAt:  now,
	}
}

func (a *Account) ID() string            { return a.id }
func (a *Account) Sequence() int         { return a.sequence }
func (a *Account) CreatedAt() time.Time  { return a.createdAt }
func (a *Account) UpdatedAt() time.Time  { return a.updatedAt }
func (a *Account) DeletedAt() *time.Time { return a.deletedAt }

func (a *Account) SetID(id string)            { a.id = id }
func (a *Account) SetSequence(seq int)        { a.sequence = seq }
func (a *Account) SetCreatedAt(ts time.Time)  { a.createdAt = ts }
func (a *Account) SetUpdatedAt(ts time.Time)  { a.updatedAt = ts }
func (a *Account) SetDeletedAt(ts *time.Time) { a.deletedAt = ts }

// Validate checks that the account has a name and a credential.
func (a *Account) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("account name is required")
	}
	if a.Credential == "" {
		return fmt.Errorf("account credential is required")
	}
	return nil
}
