// ABOUTME: Data types, sentinel errors, and store interfaces for idgate persistence
// ABOUTME: Defines WhitelistEntry, Person, Account and the two store contracts

package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUser is returned when adding a whitelist entry for a user
// that is already whitelisted. Duplicates are an expected, recoverable
// condition, not a storage failure.
var ErrDuplicateUser = errors.New("user already whitelisted")

// ErrPersonNotFound is returned when creating an account that references
// a person that does not exist. The check happens before any write.
var ErrPersonNotFound = errors.New("person not found")

// WhitelistEntry is one authorized Telegram identity with optional
// display metadata. UserID is the externally supplied identity and is
// unique across all entries; ID is the surrogate key assigned by the store.
type WhitelistEntry struct {
	ID        int64
	UserID    int64
	Username  string
	FirstName string
	LastName  string
}

// Person is a contact in the directory. It owns zero or more Accounts;
// deleting a Person deletes all of them.
type Person struct {
	ID          int64
	LastName    string
	FirstName   string
	MiddleName  string
	Description string
}

// Account is one messenger identity belonging to a Person. MessengerType
// is a short tag like "telegram" or "whatsapp"; the remaining identity
// fields are optional and zero when unset. PersonID must reference an
// existing Person.
type Account struct {
	ID            int64
	PersonID      int64
	MessengerType string
	TelegramID    int64
	TelegramTag   string
	PhoneNumber   string
	WhatsappID    string
	Email         string
}

// PhoneMatch pairs an Account whose phone number matched a lookup with
// its owning Person. Person.ID always equals Account.PersonID.
type PhoneMatch struct {
	Account Account
	Person  Person
}

// WhitelistStore is the durable set of authorized identities.
type WhitelistStore interface {
	// AddUser inserts a new whitelist entry. Returns ErrDuplicateUser
	// if the user ID is already present.
	AddUser(ctx context.Context, userID int64, username, firstName, lastName string) error

	// RemoveUser deletes the entry with the given user ID.
	// Returns ErrNotFound if no such entry exists.
	RemoveUser(ctx context.Context, userID int64) error

	// IsWhitelisted reports whether the user ID is present. Side-effect free.
	IsWhitelisted(ctx context.Context, userID int64) (bool, error)

	// ListUsers returns a full snapshot of all entries.
	ListUsers(ctx context.Context) ([]WhitelistEntry, error)

	// UserIDSet returns the whitelisted user IDs as a set.
	UserIDSet(ctx context.Context) (map[int64]struct{}, error)

	// Close releases the underlying database.
	Close() error
}

// DirectoryStore is the durable Person/Account graph with referential
// integrity and phone-number lookup.
type DirectoryStore interface {
	// CreatePerson inserts a person and assigns p.ID.
	CreatePerson(ctx context.Context, p *Person) error

	// CreateAccount inserts an account and assigns a.ID. Returns
	// ErrPersonNotFound if a.PersonID does not reference an existing
	// person; in that case nothing is written.
	CreateAccount(ctx context.Context, a *Account) error

	// FindByPhoneNumber returns every account whose phone number exactly
	// matches, each paired with its owning person. Matching is literal
	// string equality; no phone-format normalization is performed.
	FindByPhoneNumber(ctx context.Context, phoneNumber string) ([]PhoneMatch, error)

	// DeletePerson deletes the person and, atomically, every account it
	// owns. Returns ErrNotFound if the person does not exist.
	DeletePerson(ctx context.Context, personID int64) error

	// DeleteAccount deletes a single account. Returns ErrNotFound if it
	// does not exist. The owning person is never deleted.
	DeleteAccount(ctx context.Context, accountID int64) error

	// ListPersons returns a full snapshot of all persons.
	ListPersons(ctx context.Context) ([]Person, error)

	// ListAccounts returns a full snapshot of all accounts.
	ListAccounts(ctx context.Context) ([]Account, error)

	// Close releases the underlying database.
	Close() error
}
