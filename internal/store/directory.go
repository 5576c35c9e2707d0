// ABOUTME: SQLite implementation of the contacts directory store
// ABOUTME: Person/Account graph with cascade delete and phone-number lookup

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

const directorySchema = `
	CREATE TABLE IF NOT EXISTS persons (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		last_name   TEXT NOT NULL,
		first_name  TEXT NOT NULL,
		middle_name TEXT,
		description TEXT
	);

	CREATE TABLE IF NOT EXISTS accounts (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		messenger_type TEXT NOT NULL,
		telegram_id    INTEGER,
		telegram_tag   TEXT,
		phone_number   TEXT,
		whatsapp_id    TEXT,
		email          TEXT,
		person_id      INTEGER NOT NULL REFERENCES persons(id)
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_person_id ON accounts(person_id);
	CREATE INDEX IF NOT EXISTS idx_accounts_phone_number ON accounts(phone_number);
`

// SQLiteDirectory implements DirectoryStore on a SQLite database.
type SQLiteDirectory struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteDirectory opens the directory database at the given path.
// The schema is created if it doesn't exist.
func NewSQLiteDirectory(path string) (*SQLiteDirectory, error) {
	logger := slog.Default().With("component", "directory")

	db, err := openDB(path, directorySchema)
	if err != nil {
		return nil, err
	}

	logger.Info("directory store initialized", "path", path)
	return &SQLiteDirectory{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteDirectory) Close() error {
	s.logger.Info("closing directory store")
	return s.db.Close()
}

// CreatePerson inserts a person and assigns p.ID.
func (s *SQLiteDirectory) CreatePerson(ctx context.Context, p *Person) error {
	query := `
		INSERT INTO persons (last_name, first_name, middle_name, description)
		VALUES (?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		p.LastName,
		p.FirstName,
		nullString(p.MiddleName),
		nullString(p.Description),
	)
	if err != nil {
		return fmt.Errorf("inserting person: %w", err)
	}

	p.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting person ID: %w", err)
	}

	s.logger.Info("created person", "id", p.ID, "last_name", p.LastName, "first_name", p.FirstName)
	return nil
}

// CreateAccount inserts an account and assigns a.ID. The referenced
// person must exist; the check happens before any write and a missing
// person returns ErrPersonNotFound.
func (s *SQLiteDirectory) CreateAccount(ctx context.Context, a *Account) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM persons WHERE id = ?`, a.PersonID).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrPersonNotFound
	}
	if err != nil {
		return fmt.Errorf("checking person existence: %w", err)
	}

	query := `
		INSERT INTO accounts (messenger_type, telegram_id, telegram_tag, phone_number, whatsapp_id, email, person_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		a.MessengerType,
		nullInt64(a.TelegramID),
		nullString(a.TelegramTag),
		nullString(a.PhoneNumber),
		nullString(a.WhatsappID),
		nullString(a.Email),
		a.PersonID,
	)
	if err != nil {
		// FOREIGN KEY failure here means the person vanished between
		// the existence check and the insert.
		if isConstraintViolation(err) {
			return ErrPersonNotFound
		}
		return fmt.Errorf("inserting account: %w", err)
	}

	a.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting account ID: %w", err)
	}

	s.logger.Info("created account", "id", a.ID, "messenger_type", a.MessengerType, "person_id", a.PersonID)
	return nil
}

// FindByPhoneNumber returns every account whose phone number exactly
// matches, paired with the owning person. Matching is literal string
// equality as stored; "+1-234-567-890" and "+1234567890" are different
// numbers.
func (s *SQLiteDirectory) FindByPhoneNumber(ctx context.Context, phoneNumber string) ([]PhoneMatch, error) {
	query := `
		SELECT a.id, a.messenger_type, a.telegram_id, a.telegram_tag,
		       a.phone_number, a.whatsapp_id, a.email, a.person_id,
		       p.id, p.last_name, p.first_name, p.middle_name, p.description
		FROM accounts a
		JOIN persons p ON p.id = a.person_id
		WHERE a.phone_number = ?
		ORDER BY a.id
	`

	rows, err := s.db.QueryContext(ctx, query, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("querying accounts by phone number: %w", err)
	}
	defer rows.Close()

	matches := []PhoneMatch{}
	for rows.Next() {
		m, err := scanPhoneMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating phone match rows: %w", err)
	}

	s.logger.Debug("phone lookup", "phone_number", phoneNumber, "matches", len(matches))
	return matches, nil
}

func scanPhoneMatch(rows *sql.Rows) (PhoneMatch, error) {
	var m PhoneMatch
	var telegramID sql.NullInt64
	var telegramTag, phone, whatsappID, email sql.NullString
	var middleName, description sql.NullString

	err := rows.Scan(
		&m.Account.ID, &m.Account.MessengerType, &telegramID, &telegramTag,
		&phone, &whatsappID, &email, &m.Account.PersonID,
		&m.Person.ID, &m.Person.LastName, &m.Person.FirstName, &middleName, &description,
	)
	if err != nil {
		return PhoneMatch{}, fmt.Errorf("scanning phone match row: %w", err)
	}

	m.Account.TelegramID = telegramID.Int64
	m.Account.TelegramTag = telegramTag.String
	m.Account.PhoneNumber = phone.String
	m.Account.WhatsappID = whatsappID.String
	m.Account.Email = email.String
	m.Person.MiddleName = middleName.String
	m.Person.Description = description.String
	return m, nil
}

// DeletePerson deletes the person and every account it owns in one
// transaction. Returns ErrNotFound if the person does not exist; on any
// failure the transaction is rolled back and no partial deletion is
// observable.
func (s *SQLiteDirectory) DeletePerson(ctx context.Context, personID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE person_id = ?`, personID); err != nil {
		return fmt.Errorf("deleting accounts for person: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM persons WHERE id = ?`, personID)
	if err != nil {
		return fmt.Errorf("deleting person: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing person deletion: %w", err)
	}

	s.logger.Info("deleted person", "id", personID)
	return nil
}

// DeleteAccount deletes a single account. Returns ErrNotFound if it
// does not exist.
func (s *SQLiteDirectory) DeleteAccount(ctx context.Context, accountID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, accountID)
	if err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("deleted account", "id", accountID)
	return nil
}

// ListPersons returns all persons.
func (s *SQLiteDirectory) ListPersons(ctx context.Context) ([]Person, error) {
	query := `
		SELECT id, last_name, first_name, middle_name, description
		FROM persons
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying persons: %w", err)
	}
	defer rows.Close()

	var persons []Person
	for rows.Next() {
		var p Person
		var middleName, description sql.NullString

		if err := rows.Scan(&p.ID, &p.LastName, &p.FirstName, &middleName, &description); err != nil {
			return nil, fmt.Errorf("scanning person row: %w", err)
		}

		p.MiddleName = middleName.String
		p.Description = description.String
		persons = append(persons, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating person rows: %w", err)
	}

	return persons, nil
}

// ListAccounts returns all accounts.
func (s *SQLiteDirectory) ListAccounts(ctx context.Context) ([]Account, error) {
	query := `
		SELECT id, messenger_type, telegram_id, telegram_tag, phone_number, whatsapp_id, email, person_id
		FROM accounts
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		var telegramID sql.NullInt64
		var telegramTag, phone, whatsappID, email sql.NullString

		if err := rows.Scan(&a.ID, &a.MessengerType, &telegramID, &telegramTag, &phone, &whatsappID, &email, &a.PersonID); err != nil {
			return nil, fmt.Errorf("scanning account row: %w", err)
		}

		a.TelegramID = telegramID.Int64
		a.TelegramTag = telegramTag.String
		a.PhoneNumber = phone.String
		a.WhatsappID = whatsappID.String
		a.Email = email.String
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating account rows: %w", err)
	}

	return accounts, nil
}

// Ensure SQLiteDirectory implements DirectoryStore
var _ DirectoryStore = (*SQLiteDirectory)(nil)
