// ABOUTME: Command logic for the bot, decoupled from the Telegram transport
// ABOUTME: Each method takes the acting user and raw payload and returns the reply text

package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	"github.com/arbatlabs/idgate/internal/access"
	"github.com/arbatlabs/idgate/internal/metrics"
	"github.com/arbatlabs/idgate/internal/store"
)

// Handlers holds the command logic. It is independent of telebot so the
// behavior can be tested against real stores without a bot token.
type Handlers struct {
	gate      *access.Gate
	whitelist store.WhitelistStore
	directory store.DirectoryStore
	recorder  metrics.Recorder
	logger    *slog.Logger
}

// NewHandlers creates the command logic layer. recorder may be nil.
func NewHandlers(gate *access.Gate, whitelist store.WhitelistStore, directory store.DirectoryStore, recorder metrics.Recorder) *Handlers {
	return &Handlers{
		gate:      gate,
		whitelist: whitelist,
		directory: directory,
		recorder:  recorder,
		logger:    slog.Default().With("component", "bot"),
	}
}

func (h *Handlers) storageError(command string, err error) {
	h.logger.Error("command failed", "command", command, "error", err)
	if h.recorder != nil {
		h.recorder.RecordHandlerError(command)
	}
}

// AddUser handles /add <user_id>.
func (h *Handlers) AddUser(ctx context.Context, payload string) string {
	userID, ok := parseID(payload)
	if !ok {
		return "❌ Provide an ID: /add <user_id>"
	}

	// The gate already grants the super-admin unconditional access;
	// adding it is informational, not an error.
	if userID == h.gate.SuperAdminID() {
		return "🚫 The super-admin always has access, no need to add it."
	}

	err := h.whitelist.AddUser(ctx, userID, "", "", "")
	if errors.Is(err, store.ErrDuplicateUser) {
		return fmt.Sprintf("⚠️ User %d is already in the whitelist", userID)
	}
	if err != nil {
		h.storageError("add", err)
		return fmt.Sprintf("❌ Failed to add user %d", userID)
	}

	return fmt.Sprintf("✅ User %d added to the whitelist", userID)
}

// RemoveUser handles /remove <user_id>. The acting user can never remove
// itself, and the super-admin can never be removed.
func (h *Handlers) RemoveUser(ctx context.Context, actorID int64, payload string) string {
	userID, ok := parseID(payload)
	if !ok {
		return "❌ Provide an ID: /remove <user_id>"
	}

	if userID == actorID {
		return "⚠️ You cannot remove yourself!"
	}

	if userID == h.gate.SuperAdminID() {
		return "🚫 The super-admin cannot be removed!"
	}

	err := h.whitelist.RemoveUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("⚠️ User %d not found", userID)
	}
	if err != nil {
		h.storageError("remove", err)
		return fmt.Sprintf("❌ Failed to remove user %d", userID)
	}

	return fmt.Sprintf("🗑 User %d removed", userID)
}

// ListWhitelist handles /list.
func (h *Handlers) ListWhitelist(ctx context.Context) string {
	users, err := h.whitelist.ListUsers(ctx)
	if err != nil {
		h.storageError("list", err)
		return "❌ Failed to read the whitelist"
	}
	if len(users) == 0 {
		return "📝 The whitelist is empty."
	}

	var sb strings.Builder
	sb.WriteString("📋 Whitelisted users:\n\n")
	for _, u := range users {
		sb.WriteString(fmt.Sprintf("• ID: <code>%d</code>", u.UserID))
		if u.Username != "" {
			sb.WriteString(" | @" + html.EscapeString(u.Username))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// CheckAccess handles /check for the acting user.
func (h *Handlers) CheckAccess(ctx context.Context, actorID int64) string {
	ok, err := h.whitelist.IsWhitelisted(ctx, actorID)
	if err != nil {
		h.storageError("check", err)
		return "❌ Failed to check the whitelist"
	}
	if ok {
		return "✅ You are in the whitelist!"
	}
	return "❌ You are not in the whitelist."
}

// AddPerson handles /add_person Last First [Middle] [description].
func (h *Handlers) AddPerson(ctx context.Context, payload string) string {
	parts := strings.SplitN(strings.TrimSpace(payload), " ", 4)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "❌ Usage: /add_person Last First [Middle] [description]"
	}

	p := &store.Person{
		LastName:  parts[0],
		FirstName: parts[1],
	}
	if len(parts) > 2 {
		p.MiddleName = parts[2]
	}
	if len(parts) > 3 {
		p.Description = parts[3]
	}

	if err := h.directory.CreatePerson(ctx, p); err != nil {
		h.storageError("add_person", err)
		return "❌ Failed to add the person"
	}

	return fmt.Sprintf("Person added with ID <code>%d</code>", p.ID)
}

// AddAccount handles
// /add_account <person_id> <messenger> [id=..] [tag=..] [phone=..] [whatsapp_id=..] [email=..].
func (h *Handlers) AddAccount(ctx context.Context, payload string) string {
	const usage = "❌ Usage: /add_account <person_id> <messenger> [id=..] [tag=..] [phone=..] [whatsapp_id=..] [email=..]"

	fields := strings.Fields(payload)
	if len(fields) < 2 {
		return usage
	}

	personID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return "❌ Person ID must be a number"
	}

	a := &store.Account{
		PersonID:      personID,
		MessengerType: fields[1],
	}

	for _, param := range fields[2:] {
		key, value, found := strings.Cut(param, "=")
		if !found {
			return usage
		}
		switch key {
		case "id":
			a.TelegramID, err = strconv.ParseInt(value, 10, 64)
			if err != nil {
				return "❌ Telegram ID must be a number"
			}
		case "tag":
			a.TelegramTag = value
		case "phone":
			a.PhoneNumber = value
		case "whatsapp_id":
			a.WhatsappID = value
		case "email":
			a.Email = value
		default:
			return usage
		}
	}

	err = h.directory.CreateAccount(ctx, a)
	if errors.Is(err, store.ErrPersonNotFound) {
		return fmt.Sprintf("❌ Person with ID <code>%d</code> not found", personID)
	}
	if err != nil {
		h.storageError("add_account", err)
		return "❌ Failed to add the account"
	}

	return fmt.Sprintf("Account %s added for person <code>%d</code>",
		html.EscapeString(a.MessengerType), personID)
}

// FindPhone handles /find_phone <number>. Matching is exact: the number
// must be formatted exactly as stored.
func (h *Handlers) FindPhone(ctx context.Context, payload string) string {
	phone := strings.TrimSpace(payload)
	if phone == "" {
		return "❌ Provide a phone number, e.g.: /find_phone +1234567890"
	}

	matches, err := h.directory.FindByPhoneNumber(ctx, phone)
	if err != nil {
		h.storageError("find_phone", err)
		return "❌ Phone lookup failed"
	}
	if len(matches) == 0 {
		return fmt.Sprintf("Nothing found for <code>%s</code>", html.EscapeString(phone))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found for <code>%s</code>:\n", html.EscapeString(phone)))
	sb.WriteString(fmt.Sprintf("<b>Accounts (%d):</b>\n", len(matches)))
	for _, m := range matches {
		sb.WriteString("- " + formatAccount(m.Account) + "\n")
	}
	sb.WriteString(fmt.Sprintf("\n<b>Persons (%d):</b>\n", len(matches)))
	for _, m := range matches {
		sb.WriteString("- " + formatPerson(m.Person) + "\n")
	}
	return sb.String()
}

// ListPersons handles /list_persons.
func (h *Handlers) ListPersons(ctx context.Context) string {
	persons, err := h.directory.ListPersons(ctx)
	if err != nil {
		h.storageError("list_persons", err)
		return "❌ Failed to read the directory"
	}
	if len(persons) == 0 {
		return "The person list is empty"
	}

	var sb strings.Builder
	sb.WriteString("<b>Persons:</b>\n")
	for _, p := range persons {
		sb.WriteString("- " + formatPerson(p) + "\n")
	}
	return sb.String()
}

// ListAccounts handles /list_accounts.
func (h *Handlers) ListAccounts(ctx context.Context) string {
	accounts, err := h.directory.ListAccounts(ctx)
	if err != nil {
		h.storageError("list_accounts", err)
		return "❌ Failed to read the directory"
	}
	if len(accounts) == 0 {
		return "The account list is empty"
	}

	var sb strings.Builder
	sb.WriteString("<b>Accounts:</b>\n")
	for _, a := range accounts {
		sb.WriteString(fmt.Sprintf("- (person <code>%d</code>) %s\n", a.PersonID, formatAccount(a)))
	}
	return sb.String()
}

// DeletePerson handles /delete_person <id>. All accounts owned by the
// person are deleted with it.
func (h *Handlers) DeletePerson(ctx context.Context, payload string) string {
	personID, ok := parseID(payload)
	if !ok {
		return "❌ Usage: /delete_person <person_id>"
	}

	err := h.directory.DeletePerson(ctx, personID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("Person with ID <code>%d</code> not found", personID)
	}
	if err != nil {
		h.storageError("delete_person", err)
		return "❌ Failed to delete the person"
	}

	return fmt.Sprintf("Person <code>%d</code> and its accounts deleted", personID)
}

// DeleteAccount handles /delete_account <id>.
func (h *Handlers) DeleteAccount(ctx context.Context, payload string) string {
	accountID, ok := parseID(payload)
	if !ok {
		return "❌ Usage: /delete_account <account_id>"
	}

	err := h.directory.DeleteAccount(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("Account with ID <code>%d</code> not found", accountID)
	}
	if err != nil {
		h.storageError("delete_account", err)
		return "❌ Failed to delete the account"
	}

	return fmt.Sprintf("Account <code>%d</code> deleted", accountID)
}

// parseID parses a single positive integer argument.
func parseID(payload string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func formatPerson(p store.Person) string {
	s := html.EscapeString(p.LastName) + " " + html.EscapeString(p.FirstName)
	if p.MiddleName != "" {
		s += " " + html.EscapeString(p.MiddleName)
	}
	if p.Description != "" {
		s += " (" + html.EscapeString(p.Description) + ")"
	}
	return s + fmt.Sprintf(" (ID: <code>%d</code>)", p.ID)
}

func formatAccount(a store.Account) string {
	parts := []string{html.EscapeString(a.MessengerType)}
	if a.TelegramID != 0 {
		parts = append(parts, fmt.Sprintf("telegram_id=<code>%d</code>", a.TelegramID))
	}
	if a.TelegramTag != "" {
		parts = append(parts, "tag="+html.EscapeString(a.TelegramTag))
	}
	if a.PhoneNumber != "" {
		parts = append(parts, "phone=<code>"+html.EscapeString(a.PhoneNumber)+"</code>")
	}
	if a.WhatsappID != "" {
		parts = append(parts, "whatsapp_id=<code>"+html.EscapeString(a.WhatsappID)+"</code>")
	}
	if a.Email != "" {
		parts = append(parts, "email=<code>"+html.EscapeString(a.Email)+"</code>")
	}
	return fmt.Sprintf("%s (ID: <code>%d</code>)", strings.Join(parts, ", "), a.ID)
}
