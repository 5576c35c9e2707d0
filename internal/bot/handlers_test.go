// ABOUTME: Tests for the command logic layer against real SQLite stores
// ABOUTME: Covers whitelist admin guards, directory commands, and argument parsing

package bot

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbatlabs/idgate/internal/access"
	"github.com/arbatlabs/idgate/internal/store"
)

const testSuperAdminID = 42

func newTestHandlers(t *testing.T) (*Handlers, *store.SQLiteWhitelist, *store.SQLiteDirectory) {
	t.Helper()
	dir := t.TempDir()

	wl, err := store.NewSQLiteWhitelist(filepath.Join(dir, "whitelist.db"))
	require.NoError(t, err)
	t.Cleanup(func() { wl.Close() })

	d, err := store.NewSQLiteDirectory(filepath.Join(dir, "directory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	gate := access.New(testSuperAdminID, wl, nil)
	return NewHandlers(gate, wl, d, nil), wl, d
}

func TestAddUserCommand(t *testing.T) {
	h, wl, _ := newTestHandlers(t)
	ctx := context.Background()

	reply := h.AddUser(ctx, "1001")
	assert.Contains(t, reply, "added")

	ok, err := wl.IsWhitelisted(ctx, 1001)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAddUserCommand_Duplicate(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	ctx := context.Background()

	assert.Contains(t, h.AddUser(ctx, "1001"), "added")
	assert.Contains(t, h.AddUser(ctx, "1001"), "already in the whitelist")
}

func TestAddUserCommand_SuperAdminIsNoOp(t *testing.T) {
	h, wl, _ := newTestHandlers(t)
	ctx := context.Background()

	reply := h.AddUser(ctx, "42")
	assert.Contains(t, reply, "super-admin")

	// Informational no-op: nothing written
	ok, err := wl.IsWhitelisted(ctx, testSuperAdminID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddUserCommand_BadArgument(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	ctx := context.Background()

	assert.Contains(t, h.AddUser(ctx, ""), "/add <user_id>")
	assert.Contains(t, h.AddUser(ctx, "abc"), "/add <user_id>")
}

func TestRemoveUserCommand(t *testing.T) {
	h, wl, _ := newTestHandlers(t)
	ctx := context.Background()

	require.NoError(t, wl.AddUser(ctx, 1001, "", "", ""))

	reply := h.RemoveUser(ctx, 500, "1001")
	assert.Contains(t, reply, "removed")

	ok, err := wl.IsWhitelisted(ctx, 1001)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveUserCommand_NotFound(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	reply := h.RemoveUser(context.Background(), 500, "1001")
	assert.Contains(t, reply, "not found")
}

func TestRemoveUserCommand_SelfRemovalRefused(t *testing.T) {
	h, wl, _ := newTestHandlers(t)
	ctx := context.Background()

	require.NoError(t, wl.AddUser(ctx, 500, "", "", ""))

	reply := h.RemoveUser(ctx, 500, "500")
	assert.Contains(t, reply, "cannot remove yourself")

	// Still whitelisted
	ok, err := wl.IsWhitelisted(ctx, 500)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRemoveUserCommand_SuperAdminRefused(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	reply := h.RemoveUser(context.Background(), 500, "42")
	assert.Contains(t, reply, "cannot be removed")
}

func TestListWhitelistCommand(t *testing.T) {
	h, wl, _ := newTestHandlers(t)
	ctx := context.Background()

	assert.Contains(t, h.ListWhitelist(ctx), "empty")

	require.NoError(t, wl.AddUser(ctx, 1001, "ivanov", "", ""))
	require.NoError(t, wl.AddUser(ctx, 1002, "", "", ""))

	reply := h.ListWhitelist(ctx)
	assert.Contains(t, reply, "<code>1001</code>")
	assert.Contains(t, reply, "@ivanov")
	assert.Contains(t, reply, "<code>1002</code>")
}

func TestCheckAccessCommand(t *testing.T) {
	h, wl, _ := newTestHandlers(t)
	ctx := context.Background()

	assert.Contains(t, h.CheckAccess(ctx, 1001), "not in the whitelist")

	require.NoError(t, wl.AddUser(ctx, 1001, "", "", ""))
	assert.Contains(t, h.CheckAccess(ctx, 1001), "You are in the whitelist")
}

func TestAddPersonCommand(t *testing.T) {
	h, _, d := newTestHandlers(t)
	ctx := context.Background()

	reply := h.AddPerson(ctx, "Ivanov Ivan")
	assert.Contains(t, reply, "<code>1</code>")

	reply = h.AddPerson(ctx, "Petrova Anna Sergeevna works in accounting")
	assert.Contains(t, reply, "<code>2</code>")

	persons, err := d.ListPersons(ctx)
	require.NoError(t, err)
	require.Len(t, persons, 2)
	assert.Equal(t, "Ivanov", persons[0].LastName)
	assert.Equal(t, "Sergeevna", persons[1].MiddleName)
	assert.Equal(t, "works in accounting", persons[1].Description)
}

func TestAddPersonCommand_BadArgument(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	assert.Contains(t, h.AddPerson(context.Background(), "OnlyLast"), "Usage")
	assert.Contains(t, h.AddPerson(context.Background(), ""), "Usage")
}

func TestAddAccountCommand(t *testing.T) {
	h, _, d := newTestHandlers(t)
	ctx := context.Background()

	require.NoError(t, d.CreatePerson(ctx, &store.Person{LastName: "Ivanov", FirstName: "Ivan"}))

	reply := h.AddAccount(ctx, "1 telegram id=555 tag=@ivanov phone=+1234567890")
	assert.Contains(t, reply, "telegram")
	assert.Contains(t, reply, "<code>1</code>")

	accounts, err := d.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, int64(555), accounts[0].TelegramID)
	assert.Equal(t, "@ivanov", accounts[0].TelegramTag)
	assert.Equal(t, "+1234567890", accounts[0].PhoneNumber)
}

func TestAddAccountCommand_PersonNotFound(t *testing.T) {
	h, _, d := newTestHandlers(t)
	ctx := context.Background()

	reply := h.AddAccount(ctx, "999 telegram")
	assert.Contains(t, reply, "not found")

	accounts, err := d.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestAddAccountCommand_BadArguments(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	ctx := context.Background()

	assert.Contains(t, h.AddAccount(ctx, ""), "Usage")
	assert.Contains(t, h.AddAccount(ctx, "one telegram"), "must be a number")
	assert.Contains(t, h.AddAccount(ctx, "1 telegram id=abc"), "must be a number")
	assert.Contains(t, h.AddAccount(ctx, "1 telegram bogus=1"), "Usage")
}

func TestFindPhoneCommand(t *testing.T) {
	h, _, d := newTestHandlers(t)
	ctx := context.Background()

	require.NoError(t, d.CreatePerson(ctx, &store.Person{LastName: "Ivanov", FirstName: "Ivan"}))
	require.NoError(t, d.CreateAccount(ctx, &store.Account{
		PersonID:      1,
		MessengerType: "telegram",
		TelegramID:    555,
		PhoneNumber:   "+1234567890",
	}))

	reply := h.FindPhone(ctx, "+1234567890")
	assert.Contains(t, reply, "Accounts (1)")
	assert.Contains(t, reply, "<code>555</code>")
	assert.Contains(t, reply, "Persons (1)")
	assert.Contains(t, reply, "Ivanov")
}

func TestFindPhoneCommand_NoMatch(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	assert.Contains(t, h.FindPhone(context.Background(), "+0000"), "Nothing found")
	assert.Contains(t, h.FindPhone(context.Background(), ""), "Provide a phone number")
}

func TestDeletePersonCommand_Cascades(t *testing.T) {
	h, _, d := newTestHandlers(t)
	ctx := context.Background()

	require.NoError(t, d.CreatePerson(ctx, &store.Person{LastName: "Ivanov", FirstName: "Ivan"}))
	require.NoError(t, d.CreateAccount(ctx, &store.Account{PersonID: 1, MessengerType: "telegram"}))
	require.NoError(t, d.CreateAccount(ctx, &store.Account{PersonID: 1, MessengerType: "whatsapp"}))

	reply := h.DeletePerson(ctx, "1")
	assert.Contains(t, reply, "deleted")

	accounts, err := d.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	assert.Contains(t, h.DeletePerson(ctx, "1"), "not found")
}

func TestDeleteAccountCommand(t *testing.T) {
	h, _, d := newTestHandlers(t)
	ctx := context.Background()

	require.NoError(t, d.CreatePerson(ctx, &store.Person{LastName: "Ivanov", FirstName: "Ivan"}))
	require.NoError(t, d.CreateAccount(ctx, &store.Account{PersonID: 1, MessengerType: "telegram"}))

	assert.Contains(t, h.DeleteAccount(ctx, "1"), "deleted")
	assert.Contains(t, h.DeleteAccount(ctx, "1"), "not found")

	// The person survives its account
	persons, err := d.ListPersons(ctx)
	require.NoError(t, err)
	assert.Len(t, persons, 1)
}

func TestListAccountsCommand(t *testing.T) {
	h, _, d := newTestHandlers(t)
	ctx := context.Background()

	assert.Contains(t, h.ListAccounts(ctx), "empty")

	require.NoError(t, d.CreatePerson(ctx, &store.Person{LastName: "Ivanov", FirstName: "Ivan"}))
	require.NoError(t, d.CreateAccount(ctx, &store.Account{
		PersonID:      1,
		MessengerType: "whatsapp",
		WhatsappID:    "wa-77",
	}))

	reply := h.ListAccounts(ctx)
	assert.Contains(t, reply, "whatsapp")
	assert.Contains(t, reply, "wa-77")
	assert.Contains(t, reply, "person <code>1</code>")
}

func TestFormatPerson_EscapesHTML(t *testing.T) {
	p := store.Person{ID: 1, LastName: "<b>", FirstName: "x"}
	s := formatPerson(p)
	assert.NotContains(t, s, "<b>")
	assert.Contains(t, s, "&lt;b&gt;")
}

func TestParseID(t *testing.T) {
	for _, bad := range []string{"", "abc", "-5", "0", "1.5"} {
		if _, ok := parseID(bad); ok {
			t.Errorf("parseID(%q) unexpectedly succeeded", bad)
		}
	}

	id, ok := parseID(" 439716429 ")
	assert.True(t, ok)
	assert.Equal(t, int64(439716429), id)
}

func TestHandlersReplies_AreHTMLFragments(t *testing.T) {
	// Replies use <code>/<b> only; a stray unescaped '<' from user data
	// would break Telegram's HTML parser.
	h, _, d := newTestHandlers(t)
	ctx := context.Background()

	require.NoError(t, d.CreatePerson(ctx, &store.Person{LastName: "A<script>", FirstName: "B"}))
	reply := h.ListPersons(ctx)
	assert.False(t, strings.Contains(reply, "<script>"))
}
