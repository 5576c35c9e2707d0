// ABOUTME: Reply text builders for the informational commands
// ABOUTME: Pure functions so the wording is testable without a bot token

package bot

import (
	"fmt"
	"html"

	tele "gopkg.in/telebot.v3"
)

func startText(fullName string) string {
	return fmt.Sprintf(
		"👋 Hi, <b>%s</b>!\n"+
			"I show Telegram IDs.\n\n"+
			"📌 Commands:\n"+
			"/id - show your ID and the current chat ID\n"+
			"/help - help\n\n"+
			"You can also forward me a message to see where it came from.",
		html.EscapeString(fullName))
}

func helpText() string {
	return "📖 <b>Help</b>\n\n" +
		"I show IDs:\n" +
		"✔️ Your Telegram ID (/id)\n" +
		"✔️ The chat ID (groups, channels)\n" +
		"✔️ The ID of a forwarded message's origin\n\n" +
		"How to use:\n" +
		"1. Send /id to see your ID\n" +
		"2. Forward me a message\n" +
		"3. Use the buttons below"
}

func idText(userID, chatID int64, chatType string) string {
	return fmt.Sprintf(
		"👤 <b>Your ID:</b> <code>%d</code>\n"+
			"💬 <b>Current chat:</b> <code>%d</code>\n"+
			"Type: %s",
		userID, chatID, chatType)
}

func hintText() string {
	return "ℹ️ To get an ID:\n" +
		"• Send /id\n" +
		"• Forward me a message\n" +
		"• Use the buttons below"
}

// forwardOriginText describes the origin of a forwarded message. Returns
// false if the message is not a forward.
func forwardOriginText(m *tele.Message) (string, bool) {
	switch {
	case m.OriginalSender != nil:
		u := m.OriginalSender
		isBot := "no"
		if u.IsBot {
			isBot = "yes"
		}
		return fmt.Sprintf(
			"🔁 <b>Forwarded from user:</b>\n"+
				"ID: <code>%d</code>\n"+
				"Name: %s\n"+
				"Username: @%s\n"+
				"Bot: %s",
			u.ID,
			html.EscapeString(senderFullName(u)),
			html.EscapeString(orDash(u.Username)),
			isBot,
		), true

	case m.OriginalChat != nil:
		chat := m.OriginalChat
		kind := "group"
		if chat.Type == tele.ChatChannel {
			kind = "channel"
		}
		return fmt.Sprintf(
			"🔁 <b>Forwarded from %s:</b>\n"+
				"ID: <code>%d</code>\n"+
				"Type: <code>%s</code>\n"+
				"Title: %s\n"+
				"Username: @%s",
			kind,
			chat.ID,
			chat.Type,
			html.EscapeString(orDash(chat.Title)),
			html.EscapeString(orDash(chat.Username)),
		), true

	case m.OriginalSenderName != "":
		// Forwards from users with hidden accounts carry only a name
		return fmt.Sprintf("🔁 <b>Forwarded from hidden user:</b> %s",
			html.EscapeString(m.OriginalSenderName)), true
	}

	return "", false
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
