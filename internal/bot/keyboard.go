// ABOUTME: Persistent reply keyboard shown with every informational reply

package bot

import (
	tele "gopkg.in/telebot.v3"
)

var (
	btnMyID = tele.Btn{Text: "🆔 My ID"}
	btnHelp = tele.Btn{Text: "ℹ️ Help"}
)

func replyKeyboard() *tele.ReplyMarkup {
	r := &tele.ReplyMarkup{ResizeKeyboard: true}
	r.Reply(r.Row(btnMyID, btnHelp))
	return r
}
