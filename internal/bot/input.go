package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskflow/internal/model"
)

const (
	cbAdvance        = "adv"
	cbSnooze         = "snz"
	cbDeleteTask     = "tdel"
	cbToggleTemplate = "ttog"
	cbDeleteTemplate = "xdel"
)

const (
	btnSkip              = "⏭️ Skip"
	btnConfirm           = "✅ Confirm"
	btnCancel            = "↩️ Cancel"
	btnCancelDialog      = "⏪ Cancel input"
	btnWeekly            = "Weekly"
	btnMonthly           = "Monthly"
	btnYearly            = "Yearly"
	menuLabelTasks       = "📋 Tasks"
	menuLabelTemplates   = "♻️ Templates"
	menuLabelNewTemplate = "➕ New template"
	menuLabelHelp        = "ℹ️ Help"
)

func callbackData(action, id string) string {
	return action + ":" + id
}

func parseCallback(data string) (action, id string, ok bool) {
	action, id, ok = strings.Cut(data, ":")
	if !ok || action == "" || id == "" {
		return "", "", false
	}
	return action, id, true
}

func scheduleKindFromInput(text string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "weekly", "week", "w":
		return model.ScheduleWeekly, true
	case "monthly", "month", "m":
		return model.ScheduleMonthly, true
	case "yearly", "year", "annually", "y":
		return model.ScheduleYearly, true
	}
	return "", false
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelTasks),
			tgbotapi.NewKeyboardButton(menuLabelTemplates),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTemplate),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func scheduleTypeKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnWeekly),
			tgbotapi.NewKeyboardButton(btnMonthly),
			tgbotapi.NewKeyboardButton(btnYearly),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "confirm" || value == "yes"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "cancel" || value == "no"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "cancel input"
}
