package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskflow/internal/model"
	"taskflow/internal/service"
)

func (b *Bot) handleListTemplates(ctx context.Context, msg *tgbotapi.Message) error {
	return b.sendTemplateList(ctx, msg.Chat.ID)
}

func (b *Bot) sendTemplateList(ctx context.Context, chatID int64) error {
	templates, err := b.templateSvc.List(ctx, "")
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load templates: %s", escape(err.Error())))
	}
	if len(templates) == 0 {
		return b.sendText(chatID, "No recurring templates yet. Add one with /newtemplate.")
	}

	var builder strings.Builder
	builder.WriteString("♻️ <b>Recurring templates</b>\n")
	builder.WriteString("⏯ pauses or resumes a template, 🗑 deletes it.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, t := range templates {
		icon := "🟢"
		if !t.IsActive() {
			icon = "⏸"
		}
		builder.WriteString(fmt.Sprintf("%s %s\n   🔄 %s\n   👤 %s\n\n", icon, escape(t.Subject), escape(model.DescribeSchedule(t.Schedule)), escape(t.Assignee)))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("⏯ %s", shortTitle(t.Subject, 20)), callbackData(cbToggleTemplate, t.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑", callbackData(cbDeleteTemplate, t.ID)),
		))
	}

	reply := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	_, err = b.api.Send(reply)
	return err
}

func (b *Bot) startTemplateConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureSubscriber(ctx, msg); err != nil {
		return err
	}
	log.Printf("[info] start new template conversation user=%d", msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageSubject})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New recurring template.\n<b>Step 1:</b> what should the task be called?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageSubject:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The subject cannot be empty.", cancelKeyboard())
		}
		state.input.Subject = text
		state.stage = stageScheduleType
		return b.sendWithReplyMarkup(msg.Chat.ID, "<b>Step 2:</b> how often does it repeat?", scheduleTypeKeyboard())
	case stageScheduleType:
		kind, ok := scheduleKindFromInput(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Pick weekly, monthly or yearly.", scheduleTypeKeyboard())
		}
		state.scheduleKind = kind
		state.stage = stageScheduleDays
		return b.sendWithReplyMarkup(msg.Chat.ID, scheduleDaysPrompt(kind), cancelKeyboard())
	case stageScheduleDays:
		schedule, err := model.ParseScheduleText(state.scheduleKind, text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, escape(err.Error())+"\n"+scheduleDaysPrompt(state.scheduleKind), cancelKeyboard())
		}
		state.input.Schedule = schedule
		state.stage = stageAssignee
		return b.sendWithReplyMarkup(msg.Chat.ID, "<b>Step 4:</b> who is it assigned to?", skipKeyboard())
	case stageAssignee:
		if !isSkipInput(text) {
			state.input.Assignee = text
		}
		err := b.finishTemplateCreation(ctx, msg.Chat.ID, state.input)
		b.clearConversation(msg.From.ID)
		return err
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Input reset. Start again with /newtemplate.")
	}
}

func (b *Bot) finishTemplateCreation(ctx context.Context, chatID int64, input service.TemplateInput) error {
	template, err := b.templateSvc.Create(ctx, input, time.Now())
	if err != nil {
		return b.sendTextWithRemove(chatID, fmt.Sprintf("Could not save the template: %s", escape(err.Error())))
	}
	log.Printf("[info] template created id=%s", template.ID)

	text := fmt.Sprintf("✅ <b>Template saved</b>\n• <b>Subject:</b> %s\n• <b>Repeats:</b> %s\n• <b>Assignee:</b> %s",
		escape(template.Subject), escape(model.DescribeSchedule(template.Schedule)), escape(template.Assignee))
	if err := b.sendTextWithRemove(chatID, text); err != nil {
		return err
	}
	return b.sendTemplateList(ctx, chatID)
}

func (b *Bot) toggleTemplate(ctx context.Context, chatID int64, id string) error {
	template, err := b.templateSvc.Toggle(ctx, id, time.Now())
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			return b.sendText(chatID, "Template not found.")
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	state := "paused"
	if template.IsActive() {
		state = "active"
	}
	log.Printf("[info] template %s is now %s", template.ID, template.Status)
	return b.sendText(chatID, fmt.Sprintf("⏯ «%s» is now %s.", escape(template.Subject), state))
}

func (b *Bot) askDeleteTemplate(ctx context.Context, chatID, userID int64, id string) error {
	template, err := b.templateSvc.GetTemplate(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			return b.sendText(chatID, "Template not found.")
		}
		return err
	}

	note := "It stops generating tasks; existing tasks are kept."
	if !template.IsActive() {
		note = "It is paused, so it will be removed together with all of its tasks."
	}
	b.setConfirmation(userID, confirmationRequest{id: template.ID, action: actionDeleteTemplate})
	text := fmt.Sprintf("Delete the template «%s»?\n%s", escape(template.Subject), note)
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) deleteTemplateAndRefresh(ctx context.Context, chatID int64, id string) error {
	purged, removed, err := b.templateSvc.Delete(ctx, id, time.Now())
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			return b.sendTextWithRemove(chatID, "Template not found or already deleted.")
		}
		return b.sendTextWithRemove(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}

	text := "🗑 Template deleted, its tasks were kept."
	if purged {
		text = fmt.Sprintf("🗑 Template and %d task(s) removed.", removed)
	}
	if err := b.sendTextWithRemove(chatID, text); err != nil {
		return err
	}
	return b.sendTemplateList(ctx, chatID)
}

func scheduleDaysPrompt(kind string) string {
	switch kind {
	case model.ScheduleWeekly:
		return "<b>Step 3:</b> which weekdays? For example <code>mon, wed, fri</code>."
	case model.ScheduleMonthly:
		return "<b>Step 3:</b> which days of the month (1-30)? For example <code>1, 15</code>."
	default:
		return "<b>Step 3:</b> which dates? Use MM-DD, for example <code>03-05, 12-25</code>."
	}
}
