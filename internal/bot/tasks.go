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

const snoozeMinutes = 10

func (b *Bot) createFromTranscript(ctx context.Context, msg *tgbotapi.Message) error {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return b.sendText(msg.Chat.ID, "Send the task as a sentence, or /help for commands.")
	}
	if _, err := b.ensureSubscriber(ctx, msg); err != nil {
		return err
	}

	task, err := b.taskSvc.CreateFromTranscript(ctx, text, time.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not save the task: %s", escape(err.Error())))
	}
	log.Printf("[info] task created id=%s chat=%d", task.ID, msg.Chat.ID)

	var summary strings.Builder
	summary.WriteString("✅ <b>Task saved</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>Subject:</b> %s\n", escape(task.Subject)))
	summary.WriteString(fmt.Sprintf("• <b>Assignee:</b> %s\n", escape(task.Assignee)))
	summary.WriteString(fmt.Sprintf("• <b>Due:</b> %s\n", escape(dueLabel(*task))))
	if task.ReminderTime != "" {
		summary.WriteString(fmt.Sprintf("• <b>Reminder:</b> %s\n", task.ReminderTime))
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, strings.TrimSpace(summary.String()))
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(taskButtons(*task))
	_, err = b.api.Send(reply)
	return err
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureSubscriber(ctx, msg); err != nil {
		return err
	}

	return b.sendTaskList(ctx, msg.Chat.ID, parseListArgs(msg.CommandArguments()))
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, opts service.ListOptions) error {
	now := time.Now()
	tasks, err := b.taskSvc.List(ctx, opts, now)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load tasks: %s", escape(err.Error())))
	}
	if len(tasks) == 0 {
		return b.sendText(chatID, "No open tasks here. Write one as a sentence to add it.")
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Open tasks</b>\n")
	builder.WriteString("▶️ moves a task to the next status, 🗑 deletes it.\n\n")

	today := model.StartOfDay(now)
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, task := range tasks {
		builder.WriteString(service.FormatTask(task, today))
		buttons = append(buttons, taskButtons(task))
	}

	reply := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	_, err = b.api.Send(reply)
	return err
}

func (b *Bot) handleDashboard(ctx context.Context, msg *tgbotapi.Message) error {
	d, err := b.taskSvc.Dashboard(ctx, time.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not build the dashboard: %s", escape(err.Error())))
	}

	var builder strings.Builder
	builder.WriteString("📊 <b>Dashboard</b>\n")
	builder.WriteString(fmt.Sprintf("• Pending: %d\n• Today: %d\n• Next 5 days: %d\n• Next 30 days: %d\n",
		d.Pending, d.Today, d.Next5Days, d.Next30Days))
	builder.WriteString("\n⚠️ <b>Overdue by assignee</b>\n")
	if len(d.Overdue) == 0 {
		builder.WriteString("— nothing overdue")
	}
	for _, o := range d.Overdue {
		builder.WriteString(fmt.Sprintf("• %s: %d\n", escape(o.Assignee), o.Count))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	text, err := b.reminderSvc.DailyReport(ctx, time.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not build the report: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) advanceTask(ctx context.Context, chatID int64, id string) error {
	task, err := b.taskSvc.Advance(ctx, id, time.Now())
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			return b.sendText(chatID, "Task not found or already deleted.")
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	log.Printf("[info] task %s moved to %s", task.ID, task.Status)
	return b.sendText(chatID, fmt.Sprintf("▶️ «%s» is now <b>%s</b>.", escape(task.Subject), task.Status))
}

func (b *Bot) snoozeTask(ctx context.Context, chatID int64, id string) error {
	until, err := b.reminderSvc.Snooze(ctx, id, snoozeMinutes, time.Now())
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			return b.sendText(chatID, "Task not found or already deleted.")
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	return b.sendText(chatID, fmt.Sprintf("😴 Snoozed until %s.", until.Format(model.TimeLayout)))
}

func (b *Bot) askDeleteTask(ctx context.Context, chatID, userID int64, id string) error {
	task, err := b.taskSvc.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			return b.sendText(chatID, "Task not found.")
		}
		return err
	}

	b.setConfirmation(userID, confirmationRequest{id: task.ID, action: actionDeleteTask})
	text := fmt.Sprintf("Delete the task «%s»?", escape(task.Subject))
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) deleteTaskAndRefresh(ctx context.Context, chatID int64, id string) error {
	task, err := b.taskSvc.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			return b.sendTextWithRemove(chatID, "Task not found or already deleted.")
		}
		return b.sendTextWithRemove(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}

	if err := b.taskSvc.DeleteTask(ctx, id); err != nil {
		return b.sendTextWithRemove(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}

	log.Printf("[info] task deleted id=%s", task.ID)
	if err := b.sendTextWithRemove(chatID, fmt.Sprintf("🗑 Task «%s» deleted.", escape(task.Subject))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, service.ListOptions{})
}

// SendReminders announces every reminder that became due since the previous call.
func (b *Bot) SendReminders(ctx context.Context) error {
	due, err := b.reminderSvc.DueReminders(ctx, time.Now())
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	subscribers, err := b.subscribers.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, task := range due {
		text := fmt.Sprintf("🔔 <b>Reminder</b>\n«%s» is due %s.", escape(task.Subject), escape(dueLabel(task)))
		for _, sub := range subscribers {
			msg := tgbotapi.NewMessage(sub.ChatID, text)
			msg.ParseMode = tgbotapi.ModeHTML
			msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(reminderButtons(task))
			if _, err := b.api.Send(msg); err != nil {
				log.Printf("send reminder to %d: %v", sub.ChatID, err)
			}
		}
	}
	return nil
}

// SendDailyReports sends the report to every subscriber.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	subscribers, err := b.subscribers.ListAll(ctx)
	if err != nil {
		return err
	}
	text, err := b.reminderSvc.DailyReport(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, sub := range subscribers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := b.sendText(sub.ChatID, text); err != nil {
			log.Printf("send report to %d: %v", sub.ChatID, err)
		}
	}
	return nil
}

func taskButtons(task model.Task) []tgbotapi.InlineKeyboardButton {
	next := task.Status.Next()
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("▶️ %s · %s", shortTitle(task.Subject, 18), next), callbackData(cbAdvance, task.ID)),
		tgbotapi.NewInlineKeyboardButtonData("🗑", callbackData(cbDeleteTask, task.ID)),
	)
}

func reminderButtons(task model.Task) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("▶️ %s", task.Status.Next()), callbackData(cbAdvance, task.ID)),
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("😴 %d min", snoozeMinutes), callbackData(cbSnooze, task.ID)),
	)
}

func dueLabel(task model.Task) string {
	switch {
	case task.IsFullDay:
		return task.DueDate + " (all day)"
	case task.DueTime != "":
		return task.DueDate + " " + task.DueTime
	default:
		return task.DueDate
	}
}

// parseListArgs reads "/tasks [filter] [search words]".
func parseListArgs(args string) service.ListOptions {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return service.ListOptions{Date: service.FilterAll}
	}
	if filter, err := service.ParseDateFilter(fields[0]); err == nil {
		return service.ListOptions{Date: filter, Search: strings.Join(fields[1:], " ")}
	}
	return service.ListOptions{Date: service.FilterAll, Search: strings.Join(fields, " ")}
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
