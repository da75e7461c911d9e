package model

import "time"

// Subscriber is a Telegram chat that receives reminders and reports.
type Subscriber struct {
	ChatID    int64     `json:"chatId"`
	FirstName string    `json:"firstName,omitempty"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
