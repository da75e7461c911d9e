package model

import (
	"encoding/json"
	"log"
)

// TemplateStatus controls whether a template still produces instances.
type TemplateStatus string

const (
	TemplateActive   TemplateStatus = "active"
	TemplateInactive TemplateStatus = "inactive"
)

// RecurringTemplate is a user-authored recurrence rule plus the task content it stamps out.
// Status and IsDeleted are independent: a template is deleted only logically while active.
type RecurringTemplate struct {
	ID        string         `json:"id"`
	Subject   string         `json:"subject"`
	Details   string         `json:"details,omitempty"`
	Assignee  string         `json:"assignee"`
	Labels    []string       `json:"labels"`
	URL       string         `json:"url,omitempty"`
	Schedule  Schedule       `json:"-"`
	Status    TemplateStatus `json:"status"`
	IsDeleted bool           `json:"isDeleted,omitempty"`
	CreatedAt string         `json:"createdAt"`
	UpdatedAt string         `json:"updatedAt"`
}

// IsActive reports whether the materializer should consider the template.
func (t RecurringTemplate) IsActive() bool {
	return t.Status == TemplateActive && !t.IsDeleted
}

type templateAlias RecurringTemplate

type templateJSON struct {
	templateAlias
	Schedule json.RawMessage `json:"schedule"`
}

func (t RecurringTemplate) MarshalJSON() ([]byte, error) {
	raw, err := MarshalSchedule(t.Schedule)
	if err != nil {
		return nil, err
	}
	return json.Marshal(templateJSON{templateAlias: templateAlias(t), Schedule: raw})
}

func (t *RecurringTemplate) UnmarshalJSON(data []byte) error {
	var wire templateJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	// A schedule that cannot be decoded leaves the template without one, so it
	// stays listable but never generates instances.
	schedule, err := UnmarshalSchedule(wire.Schedule)
	if err != nil {
		log.Printf("[warn] template %s: %v", wire.ID, err)
	}
	*t = RecurringTemplate(wire.templateAlias)
	t.Schedule = schedule
	return nil
}
