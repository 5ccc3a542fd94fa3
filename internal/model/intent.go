package model

// Intent is the only input the core accepts from the presentation layer.
// The natural-language parser upstream produces it; the core never parses
// free text and rejects unknown actions at the boundary.
type Intent struct {
	Action      IntentAction `json:"action"`
	Destination string       `json:"destination,omitempty"`
	AmountWei   string       `json:"amountWei,omitempty"`
	Frequency   Frequency    `json:"frequency,omitempty"`
	LockDays    int          `json:"lockDays,omitempty"`
	Name        string       `json:"name,omitempty"`
	TargetID    string       `json:"targetId,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	Recurring   bool         `json:"recurring,omitempty"`
}

// IntentResult is the typed outcome returned to the presentation layer.
type IntentResult struct {
	Action     IntentAction `json:"action"`
	Status     string       `json:"status"`
	RequestID  *int64       `json:"requestId,omitempty"`
	PlanID     string       `json:"planId,omitempty"`
	ScheduleID string       `json:"scheduleId,omitempty"`
	Data       any          `json:"data,omitempty"`
}
