package model

import (
	"encoding/json"
	"time"
)

// Notification is a persisted event surfaced to the owning identity; an
// external alerting component consumes the same payload over SSE.
type Notification struct {
	ID          int64            `db:"id" json:"id"`
	UserAddress string           `db:"user_address" json:"userAddress"`
	Kind        NotificationKind `db:"kind" json:"kind"`
	Message     string           `db:"message" json:"message"`
	TxRef       *string          `db:"tx_ref" json:"txRef,omitempty"`
	IsRead      bool             `db:"is_read" json:"isRead"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
}

// ToEventData returns the JSON payload published on the event stream.
func (n *Notification) ToEventData() json.RawMessage {
	data, _ := json.Marshal(map[string]any{
		"id":        n.ID,
		"kind":      n.Kind,
		"message":   n.Message,
		"txRef":     n.TxRef,
		"createdAt": n.CreatedAt,
	})
	return data
}

type CreateNotificationParams struct {
	UserAddress string
	Kind        NotificationKind
	Message     string
	TxRef       *string
}

// ExecutionRecord is one scheduler-driven attempt, success or failure.
type ExecutionRecord struct {
	ID            int64           `db:"id" json:"id"`
	ScheduleID    *string         `db:"schedule_id" json:"scheduleId,omitempty"`
	SavingsPlanID *string         `db:"savings_plan_id" json:"savingsPlanId,omitempty"`
	UserAddress   string          `db:"user_address" json:"userAddress"`
	ExecutionType string          `db:"execution_type" json:"executionType"`
	AmountWei     string          `db:"amount_wei" json:"amountWei"`
	Destination   string          `db:"destination" json:"destination"`
	TxRef         *string         `db:"tx_ref" json:"txRef,omitempty"`
	Status        ExecutionStatus `db:"status" json:"status"`
	ErrorMessage  string          `db:"error_message" json:"errorMessage,omitempty"`
	ExecutedAt    time.Time       `db:"executed_at" json:"executedAt"`
}

type CreateExecutionRecordParams struct {
	ScheduleID    *string
	SavingsPlanID *string
	UserAddress   string
	ExecutionType string
	AmountWei     string
	Destination   string
	TxRef         *string
	Status        ExecutionStatus
	ErrorMessage  string
}
