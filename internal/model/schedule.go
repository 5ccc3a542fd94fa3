package model

import (
	"math/big"
	"time"
)

// Schedule is a recurring due-date record driving automated payments or
// savings deposits from an agent wallet.
type Schedule struct {
	ID              string       `db:"id" json:"id"`
	UserAddress     string       `db:"user_address" json:"userAddress"`
	Kind            ScheduleKind `db:"kind" json:"kind"`
	Destination     string       `db:"destination" json:"destination"`
	DestinationName string       `db:"destination_name" json:"destinationName"`
	SavingsPlanID   *string      `db:"savings_plan_id" json:"savingsPlanId,omitempty"`
	AmountWei       string       `db:"amount_wei" json:"amountWei"`
	Frequency       Frequency    `db:"frequency" json:"frequency"`
	NextDue         time.Time    `db:"next_due" json:"nextDue"`
	LastExecuted    *time.Time   `db:"last_executed" json:"lastExecuted,omitempty"`
	ExecutionCount  int64        `db:"execution_count" json:"executionCount"`
	FailureCount    int          `db:"failure_count" json:"failureCount"`
	LastError       string       `db:"last_error" json:"lastError,omitempty"`
	Paused          bool         `db:"paused" json:"paused"`
	CreatedAt       time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updatedAt"`
}

func (s *Schedule) Amount() *big.Int {
	a, _ := ParseWei(s.AmountWei)
	return a
}

// NextAfter advances a due date by one frequency interval from the previous
// due date, not from "now", so schedules do not drift.
func (f Frequency) NextAfter(prev time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return prev.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return prev.AddDate(0, 0, 7)
	case FrequencyBiweekly:
		return prev.AddDate(0, 0, 14)
	case FrequencyMonthly:
		return prev.AddDate(0, 1, 0)
	case FrequencyYearly:
		return prev.AddDate(1, 0, 0)
	default:
		return prev.AddDate(0, 1, 0)
	}
}

type CreateScheduleParams struct {
	ID              string
	UserAddress     string
	Kind            ScheduleKind
	Destination     string
	DestinationName string
	SavingsPlanID   *string
	AmountWei       string
	Frequency       Frequency
	NextDue         time.Time
}
