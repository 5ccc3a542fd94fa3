package model

// RequestState is the lifecycle position of a payment request.
type RequestState string

const (
	RequestStatePending  RequestState = "pending"
	RequestStateReady    RequestState = "ready"
	RequestStateExecuted RequestState = "executed"
	RequestStateRevoked  RequestState = "revoked"
)

// ScheduleKind distinguishes vendor payments from savings deposits.
type ScheduleKind string

const (
	ScheduleKindVendor  ScheduleKind = "vendor"
	ScheduleKindSavings ScheduleKind = "savings"
)

// Frequency is the recurrence interval of a schedule.
type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyYearly   Frequency = "yearly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// NotificationKind classifies notification rows and SSE events.
type NotificationKind string

const (
	NotificationPaymentDue     NotificationKind = "payment_due"
	NotificationDepositDue     NotificationKind = "deposit_due"
	NotificationSchedulePaused NotificationKind = "schedule_paused"
	NotificationPlanUnlocking  NotificationKind = "plan_unlocking"
	NotificationSuccess        NotificationKind = "success"
	NotificationError          NotificationKind = "error"
	NotificationLowBalance     NotificationKind = "low_balance"
)

// ExecutionStatus is the outcome recorded in the execution log.
type ExecutionStatus string

const (
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailed  ExecutionStatus = "failed"
)

// IntentAction is the closed set of actions the typed intent boundary accepts.
type IntentAction string

const (
	IntentActionPayment  IntentAction = "payment"
	IntentActionSchedule IntentAction = "schedule"
	IntentActionSavings  IntentAction = "savings"
	IntentActionView     IntentAction = "view"
	IntentActionCancel   IntentAction = "cancel"
)

// Valid reports whether a is a known intent action.
func (a IntentAction) Valid() bool {
	switch a {
	case IntentActionPayment, IntentActionSchedule, IntentActionSavings, IntentActionView, IntentActionCancel:
		return true
	}
	return false
}
