package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType names the domain events emitted by the engine. An external
// notifier renders templates from the payload; the engine never sends
// email/SMS itself.
type EventType string

const (
	EventPayrollSubmitted EventType = "payroll.submitted"
	EventPayrollApproved  EventType = "payroll.approved"
	EventPayrollRejected  EventType = "payroll.rejected"
	EventLoanSubmitted    EventType = "loan.submitted"
	EventLoanApproved     EventType = "loan.approved"
	EventLoanRejected     EventType = "loan.rejected"
	EventLoanPostponed    EventType = "loan.postponed"
	EventPaymentRecorded  EventType = "loan.payment_recorded"
)

// DomainEvent is the notification payload published on state transitions.
type DomainEvent struct {
	Type       EventType              `json:"type"`
	EmployeeID string                 `json:"employeeId"`
	EntityID   string                 `json:"entityId"`
	Amount     *decimal.Decimal       `json:"amount,omitempty"`
	Recipients []string               `json:"recipients,omitempty"`
	OccurredAt time.Time              `json:"occurredAt"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}
