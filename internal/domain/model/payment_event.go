package model

import "time"

type PaymentEventKind string

const (
	PaymentEventCreated   PaymentEventKind = "created"
	PaymentEventPrepared  PaymentEventKind = "prepared"
	PaymentEventCompleted PaymentEventKind = "completed"
	PaymentEventFailed    PaymentEventKind = "failed"
)

// PaymentEvent is an append-only audit entry written with every ledger transition.
type PaymentEvent struct {
	ID                    string // ULID, sorts by creation time
	PaymentID             string
	Kind                  PaymentEventKind
	FromStatus            PaymentStatus // empty for PaymentEventCreated
	ToStatus              PaymentStatus
	ExternalTransactionID *string
	PrepareID             *int64
	MembershipID          *string
	CreatedAt             time.Time
}
