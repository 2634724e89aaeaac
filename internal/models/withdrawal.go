package models

import "time"

// WithdrawalStatus is the lifecycle status of a withdrawal request.
type WithdrawalStatus string

// Withdrawal statuses.
const (
	WithdrawalPending    WithdrawalStatus = "pending"
	WithdrawalProcessing WithdrawalStatus = "processing"
	WithdrawalCompleted  WithdrawalStatus = "completed"
	WithdrawalRejected   WithdrawalStatus = "rejected"
)

// WithdrawalRequest is a user's request to withdraw balance. Rejection is
// coupled to a balance refund and a ledger entry on the requester's account.
type WithdrawalRequest struct {
	ID     uint             `gorm:"primaryKey" json:"id"`
	UserID uint             `gorm:"not null;index" json:"user_id"`
	User   User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Amount int64            `gorm:"not null" json:"amount"`
	Status WithdrawalStatus `gorm:"not null;default:pending;index" json:"status"`

	ReviewedBy      *uint      `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LedgerEntryRefund is the ledger entry type written on withdrawal rejection.
const LedgerEntryRefund = "refund"

// LedgerEntry is an append-only record of a balance movement.
type LedgerEntry struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	UserID       uint   `gorm:"not null;index" json:"user_id"`
	Type         string `gorm:"not null" json:"type"`
	Amount       int64  `gorm:"not null" json:"amount"`
	BalanceAfter int64  `gorm:"not null" json:"balance_after"`
	WithdrawalID *uint  `json:"withdrawal_id,omitempty"`
	Note         string `json:"note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
