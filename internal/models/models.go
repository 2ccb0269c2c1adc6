package models

import "time"

type Role string

const (
	RoleStandard Role = "standard"
	RoleElevated Role = "elevated"
)

func (r Role) Valid() bool {
	return r == RoleStandard || r == RoleElevated
}

type Account struct {
	ID           string    `db:"id" json:"id"`
	Handle       string    `db:"handle" json:"handle"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Balance      int64     `db:"balance" json:"balance"`
	Bio          string    `db:"bio" json:"bio"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

func (a Account) Elevated() bool {
	return a.Role == RoleElevated
}

const (
	TransactionOpening       = "opening"
	TransactionTransfer      = "transfer"
	TransactionGrant         = "grant"
	TransactionElevatedGrant = "elevated_grant"
)

type Transaction struct {
	ID          string    `db:"id" json:"id"`
	Kind        string    `db:"kind" json:"kind"`
	SenderID    *string   `db:"sender_id" json:"sender_id,omitempty"`
	RecipientID *string   `db:"recipient_id" json:"recipient_id,omitempty"`
	Amount      int64     `db:"amount" json:"amount"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type LedgerEntry struct {
	ID            string    `db:"id" json:"id"`
	TransactionID string    `db:"transaction_id" json:"transaction_id"`
	AccountID     string    `db:"account_id" json:"account_id"`
	Kind          string    `db:"kind" json:"kind"`
	Amount        int64     `db:"amount" json:"amount"`
	BalanceAfter  int64     `db:"balance_after" json:"balance_after"`
	Counterparty  *string   `db:"counterparty" json:"counterparty,omitempty"`
	Description   string    `db:"description" json:"description"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	ActorID    *string   `db:"actor_id" json:"actor_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   string    `db:"entity_id" json:"entity_id"`
	Data       string    `db:"data" json:"data"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type Report struct {
	ID           string    `db:"id" json:"id"`
	ReporterID   string    `db:"reporter_id" json:"reporter_id"`
	TargetID     string    `db:"target_id" json:"target_id"`
	TargetHandle string    `db:"target_handle" json:"target_handle"`
	Reason       string    `db:"reason" json:"reason"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Reconciliation struct {
	AccountID  string `db:"account_id" json:"account_id"`
	Handle     string `db:"handle" json:"handle"`
	Balance    int64  `db:"balance" json:"balance"`
	LedgerSum  int64  `db:"ledger_sum" json:"ledger_sum"`
	Difference int64  `db:"difference" json:"difference"`
}
