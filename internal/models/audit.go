package models

import "time"

// AuditAction constants represent staff actions to be logged.
const (
	AuditActionLogin         = "LOGIN"
	AuditActionStatusChange  = "RESERVATION_STATUS_CHANGE"
	AuditActionDropoffChange = "RESERVATION_DROPOFF_CHANGE"
	AuditActionOverrideSet   = "OVERRIDE_UPSERT"
	AuditActionExport        = "EXPORT"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	Actor      *string   `db:"actor" json:"actor,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Actor identifies the staff member behind a mutation.
type Actor struct {
	Username  string
	IPAddress string
	UserAgent string
}
