package domain

import "time"

// AuditLog represents an audit event. The JSON form is what travels over Kafka.
type AuditLog struct {
	ID        string    `json:"id"`
	BrandID   string    `json:"brand_id"`
	AccountID string    `json:"account_id,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
