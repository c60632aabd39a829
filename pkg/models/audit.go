package models

import "time"

// AuditEntry records one committed change to an order.
type AuditEntry struct {
	ID        string         `bson:"_id" json:"id"`
	Service   string         `bson:"service" json:"service"`
	Action    string         `bson:"action" json:"action"`
	OrderID   string         `bson:"order_id" json:"order_id"`
	Data      map[string]any `bson:"data" json:"data,omitempty"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
}
