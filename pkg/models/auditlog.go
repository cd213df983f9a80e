package models

import "time"

type AuditLog struct {
	ID           int       `db:"id" json:"id"`
	ResourceType string    `db:"resource_type" json:"resource_type"`
	ResourceKey  string    `db:"resource_key" json:"resource_key"`
	Action       string    `db:"action" json:"action"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
