package models

import "time"

// ClientState stores one persisted storefront state blob, keyed by
// session-scoped name (e.g. "sf:state:<session>:global-cart").
type ClientState struct {
	Key       string     `gorm:"column:state_key;primaryKey"`
	Value     []byte     `gorm:"column:value;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (ClientState) TableName() string { return "client_states" }
