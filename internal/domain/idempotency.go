package domain

import "time"

// Idempotency records the reply produced for a message request, keyed by
// (user_id, key). A retried request with the same key replays Reply instead
// of running the pipeline again, so a create is never applied twice.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_key,priority:1"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_key,priority:2"`
	Reply     string    `gorm:"type:TEXT NOT NULL"`
	Action    Action    `gorm:"type:TEXT NOT NULL;default:'unknown'"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
