package model

import "time"

// Consultation is one ledger row: the outcome of a single gateway request.
type Consultation struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestID string    `gorm:"size:36;index" json:"request_id"`
	Query     string    `gorm:"type:text" json:"query"`
	Code      string    `gorm:"size:32" json:"code"`
	Status    int       `json:"status"`
	LatencyMS int64     `json:"latency_ms"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Consultation) TableName() string { return "consultations" }
