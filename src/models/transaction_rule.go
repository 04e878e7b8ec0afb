package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type TransactionRule struct {
	ID         uuid.UUID       `json:"id"`
	FamilyID   uuid.UUID       `json:"family_id"`
	Name       string          `json:"name"`
	Conditions json.RawMessage `json:"conditions"` // JSONB
	CategoryID uuid.UUID       `json:"category_id"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
