package models

import (
	"time"

	"github.com/google/uuid"
)

type Account struct {
	ID                uuid.UUID `json:"id"`
	FamilyID          uuid.UUID `json:"family_id"`
	Provider          Provider  `json:"provider"`
	ProviderAccountID string    `json:"provider_account_id"`
	ProviderItemID    string    `json:"provider_item_id,omitempty"`
	Name              string    `json:"name"`
	Currency          string    `json:"currency"`
	AccessToken       string    `json:"-"`
	SyncCursor        string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
}
