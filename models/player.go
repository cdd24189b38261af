package models

import "gorm.io/gorm"

// Player is a provider-local account mapped onto a canonical wallet identity.
// Currency is fixed on first contact and never changes afterwards.
type Player struct {
	gorm.Model

	Provider   string `gorm:"size:32;not null;uniqueIndex:idx_player_provider_id" json:"provider"`
	PlayerID   string `gorm:"size:64;not null;uniqueIndex:idx_player_provider_id" json:"player_id"`
	Username   string `gorm:"size:64;not null;index" json:"username"`
	Currency   string `gorm:"size:8;not null" json:"currency"`
	Restricted bool   `gorm:"default:false" json:"restricted"`
}
