package models

import (
	"time"
)

type Player struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	GameID uint   `json:"game_id" gorm:"not null;index"`
	Name   string `json:"name" gorm:"not null"`
	Score  int    `json:"score" gorm:"not null;default:0"`
	// RejoinKey lets a reconnecting client reclaim this row instead of
	// creating a duplicate player.
	RejoinKey string    `json:"rejoin_key,omitempty" gorm:"uniqueIndex"`
	JoinedAt  time.Time `json:"joined_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Answers []PlayerAnswer `json:"answers,omitempty" gorm:"foreignKey:PlayerID;constraint:OnDelete:CASCADE"`
}
