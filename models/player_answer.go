package models

import (
	"time"
)

// PlayerAnswer is a ledger entry, not an append log: the composite primary
// key guarantees at most one row per player per question. Resubmissions and
// rescoring update the row in place.
type PlayerAnswer struct {
	PlayerID   uint `json:"player_id" gorm:"primaryKey;autoIncrement:false"`
	QuestionID uint `json:"question_id" gorm:"primaryKey;autoIncrement:false"`
	GameID     uint `json:"game_id" gorm:"not null;index"`

	AnswerIndex *int   `json:"answer_index,omitempty"`
	TextAnswer  string `json:"text_answer,omitempty"`
	Wager       *int   `json:"wager,omitempty"`

	// IsCorrect stays nil until the answer has been evaluated.
	IsCorrect    *bool `json:"is_correct"`
	PointsEarned int   `json:"points_earned" gorm:"not null;default:0"`
	// ManuallyScored marks host-graded answers; automatic reveal logic
	// must leave these untouched.
	ManuallyScored bool `json:"manually_scored" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Evaluated reports whether the answer has a determinate correctness.
func (a *PlayerAnswer) Evaluated() bool {
	return a.IsCorrect != nil
}
