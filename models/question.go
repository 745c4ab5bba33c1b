package models

import (
	"time"

	"gorm.io/datatypes"
)

// Question kinds.
const (
	KindMultipleChoice = "multiple_choice"
	KindTrueFalse      = "true_false"
	KindFillInBlank    = "fill_in_blank"
)

// Wager rounds for wager-mode games. Empty means the question is not wagered.
const (
	WagerRoundRegular = "regular"
	WagerRoundBonus   = "bonus"
)

type Question struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	GameID uint `json:"game_id" gorm:"not null;index"`
	// QuestionOrder defines play order, unique within a game. It is
	// independent of creation order and may be rewritten by reordering.
	QuestionOrder int                          `json:"question_order" gorm:"not null"`
	Prompt        string                       `json:"prompt" gorm:"not null"`
	Kind          string                       `json:"kind" gorm:"not null"`
	Choices       datatypes.JSONSlice[string]  `json:"choices"`
	CorrectIndex  *int                         `json:"correct_index,omitempty"`
	CorrectText   *string                      `json:"correct_text,omitempty"`
	Points        int                          `json:"points" gorm:"not null;default:0"`
	Multiplier    int                          `json:"multiplier" gorm:"not null;default:1"`
	TimerSeconds  *int                         `json:"timer_seconds"`
	MaxWager      *int                         `json:"max_wager"`
	WagerSlots    datatypes.JSONSlice[int]     `json:"wager_slots"`
	WagerRound    string                       `json:"wager_round"`
	CreatedAt     time.Time                    `json:"created_at"`
	UpdatedAt     time.Time                    `json:"updated_at"`
}

// Timed reports whether the question runs under a countdown.
func (q *Question) Timed() bool {
	return q.TimerSeconds != nil && *q.TimerSeconds > 0
}

// Wagered reports whether the question takes part in wager scoring.
func (q *Question) Wagered() bool {
	return q.WagerRound != ""
}
