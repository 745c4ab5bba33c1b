package models

import (
	"time"
)

type Game struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Code     string `json:"code" gorm:"uniqueIndex;not null"`
	HostName string `json:"host_name" gorm:"not null"`
	// Bcrypt hash of the optional host password; empty when none was set.
	HostSecretHash       string     `json:"-"`
	CurrentQuestionIndex *int       `json:"current_question_index"`
	AnswersRevealed      bool       `json:"answers_revealed" gorm:"not null;default:false"`
	QuestionStartedAt    *time.Time `json:"question_started_at"`
	Ended                bool       `json:"ended" gorm:"not null;default:false"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	// Relationships
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE"`
	Players   []Player   `json:"players,omitempty" gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE"`
}

// HasActiveQuestion reports whether a question is currently activated.
func (g *Game) HasActiveQuestion() bool {
	return g.CurrentQuestionIndex != nil
}
