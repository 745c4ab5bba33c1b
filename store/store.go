// Package store is the narrow persistence contract the session engine talks
// through. Implementations hold no business logic: records go in and out by
// id or by simple filters, and every multi-row guarantee the engine relies
// on (one answer row per player per question) is part of this contract.
package store

import (
	"context"
	"errors"
	"time"

	"livetrivia/models"
)

var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrUnavailable marks transient backend failures; callers may retry
	// with backoff.
	ErrUnavailable = errors.New("store: unavailable")
)

type Store interface {
	CreateGame(ctx context.Context, game *models.Game) error
	GameByID(ctx context.Context, id uint) (*models.Game, error)
	GameByCode(ctx context.Context, code string) (*models.Game, error)
	SaveGame(ctx context.Context, game *models.Game) error
	// DeleteGame cascades to the game's questions, players and answers.
	DeleteGame(ctx context.Context, id uint) error
	// GamesCreatedBefore lists games older than the cutoff, for expiry.
	GamesCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Game, error)

	CreateQuestion(ctx context.Context, question *models.Question) error
	QuestionByID(ctx context.Context, id uint) (*models.Question, error)
	SaveQuestion(ctx context.Context, question *models.Question) error
	DeleteQuestion(ctx context.Context, id uint) error
	// QuestionsByGame returns the game's questions ordered by play order.
	QuestionsByGame(ctx context.Context, gameID uint) ([]models.Question, error)

	CreatePlayer(ctx context.Context, player *models.Player) error
	PlayerByID(ctx context.Context, id uint) (*models.Player, error)
	PlayerByRejoinKey(ctx context.Context, key string) (*models.Player, error)
	SavePlayer(ctx context.Context, player *models.Player) error
	// DeletePlayer cascades to the player's answers.
	DeletePlayer(ctx context.Context, id uint) error
	// PlayersByGame returns the game's players ordered by descending score.
	PlayersByGame(ctx context.Context, gameID uint) ([]models.Player, error)

	// UpsertAnswer writes the whole row keyed by (player, question),
	// inserting or replacing atomically.
	UpsertAnswer(ctx context.Context, answer *models.PlayerAnswer) error
	// ApplyScore writes a graded answer and the owning player's new score
	// as one atomic operation; a failure leaves both untouched.
	ApplyScore(ctx context.Context, answer *models.PlayerAnswer, player *models.Player) error
	Answer(ctx context.Context, playerID, questionID uint) (*models.PlayerAnswer, error)
	AnswersByQuestion(ctx context.Context, questionID uint) ([]models.PlayerAnswer, error)
	AnswersByGame(ctx context.Context, gameID uint) ([]models.PlayerAnswer, error)
	AnswersByPlayer(ctx context.Context, playerID uint) ([]models.PlayerAnswer, error)
	DeleteAnswersByQuestion(ctx context.Context, questionID uint) error
	DeleteAnswersByGame(ctx context.Context, gameID uint) error
}
