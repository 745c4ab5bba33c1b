package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"livetrivia/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore backs the Store contract with a relational database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// wrap maps driver errors onto the store sentinels so callers never see
// gorm internals.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (s *GormStore) CreateGame(ctx context.Context, game *models.Game) error {
	return wrap(s.db.WithContext(ctx).Create(game).Error)
}

func (s *GormStore) GameByID(ctx context.Context, id uint) (*models.Game, error) {
	var game models.Game
	if err := s.db.WithContext(ctx).First(&game, id).Error; err != nil {
		return nil, wrap(err)
	}
	return &game, nil
}

func (s *GormStore) GameByCode(ctx context.Context, code string) (*models.Game, error) {
	var game models.Game
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&game).Error; err != nil {
		return nil, wrap(err)
	}
	return &game, nil
}

func (s *GormStore) SaveGame(ctx context.Context, game *models.Game) error {
	return wrap(s.db.WithContext(ctx).Save(game).Error)
}

func (s *GormStore) DeleteGame(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("game_id = ?", id).Delete(&models.PlayerAnswer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("game_id = ?", id).Delete(&models.Player{}).Error; err != nil {
			return err
		}
		if err := tx.Where("game_id = ?", id).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Game{}, id).Error
	})
	return wrap(err)
}

func (s *GormStore) GamesCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Game, error) {
	var games []models.Game
	err := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Find(&games).Error
	return games, wrap(err)
}

func (s *GormStore) CreateQuestion(ctx context.Context, question *models.Question) error {
	return wrap(s.db.WithContext(ctx).Create(question).Error)
}

func (s *GormStore) QuestionByID(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	if err := s.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, wrap(err)
	}
	return &question, nil
}

func (s *GormStore) SaveQuestion(ctx context.Context, question *models.Question) error {
	return wrap(s.db.WithContext(ctx).Save(question).Error)
}

func (s *GormStore) DeleteQuestion(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&models.PlayerAnswer{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Question{}, id).Error
	})
	return wrap(err)
}

func (s *GormStore) QuestionsByGame(ctx context.Context, gameID uint) ([]models.Question, error) {
	var questions []models.Question
	err := s.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("question_order").
		Find(&questions).Error
	return questions, wrap(err)
}

func (s *GormStore) CreatePlayer(ctx context.Context, player *models.Player) error {
	return wrap(s.db.WithContext(ctx).Create(player).Error)
}

func (s *GormStore) PlayerByID(ctx context.Context, id uint) (*models.Player, error) {
	var player models.Player
	if err := s.db.WithContext(ctx).First(&player, id).Error; err != nil {
		return nil, wrap(err)
	}
	return &player, nil
}

func (s *GormStore) PlayerByRejoinKey(ctx context.Context, key string) (*models.Player, error) {
	var player models.Player
	if err := s.db.WithContext(ctx).Where("rejoin_key = ?", key).First(&player).Error; err != nil {
		return nil, wrap(err)
	}
	return &player, nil
}

func (s *GormStore) SavePlayer(ctx context.Context, player *models.Player) error {
	return wrap(s.db.WithContext(ctx).Save(player).Error)
}

func (s *GormStore) DeletePlayer(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("player_id = ?", id).Delete(&models.PlayerAnswer{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Player{}, id).Error
	})
	return wrap(err)
}

func (s *GormStore) PlayersByGame(ctx context.Context, gameID uint) ([]models.Player, error) {
	var players []models.Player
	err := s.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("score DESC, id").
		Find(&players).Error
	return players, wrap(err)
}

func (s *GormStore) UpsertAnswer(ctx context.Context, answer *models.PlayerAnswer) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}, {Name: "question_id"}},
		UpdateAll: true,
	}).Create(answer).Error
	return wrap(err)
}

func (s *GormStore) ApplyScore(ctx context.Context, answer *models.PlayerAnswer, player *models.Player) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(player).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "player_id"}, {Name: "question_id"}},
			UpdateAll: true,
		}).Create(answer).Error
	})
	return wrap(err)
}

func (s *GormStore) Answer(ctx context.Context, playerID, questionID uint) (*models.PlayerAnswer, error) {
	var answer models.PlayerAnswer
	err := s.db.WithContext(ctx).
		Where("player_id = ? AND question_id = ?", playerID, questionID).
		First(&answer).Error
	if err != nil {
		return nil, wrap(err)
	}
	return &answer, nil
}

func (s *GormStore) AnswersByQuestion(ctx context.Context, questionID uint) ([]models.PlayerAnswer, error) {
	var answers []models.PlayerAnswer
	err := s.db.WithContext(ctx).Where("question_id = ?", questionID).Find(&answers).Error
	return answers, wrap(err)
}

func (s *GormStore) AnswersByGame(ctx context.Context, gameID uint) ([]models.PlayerAnswer, error) {
	var answers []models.PlayerAnswer
	err := s.db.WithContext(ctx).Where("game_id = ?", gameID).Find(&answers).Error
	return answers, wrap(err)
}

func (s *GormStore) AnswersByPlayer(ctx context.Context, playerID uint) ([]models.PlayerAnswer, error) {
	var answers []models.PlayerAnswer
	err := s.db.WithContext(ctx).Where("player_id = ?", playerID).Find(&answers).Error
	return answers, wrap(err)
}

func (s *GormStore) DeleteAnswersByQuestion(ctx context.Context, questionID uint) error {
	return wrap(s.db.WithContext(ctx).Where("question_id = ?", questionID).Delete(&models.PlayerAnswer{}).Error)
}

func (s *GormStore) DeleteAnswersByGame(ctx context.Context, gameID uint) error {
	return wrap(s.db.WithContext(ctx).Where("game_id = ?", gameID).Delete(&models.PlayerAnswer{}).Error)
}
