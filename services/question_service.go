package services

import (
	"context"
	"errors"
	"fmt"

	"livetrivia/models"
	"livetrivia/store"
)

// QuestionService owns question content: create, update, delete, reorder.
// Play-order edits go through the same per-game serialization as session
// commands so they never interleave with an activation.
type QuestionService struct {
	store  store.Store
	engine *SessionEngine
}

func NewQuestionService(st store.Store, engine *SessionEngine) *QuestionService {
	return &QuestionService{store: st, engine: engine}
}

type QuestionRequest struct {
	Prompt        string   `json:"prompt" binding:"required"`
	Kind          string   `json:"kind" binding:"required"`
	QuestionOrder int      `json:"question_order"`
	Choices       []string `json:"choices"`
	CorrectIndex  *int     `json:"correct_index"`
	CorrectText   *string  `json:"correct_text"`
	Points        int      `json:"points"`
	Multiplier    int      `json:"multiplier"`
	TimerSeconds  *int     `json:"timer_seconds"`
	MaxWager      *int     `json:"max_wager"`
	WagerSlots    []int    `json:"wager_slots"`
	WagerRound    string   `json:"wager_round"`
}

type ReorderRequest struct {
	QuestionIDs []uint `json:"question_ids" binding:"required,min=1"`
}

// validate enforces the shape rules: exactly one correctness
// representation per kind, sane choice lists, sane wager parameters.
func (r *QuestionRequest) validate() error {
	switch r.Kind {
	case models.KindMultipleChoice:
		if len(r.Choices) < 2 {
			return fmt.Errorf("%w: multiple choice needs at least two choices", ErrValidation)
		}
		if r.CorrectIndex == nil || *r.CorrectIndex < 0 || *r.CorrectIndex >= len(r.Choices) {
			return fmt.Errorf("%w: correct_index must name one of the choices", ErrValidation)
		}
		if r.CorrectText != nil {
			return fmt.Errorf("%w: choice questions take correct_index, not correct_text", ErrValidation)
		}
	case models.KindTrueFalse:
		if len(r.Choices) != 2 {
			return fmt.Errorf("%w: true/false needs exactly two choices", ErrValidation)
		}
		if r.CorrectIndex == nil || (*r.CorrectIndex != 0 && *r.CorrectIndex != 1) {
			return fmt.Errorf("%w: correct_index must be 0 or 1", ErrValidation)
		}
		if r.CorrectText != nil {
			return fmt.Errorf("%w: choice questions take correct_index, not correct_text", ErrValidation)
		}
	case models.KindFillInBlank:
		if len(r.Choices) != 0 {
			return fmt.Errorf("%w: fill-in-blank takes no choices", ErrValidation)
		}
		if r.CorrectIndex != nil {
			return fmt.Errorf("%w: fill-in-blank takes correct_text, not correct_index", ErrValidation)
		}
		if r.CorrectText == nil || *r.CorrectText == "" {
			return fmt.Errorf("%w: fill-in-blank needs correct_text", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown question kind %q", ErrValidation, r.Kind)
	}

	switch r.WagerRound {
	case "":
	case models.WagerRoundRegular:
		if len(r.WagerSlots) == 0 {
			return fmt.Errorf("%w: regular wager questions need wager_slots", ErrValidation)
		}
	case models.WagerRoundBonus:
		if r.MaxWager == nil || *r.MaxWager <= 0 {
			return fmt.Errorf("%w: bonus wager questions need a positive max_wager", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown wager round %q", ErrValidation, r.WagerRound)
	}

	if r.Points < 0 {
		return fmt.Errorf("%w: points cannot be negative", ErrValidation)
	}
	if r.Multiplier < 1 {
		return fmt.Errorf("%w: multiplier must be at least 1", ErrValidation)
	}
	if r.TimerSeconds != nil && *r.TimerSeconds <= 0 {
		return fmt.Errorf("%w: timer must be positive when set", ErrValidation)
	}
	return nil
}

func (r *QuestionRequest) apply(question *models.Question) {
	question.Prompt = r.Prompt
	question.Kind = r.Kind
	question.Choices = r.Choices
	question.CorrectIndex = r.CorrectIndex
	question.CorrectText = r.CorrectText
	question.Points = r.Points
	question.Multiplier = r.Multiplier
	question.TimerSeconds = r.TimerSeconds
	question.MaxWager = r.MaxWager
	question.WagerSlots = r.WagerSlots
	question.WagerRound = r.WagerRound
}

func (s *QuestionService) AddQuestion(ctx context.Context, gameID uint, req *QuestionRequest) (*models.Question, error) {
	ctx, cancel := s.engine.opCtx(ctx)
	defer cancel()

	if req.Multiplier == 0 {
		req.Multiplier = 1
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	unlock := s.engine.lockGame(gameID)
	defer unlock()

	game, err := s.engine.gameByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	questions, err := s.store.QuestionsByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	question := &models.Question{GameID: gameID}
	req.apply(question)
	// Default to the end of the play order; an explicit order must be
	// free, play order is unique within a game.
	question.QuestionOrder = req.QuestionOrder
	if req.QuestionOrder == 0 {
		question.QuestionOrder = nextOrder(questions)
	} else if orderTaken(questions, req.QuestionOrder, 0) {
		return nil, fmt.Errorf("%w: question_order %d is already taken", ErrValidation, req.QuestionOrder)
	}

	if err := s.store.CreateQuestion(ctx, question); err != nil {
		return nil, err
	}
	s.engine.changed(game.Code)
	return question, nil
}

func nextOrder(questions []models.Question) int {
	highest := 0
	for _, q := range questions {
		if q.QuestionOrder > highest {
			highest = q.QuestionOrder
		}
	}
	return highest + 1
}

// orderTaken reports whether another question than exceptID already holds
// the given play order.
func orderTaken(questions []models.Question, order int, exceptID uint) bool {
	for _, q := range questions {
		if q.ID != exceptID && q.QuestionOrder == order {
			return true
		}
	}
	return false
}

func (s *QuestionService) UpdateQuestion(ctx context.Context, gameID uint, questionID uint, req *QuestionRequest) (*models.Question, error) {
	ctx, cancel := s.engine.opCtx(ctx)
	defer cancel()

	if req.Multiplier == 0 {
		req.Multiplier = 1
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	unlock := s.engine.lockGame(gameID)
	defer unlock()

	game, err := s.engine.gameByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	question, err := s.questionInGame(ctx, gameID, questionID)
	if err != nil {
		return nil, err
	}

	activeID := uint(0)
	req.apply(question)
	if req.QuestionOrder != 0 {
		questions, err := s.store.QuestionsByGame(ctx, gameID)
		if err != nil {
			return nil, err
		}
		if orderTaken(questions, req.QuestionOrder, questionID) {
			return nil, fmt.Errorf("%w: question_order %d is already taken", ErrValidation, req.QuestionOrder)
		}
		if active := activeQuestion(game, questions); active != nil {
			activeID = active.ID
		}
		question.QuestionOrder = req.QuestionOrder
	}
	if err := s.store.SaveQuestion(ctx, question); err != nil {
		return nil, err
	}
	if err := s.remapActiveIndex(ctx, game, activeID); err != nil {
		return nil, err
	}
	s.engine.changed(game.Code)
	return question, nil
}

func (s *QuestionService) DeleteQuestion(ctx context.Context, gameID uint, questionID uint) error {
	ctx, cancel := s.engine.opCtx(ctx)
	defer cancel()

	unlock := s.engine.lockGame(gameID)
	defer unlock()

	game, err := s.engine.gameByID(ctx, gameID)
	if err != nil {
		return err
	}
	question, err := s.questionInGame(ctx, gameID, questionID)
	if err != nil {
		return err
	}

	// Deleting the active question drops the session back to the lobby;
	// deleting an earlier one shifts positions, so the index is remapped
	// to keep pointing at the same question.
	questions, err := s.store.QuestionsByGame(ctx, gameID)
	if err != nil {
		return err
	}
	activeID := uint(0)
	if active := activeQuestion(game, questions); active != nil {
		if active.ID == question.ID {
			game.CurrentQuestionIndex = nil
			game.AnswersRevealed = false
			game.QuestionStartedAt = nil
			if err := s.engine.store.SaveGame(ctx, game); err != nil {
				return err
			}
			s.engine.notifier.SetPolling(game.Code, false)
		} else {
			activeID = active.ID
		}
	}

	if err := s.store.DeleteQuestion(ctx, questionID); err != nil {
		return err
	}
	if err := s.remapActiveIndex(ctx, game, activeID); err != nil {
		return err
	}
	s.engine.changed(game.Code)
	return nil
}

// Reorder rewrites the play order to match the given id sequence. Every
// question of the game must appear exactly once.
func (s *QuestionService) Reorder(ctx context.Context, gameID uint, req *ReorderRequest) error {
	ctx, cancel := s.engine.opCtx(ctx)
	defer cancel()

	unlock := s.engine.lockGame(gameID)
	defer unlock()

	game, err := s.engine.gameByID(ctx, gameID)
	if err != nil {
		return err
	}
	questions, err := s.store.QuestionsByGame(ctx, gameID)
	if err != nil {
		return err
	}
	if len(req.QuestionIDs) != len(questions) {
		return fmt.Errorf("%w: reorder must list all %d questions", ErrValidation, len(questions))
	}
	byID := make(map[uint]*models.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}
	seen := make(map[uint]bool, len(req.QuestionIDs))
	for _, id := range req.QuestionIDs {
		if byID[id] == nil {
			return fmt.Errorf("%w: question %d is not in this game", ErrValidation, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: question %d listed twice", ErrValidation, id)
		}
		seen[id] = true
	}

	activeID := uint(0)
	if active := activeQuestion(game, questions); active != nil {
		activeID = active.ID
	}

	for position, id := range req.QuestionIDs {
		question := byID[id]
		if question.QuestionOrder == position+1 {
			continue
		}
		question.QuestionOrder = position + 1
		if err := s.store.SaveQuestion(ctx, question); err != nil {
			return err
		}
	}
	if err := s.remapActiveIndex(ctx, game, activeID); err != nil {
		return err
	}
	s.engine.changed(game.Code)
	return nil
}

// remapActiveIndex re-points CurrentQuestionIndex at the question that was
// active before a play-order change moved or removed its neighbours.
func (s *QuestionService) remapActiveIndex(ctx context.Context, game *models.Game, activeID uint) error {
	if activeID == 0 {
		return nil
	}
	questions, err := s.store.QuestionsByGame(ctx, game.ID)
	if err != nil {
		return err
	}
	for position := range questions {
		if questions[position].ID != activeID {
			continue
		}
		if game.CurrentQuestionIndex != nil && *game.CurrentQuestionIndex == position {
			return nil
		}
		pos := position
		game.CurrentQuestionIndex = &pos
		return s.engine.store.SaveGame(ctx, game)
	}
	return nil
}

func (s *QuestionService) questionInGame(ctx context.Context, gameID uint, questionID uint) (*models.Question, error) {
	question, err := s.store.QuestionByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: question %d", ErrNotFound, questionID)
		}
		return nil, err
	}
	if question.GameID != gameID {
		return nil, fmt.Errorf("%w: question %d is not in this game", ErrNotFound, questionID)
	}
	return question, nil
}
