package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"livetrivia/models"
)

// MemStore is a map-backed Store. It serves the unit tests and lets the
// server run without a database; all methods copy rows in and out so
// callers never share memory with the store.
type MemStore struct {
	mu sync.RWMutex

	games     map[uint]*models.Game
	questions map[uint]*models.Question
	players   map[uint]*models.Player
	answers   map[answerKey]*models.PlayerAnswer

	nextGameID     uint
	nextQuestionID uint
	nextPlayerID   uint
}

type answerKey struct {
	playerID   uint
	questionID uint
}

func NewMemStore() *MemStore {
	return &MemStore{
		games:     make(map[uint]*models.Game),
		questions: make(map[uint]*models.Question),
		players:   make(map[uint]*models.Player),
		answers:   make(map[answerKey]*models.PlayerAnswer),
	}
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBoolPtr(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneGame(g *models.Game) *models.Game {
	c := *g
	c.CurrentQuestionIndex = cloneIntPtr(g.CurrentQuestionIndex)
	c.QuestionStartedAt = cloneTimePtr(g.QuestionStartedAt)
	c.Questions = nil
	c.Players = nil
	return &c
}

func cloneQuestion(q *models.Question) *models.Question {
	c := *q
	c.Choices = append(c.Choices[:0:0], q.Choices...)
	c.WagerSlots = append(c.WagerSlots[:0:0], q.WagerSlots...)
	c.CorrectIndex = cloneIntPtr(q.CorrectIndex)
	c.CorrectText = cloneStringPtr(q.CorrectText)
	c.TimerSeconds = cloneIntPtr(q.TimerSeconds)
	c.MaxWager = cloneIntPtr(q.MaxWager)
	return &c
}

func clonePlayer(p *models.Player) *models.Player {
	c := *p
	c.Answers = nil
	return &c
}

func cloneAnswer(a *models.PlayerAnswer) *models.PlayerAnswer {
	c := *a
	c.AnswerIndex = cloneIntPtr(a.AnswerIndex)
	c.Wager = cloneIntPtr(a.Wager)
	c.IsCorrect = cloneBoolPtr(a.IsCorrect)
	return &c
}

func (s *MemStore) CreateGame(ctx context.Context, game *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextGameID++
	game.ID = s.nextGameID
	if game.CreatedAt.IsZero() {
		game.CreatedAt = time.Now()
	}
	s.games[game.ID] = cloneGame(game)
	return nil
}

func (s *MemStore) GameByID(ctx context.Context, id uint) (*models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneGame(game), nil
}

func (s *MemStore) GameByCode(ctx context.Context, code string) (*models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, game := range s.games {
		if game.Code == code {
			return cloneGame(game), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) SaveGame(ctx context.Context, game *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[game.ID]; !ok {
		return ErrNotFound
	}
	s.games[game.ID] = cloneGame(game)
	return nil
}

func (s *MemStore) DeleteGame(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		return ErrNotFound
	}
	delete(s.games, id)
	for qid, q := range s.questions {
		if q.GameID == id {
			delete(s.questions, qid)
		}
	}
	for pid, p := range s.players {
		if p.GameID == id {
			delete(s.players, pid)
		}
	}
	for key, a := range s.answers {
		if a.GameID == id {
			delete(s.answers, key)
		}
	}
	return nil
}

func (s *MemStore) GamesCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var games []models.Game
	for _, game := range s.games {
		if game.CreatedAt.Before(cutoff) {
			games = append(games, *cloneGame(game))
		}
	}
	return games, nil
}

func (s *MemStore) CreateQuestion(ctx context.Context, question *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextQuestionID++
	question.ID = s.nextQuestionID
	s.questions[question.ID] = cloneQuestion(question)
	return nil
}

func (s *MemStore) QuestionByID(ctx context.Context, id uint) (*models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	question, ok := s.questions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneQuestion(question), nil
}

func (s *MemStore) SaveQuestion(ctx context.Context, question *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[question.ID]; !ok {
		return ErrNotFound
	}
	s.questions[question.ID] = cloneQuestion(question)
	return nil
}

func (s *MemStore) DeleteQuestion(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return ErrNotFound
	}
	delete(s.questions, id)
	for key := range s.answers {
		if key.questionID == id {
			delete(s.answers, key)
		}
	}
	return nil
}

func (s *MemStore) QuestionsByGame(ctx context.Context, gameID uint) ([]models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var questions []models.Question
	for _, q := range s.questions {
		if q.GameID == gameID {
			questions = append(questions, *cloneQuestion(q))
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		return questions[i].QuestionOrder < questions[j].QuestionOrder
	})
	return questions, nil
}

func (s *MemStore) CreatePlayer(ctx context.Context, player *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPlayerID++
	player.ID = s.nextPlayerID
	s.players[player.ID] = clonePlayer(player)
	return nil
}

func (s *MemStore) PlayerByID(ctx context.Context, id uint) (*models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePlayer(player), nil
}

func (s *MemStore) PlayerByRejoinKey(ctx context.Context, key string) (*models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, player := range s.players {
		if player.RejoinKey != "" && player.RejoinKey == key {
			return clonePlayer(player), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) SavePlayer(ctx context.Context, player *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[player.ID]; !ok {
		return ErrNotFound
	}
	s.players[player.ID] = clonePlayer(player)
	return nil
}

func (s *MemStore) DeletePlayer(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[id]; !ok {
		return ErrNotFound
	}
	delete(s.players, id)
	for key := range s.answers {
		if key.playerID == id {
			delete(s.answers, key)
		}
	}
	return nil
}

func (s *MemStore) PlayersByGame(ctx context.Context, gameID uint) ([]models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var players []models.Player
	for _, p := range s.players {
		if p.GameID == gameID {
			players = append(players, *clonePlayer(p))
		}
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].Score != players[j].Score {
			return players[i].Score > players[j].Score
		}
		return players[i].ID < players[j].ID
	})
	return players, nil
}

func (s *MemStore) UpsertAnswer(ctx context.Context, answer *models.PlayerAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := answerKey{playerID: answer.PlayerID, questionID: answer.QuestionID}
	s.answers[key] = cloneAnswer(answer)
	return nil
}

func (s *MemStore) ApplyScore(ctx context.Context, answer *models.PlayerAnswer, player *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[player.ID]; !ok {
		return ErrNotFound
	}
	s.players[player.ID] = clonePlayer(player)
	key := answerKey{playerID: answer.PlayerID, questionID: answer.QuestionID}
	s.answers[key] = cloneAnswer(answer)
	return nil
}

func (s *MemStore) Answer(ctx context.Context, playerID, questionID uint) (*models.PlayerAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	answer, ok := s.answers[answerKey{playerID: playerID, questionID: questionID}]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAnswer(answer), nil
}

func (s *MemStore) AnswersByQuestion(ctx context.Context, questionID uint) ([]models.PlayerAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var answers []models.PlayerAnswer
	for key, a := range s.answers {
		if key.questionID == questionID {
			answers = append(answers, *cloneAnswer(a))
		}
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].PlayerID < answers[j].PlayerID })
	return answers, nil
}

func (s *MemStore) AnswersByGame(ctx context.Context, gameID uint) ([]models.PlayerAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var answers []models.PlayerAnswer
	for _, a := range s.answers {
		if a.GameID == gameID {
			answers = append(answers, *cloneAnswer(a))
		}
	}
	sort.Slice(answers, func(i, j int) bool {
		if answers[i].QuestionID != answers[j].QuestionID {
			return answers[i].QuestionID < answers[j].QuestionID
		}
		return answers[i].PlayerID < answers[j].PlayerID
	})
	return answers, nil
}

func (s *MemStore) AnswersByPlayer(ctx context.Context, playerID uint) ([]models.PlayerAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var answers []models.PlayerAnswer
	for key, a := range s.answers {
		if key.playerID == playerID {
			answers = append(answers, *cloneAnswer(a))
		}
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].QuestionID < answers[j].QuestionID })
	return answers, nil
}

func (s *MemStore) DeleteAnswersByQuestion(ctx context.Context, questionID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.answers {
		if key.questionID == questionID {
			delete(s.answers, key)
		}
	}
	return nil
}

func (s *MemStore) DeleteAnswersByGame(ctx context.Context, gameID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, a := range s.answers {
		if a.GameID == gameID {
			delete(s.answers, key)
		}
	}
	return nil
}
