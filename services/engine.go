package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"livetrivia/models"
	"livetrivia/store"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	// storeTimeout bounds every store round-trip so a stuck backend
	// surfaces as a retryable error instead of a hang.
	storeTimeout = 5 * time.Second
	// snapshotTTL bounds how long a cached snapshot may serve reads.
	snapshotTTL = 5 * time.Second
	// DefaultRetention is how long an idle game stays readable.
	DefaultRetention = 21 * 24 * time.Hour

	snapshotKeyPrefix = "livetrivia:snapshot:"

	codeLength = 6
	// No 0/O/1/I/L so codes stay easy to read out and type.
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// SessionEngine owns the lifecycle of game sessions: question activation,
// answer intake, reveal, advance, resets. Commands for one game are
// serialized through a per-game lock; snapshot reads run concurrently.
type SessionEngine struct {
	store     store.Store
	redis     *redis.Client
	notifier  *Notifier
	timer     *TimerCoordinator
	clock     func() time.Time
	retention time.Duration

	locksMu sync.Mutex
	locks   map[uint]*sync.Mutex
}

func NewSessionEngine(st store.Store, redisClient *redis.Client, notifier *Notifier) *SessionEngine {
	clock := time.Now
	return &SessionEngine{
		store:     st,
		redis:     redisClient,
		notifier:  notifier,
		timer:     &TimerCoordinator{clock: clock},
		clock:     clock,
		retention: DefaultRetention,
		locks:     make(map[uint]*sync.Mutex),
	}
}

// SetRetention overrides the idle-game retention window.
func (e *SessionEngine) SetRetention(d time.Duration) {
	if d > 0 {
		e.retention = d
	}
}

// lockGame serializes commands for one game. Sessions are independent, so
// cross-game commands never contend.
func (e *SessionEngine) lockGame(gameID uint) func() {
	e.locksMu.Lock()
	mu := e.locks[gameID]
	if mu == nil {
		mu = &sync.Mutex{}
		e.locks[gameID] = mu
	}
	e.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

func (e *SessionEngine) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storeTimeout)
}

type CreateGameRequest struct {
	HostName string `json:"host_name" binding:"required"`
	Password string `json:"password"`
}

type JoinGameRequest struct {
	Name      string `json:"name" binding:"required"`
	RejoinKey string `json:"rejoin_key"`
}

type SubmitAnswerRequest struct {
	PlayerID    uint    `json:"player_id" binding:"required"`
	QuestionID  uint    `json:"question_id" binding:"required"`
	AnswerIndex *int    `json:"answer_index"`
	TextAnswer  *string `json:"text_answer"`
	Wager       *int    `json:"wager"`
}

type ManualAwardRequest struct {
	PlayerID   uint `json:"player_id" binding:"required"`
	QuestionID uint `json:"question_id" binding:"required"`
	Points     int  `json:"points"`
	IsCorrect  bool `json:"is_correct"`
}

// PlayerPatch is the explicit before/after record consumers use to apply
// incremental updates without a full re-fetch.
type PlayerPatch struct {
	Op     string         `json:"op"` // insert, update, delete
	Before *models.Player `json:"before"`
	After  *models.Player `json:"after"`
}

func (e *SessionEngine) CreateGame(ctx context.Context, req *CreateGameRequest) (*models.Game, error) {
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	hash := ""
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash host password: %w", err)
		}
		hash = string(hashed)
	}

	game := &models.Game{
		HostName:       strings.TrimSpace(req.HostName),
		HostSecretHash: hash,
		CreatedAt:      e.clock(),
	}
	if game.HostName == "" {
		return nil, fmt.Errorf("%w: host name is required", ErrValidation)
	}

	// Codes are short, so collisions happen; retry a few times before
	// giving up.
	for attempt := 0; attempt < 5; attempt++ {
		game.Code = generateCode()
		_, err := e.store.GameByCode(ctx, game.Code)
		if errors.Is(err, store.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		game.Code = ""
	}
	if game.Code == "" {
		return nil, fmt.Errorf("%w: could not allocate a join code", store.ErrUnavailable)
	}

	if err := e.store.CreateGame(ctx, game); err != nil {
		return nil, err
	}
	return game, nil
}

func generateCode() string {
	buf := make([]byte, codeLength)
	rand.Read(buf)
	code := make([]byte, codeLength)
	for i, b := range buf {
		code[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(code)
}

// VerifyHost checks the optional host password for a game; it backs the
// host-token resume path.
func (e *SessionEngine) VerifyHost(ctx context.Context, code, password string) (*models.Game, error) {
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	game, err := e.gameByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if game.HostSecretHash == "" {
		return nil, fmt.Errorf("%w: game has no host password", ErrConflict)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(game.HostSecretHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: wrong password", ErrValidation)
	}
	return game, nil
}

// JoinGame adds a player to a game, or restores a prior player when the
// request carries its rejoin key.
func (e *SessionEngine) JoinGame(ctx context.Context, code string, req *JoinGameRequest) (*models.Player, error) {
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	game, err := e.gameByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if game.Ended {
		return nil, fmt.Errorf("%w: game has ended", ErrConflict)
	}

	unlock := e.lockGame(game.ID)
	defer unlock()

	if req.RejoinKey != "" {
		player, err := e.store.PlayerByRejoinKey(ctx, req.RejoinKey)
		if err == nil && player.GameID == game.ID {
			return player, nil
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		// Unknown or foreign key falls through to a fresh join.
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: player name is required", ErrValidation)
	}
	players, err := e.store.PlayersByGame(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	for _, p := range players {
		if strings.EqualFold(p.Name, name) {
			return nil, fmt.Errorf("%w: name %q is taken", ErrConflict, name)
		}
	}

	player := &models.Player{
		GameID:    game.ID,
		Name:      name,
		RejoinKey: uuid.NewString(),
		JoinedAt:  e.clock(),
	}
	if err := e.store.CreatePlayer(ctx, player); err != nil {
		return nil, err
	}

	e.notifier.Patch(game.Code, "player_update", PlayerPatch{Op: "insert", After: player})
	e.changed(game.Code)
	return player, nil
}

// ActivateQuestion makes the question at the given play-order index the
// current one. The host may jump to any index, not just the next; a fresh
// authoritative start instant is stamped when the question is timed.
func (e *SessionEngine) ActivateQuestion(ctx context.Context, gameID uint, index int) error {
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	unlock := e.lockGame(gameID)
	defer unlock()

	game, err := e.gameByID(ctx, gameID)
	if err != nil {
		return err
	}
	if game.Ended {
		return fmt.Errorf("%w: game has ended", ErrConflict)
	}
	questions, err := e.store.QuestionsByGame(ctx, gameID)
	if err != nil {
		return err
	}
	return e.activateLocked(ctx, game, questions, index)
}

func (e *SessionEngine) activateLocked(ctx context.Context, game *models.Game, questions []models.Question, index int) error {
	if index < 0 || index >= len(questions) {
		return fmt.Errorf("%w: question index %d out of range", ErrValidation, index)
	}
	question := questions[index]

	game.CurrentQuestionIndex = &index
	game.AnswersRevealed = false
	game.QuestionStartedAt = nil
	if question.Timed() {
		now := e.clock()
		game.QuestionStartedAt = &now
	}
	if err := e.store.SaveGame(ctx, game); err != nil {
		return err
	}

	e.notifier.SetPolling(game.Code, true)
	e.changed(game.Code)
	return nil
}

// Advance moves to the given next index; past the last question the game
// ends instead.
func (e *SessionEngine) Advance(ctx context.Context, gameID uint, nextIndex int) error {
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	unlock := e.lockGame(gameID)
	defer unlock()

	game, err := e.gameByID(ctx, gameID)
	if err != nil {
		return err
	}
	if game.Ended {
		return fmt.Errorf("%w: game has ended", ErrConflict)
	}
	questions, err := e.store.QuestionsByGame(ctx, gameID)
	if err != nil {
		return err
	}
	if nextIndex >= len(questions) {
		return e.endLocked(ctx, game)
	}
	return e.activateLocked(ctx, game, questions, nextIndex)
}

// RevealAnswers publishes correctness and points for the active question.
//
// Choice questions outside wager rounds are auto-graded; every graded row's
// points go through the score delta, so re-running a reveal after a reset
// never double-applies. Fill-in-blank and wagered questions are scored by
// the host; reveal only defaults their still-ungraded rows to a determinate
// zero and flips the published flag. Rows a host already hand-graded are
// never touched.
func (e *SessionEngine) RevealAnswers(ctx context.Context, gameID uint, questionID uint) error {
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	unlock := e.lockGame(gameID)
	defer unlock()

	game, err := e.gameByID(ctx, gameID)
	if err != nil {
		return err
	}
	questions, err := e.store.QuestionsByGame(ctx, gameID)
	if err != nil {
		return err
	}
	question := activeQuestion(game, questions)
	if question == nil || question.ID != questionID {
		return fmt.Errorf("%w: question %d is not active", ErrConflict, questionID)
	}

	autoGrade := !question.Wagered() &&
		(question.Kind == models.KindMultipleChoice || question.Kind == models.KindTrueFalse)

	answers, err := e.store.AnswersByQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	for i := range answers {
		answer := &answers[i]
		if answer.ManuallyScored {
			continue
		}
		var correct bool
		var points int
		if autoGrade {
			correct, points = ScoreAnswer(question, answer)
		} else if answer.Evaluated() {
			// Already determinate from a prior reveal; leave it.
			continue
		}
		if err := e.applyAnswerScore(ctx, answer, correct, points, false); err != nil {
			return err
		}
	}

	game.AnswersRevealed = true
	game.QuestionStartedAt = nil
	if err := e.store.SaveGame(ctx, game); err != nil {
		return err
	}

	e.notifier.SetPolling(game.Code, false)
	e.changed(game.Code)
	return nil
}

// applyAnswerScore moves an answer to a new (correct, points) verdict and
// shifts the owning player's score by the delta law. The score and the
// answer's recorded points move in one atomic store write; a transient
// failure leaves both at their old values, so a retried reveal re-applies
// the delta against the points it actually granted.
func (e *SessionEngine) applyAnswerScore(ctx context.Context, answer *models.PlayerAnswer, correct bool, points int, manual bool) error {
	player, err := e.store.PlayerByID(ctx, answer.PlayerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Player was kicked between read and write; its answers
			// are gone with it.
			return nil
		}
		return err
	}
	player.Score = ApplyScoreDelta(player.Score, answer.PointsEarned, points)

	answer.IsCorrect = &correct
	answer.PointsEarned = points
	if manual {
		answer.ManuallyScored = true
	}
	return e.store.ApplyScore(ctx, answer, player)
}

// ManualAward hand-grades one player's answer to a question. This is how
// fill-in-blank and wagered answers get their points; a later automatic
// reveal leaves the row alone. Awarding a player that never submitted
// creates the ledger row.
func (e *SessionEngine) ManualAward(ctx context.Context, req *ManualAwardRequest) error {
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	question, err := e.store.QuestionByID(ctx, req.QuestionID)
	if err != nil {
		return err
	}

	unlock := e.lockGame(question.GameID)
	defer unlock()

	game, err := e.gameByID(ctx, question.GameID)
	if err != nil {
		return err
	}
	player, err := e.store.PlayerByID(ctx, req.PlayerID)
	if err != nil {
		return err
	}
	if player.GameID != question.GameID {
		return fmt.Errorf("%w: player %d is not in this game", ErrValidation, req.PlayerID)
	}

	answer, err := e.store.Answer(ctx, req.PlayerID, req.QuestionID)
	if errors.Is(err, store.ErrNotFound) {
		answer = &models.PlayerAnswer{
			PlayerID:   req.PlayerID,
			QuestionID: req.QuestionID,
			GameID:     question.GameID,
		}
	} else if err != nil {
		return err
	}

	before := *player
	if err := e.applyAnswerScore(ctx, answer, req.IsCorrect, req.Points, true); err != nil {
		return err
	}
	after, err := e.store.PlayerByID(ctx, req.PlayerID)
	if err == nil {
		e.notifier.Patch(game.Code, "player_update", PlayerPatch{Op: "update", Before: &before, After: after})
	}
	e.changed(game.Code)
	return nil
}

// SubmitAnswer records or amends a player's answer to a question. The row
// is keyed by (player, question), so resubmission updates in place, and the
// update is partial: fields absent from the request keep their recorded
// values. Late network retries after the countdown are accepted for the
// same reason — rejecting them would turn an idempotent write into an
// error.
func (e *SessionEngine) SubmitAnswer(ctx context.Context, req *SubmitAnswerRequest) error {
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	question, err := e.store.QuestionByID(ctx, req.QuestionID)
	if err != nil {
		return err
	}

	unlock := e.lockGame(question.GameID)
	defer unlock()

	game, err := e.gameByID(ctx, question.GameID)
	if err != nil {
		return err
	}
	if game.Ended {
		return fmt.Errorf("%w: game has ended", ErrConflict)
	}

	player, err := e.store.PlayerByID(ctx, req.PlayerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRejoin
		}
		return err
	}
	if player.GameID != question.GameID {
		return fmt.Errorf("%w: player %d is not in this game", ErrValidation, req.PlayerID)
	}

	if req.Wager != nil && question.Wagered() {
		if err := e.validateWager(ctx, question, player.ID, *req.Wager); err != nil {
			return err
		}
	}

	answer, err := e.store.Answer(ctx, req.PlayerID, req.QuestionID)
	if errors.Is(err, store.ErrNotFound) {
		answer = &models.PlayerAnswer{
			PlayerID:   req.PlayerID,
			QuestionID: req.QuestionID,
			GameID:     question.GameID,
		}
	} else if err != nil {
		return err
	}

	// Partial update: only fields the request carries move. Scoring
	// fields are never written here.
	if req.AnswerIndex != nil {
		answer.AnswerIndex = req.AnswerIndex
	}
	if req.TextAnswer != nil {
		answer.TextAnswer = *req.TextAnswer
	}
	if req.Wager != nil {
		answer.Wager = req.Wager
	}
	if err := e.store.UpsertAnswer(ctx, answer); err != nil {
		return err
	}

	e.changed(game.Code)
	return nil
}

// validateWager enforces the wager rules: bonus wagers stay inside
// 0..maxWager, regular wagers must name one of the question's slots, and a
// slot is consumable at most once per game by a given player.
func (e *SessionEngine) validateWager(ctx context.Context, question *models.Question, playerID uint, wager int) error {
	if question.WagerRound == models.WagerRoundBonus {
		max := 0
		if question.MaxWager != nil {
			max = *question.MaxWager
		}
		if wager < 0 || wager > max {
			return fmt.Errorf("%w: wager %d outside 0..%d", ErrValidation, wager, max)
		}
		return nil
	}

	valid := false
	for _, slot := range question.WagerSlots {
		if slot == wager {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %d is not one of this question's wager slots", ErrValidation, wager)
	}

	questions, err := e.store.QuestionsByGame(ctx, question.GameID)
	if err != nil {
		return err
	}
	regular := make(map[uint]bool)
	for _, q := range questions {
		if q.WagerRound == models.WagerRoundRegular {
			regular[q.ID] = true
		}
	}
	answers, err := e.store.AnswersByPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	for _, a := range answers {
		if a.QuestionID == question.ID || a.Wager == nil {
			continue
		}
		if regular[a.QuestionID] && *a.Wager == wager {
			return fmt.Errorf("%w: wager slot %d already used", ErrConflict, wager)
		}
	}
	return nil
}

// ResetQuestion takes back every answer to a question: each player's score
// drops by the points that answer earned, then the rows are deleted. If the
// question is the active one the session falls back to the lobby state.
func (e *SessionEngine) ResetQuestion(ctx context.Context, gameID uint, questionID uint) error {
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	unlock := e.lockGame(gameID)
	defer unlock()

	game, err := e.gameByID(ctx, gameID)
	if err != nil {
		return err
	}
	question, err := e.store.QuestionByID(ctx, questionID)
	if err != nil {
		return err
	}
	if question.GameID != gameID {
		return fmt.Errorf("%w: question %d is not in this game", ErrValidation, questionID)
	}

	answers, err := e.store.AnswersByQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	for i := range answers {
		answer := &answers[i]
		player, err := e.store.PlayerByID(ctx, answer.PlayerID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return err
		}
		player.Score = ApplyScoreDelta(player.Score, answer.PointsEarned, 0)
		if err := e.store.SavePlayer(ctx, player); err != nil {
			return err
		}
	}
	if err := e.store.DeleteAnswersByQuestion(ctx, questionID); err != nil {
		return err
	}

	questions, err := e.store.QuestionsByGame(ctx, gameID)
	if err != nil {
		return err
	}
	if active := activeQuestion(game, questions); active != nil && active.ID == questionID {
		game.CurrentQuestionIndex = nil
		game.AnswersRevealed = false
		game.QuestionStartedAt = nil
		e.notifier.SetPolling(game.Code, false)
	}
	if err := e.store.SaveGame(ctx, game); err != nil {
		return err
	}

	e.changed(game.Code)
	return nil
}

// ResetGame zeroes every score, clears the answer ledger and returns the
// session to the lobby.
func (e *SessionEngine) ResetGame(ctx context.Context, gameID uint) error {
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	unlock := e.lockGame(gameID)
	defer unlock()

	game, err := e.gameByID(ctx, gameID)
	if err != nil {
		return err
	}
	players, err := e.store.PlayersByGame(ctx, gameID)
	if err != nil {
		return err
	}
	for i := range players {
		player := players[i]
		player.Score = 0
		if err := e.store.SavePlayer(ctx, &player); err != nil {
			return err
		}
	}
	if err := e.store.DeleteAnswersByGame(ctx, gameID); err != nil {
		return err
	}

	game.CurrentQuestionIndex = nil
	game.AnswersRevealed = false
	game.QuestionStartedAt = nil
	if err := e.store.SaveGame(ctx, game); err != nil {
		return err
	}

	e.notifier.SetPolling(game.Code, false)
	e.changed(game.Code)
	return nil
}

// EndGame is terminal; the final scoreboard stays readable until cleanup.
func (e *SessionEngine) EndGame(ctx context.Context, gameID uint) error {
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	unlock := e.lockGame(gameID)
	defer unlock()

	game, err := e.gameByID(ctx, gameID)
	if err != nil {
		return err
	}
	return e.endLocked(ctx, game)
}

func (e *SessionEngine) endLocked(ctx context.Context, game *models.Game) error {
	game.Ended = true
	game.CurrentQuestionIndex = nil
	game.QuestionStartedAt = nil
	if err := e.store.SaveGame(ctx, game); err != nil {
		return err
	}
	e.notifier.SetPolling(game.Code, false)
	e.changed(game.Code)
	return nil
}

// KickPlayer removes a player and all of its answers.
func (e *SessionEngine) KickPlayer(ctx context.Context, gameID uint, playerID uint) error {
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	unlock := e.lockGame(gameID)
	defer unlock()

	game, err := e.gameByID(ctx, gameID)
	if err != nil {
		return err
	}
	player, err := e.store.PlayerByID(ctx, playerID)
	if err != nil {
		return err
	}
	if player.GameID != gameID {
		return fmt.Errorf("%w: player %d is not in this game", ErrValidation, playerID)
	}
	if err := e.store.DeletePlayer(ctx, playerID); err != nil {
		return err
	}

	e.notifier.Patch(game.Code, "player_update", PlayerPatch{Op: "delete", Before: player})
	e.changed(game.Code)
	return nil
}

// DeleteGame destroys the game and everything under it. Host action; the
// expiry sweeper uses the same path, so the read here skips the expiry
// check — aged games must still be deletable.
func (e *SessionEngine) DeleteGame(ctx context.Context, gameID uint) error {
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	unlock := e.lockGame(gameID)
	defer unlock()

	game, err := e.store.GameByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: game %d", ErrNotFound, gameID)
		}
		return err
	}
	if err := e.store.DeleteGame(ctx, gameID); err != nil {
		return err
	}
	e.forgetLock(gameID)
	e.notifier.SetPolling(game.Code, false)
	e.changed(game.Code)
	return nil
}

// forgetLock reclaims a deleted game's lock-table entry. Callers still
// holding the old mutex release it normally; later commands for the dead id
// just read not-found.
func (e *SessionEngine) forgetLock(gameID uint) {
	e.locksMu.Lock()
	delete(e.locks, gameID)
	e.locksMu.Unlock()
}

func activeQuestion(game *models.Game, questions []models.Question) *models.Question {
	if game.CurrentQuestionIndex == nil {
		return nil
	}
	idx := *game.CurrentQuestionIndex
	if idx < 0 || idx >= len(questions) {
		return nil
	}
	return &questions[idx]
}

func (e *SessionEngine) gameByID(ctx context.Context, id uint) (*models.Game, error) {
	game, err := e.store.GameByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: game %d", ErrNotFound, id)
		}
		return nil, err
	}
	return e.checkExpiry(game)
}

func (e *SessionEngine) gameByCode(ctx context.Context, code string) (*models.Game, error) {
	game, err := e.store.GameByCode(ctx, normalizeCode(code))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: game %q", ErrNotFound, code)
		}
		return nil, err
	}
	return e.checkExpiry(game)
}

func (e *SessionEngine) checkExpiry(game *models.Game) (*models.Game, error) {
	if e.clock().After(game.CreatedAt.Add(e.retention)) {
		return nil, fmt.Errorf("%w: game %s", ErrExpired, game.Code)
	}
	return game, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// changed drops the cached snapshot, then signals observers. The cache
// delete is bounded and its failure only costs staleness up to the cache
// TTL; the signal itself never blocks the command.
func (e *SessionEngine) changed(code string) {
	if e.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := e.redis.Del(ctx, snapshotKeyPrefix+code).Err(); err != nil {
			log.Printf("Snapshot cache delete failed for game %s: %v", code, err)
		}
		cancel()
	}
	e.notifier.Changed(code)
}

// GameSnapshot is the single read every observer uses: questions in play
// order, players by descending score, the full answer ledger, and the
// derived countdown for the active question.
type GameSnapshot struct {
	Game      *models.Game          `json:"game"`
	Questions []models.Question     `json:"questions"`
	Players   []models.Player       `json:"players"`
	Answers   []models.PlayerAnswer `json:"answers"`
	// TimeLeft is present only while a timed question is running.
	TimeLeft *int `json:"time_left,omitempty"`
}

// Snapshot assembles the current session state for a game code. The reads
// run under the game's command lock, so a snapshot never observes a command
// half-applied; the countdown is derived from the authoritative start
// instant at read time.
func (e *SessionEngine) Snapshot(ctx context.Context, code string) (*GameSnapshot, error) {
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	code = normalizeCode(code)
	if snap := e.cachedSnapshot(ctx, code); snap != nil {
		return snap, nil
	}

	game, err := e.gameByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	unlock := e.lockGame(game.ID)
	defer unlock()

	// Re-read under the lock; the first read only resolved the id.
	game, err = e.gameByID(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	questions, err := e.store.QuestionsByGame(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	players, err := e.store.PlayersByGame(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	answers, err := e.store.AnswersByGame(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	snap := &GameSnapshot{
		Game:      game,
		Questions: questions,
		Players:   players,
		Answers:   answers,
	}
	e.stampTimeLeft(snap)
	e.cacheSnapshot(ctx, code, snap)
	return snap, nil
}

func (e *SessionEngine) stampTimeLeft(snap *GameSnapshot) {
	snap.TimeLeft = nil
	question := activeQuestion(snap.Game, snap.Questions)
	if question == nil {
		return
	}
	if left, running := e.timer.Remaining(question, snap.Game.QuestionStartedAt); running {
		snap.TimeLeft = &left
	}
}

func (e *SessionEngine) cachedSnapshot(ctx context.Context, code string) *GameSnapshot {
	if e.redis == nil {
		return nil
	}
	data, err := e.redis.Get(ctx, snapshotKeyPrefix+code).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Snapshot cache read failed for game %s: %v", code, err)
		}
		return nil
	}
	var snap GameSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		log.Printf("Snapshot cache decode failed for game %s: %v", code, err)
		return nil
	}
	// The countdown is time-derived; recompute it instead of trusting
	// the cached value.
	e.stampTimeLeft(&snap)
	return &snap
}

func (e *SessionEngine) cacheSnapshot(ctx context.Context, code string, snap *GameSnapshot) {
	if e.redis == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := e.redis.Set(ctx, snapshotKeyPrefix+code, data, snapshotTTL).Err(); err != nil {
		log.Printf("Snapshot cache write failed for game %s: %v", code, err)
	}
}
