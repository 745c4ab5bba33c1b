package services

import (
	"context"
	"errors"
	"testing"

	"livetrivia/models"
	"livetrivia/store"
)

func newTestQuestionService(t *testing.T) (*QuestionService, *SessionEngine) {
	t.Helper()
	engine, _ := newTestEngine(t)
	return NewQuestionService(engine.store, engine), engine
}

func choiceRequest() *QuestionRequest {
	return &QuestionRequest{
		Prompt:       "pick one",
		Kind:         models.KindMultipleChoice,
		Choices:      []string{"a", "b", "c"},
		CorrectIndex: intPtr(1),
		Points:       10,
	}
}

func TestAddQuestionAppendsToPlayOrder(t *testing.T) {
	svc, engine := newTestQuestionService(t)
	ctx := context.Background()
	game := createGame(t, engine)

	first, err := svc.AddQuestion(ctx, game.ID, choiceRequest())
	if err != nil {
		t.Fatalf("add first: %v", err)
	}
	second, err := svc.AddQuestion(ctx, game.ID, choiceRequest())
	if err != nil {
		t.Fatalf("add second: %v", err)
	}
	if first.QuestionOrder != 1 || second.QuestionOrder != 2 {
		t.Fatalf("expected orders 1 and 2, got %d and %d", first.QuestionOrder, second.QuestionOrder)
	}
	if first.Multiplier != 1 {
		t.Fatalf("expected multiplier to default to 1, got %d", first.Multiplier)
	}
}

func TestQuestionValidation(t *testing.T) {
	cases := []struct {
		name string
		req  *QuestionRequest
	}{
		{"unknown kind", &QuestionRequest{Prompt: "p", Kind: "essay", Points: 10}},
		{"choice with one option", &QuestionRequest{
			Prompt: "p", Kind: models.KindMultipleChoice,
			Choices: []string{"a"}, CorrectIndex: intPtr(0), Points: 10,
		}},
		{"choice index out of range", &QuestionRequest{
			Prompt: "p", Kind: models.KindMultipleChoice,
			Choices: []string{"a", "b"}, CorrectIndex: intPtr(2), Points: 10,
		}},
		{"choice with text answer", &QuestionRequest{
			Prompt: "p", Kind: models.KindMultipleChoice,
			Choices: []string{"a", "b"}, CorrectIndex: intPtr(0), CorrectText: strPtr("a"), Points: 10,
		}},
		{"true/false with three choices", &QuestionRequest{
			Prompt: "p", Kind: models.KindTrueFalse,
			Choices: []string{"a", "b", "c"}, CorrectIndex: intPtr(0), Points: 10,
		}},
		{"fill-in-blank without text", &QuestionRequest{
			Prompt: "p", Kind: models.KindFillInBlank, Points: 10,
		}},
		{"fill-in-blank with choices", &QuestionRequest{
			Prompt: "p", Kind: models.KindFillInBlank,
			Choices: []string{"a"}, CorrectText: strPtr("a"), Points: 10,
		}},
		{"regular wager without slots", &QuestionRequest{
			Prompt: "p", Kind: models.KindMultipleChoice,
			Choices: []string{"a", "b"}, CorrectIndex: intPtr(0),
			WagerRound: models.WagerRoundRegular,
		}},
		{"bonus wager without max", &QuestionRequest{
			Prompt: "p", Kind: models.KindMultipleChoice,
			Choices: []string{"a", "b"}, CorrectIndex: intPtr(0),
			WagerRound: models.WagerRoundBonus,
		}},
		{"negative points", &QuestionRequest{
			Prompt: "p", Kind: models.KindMultipleChoice,
			Choices: []string{"a", "b"}, CorrectIndex: intPtr(0), Points: -5,
		}},
		{"zero timer", &QuestionRequest{
			Prompt: "p", Kind: models.KindMultipleChoice,
			Choices: []string{"a", "b"}, CorrectIndex: intPtr(0), Points: 10,
			TimerSeconds: intPtr(0),
		}},
	}

	svc, engine := newTestQuestionService(t)
	game := createGame(t, engine)
	for _, tc := range cases {
		_, err := svc.AddQuestion(context.Background(), game.ID, tc.req)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected validation failure, got %v", tc.name, err)
		}
	}
}

func TestAddQuestionRejectsDuplicateOrder(t *testing.T) {
	svc, engine := newTestQuestionService(t)
	ctx := context.Background()
	game := createGame(t, engine)

	req := choiceRequest()
	req.QuestionOrder = 1
	if _, err := svc.AddQuestion(ctx, game.ID, req); err != nil {
		t.Fatalf("add: %v", err)
	}

	dup := choiceRequest()
	dup.QuestionOrder = 1
	if _, err := svc.AddQuestion(ctx, game.ID, dup); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected a taken order to fail validation, got %v", err)
	}
}

func TestUpdateQuestionRejectsDuplicateOrder(t *testing.T) {
	svc, engine := newTestQuestionService(t)
	ctx := context.Background()
	game := createGame(t, engine)

	first, err := svc.AddQuestion(ctx, game.ID, choiceRequest())
	if err != nil {
		t.Fatalf("add first: %v", err)
	}
	second, err := svc.AddQuestion(ctx, game.ID, choiceRequest())
	if err != nil {
		t.Fatalf("add second: %v", err)
	}

	req := choiceRequest()
	req.QuestionOrder = first.QuestionOrder
	if _, err := svc.UpdateQuestion(ctx, game.ID, second.ID, req); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected a taken order to fail validation, got %v", err)
	}

	// Re-stating a question's own order is not a collision.
	req.QuestionOrder = second.QuestionOrder
	if _, err := svc.UpdateQuestion(ctx, game.ID, second.ID, req); err != nil {
		t.Fatalf("update with own order: %v", err)
	}
}

func TestUpdateQuestionRewritesContent(t *testing.T) {
	svc, engine := newTestQuestionService(t)
	ctx := context.Background()
	game := createGame(t, engine)

	question, err := svc.AddQuestion(ctx, game.ID, choiceRequest())
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	req := choiceRequest()
	req.Prompt = "revised"
	req.CorrectIndex = intPtr(2)
	updated, err := svc.UpdateQuestion(ctx, game.ID, question.ID, req)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Prompt != "revised" || *updated.CorrectIndex != 2 {
		t.Fatalf("expected the update to land, got %q index %d", updated.Prompt, *updated.CorrectIndex)
	}
	if updated.QuestionOrder != question.QuestionOrder {
		t.Fatal("an update without an order must keep the play position")
	}
}

func TestUpdateQuestionFromAnotherGame(t *testing.T) {
	svc, engine := newTestQuestionService(t)
	ctx := context.Background()
	game := createGame(t, engine)
	other := createGame(t, engine)
	question, err := svc.AddQuestion(ctx, other.ID, choiceRequest())
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	_, err = svc.UpdateQuestion(ctx, game.ID, question.ID, choiceRequest())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected a cross-game update to read as not found, got %v", err)
	}
}

func TestDeleteActiveQuestionReturnsToLobby(t *testing.T) {
	svc, engine := newTestQuestionService(t)
	ctx := context.Background()
	game := createGame(t, engine)
	question, err := svc.AddQuestion(ctx, game.ID, choiceRequest())
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := engine.ActivateQuestion(ctx, game.ID, 0); err != nil {
		t.Fatalf("activate: %v", err)
	}

	if err := svc.DeleteQuestion(ctx, game.ID, question.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	reloaded, _ := engine.store.GameByID(ctx, game.ID)
	if reloaded.CurrentQuestionIndex != nil {
		t.Fatal("deleting the active question must return to the lobby")
	}
	if _, err := engine.store.QuestionByID(ctx, question.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected the question gone, got %v", err)
	}
}

func TestDeleteEarlierQuestionKeepsActivePointer(t *testing.T) {
	svc, engine := newTestQuestionService(t)
	ctx := context.Background()
	game := createGame(t, engine)

	var ids []uint
	for i := 0; i < 3; i++ {
		q, err := svc.AddQuestion(ctx, game.ID, choiceRequest())
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		ids = append(ids, q.ID)
	}
	if err := engine.ActivateQuestion(ctx, game.ID, 2); err != nil {
		t.Fatalf("activate: %v", err)
	}

	if err := svc.DeleteQuestion(ctx, game.ID, ids[0]); err != nil {
		t.Fatalf("delete: %v", err)
	}

	reloaded, _ := engine.store.GameByID(ctx, game.ID)
	questions, _ := engine.store.QuestionsByGame(ctx, game.ID)
	if reloaded.CurrentQuestionIndex == nil {
		t.Fatal("deleting an earlier question must not deactivate the session")
	}
	if got := questions[*reloaded.CurrentQuestionIndex].ID; got != ids[2] {
		t.Fatalf("active pointer drifted to question %d, want %d", got, ids[2])
	}
}

func TestReorderFollowsActiveQuestion(t *testing.T) {
	svc, engine := newTestQuestionService(t)
	ctx := context.Background()
	game := createGame(t, engine)

	var ids []uint
	for i := 0; i < 3; i++ {
		q, err := svc.AddQuestion(ctx, game.ID, choiceRequest())
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		ids = append(ids, q.ID)
	}
	if err := engine.ActivateQuestion(ctx, game.ID, 0); err != nil {
		t.Fatalf("activate: %v", err)
	}

	if err := svc.Reorder(ctx, game.ID, &ReorderRequest{QuestionIDs: []uint{ids[2], ids[0], ids[1]}}); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	reloaded, _ := engine.store.GameByID(ctx, game.ID)
	questions, _ := engine.store.QuestionsByGame(ctx, game.ID)
	if reloaded.CurrentQuestionIndex == nil || questions[*reloaded.CurrentQuestionIndex].ID != ids[0] {
		t.Fatal("reorder must keep the active pointer on the same question")
	}
}

func TestReorderRewritesPlayOrder(t *testing.T) {
	svc, engine := newTestQuestionService(t)
	ctx := context.Background()
	game := createGame(t, engine)

	var ids []uint
	for i := 0; i < 3; i++ {
		q, err := svc.AddQuestion(ctx, game.ID, choiceRequest())
		if err != nil {
			t.Fatalf("add #%d: %v", i+1, err)
		}
		ids = append(ids, q.ID)
	}

	if err := svc.Reorder(ctx, game.ID, &ReorderRequest{QuestionIDs: []uint{ids[2], ids[0], ids[1]}}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	questions, _ := engine.store.QuestionsByGame(ctx, game.ID)
	want := []uint{ids[2], ids[0], ids[1]}
	for i, q := range questions {
		if q.ID != want[i] {
			t.Fatalf("position %d: got question %d, want %d", i, q.ID, want[i])
		}
	}
}

func TestReorderRejectsPartialOrDuplicateLists(t *testing.T) {
	svc, engine := newTestQuestionService(t)
	ctx := context.Background()
	game := createGame(t, engine)

	var ids []uint
	for i := 0; i < 2; i++ {
		q, err := svc.AddQuestion(ctx, game.ID, choiceRequest())
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		ids = append(ids, q.ID)
	}

	err := svc.Reorder(ctx, game.ID, &ReorderRequest{QuestionIDs: []uint{ids[0]}})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected a partial list to fail, got %v", err)
	}
	err = svc.Reorder(ctx, game.ID, &ReorderRequest{QuestionIDs: []uint{ids[0], ids[0]}})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected a duplicate id to fail, got %v", err)
	}
	err = svc.Reorder(ctx, game.ID, &ReorderRequest{QuestionIDs: []uint{ids[0], 999}})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected a foreign id to fail, got %v", err)
	}
}
