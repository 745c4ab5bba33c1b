package services

import (
	"livetrivia/models"
)

// ScoreAnswer computes correctness and points for a submitted answer under
// the question's rules. It is pure: no store access, no clock.
//
// Fill-in-blank answers are never auto-graded; they come back (false, 0)
// and are scored by the host through ManualAward. Wagered fill-in-blank
// behaves the same way.
func ScoreAnswer(question *models.Question, answer *models.PlayerAnswer) (bool, int) {
	if question.Kind == models.KindFillInBlank {
		return false, 0
	}

	correct := answer.AnswerIndex != nil &&
		question.CorrectIndex != nil &&
		*answer.AnswerIndex == *question.CorrectIndex

	if question.Wagered() {
		wager := 0
		if answer.Wager != nil {
			wager = *answer.Wager
		}
		if question.WagerRound == models.WagerRoundBonus {
			// Bonus wagers are double-or-nothing: a miss costs the
			// full stake.
			if correct {
				return true, wager
			}
			return false, -wager
		}
		// Regular wager rounds pay out the committed slot value.
		if correct {
			return true, wager
		}
		return false, 0
	}

	if correct {
		return true, question.Points * question.Multiplier
	}
	return false, 0
}

// ApplyScoreDelta is the one law every score mutation follows: subtract the
// answer's previous contribution, add the new one, floor at zero. Repeated
// or out-of-order application never corrupts the running total.
func ApplyScoreDelta(score, oldPoints, newPoints int) int {
	next := score - oldPoints + newPoints
	if next < 0 {
		return 0
	}
	return next
}
