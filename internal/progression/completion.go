package progression

import (
	"fmt"
	"strconv"

	"huntcore/internal/model"
)

// CompletionInput carries the optional fields of a completion record.
type CompletionInput struct {
	Score     *int
	TimeSpent *int
	Solution  string
}

// CompletePuzzle records that the user finished the puzzle. The access check
// runs first; a denial surfaces as ErrAccessDenied with the resolver's
// message. Completions are exactly-once: a second call for the same
// (user, puzzle) pair fails with model.ErrAlreadyExists and never creates a
// second row. There is no update path.
func (s *Service) CompletePuzzle(userID, puzzleID int64, input CompletionInput) (*model.Completion, error) {
	decision, err := s.CheckAccess(userID, puzzleID)
	if err != nil {
		return nil, err
	}
	if !decision.HasAccess {
		return nil, fmt.Errorf("%w: %s", ErrAccessDenied, decision.Message)
	}

	completion := &model.Completion{
		UserID:    userID,
		PuzzleID:  puzzleID,
		Score:     input.Score,
		TimeSpent: input.TimeSpent,
		Solution:  input.Solution,
	}
	// The store's uniqueness constraint is the arbiter under concurrency; a
	// losing duplicate insert comes back as ErrAlreadyExists, never as a
	// silent overwrite.
	if err := s.completions.InsertCompletion(completion); err != nil {
		return nil, fmt.Errorf("puzzle %d for user %d: %w", puzzleID, userID, err)
	}

	s.writeAudit("puzzle.complete", "puzzle", strconv.FormatInt(puzzleID, 10), map[string]string{
		"user_id": strconv.FormatInt(userID, 10),
	})
	return completion, nil
}

// UserCompletions lists the user's completions, most recent first.
func (s *Service) UserCompletions(userID int64) ([]model.Completion, error) {
	return s.completions.UserCompletions(userID)
}
