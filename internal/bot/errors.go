package bot

import "errors"

// Fatal orchestration errors. Per-tool failures are not represented here:
// they are folded into error-status tool results and the run continues.
var (
	// ErrEmptyCompletion means the model returned no content at all on a
	// terminal round.
	ErrEmptyCompletion = errors.New("no completion response content")

	// ErrNoToolProcessed means the model requested tool use but zero tool
	// calls could be executed.
	ErrNoToolProcessed = errors.New("no tool use processed")

	// ErrRoundLimit means the conversation did not converge within the
	// configured number of rounds.
	ErrRoundLimit = errors.New("round limit reached")
)
