package generation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/querygenie/querygenie/internal/database"
	"github.com/querygenie/querygenie/internal/gateway"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrBlankPrompt is returned for blank or whitespace-only descriptions.
	// The gateway is never invoked in this case.
	ErrBlankPrompt = errors.New("description must not be blank")

	// ErrInFlight is returned when a generation is already running for the
	// same user. At most one generation is active per user at a time.
	ErrInFlight = errors.New("a generation is already in progress")
)

// Output is the outcome of one generate action. Notice carries a non-fatal
// warning (e.g. the history write failed); the SQL is still valid when set.
type Output struct {
	Prompt string
	SQL    string
	Notice string
	Record *database.QueryRecord
}

// Flow orchestrates the describe -> generate -> persist cycle.
type Flow struct {
	db        *gorm.DB
	generator gateway.SQLGenerator

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

func NewFlow(db *gorm.DB, generator gateway.SQLGenerator) *Flow {
	return &Flow{
		db:        db,
		generator: generator,
		inFlight:  make(map[uuid.UUID]struct{}),
	}
}

// Generate validates the prompt, invokes the gateway, and on success appends
// a history record for the user. The append is best-effort: its failure is
// surfaced as a notice on the output, never as an error, so the generated SQL
// is not lost. Gateway failures propagate and nothing is persisted.
func (f *Flow) Generate(ctx context.Context, user database.User, prompt string) (Output, error) {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return Output{}, ErrBlankPrompt
	}

	if !f.begin(user.Id) {
		return Output{}, ErrInFlight
	}
	defer f.end(user.Id)

	result, err := f.generator.GenerateSQL(ctx, trimmed)
	if err != nil {
		return Output{}, err
	}

	output := Output{Prompt: trimmed, SQL: result.SQL}

	metadata := map[string]string{"model": result.Model}
	if result.FinishReason != "" {
		metadata["finish_reason"] = result.FinishReason
	}

	record, err := database.AppendQuery(ctx, f.db, user.Id, trimmed, result.SQL, metadata)
	if err != nil {
		slog.Error("generated SQL could not be saved to history", "user_id", user.Id, "error", err)
		output.Notice = "generated SQL could not be saved to your history"
		return output, nil
	}

	output.Record = record
	return output, nil
}

func (f *Flow) begin(userId uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.inFlight[userId]; busy {
		return false
	}
	f.inFlight[userId] = struct{}{}
	return true
}

func (f *Flow) end(userId uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inFlight, userId)
}
