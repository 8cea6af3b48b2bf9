package app

import "context"

// Prompts passed to a Confirmer.
const (
	PromptDiscardAttempt = "discard the current attempt and start a new one?"
	PromptAbandonAttempt = "abandon the running attempt? nothing will be saved"
	PromptMissingMarks   = "some long questions have no mark; finalize with 0 for them?"
)

// Confirmer answers destructive prompts. It is called with the service lock held and must
// not call back into the service.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

var (
	// AlwaysConfirm accepts every prompt.
	AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string) bool { return true })
	// NeverConfirm declines every prompt.
	NeverConfirm Confirmer = ConfirmFunc(func(context.Context, string) bool { return false })
)

func confirmed(ctx context.Context, c Confirmer, prompt string) bool {
	if c == nil {
		return false
	}
	return c.Confirm(ctx, prompt)
}
