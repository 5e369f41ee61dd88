// Package browseragent runs natural-language browser tasks. Each run
// drives a fresh headless browser through an observe-plan-act loop until
// the vision model declares the task done, a step fails terminally, or
// the step budget runs out.
package browseragent

import "context"

// Request describes one agent run.
type Request struct {
	// Task is the natural-language instruction.
	Task string
	// Model is the vision model identifier, e.g. "gpt-4o-mini".
	Model string
	// Vision attaches page screenshots to every planning call.
	Vision bool
	// ConversationPath, when set, receives a JSON log of every step.
	ConversationPath string
}

// Runner executes one task to completion and returns the agent's final
// answer as text. The call blocks; callers bound wait time through ctx.
// Failures are surfaced once, with no retry.
type Runner interface {
	Run(ctx context.Context, req Request) (string, error)
}
