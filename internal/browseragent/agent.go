package browseragent

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/browseruse/config"
)

// agent drives one observe-plan-act loop over a Driver and a Planner.
type agent struct {
	driver  Driver
	planner Planner
	cfg     config.AgentConfig
	vision  bool
	logger  *zap.Logger
	log     *conversationLog
}

// run executes the task until the planner reports done or fail, the step
// budget runs out, or the context expires. Returns the final answer text.
func (a *agent) run(ctx context.Context, task string) (string, error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	lastErr := ""
	for step := 1; step <= a.cfg.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("task aborted at step %d: %w", step, err)
		}

		obs := a.observe(ctx, step, lastErr)
		decision, err := a.planner.Decide(ctx, task, obs)
		if err != nil {
			return "", fmt.Errorf("planning step %d failed: %w", step, err)
		}
		a.log.record(step, obs, decision)

		switch decision.Action {
		case StepDone:
			a.logger.Info("task completed", zap.Int("steps", step))
			return decision.Answer, nil
		case StepFail:
			return "", fmt.Errorf("agent gave up: %s", decision.Answer)
		}

		if err := a.act(ctx, decision); err != nil {
			// Feed the failure back to the planner so it can recover.
			lastErr = err.Error()
			a.logger.Warn("action failed",
				zap.Int("step", step),
				zap.String("action", string(decision.Action)),
				zap.Error(err),
			)
		} else {
			lastErr = ""
		}

		if a.cfg.ActionDelay > 0 {
			select {
			case <-time.After(a.cfg.ActionDelay):
			case <-ctx.Done():
				return "", fmt.Errorf("task aborted after step %d: %w", step, ctx.Err())
			}
		}
	}

	return "", fmt.Errorf("task not completed within %d steps", a.cfg.MaxSteps)
}

// observe gathers the current page state. Partial observations are fine,
// the planner handles missing fields.
func (a *agent) observe(ctx context.Context, step int, lastErr string) Observation {
	obs := Observation{Step: step, LastError: lastErr}

	if url, title, err := a.driver.Location(ctx); err == nil {
		obs.URL = url
		obs.Title = title
	}
	if text, err := a.driver.PageText(ctx); err == nil {
		obs.PageText = text
	}
	if a.vision {
		if shot, err := a.driver.Screenshot(ctx); err == nil {
			obs.Screenshot = shot
		} else {
			a.logger.Debug("screenshot failed", zap.Int("step", step), zap.Error(err))
		}
	}

	return obs
}

func (a *agent) act(ctx context.Context, d Decision) error {
	switch d.Action {
	case StepNavigate:
		if d.Value == "" {
			return fmt.Errorf("navigate requires a URL")
		}
		return a.driver.Navigate(ctx, d.Value)
	case StepClick:
		if d.Selector == "" {
			return fmt.Errorf("click requires a selector")
		}
		return a.driver.Click(ctx, d.Selector)
	case StepType:
		if d.Selector == "" {
			return fmt.Errorf("type requires a selector")
		}
		return a.driver.Type(ctx, d.Selector, d.Value)
	case StepScroll:
		delta := 600
		if d.Value != "" {
			if n, err := strconv.Atoi(d.Value); err == nil {
				delta = n
			}
		}
		return a.driver.Scroll(ctx, delta)
	default:
		return fmt.Errorf("unknown action %q", d.Action)
	}
}
