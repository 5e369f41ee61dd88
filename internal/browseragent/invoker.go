package browseragent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/browseruse/config"
	"github.com/BaSui01/browseruse/types"
)

// Invoker is the production Runner. Each Run gets a fresh browser and
// planner so concurrent tasks never share Chrome state.
type Invoker struct {
	agentCfg   config.AgentConfig
	browserCfg config.BrowserConfig
	llmCfg     config.LLMConfig
	logger     *zap.Logger

	// Replaceable in tests.
	newDriver  func(config.BrowserConfig, *zap.Logger) (Driver, error)
	newPlanner func(config.LLMConfig, string, bool, *zap.Logger) Planner
}

// NewInvoker wires a Runner from configuration.
func NewInvoker(agentCfg config.AgentConfig, browserCfg config.BrowserConfig, llmCfg config.LLMConfig, logger *zap.Logger) *Invoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invoker{
		agentCfg:   agentCfg,
		browserCfg: browserCfg,
		llmCfg:     llmCfg,
		logger:     logger,
		newDriver:  newChromeDriver,
		newPlanner: NewOpenAIPlanner,
	}
}

// Run executes one browser task end to end and returns the final answer.
func (inv *Invoker) Run(ctx context.Context, req Request) (string, error) {
	if req.Task == "" {
		return "", types.NewError(types.ErrInvalidRequest, "task must not be empty").WithHTTPStatus(400)
	}

	model := req.Model
	if model == "" {
		model = inv.agentCfg.DefaultModel
	}
	logger := inv.logger.With(zap.String("model", model))

	driver, err := inv.newDriver(inv.browserCfg, logger)
	if err != nil {
		return "", types.NewError(types.ErrAgentFailure, fmt.Sprintf("failed to start browser: %v", err)).
			WithHTTPStatus(500).WithCause(err)
	}
	defer func() {
		if cerr := driver.Close(); cerr != nil {
			logger.Warn("browser close failed", zap.Error(cerr))
		}
	}()

	a := &agent{
		driver:  driver,
		planner: inv.newPlanner(inv.llmCfg, model, req.Vision, logger),
		cfg:     inv.agentCfg,
		vision:  req.Vision,
		logger:  logger,
		log:     newConversationLog(req.ConversationPath, logger),
	}

	result, err := a.run(ctx, req.Task)
	a.log.flush(req.Task, result, err)
	if err != nil {
		return "", types.NewError(types.ErrAgentFailure, fmt.Sprintf("agent run failed: %v", err)).
			WithHTTPStatus(500).WithCause(err)
	}
	return result, nil
}
