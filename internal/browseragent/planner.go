package browseragent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/responses"
	"go.uber.org/zap"

	"github.com/BaSui01/browseruse/config"
)

// StepAction is one planner-chosen browser action.
type StepAction string

const (
	StepNavigate StepAction = "navigate"
	StepClick    StepAction = "click"
	StepType     StepAction = "type"
	StepScroll   StepAction = "scroll"
	StepDone     StepAction = "done"
	StepFail     StepAction = "fail"
)

// Decision is the planner's next move. Answer carries the final result
// text when Action is done, and the failure reason when Action is fail.
type Decision struct {
	Action   StepAction `json:"action"`
	Selector string     `json:"selector,omitempty"`
	Value    string     `json:"value,omitempty"`
	Reason   string     `json:"reason,omitempty"`
	Answer   string     `json:"answer,omitempty"`
}

// Observation is what the planner sees before deciding.
type Observation struct {
	Step       int    `json:"step"`
	URL        string `json:"url,omitempty"`
	Title      string `json:"title,omitempty"`
	PageText   string `json:"page_text,omitempty"`
	LastError  string `json:"last_error,omitempty"`
	Screenshot []byte `json:"-"`
}

// Planner chooses the next action toward the task goal.
type Planner interface {
	Decide(ctx context.Context, task string, obs Observation) (Decision, error)
}

const plannerSystemPrompt = `You are a browser automation agent. Given a task and the
current page state, respond with exactly one JSON object and nothing else:
{"action":"navigate|click|type|scroll|done|fail","selector":"CSS selector for click/type","value":"URL for navigate, text for type, pixels for scroll","reason":"why","answer":"final result text when action is done, failure reason when action is fail"}
Rules:
- Use "done" with a complete answer once the task is satisfied.
- Use "fail" only when the task cannot be completed.
- One action per response. Only valid JSON, no markdown fences.`

// openaiPlanner asks an OpenAI vision model for the next action.
type openaiPlanner struct {
	client openai.Client
	model  string
	vision bool
	logger *zap.Logger
}

// NewOpenAIPlanner creates a planner on the configured OpenAI client.
func NewOpenAIPlanner(cfg config.LLMConfig, model string, vision bool, logger *zap.Logger) Planner {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &openaiPlanner{
		client: openai.NewClient(opts...),
		model:  model,
		vision: vision,
		logger: logger.With(zap.String("component", "planner"), zap.String("model", model)),
	}
}

func (p *openaiPlanner) Decide(ctx context.Context, task string, obs Observation) (Decision, error) {
	items := []responses.ResponseInputItemUnionParam{
		responses.ResponseInputItemParamOfMessage(plannerSystemPrompt, responses.EasyInputMessageRoleSystem),
	}

	state, err := json.Marshal(obs)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to marshal observation: %w", err)
	}
	text := fmt.Sprintf("Task: %s\nCurrent page state: %s", task, state)

	if p.vision && len(obs.Screenshot) > 0 {
		imgURL := fmt.Sprintf("data:image/png;base64,%s", base64.StdEncoding.EncodeToString(obs.Screenshot))
		parts := responses.ResponseInputMessageContentListParam{
			responses.ResponseInputContentUnionParam{
				OfInputText: &responses.ResponseInputTextParam{Text: text},
			},
			responses.ResponseInputContentUnionParam{
				OfInputImage: &responses.ResponseInputImageParam{
					Detail:   responses.ResponseInputImageDetailAuto,
					ImageURL: param.NewOpt(imgURL),
				},
			},
		}
		items = append(items, responses.ResponseInputItemParamOfMessage(parts, responses.EasyInputMessageRoleUser))
	} else {
		items = append(items, responses.ResponseInputItemParamOfMessage(text, responses.EasyInputMessageRoleUser))
	}

	resp, err := p.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: p.model,
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: items},
	})
	if err != nil {
		return Decision{}, fmt.Errorf("planner request failed: %w", err)
	}

	decision, err := parseDecision(resp.OutputText())
	if err != nil {
		return Decision{}, err
	}

	p.logger.Debug("planner decision",
		zap.Int("step", obs.Step),
		zap.String("action", string(decision.Action)),
		zap.String("reason", decision.Reason),
	)

	return decision, nil
}

// parseDecision decodes the model output, tolerating markdown fencing
// that slips through despite the system prompt.
func parseDecision(raw string) (Decision, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	var d Decision
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return Decision{}, fmt.Errorf("planner returned malformed decision: %w", err)
	}
	if d.Action == "" {
		return Decision{}, fmt.Errorf("planner returned no action")
	}
	return d, nil
}
