package browseragent

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/browseruse/config"
	"github.com/BaSui01/browseruse/types"
)

type fakeDriver struct {
	navigated []string
	clicked   []string
	typed     map[string]string
	scrolled  []int
	actErr    error
	closed    bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{typed: map[string]string{}}
}

func (d *fakeDriver) Navigate(_ context.Context, url string) error {
	d.navigated = append(d.navigated, url)
	return d.actErr
}

func (d *fakeDriver) Click(_ context.Context, sel string) error {
	d.clicked = append(d.clicked, sel)
	return d.actErr
}

func (d *fakeDriver) Type(_ context.Context, sel, text string) error {
	d.typed[sel] = text
	return d.actErr
}

func (d *fakeDriver) Scroll(_ context.Context, deltaY int) error {
	d.scrolled = append(d.scrolled, deltaY)
	return d.actErr
}

func (d *fakeDriver) Screenshot(context.Context) ([]byte, error) {
	return []byte("png"), nil
}

func (d *fakeDriver) PageText(context.Context) (string, error) {
	return "page body", nil
}

func (d *fakeDriver) Location(context.Context) (string, string, error) {
	return "https://example.com", "Example", nil
}

func (d *fakeDriver) Close() error {
	d.closed = true
	return nil
}

// scriptedPlanner replays a fixed decision sequence.
type scriptedPlanner struct {
	decisions []Decision
	errs      []error
	calls     int
	seen      []Observation
	task      string
}

func (p *scriptedPlanner) Decide(_ context.Context, task string, obs Observation) (Decision, error) {
	p.task = task
	p.seen = append(p.seen, obs)
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return Decision{}, p.errs[i]
	}
	if i >= len(p.decisions) {
		return Decision{}, errors.New("planner script exhausted")
	}
	return p.decisions[i], nil
}

func testAgentConfig() config.AgentConfig {
	return config.AgentConfig{
		DefaultModel: "gpt-4o-mini",
		MaxSteps:     5,
		ActionDelay:  0,
		Timeout:      5 * time.Second,
	}
}

func TestAgentRunsUntilDone(t *testing.T) {
	driver := newFakeDriver()
	planner := &scriptedPlanner{decisions: []Decision{
		{Action: StepNavigate, Value: "https://example.com"},
		{Action: StepClick, Selector: "#login"},
		{Action: StepDone, Answer: "logged in"},
	}}

	a := &agent{
		driver:  driver,
		planner: planner,
		cfg:     testAgentConfig(),
		logger:  zap.NewNop(),
		log:     newConversationLog("", zap.NewNop()),
	}

	result, err := a.run(context.Background(), "log in to example.com")
	require.NoError(t, err)
	assert.Equal(t, "logged in", result)
	assert.Equal(t, []string{"https://example.com"}, driver.navigated)
	assert.Equal(t, []string{"#login"}, driver.clicked)
	assert.Equal(t, "log in to example.com", planner.task)
}

func TestAgentFailDecision(t *testing.T) {
	a := &agent{
		driver:  newFakeDriver(),
		planner: &scriptedPlanner{decisions: []Decision{{Action: StepFail, Answer: "page requires login"}}},
		cfg:     testAgentConfig(),
		logger:  zap.NewNop(),
		log:     newConversationLog("", zap.NewNop()),
	}

	_, err := a.run(context.Background(), "impossible task")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page requires login")
}

func TestAgentStepBudgetExhausted(t *testing.T) {
	cfg := testAgentConfig()
	cfg.MaxSteps = 2
	a := &agent{
		driver: newFakeDriver(),
		planner: &scriptedPlanner{decisions: []Decision{
			{Action: StepScroll},
			{Action: StepScroll},
			{Action: StepDone, Answer: "never reached"},
		}},
		cfg:    cfg,
		logger: zap.NewNop(),
		log:    newConversationLog("", zap.NewNop()),
	}

	_, err := a.run(context.Background(), "endless scrolling")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not completed within 2 steps")
}

func TestAgentFeedsActionErrorBack(t *testing.T) {
	driver := newFakeDriver()
	driver.actErr = errors.New("element not found")
	planner := &scriptedPlanner{decisions: []Decision{
		{Action: StepClick, Selector: "#missing"},
		{Action: StepDone, Answer: "gave up clicking"},
	}}

	a := &agent{
		driver:  driver,
		planner: planner,
		cfg:     testAgentConfig(),
		logger:  zap.NewNop(),
		log:     newConversationLog("", zap.NewNop()),
	}

	result, err := a.run(context.Background(), "click a thing")
	require.NoError(t, err)
	assert.Equal(t, "gave up clicking", result)

	require.Len(t, planner.seen, 2)
	assert.Empty(t, planner.seen[0].LastError)
	assert.Contains(t, planner.seen[1].LastError, "element not found")
}

func TestAgentPlannerError(t *testing.T) {
	a := &agent{
		driver:  newFakeDriver(),
		planner: &scriptedPlanner{errs: []error{errors.New("model unavailable")}},
		cfg:     testAgentConfig(),
		logger:  zap.NewNop(),
		log:     newConversationLog("", zap.NewNop()),
	}

	_, err := a.run(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unavailable")
}

func TestAgentVisionObservationIncludesScreenshot(t *testing.T) {
	planner := &scriptedPlanner{decisions: []Decision{{Action: StepDone, Answer: "ok"}}}
	a := &agent{
		driver:  newFakeDriver(),
		planner: planner,
		cfg:     testAgentConfig(),
		vision:  true,
		logger:  zap.NewNop(),
		log:     newConversationLog("", zap.NewNop()),
	}

	_, err := a.run(context.Background(), "look at the page")
	require.NoError(t, err)
	require.Len(t, planner.seen, 1)
	assert.Equal(t, []byte("png"), planner.seen[0].Screenshot)
	assert.Equal(t, "https://example.com", planner.seen[0].URL)
	assert.Equal(t, "page body", planner.seen[0].PageText)
}

func TestConversationLogWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "task_abc.json")
	planner := &scriptedPlanner{decisions: []Decision{
		{Action: StepNavigate, Value: "https://example.com"},
		{Action: StepDone, Answer: "all done"},
	}}
	a := &agent{
		driver:  newFakeDriver(),
		planner: planner,
		cfg:     testAgentConfig(),
		logger:  zap.NewNop(),
		log:     newConversationLog(path, zap.NewNop()),
	}

	result, err := a.run(context.Background(), "visit example.com")
	require.NoError(t, err)
	a.log.flush("visit example.com", result, nil)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Task   string `json:"task"`
		Result string `json:"result"`
		Steps  []struct {
			Step     int      `json:"step"`
			Decision Decision `json:"decision"`
		} `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "visit example.com", doc.Task)
	assert.Equal(t, "all done", doc.Result)
	require.Len(t, doc.Steps, 2)
	assert.Equal(t, StepNavigate, doc.Steps[0].Decision.Action)
}

func TestInvokerClosesDriver(t *testing.T) {
	driver := newFakeDriver()
	inv := NewInvoker(testAgentConfig(), config.BrowserConfig{}, config.LLMConfig{}, zap.NewNop())
	inv.newDriver = func(config.BrowserConfig, *zap.Logger) (Driver, error) {
		return driver, nil
	}
	inv.newPlanner = func(_ config.LLMConfig, model string, _ bool, _ *zap.Logger) Planner {
		assert.Equal(t, "gpt-4o-mini", model)
		return &scriptedPlanner{decisions: []Decision{{Action: StepDone, Answer: "fin"}}}
	}

	result, err := inv.Run(context.Background(), Request{Task: "do something"})
	require.NoError(t, err)
	assert.Equal(t, "fin", result)
	assert.True(t, driver.closed)
}

func TestInvokerEmptyTask(t *testing.T) {
	inv := NewInvoker(testAgentConfig(), config.BrowserConfig{}, config.LLMConfig{}, zap.NewNop())

	_, err := inv.Run(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestInvokerDriverStartFailure(t *testing.T) {
	inv := NewInvoker(testAgentConfig(), config.BrowserConfig{}, config.LLMConfig{}, zap.NewNop())
	inv.newDriver = func(config.BrowserConfig, *zap.Logger) (Driver, error) {
		return nil, errors.New("chrome not found")
	}

	_, err := inv.Run(context.Background(), Request{Task: "open a page"})
	require.Error(t, err)
	assert.Equal(t, types.ErrAgentFailure, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "chrome not found")
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    StepAction
		wantErr bool
	}{
		{name: "plain json", raw: `{"action":"navigate","value":"https://x.com"}`, want: StepNavigate},
		{name: "fenced json", raw: "```json\n{\"action\":\"done\",\"answer\":\"ok\"}\n```", want: StepDone},
		{name: "bare fence", raw: "```\n{\"action\":\"click\",\"selector\":\"#a\"}\n```", want: StepClick},
		{name: "whitespace", raw: "\n  {\"action\":\"scroll\"}  \n", want: StepScroll},
		{name: "garbage", raw: "I think we should click the button", wantErr: true},
		{name: "missing action", raw: `{"selector":"#a"}`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, err := parseDecision(tc.raw)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, d.Action)
		})
	}
}
