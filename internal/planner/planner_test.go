package planner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/planwright/internal/credentials"
	"github.com/rahul/planwright/internal/observability"
	"github.com/rahul/planwright/internal/plan"
	"github.com/rahul/planwright/internal/secrets"
	"github.com/rahul/planwright/internal/store"
)

// fakeClient streams canned responses in order and records the prompts it saw.
type fakeClient struct {
	responses []string
	prompts   []string
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if len(f.responses) == 0 {
		return "", nil
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return r, nil
}

func (f *fakeClient) Stream(ctx context.Context, prompt string, fn func(string) error) error {
	r, _ := f.Generate(ctx, prompt)
	for len(r) > 0 {
		n := min(7, len(r))
		if err := fn(r[:n]); err != nil {
			return err
		}
		r = r[n:]
	}
	return nil
}

type fakeHistory struct {
	kinds        []string
	instructions []string
}

func (h *fakeHistory) AddRevision(kind, instruction string, p *plan.Plan) (string, error) {
	h.kinds = append(h.kinds, kind)
	h.instructions = append(h.instructions, instruction)
	return "rev", nil
}

type fixture struct {
	planner *Planner
	client  *fakeClient
	plans   *store.PlanStore
	secrets *secrets.Store
	history *fakeHistory
	dir     string
}

func newFixture(t *testing.T, responses ...string) *fixture {
	t.Helper()
	dir := t.TempDir()
	plans, err := store.NewPlanStore(filepath.Join(dir, "tasks"))
	require.NoError(t, err)
	sec, err := secrets.Open(filepath.Join(dir, ".env"))
	require.NoError(t, err)

	client := &fakeClient{responses: responses}
	history := &fakeHistory{}
	p := New(client, plans, sec, Options{})
	p.History = history
	p.Status = observability.NewStatus()
	return &fixture{planner: p, client: client, plans: plans, secrets: sec, history: history, dir: dir}
}

const loginResponse = "```json\n" + `{
  "task": "instagram login",
  "steps": [
    {"action": "goto", "target": "https://www.instagram.com/"},
    {"action": "type", "target": "username field", "value": "${USERNAME}"},
    {"action": "type", "target": "password field", "value": "${PASSWORD}"},
    {"action": "click", "target": "login button"}
  ]
}` + "\n```"

func TestCreateLoginScenario(t *testing.T) {
	f := newFixture(t, loginResponse)
	instruction := "Login to instagram with username bob and password Secret123"

	res, err := f.planner.Create(context.Background(), instruction, RequestOptions{Prompter: credentials.NonInteractive{}})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	pl := res.Plan
	assert.Equal(t, "instagram_login", pl.Task)
	assert.Equal(t, "<website>", pl.Steps[0].Target)
	assert.Equal(t, "bob", pl.Steps[1].Value)
	assert.Equal(t, "${PASSWORD_INSTAGRAM}", pl.Steps[2].Value)
	assert.Nil(t, pl.MissingInfo)

	v, ok := f.secrets.Lookup("PASSWORD_INSTAGRAM")
	require.True(t, ok)
	assert.Equal(t, "Secret123", v)

	assert.Equal(t, []string{
		"Step 1: Goto -> <website>",
		"Step 2: Type -> username field | Value: bob",
		"Step 3: Type -> password field | Value: ********",
		"Step 4: Click -> login button",
	}, res.Lines)

	stored, err := f.plans.Load("instagram_login")
	require.NoError(t, err)
	assert.Equal(t, pl.Steps, stored.Steps)

	text, err := f.plans.LoadStepwise("instagram_login")
	require.NoError(t, err)
	assert.Equal(t, res.Text(), text)

	// The secret value never lands next to the plan.
	saved, err := f.plans.LoadInstruction("instagram_login")
	require.NoError(t, err)
	assert.NotContains(t, saved, "Secret123")
	assert.NotContains(t, f.history.instructions[0], "Secret123")
	raw, err := os.ReadFile(f.plans.PlanPath("instagram_login"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Secret123")

	assert.Contains(t, f.client.prompts[0], instruction)
	assert.Equal(t, observability.PhaseIdle, f.planner.Status.Get().Phase)
}

func TestCreateMalformedOutput(t *testing.T) {
	f := newFixture(t, "Sure! Here's your plan: not json")

	res, err := f.planner.Create(context.Background(), "do something", RequestOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, res.Warnings)
	assert.Equal(t, "Sure! Here's your plan: not json", res.Plan.RawText)
	assert.Equal(t, plan.DefaultTaskName, res.Plan.Task)
	assert.Empty(t, res.Plan.Steps)
	assert.Empty(t, res.Lines)

	stored, err := f.plans.Load(plan.DefaultTaskName)
	require.NoError(t, err)
	assert.Equal(t, "Sure! Here's your plan: not json", stored.RawText)
}

func TestCreateFlightScenario(t *testing.T) {
	f := newFixture(t, `{"task": "book_flight", "steps": [
		{"action": "goto", "target": "https://www.makemytrip.com"},
		{"action": "type", "target": "from city", "value": "Delhi"},
		{"action": "type", "target": "to city", "value": "Mumbai"},
		{"action": "click", "target": "search"}
	]}`)

	res, err := f.planner.Create(context.Background(), "Book a flight from Delhi to Mumbai on 12 March 2025", RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"number_of_passengers", "seat_class", "flight_type"}, res.Plan.MissingInfo)

	stored, err := f.plans.Load("book_flight")
	require.NoError(t, err)
	assert.Equal(t, res.Plan.MissingInfo, stored.MissingInfo)
}

func TestCreateMissingCredentialStillSaves(t *testing.T) {
	f := newFixture(t, loginResponse)

	res, err := f.planner.Create(context.Background(), "Login to instagram", RequestOptions{Prompter: credentials.NonInteractive{}})
	require.NoError(t, err)
	require.NotEmpty(t, res.Warnings)
	assert.True(t, strings.Contains(strings.Join(res.Warnings, "\n"), "missing credential"))
	assert.Equal(t, "${PASSWORD_INSTAGRAM}", res.Plan.Steps[2].Value)

	_, ok := f.secrets.Lookup("PASSWORD_INSTAGRAM")
	assert.False(t, ok)
	assert.True(t, f.plans.Exists("instagram_login"))
}

func TestCreateWithPinnedName(t *testing.T) {
	f := newFixture(t, loginResponse)
	res, err := f.planner.Create(context.Background(), "Login to instagram with password hunter2", RequestOptions{Name: "My Login"})
	require.NoError(t, err)
	assert.Equal(t, "my_login", res.Plan.Task)
	assert.Equal(t, "${PASSWORD_INSTAGRAM}", res.Plan.Steps[2].Value)
}

func TestModify(t *testing.T) {
	f := newFixture(t, loginResponse, `{"task": "renamed by model", "steps": [
		{"action": "goto", "target": "https://instagram.com"},
		{"action": "type", "target": "password field", "value": "${PASSWORD_INSTAGRAM}"},
		{"action": "click", "target": "login button"},
		{"action": "screenshot", "target": "home feed"}
	]}`)
	ctx := context.Background()

	_, err := f.planner.Create(ctx, "Login to instagram with username bob and password Secret123", RequestOptions{})
	require.NoError(t, err)

	res, err := f.planner.Modify(ctx, "instagram_login", "take a screenshot after login", RequestOptions{Prompter: credentials.NonInteractive{}})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "instagram_login", res.Plan.Task)
	assert.Equal(t, "Step 4: Screenshot -> home feed", res.Lines[3])

	require.Len(t, f.client.prompts, 2)
	modifyPrompt := f.client.prompts[1]
	assert.Contains(t, modifyPrompt, `"task": "instagram_login"`)
	assert.Contains(t, modifyPrompt, "take a screenshot after login")
	assert.Contains(t, modifyPrompt, "Login to instagram with username bob")
	assert.NotContains(t, modifyPrompt, "Secret123")

	assert.Equal(t, []string{store.KindCreate, store.KindModify}, f.history.kinds)

	tasks, err := f.planner.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"instagram_login"}, tasks)
}

func TestModifyUnknownTask(t *testing.T) {
	f := newFixture(t)
	_, err := f.planner.Modify(context.Background(), "nope", "anything", RequestOptions{})
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.Empty(t, f.client.prompts)
}

func TestEditIsSanitized(t *testing.T) {
	f := newFixture(t)
	res, err := f.planner.Edit(context.Background(), "Gmail Login", []plan.Step{
		{Action: "goto", Target: "https://mail.google.com"},
		{Action: "type", Target: "password box", Value: "p@ss"},
	}, RequestOptions{})
	require.NoError(t, err)

	assert.Equal(t, "gmail_login", res.Plan.Task)
	assert.Equal(t, "<website>", res.Plan.Steps[0].Target)
	assert.Equal(t, "${PASSWORD_GMAIL}", res.Plan.Steps[1].Value)
	v, _ := f.secrets.Lookup("PASSWORD_GMAIL")
	assert.Equal(t, "p@ss", v)
	assert.Equal(t, []string{store.KindEdit}, f.history.kinds)
}

func TestRenderAndShow(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.plans.Save(&plan.Plan{Task: "play_song", Steps: []plan.Step{
		{Action: "search", Target: "search bar", Value: "Believer"},
	}}))

	res, err := f.planner.Render("play_song")
	require.NoError(t, err)
	assert.Equal(t, []string{"Step 1: Search -> search bar | Value: Believer"}, res.Lines)

	text, err := f.plans.LoadStepwise("play_song")
	require.NoError(t, err)
	assert.Equal(t, "Step 1: Search -> search bar | Value: Believer", text)

	shown, err := f.planner.Show("play_song")
	require.NoError(t, err)
	assert.Equal(t, res.Lines, shown.Lines)

	_, err = f.planner.Show("missing")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestEditRevalidatesAgainstInstruction(t *testing.T) {
	f := newFixture(t, `{"task": "book_flight", "steps": [
		{"action": "type", "target": "from city", "value": "Delhi"},
		{"action": "type", "target": "to city", "value": "Mumbai"}
	]}`)
	ctx := context.Background()

	res, err := f.planner.Create(ctx, "Book a flight from Delhi to Mumbai on 12 March 2025", RequestOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{"number_of_passengers", "seat_class", "flight_type"}, res.Plan.MissingInfo)

	steps := append(res.Plan.Steps,
		plan.Step{Action: "select", Target: "passengers", Value: "2 adults"},
		plan.Step{Action: "click", Target: "one-way"},
	)
	res, err = f.planner.Edit(ctx, "book_flight", steps, RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"seat_class"}, res.Plan.MissingInfo)

	stored, err := f.plans.Load("book_flight")
	require.NoError(t, err)
	assert.Equal(t, []string{"seat_class"}, stored.MissingInfo)
}

func TestEditMasksPasswordLikeTargets(t *testing.T) {
	f := newFixture(t)
	res, err := f.planner.Edit(context.Background(), "instagram_login", []plan.Step{
		{Action: "type", Target: "pwd", Value: "Hunter2!"},
		{Action: "type", Target: "Passcode", Value: "Pin9876"},
	}, RequestOptions{})
	require.NoError(t, err)

	text, err := f.plans.LoadStepwise("instagram_login")
	require.NoError(t, err)
	assert.Equal(t, res.Text(), text)
	assert.NotContains(t, text, "Hunter2!")
	assert.NotContains(t, text, "Pin9876")
	assert.Contains(t, text, "Step 1: Type -> pwd | Value: ********")
}

func TestCreateRawTextDocumentWarns(t *testing.T) {
	f := newFixture(t, `{"raw_text": "I cannot help with that"}`)
	res, err := f.planner.Create(context.Background(), "do something", RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, "I cannot help with that", res.Plan.RawText)
	assert.Contains(t, res.Warnings, "generator returned raw text without steps")
}
