package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securebank/internal/domain"
	"securebank/internal/intent"
)

type stubClient struct {
	reply string
	err   error
	// captured for assertions
	system string
	user   string
}

func (s *stubClient) Complete(ctx context.Context, system, user string) (string, error) {
	s.system = system
	s.user = user
	return s.reply, s.err
}

func plan(t *testing.T, reply string) intent.ResolvedAction {
	t.Helper()
	p := New(&stubClient{reply: reply})
	act, err := p.Plan(context.Background(), "hi", "1001", domain.User{Username: "alice_johnson", Email: "alice@email.com"})
	require.NoError(t, err)
	return act
}

func TestPlanExtractsEmbeddedJSON(t *testing.T) {
	act := plan(t, `Sure! {"action":"check_balance","parameters":{"account_number":"1002"},"response":"ok"} Let me know if you need more.`)
	assert.Equal(t, intent.CheckBalance, act.Kind)
	assert.Equal(t, "1002", act.Params.Account)
	assert.Equal(t, "ok", act.Params.Text)
	assert.Equal(t, intent.SourcePlanner, act.Source)
}

func TestPlanNestedBraces(t *testing.T) {
	// naive greedy {...} matching would cut this short
	act := plan(t, `{"action":"transfer_money","parameters":{"from_account":"1001","to_account":"2002","amount":250.5},"response":"done {almost}"}`)
	assert.Equal(t, intent.Transfer, act.Kind)
	assert.Equal(t, "1001", act.Params.From)
	assert.Equal(t, "2002", act.Params.To)
	assert.True(t, act.Params.Amount.Equal(decimal.RequireFromString("250.5")))
}

func TestPlanNoJSONFallsBackToChat(t *testing.T) {
	act := plan(t, "Happy to help! What would you like to do today?")
	assert.Equal(t, intent.Chat, act.Kind)
	assert.Equal(t, "Happy to help! What would you like to do today?", act.Params.Text)
}

func TestPlanMalformedJSONFallsBackToChat(t *testing.T) {
	reply := `{"action": not json at all}`
	act := plan(t, reply)
	assert.Equal(t, intent.Chat, act.Kind)
	assert.Equal(t, reply, act.Params.Text)
}

func TestPlanUnknownActionName(t *testing.T) {
	act := plan(t, `{"action":"delete_account","parameters":{},"response":"sure"}`)
	assert.Equal(t, intent.Unknown, act.Kind)
	assert.Equal(t, "sure", act.Params.Text)
}

func TestPlanStringAndNumberParameters(t *testing.T) {
	act := plan(t, `{"action":"withdraw_money","parameters":{"account_number":1002,"amount":"99.99"},"response":"ok"}`)
	assert.Equal(t, intent.Withdraw, act.Kind)
	assert.Equal(t, "1002", act.Params.Account)
	assert.True(t, act.Params.Amount.Equal(decimal.RequireFromString("99.99")))

	act = plan(t, `{"action":"get_transactions","parameters":{"account_number":"1001","limit":3},"response":"ok"}`)
	assert.Equal(t, intent.GetHistory, act.Kind)
	assert.Equal(t, 3, act.Params.Limit)
}

func TestPlanRemoteFailure(t *testing.T) {
	p := New(&stubClient{err: errors.New("connection refused")})
	_, err := p.Plan(context.Background(), "hi", "1001", domain.User{})
	assert.ErrorIs(t, err, ErrPlanner)
}

func TestPlanCallerContextInSystemPrompt(t *testing.T) {
	c := &stubClient{reply: "hello"}
	p := New(c)
	_, err := p.Plan(context.Background(), "what can you do", "1001", domain.User{Username: "alice_johnson", Email: "alice@email.com"})
	require.NoError(t, err)
	assert.Contains(t, c.system, "alice_johnson")
	assert.Contains(t, c.system, "1001")
	assert.Equal(t, "what can you do", c.user)
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`prefix {"a":1} suffix`, `{"a":1}`, true},
		{`{"a":{"b":{"c":3}}}`, `{"a":{"b":{"c":3}}}`, true},
		{`{"s":"brace } in string"} rest`, `{"s":"brace } in string"}`, true},
		{`{"s":"escaped \" quote }"}`, `{"s":"escaped \" quote }"}`, true},
		{`no braces here`, "", false},
		{`{"never":"closed"`, "", false},
	}
	for _, tc := range cases {
		got, ok := extractJSONObject(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
