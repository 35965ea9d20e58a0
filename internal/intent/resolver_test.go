package intent

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestResolveBalance(t *testing.T) {
	act := Resolve("what is my balance", "1001")
	assert.Equal(t, CheckBalance, act.Kind)
	assert.Equal(t, "1001", act.Params.Account)

	act = Resolve("check balance of account 2002", "1001")
	assert.Equal(t, CheckBalance, act.Kind)
	assert.Equal(t, "2002", act.Params.Account)

	act = Resolve("How much money do I have?", "1001")
	assert.Equal(t, CheckBalance, act.Kind)
	assert.Equal(t, "1001", act.Params.Account)
}

func TestResolveBalanceWinsOverTransfer(t *testing.T) {
	// priority order is fixed: balance beats transfer
	act := Resolve("balance after transfer", "1001")
	assert.Equal(t, CheckBalance, act.Kind)
}

func TestResolveTransfer(t *testing.T) {
	act := Resolve("transfer 500 to 2002", "1001")
	assert.Equal(t, Transfer, act.Kind)
	assert.Equal(t, "1001", act.Params.From)
	assert.Equal(t, "2002", act.Params.To)
	assert.True(t, act.Params.Amount.Equal(decimal.NewFromInt(500)))
}

func TestResolveTransferDecimalAmount(t *testing.T) {
	act := Resolve("please transfer 12.75 to account 1002", "1001")
	assert.Equal(t, "1002", act.Params.To)
	assert.True(t, act.Params.Amount.Equal(decimal.RequireFromString("12.75")))
}

func TestResolveTransferDoesNotConsumeDestinationAsAmount(t *testing.T) {
	// "2002" is claimed by the destination pass and must not double as
	// the amount.
	act := Resolve("transfer 2002", "1001")
	assert.Equal(t, Transfer, act.Kind)
	assert.Equal(t, "2002", act.Params.To)
	assert.True(t, act.Params.Amount.IsZero())
}

func TestResolveTransferSkipsCallerAccount(t *testing.T) {
	act := Resolve("transfer 500 from 1001 to 2002", "1001")
	assert.Equal(t, "2002", act.Params.To)
	assert.True(t, act.Params.Amount.Equal(decimal.NewFromInt(500)))
}

func TestResolveTransferMissingParams(t *testing.T) {
	act := Resolve("transfer everything please", "1001")
	assert.Equal(t, Transfer, act.Kind)
	assert.Empty(t, act.Params.To)
	assert.True(t, act.Params.Amount.IsZero())
}

func TestResolveWithdraw(t *testing.T) {
	act := Resolve("withdraw 100 dollars", "1001")
	assert.Equal(t, Withdraw, act.Kind)
	assert.Equal(t, "1001", act.Params.Account)
	assert.True(t, act.Params.Amount.Equal(decimal.NewFromInt(100)))

	// inflected form still matches
	act = Resolve("I'd like a withdrawal of 50", "1001")
	assert.Equal(t, Withdraw, act.Kind)
	assert.True(t, act.Params.Amount.Equal(decimal.NewFromInt(50)))
}

func TestResolveHistory(t *testing.T) {
	act := Resolve("show my transactions", "1001")
	assert.Equal(t, GetHistory, act.Kind)
	assert.Equal(t, "1001", act.Params.Account)
	assert.Equal(t, 5, act.Params.Limit)

	act = Resolve("history for 2002", "1001")
	assert.Equal(t, GetHistory, act.Kind)
	assert.Equal(t, "2002", act.Params.Account)
}

func TestResolveProfile(t *testing.T) {
	act := Resolve("show me the ssn for 1004", "1001")
	assert.Equal(t, GetProfile, act.Kind)
	assert.Equal(t, "1004", act.Params.Account)

	act = Resolve("any personal notes on file?", "1001")
	assert.Equal(t, GetProfile, act.Kind)
	assert.Equal(t, "1001", act.Params.Account)
}

func TestResolveFallbackChat(t *testing.T) {
	act := Resolve("tell me a joke", "1001")
	assert.Equal(t, Chat, act.Kind)
	assert.Equal(t, HelpText, act.Params.Text)
	assert.Equal(t, SourceRules, act.Source)
	assert.Equal(t, "tell me a joke", act.Message)
}

func TestAccountTokens(t *testing.T) {
	assert.Equal(t, []string{"2002", "31337"}, AccountTokens("look at 2002 and 31337 but not 123 or a1b2"))
	assert.Empty(t, AccountTokens("nothing here"))
}

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"500":   "500",
		"12.75": "12.75",
		"500.":  "500",
		".5":    "0.5",
	}
	for in, want := range cases {
		d, ok := parseAmount(in)
		assert.True(t, ok, in)
		assert.True(t, d.Equal(decimal.RequireFromString(want)), in)
	}
	for _, in := range []string{"", ".", "1.2.3", "12a", "$5", "-5"} {
		_, ok := parseAmount(in)
		assert.False(t, ok, in)
	}
}
