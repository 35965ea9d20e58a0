// Package planner delegates intent classification to an external
// language model. Everything that comes back is untrusted input: the
// model's prompt is influenced by arbitrary user text, so a suggestion
// here is only ever a candidate for the executor's validation, never a
// pre-validated action.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"securebank/internal/domain"
	"securebank/internal/intent"
)

// ErrPlanner wraps remote-call failures (transport errors, timeouts,
// upstream rejections). The dispatcher must not execute anything when
// it sees this; an unparseable reply is not this error, it is a Chat.
var ErrPlanner = errors.New("planner failure")

// Client is the language-model collaborator: one blocking round trip,
// untrusted text back.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Planner struct {
	client Client
}

func New(client Client) *Planner {
	return &Planner{client: client}
}

// suggestion is the structured shape expected somewhere inside the
// model's reply.
type suggestion struct {
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters"`
	Response   string         `json:"response"`
}

// Plan submits the message with caller context and maps the reply to a
// ResolvedAction. A reply with no parseable JSON object becomes a Chat
// carrying the raw text; only the remote call itself failing is an
// error.
func (p *Planner) Plan(ctx context.Context, message, callerAccount string, caller domain.User) (intent.ResolvedAction, error) {
	system := fmt.Sprintf(`%s

Current user context:
- Username: %s
- Account Number: %s
- Email: %s`, systemPrompt, orUnknown(caller.Username), callerAccount, orUnknown(caller.Email))

	reply, err := p.client.Complete(ctx, system, message)
	if err != nil {
		return intent.ResolvedAction{}, fmt.Errorf("%w: %v", ErrPlanner, err)
	}

	act := intent.ResolvedAction{Source: intent.SourcePlanner, Message: message}

	raw, ok := extractJSONObject(reply)
	if !ok {
		act.Kind = intent.Chat
		act.Params.Text = reply
		return act, nil
	}

	var sug suggestion
	if err := json.Unmarshal([]byte(raw), &sug); err != nil {
		act.Kind = intent.Chat
		act.Params.Text = reply
		return act, nil
	}

	act.Params.Text = sug.Response
	switch sug.Action {
	case "check_balance":
		act.Kind = intent.CheckBalance
		act.Params.Account = paramString(sug.Parameters, "account_number")
	case "transfer_money":
		act.Kind = intent.Transfer
		act.Params.From = paramString(sug.Parameters, "from_account")
		act.Params.To = paramString(sug.Parameters, "to_account")
		act.Params.Amount = paramAmount(sug.Parameters, "amount")
	case "withdraw_money":
		act.Kind = intent.Withdraw
		act.Params.Account = paramString(sug.Parameters, "account_number")
		act.Params.Amount = paramAmount(sug.Parameters, "amount")
	case "get_transactions":
		act.Kind = intent.GetHistory
		act.Params.Account = paramString(sug.Parameters, "account_number")
		act.Params.Limit = paramInt(sug.Parameters, "limit")
	case "get_account_info":
		act.Kind = intent.GetProfile
		act.Params.Account = paramString(sug.Parameters, "account_number")
	case "chat_response", "":
		act.Kind = intent.Chat
	default:
		act.Kind = intent.Unknown
	}
	return act, nil
}

// extractJSONObject returns the first balanced JSON object in s. Brace
// depth is tracked with string/escape awareness, so nested objects in
// the parameters field come out whole instead of being cut at the first
// closing brace.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}

func paramString(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		// models sometimes emit account numbers as JSON numbers
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}

func paramAmount(m map[string]any, key string) decimal.Decimal {
	switch v := m[key].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

func paramInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
