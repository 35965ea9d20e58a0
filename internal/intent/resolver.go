package intent

import (
	"strings"

	"github.com/shopspring/decimal"
)

// HelpText is the benign fallback for anything the rules don't match.
const HelpText = "I can help you check your balance, transfer money, withdraw cash, or view transaction history. What would you like to do?"

// historyLimit is what the conversational path shows; direct API callers
// pick their own limit.
const historyLimit = 5

// Resolve is the deterministic, rule-based classifier. Categories are
// checked in fixed priority order; the first match wins. Keyword checks
// run against the lowered message so inflected forms ("withdrawal")
// still match; parameter extraction is strictly token-based.
func Resolve(message, callerAccount string) ResolvedAction {
	lower := strings.ToLower(message)
	tokens := strings.Fields(lower)

	act := ResolvedAction{Source: SourceRules, Message: message}

	switch {
	case strings.Contains(lower, "balance") || strings.Contains(lower, "how much"):
		act.Kind = CheckBalance
		act.Params.Account = firstAccountToken(tokens, callerAccount)

	case strings.Contains(lower, "transfer"):
		act.Kind = Transfer
		act.Params.From = callerAccount
		act.Params.To, act.Params.Amount = transferParams(tokens, callerAccount)

	case strings.Contains(lower, "withdraw"):
		act.Kind = Withdraw
		act.Params.Account = callerAccount
		act.Params.Amount = firstAmountToken(tokens, -1)

	case strings.Contains(lower, "transactions") || strings.Contains(lower, "history"):
		act.Kind = GetHistory
		act.Params.Account = firstAccountToken(tokens, callerAccount)
		act.Params.Limit = historyLimit

	case strings.Contains(lower, "sensitive") || strings.Contains(lower, "personal") || strings.Contains(lower, "ssn"):
		act.Kind = GetProfile
		act.Params.Account = firstAccountToken(tokens, callerAccount)

	default:
		act.Kind = Chat
		act.Params.Text = HelpText
	}
	return act
}

// AccountTokens returns every standalone digit token of length >= 4 in
// message order. The executor uses it to annotate chat replies.
func AccountTokens(message string) []string {
	var out []string
	for _, tok := range strings.Fields(message) {
		if isAccountToken(tok) {
			out = append(out, tok)
		}
	}
	return out
}

// transferParams implements the two-pass extraction rule. Pass one picks
// the destination: the first pure-digit token of length >= 4 that isn't
// the caller's own account. Pass two picks the amount: the first
// positive decimal token that was not already consumed as the
// destination. A single token never fills both roles.
func transferParams(tokens []string, callerAccount string) (to string, amount decimal.Decimal) {
	toIdx := -1
	for i, tok := range tokens {
		if isAccountToken(tok) && tok != callerAccount {
			to = tok
			toIdx = i
			break
		}
	}
	return to, firstAmountToken(tokens, toIdx)
}

func firstAccountToken(tokens []string, fallback string) string {
	for _, tok := range tokens {
		if isAccountToken(tok) {
			return tok
		}
	}
	return fallback
}

func firstAmountToken(tokens []string, skipIdx int) decimal.Decimal {
	for i, tok := range tokens {
		if i == skipIdx {
			continue
		}
		if d, ok := parseAmount(tok); ok && d.IsPositive() {
			return d
		}
	}
	return decimal.Zero
}

func isAccountToken(tok string) bool {
	return len(tok) >= 4 && isDigits(tok)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parseAmount accepts digit runs with at most one '.', e.g. "500",
// "12.75", "500.", ".5".
func parseAmount(tok string) (decimal.Decimal, bool) {
	digits := 0
	dots := 0
	for _, r := range tok {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return decimal.Zero, false
		}
	}
	if digits == 0 || dots > 1 {
		return decimal.Zero, false
	}
	s := strings.TrimSuffix(tok, ".")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
