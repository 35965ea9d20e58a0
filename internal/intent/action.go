// Package intent classifies free-form banking messages into candidate
// actions. A ResolvedAction is a suggestion, never an authorization: the
// executor re-validates every parameter before anything touches the
// ledger, regardless of which strategy produced it.
package intent

import "github.com/shopspring/decimal"

// Kind tags the action variant.
type Kind string

const (
	CheckBalance Kind = "check_balance"
	Transfer     Kind = "transfer_money"
	Withdraw     Kind = "withdraw_money"
	GetHistory   Kind = "get_transactions"
	GetProfile   Kind = "get_account_info"
	Chat         Kind = "chat_response"
	Unknown      Kind = "unknown"
)

// Source records which strategy produced the action.
type Source string

const (
	SourceRules   Source = "rules"
	SourcePlanner Source = "planner"
)

// Params carries the raw extracted parameters. Zero values mean
// "absent"; presence and validity are the executor's call.
type Params struct {
	Account string          // balance/history/profile target
	From    string          // transfer source
	To      string          // transfer destination
	Amount  decimal.Decimal // transfer/withdrawal amount
	Limit   int             // history limit
	Text    string          // chat payload
}

// ResolvedAction is transient: produced by one strategy, consumed once
// by the executor, never persisted.
type ResolvedAction struct {
	Kind    Kind
	Params  Params
	Source  Source
	Message string // the original inbound message
}
