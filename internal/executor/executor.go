// Package executor validates candidate actions and applies them through
// the ledger. This is the trust boundary of the system: a ResolvedAction
// is re-validated here field by field no matter which strategy produced
// it, because the planner's output can be steered by adversarial user
// text. Validation failures never reach the ledger; ledger failures are
// converted to results here and never re-raised.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"securebank/internal/domain"
	"securebank/internal/intent"
	"securebank/internal/ledger"
	"securebank/internal/planner"
)

// Strategy selects how the inbound message is classified.
type Strategy int

const (
	StrategyRules Strategy = iota
	StrategyPlanner
)

// ActionResult is the caller-facing outcome of one request. ActionTaken
// is empty when the message produced no banking action.
type ActionResult struct {
	Success      bool
	Response     string
	ActionTaken  string
	SideEffectID int64 // transaction id when a ledger write happened
}

type Dispatcher struct {
	store    ledger.Store
	profiles ledger.ProfileReader
	planner  *planner.Planner
	log      *zap.SugaredLogger
}

func New(store ledger.Store, profiles ledger.ProfileReader, pl *planner.Planner, log *zap.SugaredLogger) *Dispatcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Dispatcher{store: store, profiles: profiles, planner: pl, log: log}
}

// Handle runs one message through classify → validate → execute. caller
// may be the zero User when the request is unauthenticated; only the
// planner uses it, as prompt context.
func (d *Dispatcher) Handle(ctx context.Context, message, callerAccount string, caller domain.User, strategy Strategy) ActionResult {
	var act intent.ResolvedAction
	switch strategy {
	case StrategyPlanner:
		if d.planner == nil {
			return ActionResult{Response: "The assistant is not available right now.", ActionTaken: "error"}
		}
		var err error
		act, err = d.planner.Plan(ctx, message, callerAccount, caller)
		if err != nil {
			// remote failure: nothing is executed
			d.log.Warnw("planner failed", "error", err)
			return ActionResult{
				Response:    fmt.Sprintf("I'm having trouble processing your request. Error: %v", err),
				ActionTaken: "error",
			}
		}
	default:
		act = intent.Resolve(message, callerAccount)
	}

	d.log.Debugw("dispatching action", "kind", act.Kind, "source", act.Source)
	return d.execute(ctx, act, callerAccount)
}

func (d *Dispatcher) execute(ctx context.Context, act intent.ResolvedAction, callerAccount string) ActionResult {
	switch act.Kind {
	case intent.CheckBalance:
		return d.checkBalance(ctx, act, callerAccount)
	case intent.Transfer:
		return d.transfer(ctx, act, callerAccount)
	case intent.Withdraw:
		return d.withdraw(ctx, act, callerAccount)
	case intent.GetHistory:
		return d.history(ctx, act, callerAccount)
	case intent.GetProfile:
		return d.profile(ctx, act, callerAccount)
	default:
		return d.chat(act, callerAccount)
	}
}

func (d *Dispatcher) checkBalance(ctx context.Context, act intent.ResolvedAction, callerAccount string) ActionResult {
	number := defaulted(act.Params.Account, callerAccount)
	acct, err := d.store.GetAccount(ctx, number)
	if err != nil {
		return failure(act, err)
	}
	return ActionResult{
		Success:     true,
		Response:    fmt.Sprintf("Account %s has a balance of $%s", acct.Number, acct.Balance.StringFixed(2)),
		ActionTaken: string(act.Kind),
	}
}

func (d *Dispatcher) transfer(ctx context.Context, act intent.ResolvedAction, callerAccount string) ActionResult {
	from := defaulted(act.Params.From, callerAccount)
	to := act.Params.To
	amount := act.Params.Amount

	// the ledger is never called with parameters that fail here
	if to == "" || !amount.IsPositive() {
		return ActionResult{Response: "Invalid transfer parameters", ActionTaken: string(act.Kind)}
	}

	id, err := d.store.RecordTransaction(ctx, from, to, amount, domain.KindTransfer, describe(act, "transfer"))
	if err != nil {
		return failure(act, err)
	}
	return ActionResult{
		Success:      true,
		Response:     fmt.Sprintf("Transferred $%s from %s to account %s", amount.StringFixed(2), from, to),
		ActionTaken:  string(act.Kind),
		SideEffectID: id,
	}
}

func (d *Dispatcher) withdraw(ctx context.Context, act intent.ResolvedAction, callerAccount string) ActionResult {
	number := defaulted(act.Params.Account, callerAccount)
	amount := act.Params.Amount

	if !amount.IsPositive() {
		return ActionResult{Response: "Invalid withdrawal amount", ActionTaken: string(act.Kind)}
	}

	id, err := d.store.RecordTransaction(ctx, number, "", amount, domain.KindWithdrawal, describe(act, "withdrawal"))
	if err != nil {
		return failure(act, err)
	}
	return ActionResult{
		Success:      true,
		Response:     fmt.Sprintf("Withdrew $%s from account %s", amount.StringFixed(2), number),
		ActionTaken:  string(act.Kind),
		SideEffectID: id,
	}
}

func (d *Dispatcher) history(ctx context.Context, act intent.ResolvedAction, callerAccount string) ActionResult {
	number := defaulted(act.Params.Account, callerAccount)
	txs, err := d.store.ListTransactions(ctx, number, act.Params.Limit)
	if err != nil {
		return failure(act, err)
	}
	if len(txs) == 0 {
		return ActionResult{
			Success:     true,
			Response:    fmt.Sprintf("No transactions found for account %s", number),
			ActionTaken: string(act.Kind),
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recent transactions for account %s:", number)
	for _, tx := range txs {
		fmt.Fprintf(&b, "\n$%s %s - %s (%s)", tx.Amount.StringFixed(2), tx.Kind, tx.Description, tx.CreatedAt.Format("2006-01-02"))
	}
	return ActionResult{Success: true, Response: b.String(), ActionTaken: string(act.Kind)}
}

func (d *Dispatcher) profile(ctx context.Context, act intent.ResolvedAction, callerAccount string) ActionResult {
	number := defaulted(act.Params.Account, callerAccount)

	acct, err := d.store.GetAccount(ctx, number)
	if err != nil {
		return failure(act, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Account information for %s:\n", number)
	fmt.Fprintf(&b, "Owner: %s\n", acct.Owner)
	fmt.Fprintf(&b, "Balance: $%s", acct.Balance.StringFixed(2))

	prof, err := d.profiles.GetProfile(ctx, number)
	if err != nil {
		// partial result, explicitly marked; never silently dropped
		b.WriteString("\nCustomer profile data is unavailable for this account.")
		return ActionResult{Success: true, Response: b.String(), ActionTaken: string(act.Kind)}
	}
	fmt.Fprintf(&b, "\nSSN: %s", prof.SSN)
	fmt.Fprintf(&b, "\nCredit Score: %d", prof.CreditScore)
	fmt.Fprintf(&b, "\nPersonal Notes: %s", prof.Notes)
	return ActionResult{Success: true, Response: b.String(), ActionTaken: string(act.Kind)}
}

// chat handles Chat and Unknown: passthrough text plus an informational
// annotation when the message names some other account. The annotation
// never triggers a side effect.
func (d *Dispatcher) chat(act intent.ResolvedAction, callerAccount string) ActionResult {
	text := act.Params.Text
	if text == "" {
		text = intent.HelpText
	}
	for _, tok := range intent.AccountTokens(act.Message) {
		if tok != callerAccount {
			text += fmt.Sprintf("\n\n[System detected account %s in your message]", tok)
			break
		}
	}
	return ActionResult{Success: true, Response: text}
}

func failure(act intent.ResolvedAction, err error) ActionResult {
	res := ActionResult{ActionTaken: string(act.Kind)}
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		res.Response = "Account not found"
	case errors.Is(err, ledger.ErrInvalidParams):
		res.Response = fmt.Sprintf("Invalid %s parameters", act.Kind)
	default:
		// storage-level failure: the ledger was not touched; the
		// caller decides whether to resubmit
		res.Response = "The operation could not be completed. Please try again."
	}
	return res
}

func describe(act intent.ResolvedAction, what string) string {
	if act.Source == intent.SourcePlanner {
		return fmt.Sprintf("LLM assisted %s: %s", what, act.Message)
	}
	return fmt.Sprintf("Chat %s: %s", what, act.Message)
}

func defaulted(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
