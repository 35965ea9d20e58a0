package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securebank/internal/domain"
	"securebank/internal/ledger"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateAccountNumbering(t *testing.T) {
	st := New()
	ctx := context.Background()

	a, err := st.CreateAccount(ctx, "alice", dec("5000"))
	require.NoError(t, err)
	b, err := st.CreateAccount(ctx, "bob", dec("3500"))
	require.NoError(t, err)

	assert.Equal(t, "1001", a.Number)
	assert.Equal(t, "1002", b.Number)

	_, err = st.CreateAccount(ctx, "mallory", dec("-1"))
	assert.ErrorIs(t, err, ledger.ErrInvalidParams)
}

func TestGetAccountUnknown(t *testing.T) {
	st := New()
	_, err := st.GetAccount(context.Background(), "999999")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestWithdrawalEffect(t *testing.T) {
	st := New()
	ctx := context.Background()

	a, err := st.CreateAccount(ctx, "alice", dec("100"))
	require.NoError(t, err)

	id, err := st.RecordTransaction(ctx, a.Number, "", dec("37.50"), domain.KindWithdrawal, "ATM withdrawal")
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := st.GetAccount(ctx, a.Number)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("62.50")), "balance = %s", got.Balance)

	txs, err := st.ListTransactions(ctx, a.Number, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, a.Number, txs[0].FromAccount)
	assert.Empty(t, txs[0].ToAccount)
	assert.Equal(t, domain.KindWithdrawal, txs[0].Kind)
	assert.True(t, txs[0].Amount.Equal(dec("37.50")))
	assert.Equal(t, domain.StatusCompleted, txs[0].Status)
}

func TestDepositCredits(t *testing.T) {
	st := New()
	ctx := context.Background()

	a, err := st.CreateAccount(ctx, "alice", dec("10"))
	require.NoError(t, err)

	_, err = st.RecordTransaction(ctx, a.Number, "", dec("5"), domain.KindDeposit, "salary")
	require.NoError(t, err)

	got, err := st.GetAccount(ctx, a.Number)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("15")))
}

func TestHistoryOrderingAndLimit(t *testing.T) {
	st := New()
	ctx := context.Background()

	a, err := st.CreateAccount(ctx, "alice", dec("1000"))
	require.NoError(t, err)

	descriptions := []string{"one", "two", "three", "four", "five"}
	for _, d := range descriptions {
		_, err := st.RecordTransaction(ctx, a.Number, "", dec("1"), domain.KindWithdrawal, d)
		require.NoError(t, err)
	}

	txs, err := st.ListTransactions(ctx, a.Number, 3)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "five", txs[0].Description)
	assert.Equal(t, "four", txs[1].Description)
	assert.Equal(t, "three", txs[2].Description)

	// limit 0 uses the default, negative is rejected
	txs, err = st.ListTransactions(ctx, a.Number, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 5)

	_, err = st.ListTransactions(ctx, a.Number, -1)
	assert.ErrorIs(t, err, ledger.ErrInvalidParams)
}

func TestHistoryIncludesInbound(t *testing.T) {
	st := New()
	ctx := context.Background()

	a, _ := st.CreateAccount(ctx, "alice", dec("100"))
	b, _ := st.CreateAccount(ctx, "bob", dec("100"))

	_, err := st.RecordTransaction(ctx, a.Number, b.Number, dec("25"), domain.KindTransfer, "rent")
	require.NoError(t, err)

	txs, err := st.ListTransactions(ctx, b.Number, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, a.Number, txs[0].FromAccount)
	assert.Equal(t, b.Number, txs[0].ToAccount)
}

func TestRecordTransactionValidation(t *testing.T) {
	st := New()
	ctx := context.Background()

	a, _ := st.CreateAccount(ctx, "alice", dec("100"))
	b, _ := st.CreateAccount(ctx, "bob", dec("100"))

	cases := []struct {
		name string
		from string
		to   string
		amt  decimal.Decimal
		kind domain.TxKind
		want error
	}{
		{"zero amount", a.Number, b.Number, dec("0"), domain.KindTransfer, ledger.ErrInvalidParams},
		{"negative amount", a.Number, b.Number, dec("-5"), domain.KindTransfer, ledger.ErrInvalidParams},
		{"self transfer", a.Number, a.Number, dec("5"), domain.KindTransfer, ledger.ErrInvalidParams},
		{"missing destination", a.Number, "", dec("5"), domain.KindTransfer, ledger.ErrInvalidParams},
		{"withdrawal with destination", a.Number, b.Number, dec("5"), domain.KindWithdrawal, ledger.ErrInvalidParams},
		{"unknown kind", a.Number, "", dec("5"), domain.TxKind("loan"), ledger.ErrInvalidParams},
		{"unknown source", "777777", b.Number, dec("5"), domain.KindTransfer, ledger.ErrAccountNotFound},
		{"unknown destination", a.Number, "777777", dec("5"), domain.KindTransfer, ledger.ErrAccountNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := st.RecordTransaction(ctx, tc.from, tc.to, tc.amt, tc.kind, "x")
			assert.ErrorIs(t, err, tc.want)

			// failed writes leave no trace
			txs, lerr := st.ListTransactions(ctx, a.Number, 0)
			require.NoError(t, lerr)
			assert.Empty(t, txs)
		})
	}
}

// Two concurrent withdrawals of 10 from a balance of 15 must both apply
// (overdraft is allowed by policy): final balance -5, exactly two rows.
func TestConcurrentWithdrawalsNoLostUpdate(t *testing.T) {
	st := New()
	ctx := context.Background()

	a, err := st.CreateAccount(ctx, "eve", dec("15"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.RecordTransaction(ctx, a.Number, "", dec("10"), domain.KindWithdrawal, "race")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := st.GetAccount(ctx, a.Number)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("-5")), "balance = %s", got.Balance)

	txs, err := st.ListTransactions(ctx, a.Number, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

// Transfers are zero-sum: the total across all accounts is unchanged by
// any interleaving of concurrent transfers.
func TestTransferConservation(t *testing.T) {
	st := New()
	ctx := context.Background()

	numbers := make([]string, 0, 3)
	for _, owner := range []string{"alice", "bob", "charlie"} {
		a, err := st.CreateAccount(ctx, owner, dec("1000"))
		require.NoError(t, err)
		numbers = append(numbers, a.Number)
	}

	total := func() decimal.Decimal {
		sum := decimal.Zero
		for _, n := range numbers {
			a, err := st.GetAccount(ctx, n)
			require.NoError(t, err)
			sum = sum.Add(a.Balance)
		}
		return sum
	}

	before := total()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				from := numbers[(g+i)%3]
				to := numbers[(g+i+1)%3]
				_, err := st.RecordTransaction(ctx, from, to, dec("7.13"), domain.KindTransfer, "shuffle")
				assert.NoError(t, err)
			}
		}(g)
	}
	wg.Wait()

	assert.True(t, total().Equal(before), "sum changed: %s -> %s", before, total())
}

func TestProfilesAndUsers(t *testing.T) {
	st := New()
	ctx := context.Background()

	a, _ := st.CreateAccount(ctx, "alice", dec("100"))

	_, err := st.GetProfile(ctx, a.Number)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	p := domain.Profile{AccountNumber: a.Number, SSN: "123-45-6789", CreditScore: 750}
	require.NoError(t, st.CreateProfile(ctx, p))

	got, err := st.GetProfile(ctx, a.Number)
	require.NoError(t, err)
	assert.Equal(t, p.SSN, got.SSN)

	err = st.CreateProfile(ctx, domain.Profile{AccountNumber: "777777"})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	u, err := st.CreateUser(ctx, domain.User{Username: "alice_johnson", AccountNumber: a.Number})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	_, err = st.CreateUser(ctx, domain.User{Username: "alice_johnson"})
	assert.ErrorIs(t, err, ledger.ErrInvalidParams)

	byName, err := st.GetUserByUsername(ctx, "alice_johnson")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
}
