package credits

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/supabase-go"
)

const (
	BalanceTable      = "user_credits"
	TransactionsTable = "credit_transactions"

	transactionTypeConsume = "consume"
)

// InsufficientCreditsError carries both sides of the comparison so the
// caller can tell the user exactly what is missing.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: need %d, have %d", e.Required, e.Available)
}

type balanceRow struct {
	UserID  string `json:"user_id"`
	Balance int    `json:"balance"`
}

type transactionRow struct {
	UserID      string    `json:"user_id"`
	Amount      int       `json:"amount"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type Consumption struct {
	UserID      string
	Amount      int
	Description string
}

// GetUserCredits returns the user's current balance. A user with no
// balance row has zero credits.
func GetUserCredits(client *supabase.Client, userID string) (int, error) {
	resp, _, err := client.From(BalanceTable).
		Select("user_id, balance", "", false).
		Eq("user_id", userID).
		Limit(1, "").
		Execute()
	if err != nil {
		return 0, fmt.Errorf("failed to fetch credit balance: %w", err)
	}

	var rows []balanceRow
	if err := json.Unmarshal(resp, &rows); err != nil {
		return 0, fmt.Errorf("failed to decode credit balance: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Balance, nil
}

// ConsumeCredits debits the user's balance and appends a ledger entry.
// There is no refund path: once consumed, credits stay consumed even if
// the work they paid for later fails.
func ConsumeCredits(client *supabase.Client, c Consumption) error {
	if c.Amount <= 0 {
		return fmt.Errorf("invalid consumption amount: %d", c.Amount)
	}

	balance, err := GetUserCredits(client, c.UserID)
	if err != nil {
		return err
	}
	if balance < c.Amount {
		return &InsufficientCreditsError{Required: c.Amount, Available: balance}
	}

	entry := []transactionRow{{
		UserID:      c.UserID,
		Amount:      -c.Amount,
		Type:        transactionTypeConsume,
		Description: c.Description,
		CreatedAt:   time.Now(),
	}}
	_, _, err = client.From(TransactionsTable).Insert(entry, false, "", "", "").Execute()
	if err != nil {
		return fmt.Errorf("failed to record credit transaction: %w", err)
	}

	_, _, err = client.From(BalanceTable).
		Update(map[string]interface{}{"balance": balance - c.Amount}, "", "").
		Eq("user_id", c.UserID).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to update credit balance: %w", err)
	}

	return nil
}
