package domain

import "time"

// Account holds a member's governance token balance and its append-only history.
// History is ordered chronologically (insertion order).
type Account struct {
	ID        string             `json:"account_id"`
	Balance   int64              `json:"balance"`
	History   []TokenTransaction `json:"history"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// NewAccount returns an empty account with a zero balance.
func NewAccount(id string, now time.Time) *Account {
	return &Account{
		ID:        id,
		Balance:   0,
		History:   []TokenTransaction{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanCover reports whether the balance can absorb a debit of amount.
func (a *Account) CanCover(amount int64) bool {
	return a.Balance >= amount
}
