package dal

import (
	"context"
	"time"
)

// OperationDTO is a DTO of one committed balance change record
type OperationDTO struct {
	ID      int64
	Account int
	Amount  int64
	Date    time.Time
}

// OperationsQuery filters operation records of an account. Nil From or To
// mean the time range is unbounded on that side, present bounds are inclusive.
type OperationsQuery struct {
	Account int
	From    *time.Time
	To      *time.Time
}

// Mutation applies balance changes within a single storage transaction.
// Everything applied through one mutation commits or rolls back as a whole.
type Mutation interface {
	// ApplyDelta adds delta to the account balance and returns the new
	// balance. Deltas that would make the balance negative are rejected
	// with InsufficientFunds leaving the balance unchanged.
	ApplyDelta(number int, delta int64) (int64, error)

	// Append persists one operation record and returns its identifier
	Append(number int, amount int64, at time.Time) (int64, error)
}

// Storage is a persistance layer
type Storage interface {
	Setup(ctx context.Context) error
	CreateAccount(ctx context.Context, number int) error
	AccountBalance(ctx context.Context, number int) (int64, error)
	Mutate(ctx context.Context, fn func(m Mutation) error) error
	QueryOperations(ctx context.Context, query OperationsQuery) ([]OperationDTO, error)
	Close() error
}
