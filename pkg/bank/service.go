package bank

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/evgeny-myasishchev/ledger.bank-store/pkg/dal"
	"github.com/evgeny-myasishchev/ledger.bank-store/pkg/diag"
	"github.com/evgeny-myasishchev/ledger.bank-store/pkg/ledger"
	"github.com/evgeny-myasishchev/ledger.bank-store/pkg/locking"
	"github.com/pkg/errors"
)

var logger = diag.CreateLogger()

// NowService provides current time
type NowService interface {
	Now() time.Time
}

type systemNowService struct{}

func (systemNowService) Now() time.Time {
	return time.Now()
}

// Service is a bank ledger facade. It is the only path that mutates account
// balances and the operation log, and it keeps both consistent: every
// committed balance change has exactly one operation record appended within
// the same storage transaction.
type Service struct {
	storage dal.Storage
	locker  *locking.AccountLocker
	now     NowService

	mu     sync.Mutex
	closed bool
}

// ServiceOpt is an option of a service
type ServiceOpt func(svc *Service)

// WithStorage sets an explicit storage instance
func WithStorage(storage dal.Storage) ServiceOpt {
	return func(svc *Service) {
		svc.storage = storage
	}
}

// WithLocker sets an explicit account locker. Service instances that share
// one storage backend within a process should share the locker as well.
func WithLocker(locker *locking.AccountLocker) ServiceOpt {
	return func(svc *Service) {
		svc.locker = locker
	}
}

// WithNowService sets a clock used for operation commit timestamps
func WithNowService(now NowService) ServiceOpt {
	return func(svc *Service) {
		svc.now = now
	}
}

// NewService returns a service bound to provided collaborators
func NewService(opts ...ServiceOpt) *Service {
	svc := &Service{now: systemNowService{}}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.locker == nil {
		svc.locker = locking.NewAccountLocker()
	}
	return svc
}

// Open connects a new service instance to a storage backend. Each instance
// owns its db handle, there is no process wide driver state.
func Open(driver string, dsn string, opts ...ServiceOpt) (*Service, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to open storage")
	}
	storage, err := dal.NewSQLStorage(dal.WithSQLDb(db))
	if err != nil {
		return nil, errors.Wrap(err, "Failed to init storage")
	}
	return NewService(append([]ServiceOpt{WithStorage(storage)}, opts...)...), nil
}

func (svc *Service) checkOpen() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.closed {
		return ledger.NewError(ledger.CodeClosed, "Service is closed")
	}
	return nil
}

// SetupSchema drops and recreates the underlying account and operation
// structures leaving the store empty. One time setup call, idempotent.
func (svc *Service) SetupSchema(ctx context.Context) error {
	if err := svc.checkOpen(); err != nil {
		return err
	}
	return svc.storage.Setup(ctx)
}

// CreateAccount creates an account with the given number and zero balance.
// Returns false with no error if the account already exists.
func (svc *Service) CreateAccount(ctx context.Context, number int) (bool, error) {
	if err := svc.checkOpen(); err != nil {
		return false, err
	}
	if err := svc.storage.CreateAccount(ctx, number); err != nil {
		if ledger.IsCode(err, ledger.CodeAccountAlreadyExists) {
			logger.Debug(ctx, "Account %v already exists", number)
			return false, nil
		}
		return false, err
	}
	logger.Info(ctx, "Created account %v", number)
	return true, nil
}

// Balance returns a current balance of an account
func (svc *Service) Balance(ctx context.Context, number int) (int64, error) {
	if err := svc.checkOpen(); err != nil {
		return 0, err
	}
	return svc.storage.AccountBalance(ctx, number)
}

// AddBalance deposits (positive amount) or withdraws (negative amount) and
// returns the new balance. The balance change and its operation record commit
// together, a failed call leaves both untouched.
func (svc *Service) AddBalance(ctx context.Context, number int, amount int64) (int64, error) {
	if err := svc.checkOpen(); err != nil {
		return 0, err
	}
	if err := svc.locker.Lock(number); err != nil {
		return 0, err
	}
	defer svc.locker.Unlock(number)

	var newBalance int64
	err := svc.storage.Mutate(ctx, func(m dal.Mutation) error {
		balance, err := m.ApplyDelta(number, amount)
		if err != nil {
			return err
		}
		if _, err := m.Append(number, amount, svc.now.Now()); err != nil {
			return err
		}
		newBalance = balance
		return nil
	})
	if err != nil {
		return 0, err
	}
	logger.WithData(diag.MsgData{
		"account": number,
		"amount":  amount,
		"balance": newBalance,
	}).Debug(ctx, "Applied balance change")
	return newBalance, nil
}

// Transfer moves amount from one account to another as a single atomic unit.
// Both balance changes and both operation records (sharing one commit
// timestamp) either fully commit or nothing is changed at all.
func (svc *Service) Transfer(ctx context.Context, from int, to int, amount int64) error {
	if err := svc.checkOpen(); err != nil {
		return err
	}
	if amount <= 0 {
		return ledger.NewError(ledger.CodeInvalidAmount, "Transfer amount must be positive, got: %v", amount)
	}
	if from == to {
		return ledger.NewError(ledger.CodeInvalidTransfer, "Can not transfer from account %v to itself", from)
	}
	if err := svc.locker.LockPair(from, to); err != nil {
		return err
	}
	defer svc.locker.UnlockPair(from, to)

	err := svc.storage.Mutate(ctx, func(m dal.Mutation) error {
		if _, err := m.ApplyDelta(from, -amount); err != nil {
			return err
		}
		if _, err := m.ApplyDelta(to, amount); err != nil {
			return err
		}
		at := svc.now.Now()
		if _, err := m.Append(from, -amount, at); err != nil {
			return err
		}
		_, err := m.Append(to, amount, at)
		return err
	})
	if err != nil {
		return err
	}
	logger.WithData(diag.MsgData{
		"from":   from,
		"to":     to,
		"amount": amount,
	}).Debug(ctx, "Transfer committed")
	return nil
}

// Operations returns committed operation records of an account within an
// inclusive time range. Nil from or to mean the range is unbounded on that
// side. Records are ordered by commit, matching the serialization order of
// the mutations that produced them.
func (svc *Service) Operations(ctx context.Context, number int, from *time.Time, to *time.Time) ([]ledger.Operation, error) {
	if err := svc.checkOpen(); err != nil {
		return nil, err
	}
	dtos, err := svc.storage.QueryOperations(ctx, dal.OperationsQuery{Account: number, From: from, To: to})
	if err != nil {
		return nil, err
	}
	operations := make([]ledger.Operation, len(dtos))
	for i, dto := range dtos {
		operations[i] = ledger.Operation{
			ID:      dto.ID,
			Account: dto.Account,
			Amount:  dto.Amount,
			Date:    dto.Date,
		}
	}
	return operations, nil
}

// Close releases storage resources of this instance. Idempotent, any
// operation invoked after close fails with a Closed error.
func (svc *Service) Close() error {
	svc.mu.Lock()
	if svc.closed {
		svc.mu.Unlock()
		return nil
	}
	svc.closed = true
	svc.mu.Unlock()
	return svc.storage.Close()
}
