package locking

import (
	"sync"
	"time"

	"github.com/evgeny-myasishchev/ledger.bank-store/pkg/ledger"
)

// DefaultLockTimeout bounds the wait for an account lock
const DefaultLockTimeout = 5 * time.Second

// AccountLocker serializes mutations of individual accounts. At most one
// holder per account number at a time. Waiting is bounded, an expired wait
// surfaces as a Busy error instead of blocking forever.
type AccountLocker struct {
	mu      sync.Mutex
	locks   map[int]chan struct{}
	timeout time.Duration
}

// LockerOpt is an option of an account locker
type LockerOpt func(l *AccountLocker)

// WithTimeout sets a lock acquisition timeout
func WithTimeout(timeout time.Duration) LockerOpt {
	return func(l *AccountLocker) {
		l.timeout = timeout
	}
}

// NewAccountLocker returns an instance of an account locker
func NewAccountLocker(opts ...LockerOpt) *AccountLocker {
	locker := &AccountLocker{
		locks:   map[int]chan struct{}{},
		timeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(locker)
	}
	return locker
}

func (l *AccountLocker) sem(number int) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.locks[number]
	if !ok {
		sem = make(chan struct{}, 1)
		l.locks[number] = sem
	}
	return sem
}

// Lock acquires an exclusive lock of an account
func (l *AccountLocker) Lock(number int) error {
	sem := l.sem(number)
	timer := time.NewTimer(l.timeout)
	defer timer.Stop()
	select {
	case sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ledger.NewError(ledger.CodeBusy, "Lock wait for account %v exceeded %v", number, l.timeout)
	}
}

// Unlock releases a previously acquired lock of an account
func (l *AccountLocker) Unlock(number int) {
	<-l.sem(number)
}

// LockPair acquires locks of two distinct accounts, always in ascending
// account number order no matter how the arguments are passed. Concurrent
// pair acquisitions of the same accounts can therefore never deadlock.
func (l *AccountLocker) LockPair(a int, b int) error {
	first, second := orderPair(a, b)
	if err := l.Lock(first); err != nil {
		return err
	}
	if err := l.Lock(second); err != nil {
		l.Unlock(first)
		return err
	}
	return nil
}

// UnlockPair releases both locks in reverse acquisition order
func (l *AccountLocker) UnlockPair(a int, b int) {
	first, second := orderPair(a, b)
	l.Unlock(second)
	l.Unlock(first)
}

func orderPair(a int, b int) (int, int) {
	if b < a {
		return b, a
	}
	return a, b
}
