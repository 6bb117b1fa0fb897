package locking

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/evgeny-myasishchev/ledger.bank-store/pkg/ledger"
	"github.com/stretchr/testify/assert"
)

func Test_AccountLocker_Lock(t *testing.T) {
	t.Run("mutual exclusion", func(t *testing.T) {
		locker := NewAccountLocker()
		account := rand.Int()

		counter := 0
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := locker.Lock(account); !assert.NoError(t, err) {
					return
				}
				defer locker.Unlock(account)
				counter++
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, counter)
	})

	t.Run("busy on timeout", func(t *testing.T) {
		locker := NewAccountLocker(WithTimeout(10 * time.Millisecond))
		account := rand.Int()
		if err := locker.Lock(account); !assert.NoError(t, err) {
			return
		}
		defer locker.Unlock(account)

		err := locker.Lock(account)
		if !assert.Error(t, err) {
			return
		}
		assert.Equal(t, ledger.CodeBusy, ledger.CodeOf(err))
	})

	t.Run("independent accounts do not block", func(t *testing.T) {
		locker := NewAccountLocker(WithTimeout(10 * time.Millisecond))
		if err := locker.Lock(1); !assert.NoError(t, err) {
			return
		}
		defer locker.Unlock(1)
		if err := locker.Lock(2); !assert.NoError(t, err) {
			return
		}
		locker.Unlock(2)
	})
}

func Test_AccountLocker_LockPair(t *testing.T) {
	t.Run("no deadlock with reversed pairs", func(t *testing.T) {
		locker := NewAccountLocker()
		transfers := 0
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			from, to := 1, 2
			if i%2 == 0 {
				from, to = to, from
			}
			wg.Add(1)
			go func(from, to int) {
				defer wg.Done()
				if err := locker.LockPair(from, to); !assert.NoError(t, err) {
					return
				}
				defer locker.UnlockPair(from, to)
				transfers++
			}(from, to)
		}
		wg.Wait()
		assert.Equal(t, 100, transfers)
	})

	t.Run("releases first lock when second times out", func(t *testing.T) {
		locker := NewAccountLocker(WithTimeout(10 * time.Millisecond))
		if err := locker.Lock(2); !assert.NoError(t, err) {
			return
		}
		defer locker.Unlock(2)

		err := locker.LockPair(1, 2)
		if !assert.Error(t, err) {
			return
		}
		assert.Equal(t, ledger.CodeBusy, ledger.CodeOf(err))

		// account 1 must have been released by the failed pair acquisition
		if err := locker.Lock(1); !assert.NoError(t, err) {
			return
		}
		locker.Unlock(1)
	})
}
