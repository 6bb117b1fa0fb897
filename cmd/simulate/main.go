package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/evgeny-myasishchev/ledger.bank-store/pkg/bank"
	"github.com/evgeny-myasishchev/ledger.bank-store/pkg/ledger"
	"github.com/evgeny-myasishchev/ledger.bank-store/pkg/locking"

	"github.com/evgeny-myasishchev/ledger.bank-store/config"
	"github.com/evgeny-myasishchev/ledger.bank-store/pkg/diag"
	uuid "github.com/satori/go.uuid"
)

var logger = diag.CreateLogger()

var cliArgs struct {
	customers int
	accounts  int
	ops       int
}

func init() {
	flag.IntVar(&cliArgs.customers, "customers", 5, "Number of concurrent customer emulators")
	flag.IntVar(&cliArgs.accounts, "accounts", 10, "Number of accounts to operate on")
	flag.IntVar(&cliArgs.ops, "ops", 100, "Number of operations each customer performs")

	flag.Parse()
}

// checks aggregates pass/fail results of all emulators
type checks struct {
	mu    sync.Mutex
	total int
	ok    int
}

func (c *checks) check(name string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total++
	if ok {
		c.ok++
		return
	}
	fmt.Printf("%v: FAILED\n", name)
}

func (c *checks) summary() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total, c.ok
}

// customerEmulator issues a random mix of operations against its own
// service instance. No two customers share a service.
type customerEmulator struct {
	svc    *bank.Service
	user   string
	checks *checks
}

func (e *customerEmulator) randAccount() int {
	return rand.Intn(cliArgs.accounts) + 1
}

func (e *customerEmulator) run(ctx context.Context) {
	logger.Info(ctx, "%v: starting", e.user)
	defer e.svc.Close()
	for i := 0; i < cliArgs.ops; i++ {
		account := e.randAccount()
		switch rand.Intn(5) {
		case 0:
			amount := int64(rand.Intn(10000) + 1)
			_, err := e.svc.AddBalance(ctx, account, amount)
			e.checks.check(fmt.Sprintf("%v: addBalance(%v, %v)", e.user, account, amount), err == nil)
		case 1:
			// withdrawals deliberately overdraw sometimes
			amount := -int64(rand.Intn(20000) + 1)
			_, err := e.svc.AddBalance(ctx, account, amount)
			e.checks.check(
				fmt.Sprintf("%v: addBalance(%v, %v)", e.user, account, amount),
				err == nil || ledger.IsCode(err, ledger.CodeInsufficientFunds),
			)
		case 2:
			if cliArgs.accounts < 2 {
				continue
			}
			// argument order is intentionally arbitrary to attack lock ordering
			to := e.randAccount()
			if to == account {
				to = to%cliArgs.accounts + 1
			}
			amount := int64(rand.Intn(5000) + 1)
			err := e.svc.Transfer(ctx, account, to, amount)
			e.checks.check(
				fmt.Sprintf("%v: transfer(%v, %v, %v)", e.user, account, to, amount),
				err == nil || ledger.IsCode(err, ledger.CodeInsufficientFunds),
			)
		case 3:
			balance, err := e.svc.Balance(ctx, account)
			e.checks.check(fmt.Sprintf("%v: getBalance(%v)", e.user, account), err == nil && balance >= 0)
		case 4:
			_, err := e.svc.Operations(ctx, account, nil, nil)
			e.checks.check(fmt.Sprintf("%v: getOperations(%v)", e.user, account), err == nil)
		}
	}
	logger.Info(ctx, "%v: exiting", e.user)
}

// verify asserts the standing ledger invariants once all emulators are done
func verify(ctx context.Context, svc *bank.Service, result *checks) {
	for account := 1; account <= cliArgs.accounts; account++ {
		balance, err := svc.Balance(ctx, account)
		if err != nil {
			result.check(fmt.Sprintf("verify: getBalance(%v)", account), false)
			continue
		}
		result.check(fmt.Sprintf("verify: balance(%v) >= 0", account), balance >= 0)

		operations, err := svc.Operations(ctx, account, nil, nil)
		if err != nil {
			result.check(fmt.Sprintf("verify: getOperations(%v)", account), false)
			continue
		}
		var sum int64
		for _, op := range operations {
			sum += op.Amount
		}
		result.check(fmt.Sprintf("verify: balance(%v) == sum of operations", account), balance == sum)
	}
}

func main() {
	rand.Seed(time.Now().Unix())
	ctx := diag.ContextWithRequestID(context.Background(), uuid.NewV4().String())

	appCfg, err := config.LoadAppConfig()
	if err != nil {
		logger.WithError(err).Error(ctx, "Failed to load app config")
		os.Exit(1)
	}

	diag.SetupLoggingSystem(func(setup diag.LoggingSystemSetup) {
		setup.SetLogLevel(appCfg.Log.Level)
	})

	lockTimeout, err := appCfg.Locking.LockTimeout()
	if err != nil {
		logger.WithError(err).Error(ctx, "Bad locking config")
		os.Exit(1)
	}
	// all service instances share one backend and thus one locker
	locker := locking.NewAccountLocker(locking.WithTimeout(lockTimeout))

	openService := func() *bank.Service {
		svc, err := bank.Open(appCfg.Storage.Driver, appCfg.Storage.DSN, bank.WithLocker(locker))
		if err != nil {
			logger.WithError(err).Error(ctx, "Failed to open service")
			os.Exit(1)
		}
		return svc
	}

	admin := openService()
	defer admin.Close()
	if err := admin.SetupSchema(ctx); err != nil {
		logger.WithError(err).Error(ctx, "Failed to setup schema")
		os.Exit(1)
	}
	for account := 1; account <= cliArgs.accounts; account++ {
		if _, err := admin.CreateAccount(ctx, account); err != nil {
			logger.WithError(err).Error(ctx, "Failed to create account %v", account)
			os.Exit(1)
		}
		if _, err := admin.AddBalance(ctx, account, 100000); err != nil {
			logger.WithError(err).Error(ctx, "Failed to seed account %v", account)
			os.Exit(1)
		}
	}

	result := &checks{}
	var wg sync.WaitGroup
	for i := 0; i < cliArgs.customers; i++ {
		emulator := &customerEmulator{
			svc:    openService(),
			user:   fmt.Sprintf("customer-%v", i+1),
			checks: result,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			emulator.run(ctx)
		}()
	}
	wg.Wait()

	verify(ctx, admin, result)

	total, ok := result.summary()
	fmt.Printf("checks: %v/%v ok\n", ok, total)
	if ok != total {
		os.Exit(1)
	}
}
