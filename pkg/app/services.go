package app

import (
	"database/sql"

	"github.com/evgeny-myasishchev/ledger.bank-store/pkg/bank"

	"github.com/evgeny-myasishchev/ledger.bank-store/pkg/dal"

	"github.com/evgeny-myasishchev/ledger.bank-store/pkg/locking"

	"go.uber.org/dig"

	"github.com/evgeny-myasishchev/ledger.bank-store/config"
)

// Injector is a function that will inject desired services
// to a target function
type Injector func(function interface{}) error

// BootstrapServices setup di container with all app services
func BootstrapServices(appCfg *config.AppConfig) Injector {
	c := dig.New()

	c.Provide(func() (*sql.DB, error) {
		return sql.Open(appCfg.Storage.Driver, appCfg.Storage.DSN)
	})

	c.Provide(func(db *sql.DB) (dal.Storage, error) {
		return dal.NewSQLStorage(dal.WithSQLDb(db))
	})

	c.Provide(func() (*locking.AccountLocker, error) {
		timeout, err := appCfg.Locking.LockTimeout()
		if err != nil {
			return nil, err
		}
		return locking.NewAccountLocker(locking.WithTimeout(timeout)), nil
	})

	c.Provide(func(storage dal.Storage, locker *locking.AccountLocker) *bank.Service {
		return bank.NewService(
			bank.WithStorage(storage),
			bank.WithLocker(locker),
		)
	})

	return func(function interface{}) error {
		return c.Invoke(function)
	}
}
