package dal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/evgeny-myasishchev/ledger.bank-store/pkg/diag"
	"github.com/evgeny-myasishchev/ledger.bank-store/pkg/ledger"
	"github.com/pkg/errors"

	sqlite3 "github.com/mattn/go-sqlite3"
)

var logger = diag.CreateLogger()

type sqlStorage struct {
	db *sql.DB
}

// Setup drops and recreates account and operation structures.
// The store is empty when it returns.
func (s *sqlStorage) Setup(ctx context.Context) error {
	logger.Info(ctx, "Setup SQL storage")
	_, err := s.db.ExecContext(ctx, `
DROP TABLE IF EXISTS operation;
DROP TABLE IF EXISTS account;
CREATE TABLE account(
	aid INTEGER NOT NULL PRIMARY KEY,
	balance INTEGER(8) NOT NULL
);
CREATE TABLE operation(
	oid INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id INTEGER NOT NULL,
	amount INTEGER(8) NOT NULL,
	date timestamp NOT NULL,
	FOREIGN KEY (account_id) REFERENCES account(aid)
);
`)
	return errors.Wrap(err, "Failed to setup storage")
}

func (s *sqlStorage) CreateAccount(ctx context.Context, number int) error {
	if _, err := s.db.ExecContext(ctx, `
	INSERT INTO account(aid, balance)
	VALUES($1, 0)
	`, number); err != nil {
		if sqliteErr, ok := err.(sqlite3.Error); ok && sqliteErr.Code == sqlite3.ErrConstraint {
			return ledger.NewError(ledger.CodeAccountAlreadyExists, "Account already exists: %v", number)
		}
		return errors.Wrap(err, "Failed to create account")
	}
	return nil
}

func (s *sqlStorage) AccountBalance(ctx context.Context, number int) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `
	SELECT balance FROM account WHERE aid = $1
	`, number).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, ledger.NewError(ledger.CodeAccountNotFound, "Unknown account: %v", number)
	}
	if err != nil {
		return 0, errors.Wrap(err, "Failed to get balance")
	}
	return balance, nil
}

type sqlMutation struct {
	ctx context.Context
	tx  *sql.Tx
}

func (m *sqlMutation) ApplyDelta(number int, delta int64) (int64, error) {
	// The guard makes the read-modify-write a single indivisible statement,
	// a delta is only applied when it keeps the balance non negative
	res, err := m.tx.ExecContext(m.ctx, `
	UPDATE account SET balance = balance + $1
	WHERE aid = $2 AND balance + $1 >= 0
	`, delta, number)
	if err != nil {
		return 0, errors.Wrap(err, "Failed to update balance")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "Failed to get affected rows")
	}
	var balance int64
	if affected == 0 {
		err := m.tx.QueryRowContext(m.ctx, `SELECT balance FROM account WHERE aid = $1`, number).Scan(&balance)
		if err == sql.ErrNoRows {
			return 0, ledger.NewError(ledger.CodeAccountNotFound, "Unknown account: %v", number)
		}
		if err != nil {
			return 0, errors.Wrap(err, "Failed to get balance")
		}
		return 0, ledger.NewError(ledger.CodeInsufficientFunds,
			"Insufficient funds on account %v: balance %v, delta %v", number, balance, delta)
	}
	if err := m.tx.QueryRowContext(m.ctx, `SELECT balance FROM account WHERE aid = $1`, number).Scan(&balance); err != nil {
		return 0, errors.Wrap(err, "Failed to get new balance")
	}
	return balance, nil
}

func (m *sqlMutation) Append(number int, amount int64, at time.Time) (int64, error) {
	res, err := m.tx.ExecContext(m.ctx, `
	INSERT INTO operation(account_id, amount, date)
	VALUES($1, $2, $3)
	`, number, amount, at)
	if err != nil {
		return 0, errors.Wrap(err, "Failed to append operation")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "Failed to get operation id")
	}
	return id, nil
}

func (s *sqlStorage) Mutate(ctx context.Context, fn func(m Mutation) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "Failed to begin transaction")
	}
	if err := fn(&sqlMutation{ctx: ctx, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.WithError(rbErr).Error(ctx, "Failed to rollback transaction")
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "Failed to commit transaction")
}

func (s *sqlStorage) QueryOperations(ctx context.Context, query OperationsQuery) ([]OperationDTO, error) {
	sqlQuery := `
	SELECT oid, account_id, amount, date
	FROM operation
	WHERE account_id = $1`
	args := []interface{}{query.Account}
	if query.From != nil {
		args = append(args, *query.From)
		sqlQuery += fmt.Sprintf(" AND date >= $%v", len(args))
	}
	if query.To != nil {
		args = append(args, *query.To)
		sqlQuery += fmt.Sprintf(" AND date <= $%v", len(args))
	}
	sqlQuery += " ORDER BY oid"

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to query operations")
	}
	defer rows.Close()

	operations := []OperationDTO{}
	for rows.Next() {
		var op OperationDTO
		if err := rows.Scan(&op.ID, &op.Account, &op.Amount, &op.Date); err != nil {
			return nil, errors.Wrap(err, "Failed to scan operation")
		}
		operations = append(operations, op)
	}
	return operations, errors.Wrap(rows.Err(), "Failed to read operations")
}

func (s *sqlStorage) Close() error {
	return errors.Wrap(s.db.Close(), "Failed to close storage")
}

// SQLStorageOpt is an option of SQL storage
type SQLStorageOpt func(s *sqlStorage)

// WithSQLDb will set an explicit db instance for a storage
func WithSQLDb(db *sql.DB) SQLStorageOpt {
	return func(s *sqlStorage) {
		s.db = db
	}
}

// NewSQLStorage returns an instance of a local storage
func NewSQLStorage(opts ...SQLStorageOpt) (Storage, error) {
	storage := &sqlStorage{}
	for _, opt := range opts {
		opt(storage)
	}
	return storage, nil
}
