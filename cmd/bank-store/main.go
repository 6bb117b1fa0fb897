package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/evgeny-myasishchev/ledger.bank-store/pkg/bank"
	"github.com/evgeny-myasishchev/ledger.bank-store/pkg/ledger"

	"github.com/evgeny-myasishchev/ledger.bank-store/pkg/app"

	"github.com/evgeny-myasishchev/ledger.bank-store/config"
	"github.com/evgeny-myasishchev/ledger.bank-store/pkg/diag"
	uuid "github.com/satori/go.uuid"
)

var logger = diag.CreateLogger()

var cliArgs struct {
	cmd     string
	account int
	from    int
	to      int
	amount  string
	since   string
	until   string
}

func init() {
	flag.StringVar(&cliArgs.cmd, "cmd", "", "Command to run. Available commands: setup, create, balance, add, transfer, history")
	flag.IntVar(&cliArgs.account, "account", 0, "Account number (create, balance, add, history)")
	flag.IntVar(&cliArgs.from, "from", 0, "Account to debit (transfer)")
	flag.IntVar(&cliArgs.to, "to", 0, "Account to credit (transfer)")
	flag.StringVar(&cliArgs.amount, "amount", "", "Amount, e.g. 12.34. Negative values withdraw (add)")
	flag.StringVar(&cliArgs.since, "since", "", "History start time, RFC3339 (history)")
	flag.StringVar(&cliArgs.until, "until", "", "History end time, RFC3339 (history)")

	flag.Parse()
}

func showHelpAndExit() {
	flag.PrintDefaults()
	os.Exit(1)
}

func parseTimeArg(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func runCommand(ctx context.Context, svc *bank.Service) error {
	switch cliArgs.cmd {
	case "setup":
		return svc.SetupSchema(ctx)

	case "create":
		created, err := svc.CreateAccount(ctx, cliArgs.account)
		if err != nil {
			return err
		}
		if !created {
			fmt.Printf("Account %v already exists\n", cliArgs.account)
			return nil
		}
		fmt.Printf("Created account %v\n", cliArgs.account)
		return nil

	case "balance":
		balance, err := svc.Balance(ctx, cliArgs.account)
		if err != nil {
			return err
		}
		fmt.Println(ledger.FormatAmount(balance))
		return nil

	case "add":
		amount, err := ledger.ParseAmount(cliArgs.amount)
		if err != nil {
			return err
		}
		balance, err := svc.AddBalance(ctx, cliArgs.account, amount)
		if err != nil {
			return err
		}
		fmt.Printf("New balance: %v\n", ledger.FormatAmount(balance))
		return nil

	case "transfer":
		amount, err := ledger.ParseAmount(cliArgs.amount)
		if err != nil {
			return err
		}
		if err := svc.Transfer(ctx, cliArgs.from, cliArgs.to, amount); err != nil {
			return err
		}
		fmt.Printf("Transferred %v from %v to %v\n", cliArgs.amount, cliArgs.from, cliArgs.to)
		return nil

	case "history":
		since, err := parseTimeArg(cliArgs.since)
		if err != nil {
			return err
		}
		until, err := parseTimeArg(cliArgs.until)
		if err != nil {
			return err
		}
		operations, err := svc.Operations(ctx, cliArgs.account, since, until)
		if err != nil {
			return err
		}
		for _, op := range operations {
			fmt.Printf("%v\t%v\t%v\n", op.ID, op.Date.Format(time.RFC3339), ledger.FormatAmount(op.Amount))
		}
		return nil

	default:
		showHelpAndExit()
		return nil
	}
}

func main() {
	if cliArgs.cmd == "" {
		showHelpAndExit()
	}
	ctx := diag.ContextWithRequestID(context.Background(), uuid.NewV4().String())

	appCfg, err := config.LoadAppConfig()
	if err != nil {
		logger.WithError(err).Error(ctx, "Failed to load app config")
		os.Exit(1)
	}

	diag.SetupLoggingSystem(func(setup diag.LoggingSystemSetup) {
		setup.SetLogLevel(appCfg.Log.Level)
	})

	injector := app.BootstrapServices(appCfg)

	if err := injector(func(svc *bank.Service) error {
		defer svc.Close()
		return runCommand(ctx, svc)
	}); err != nil {
		logger.WithError(err).Error(ctx, "Command failed: %v", cliArgs.cmd)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
