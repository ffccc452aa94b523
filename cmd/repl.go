package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/leftmike/duet/engine"
	"github.com/leftmike/duet/sql"
	"github.com/leftmike/duet/workload"
)

var (
	replCmd = &cobra.Command{
		Use:   "repl",
		Short: "Run an interactive console session",
		RunE:  replRun,
	}
)

const (
	duetHistory = ".duet_history"

	replHelp = `commands:
  read <store> <table> <pk>        read one row
  scan <store> <table>             list a table
  transfer <from> <to> <amount>    move money between accounts
  deposit <account> <amount>       credit an account
  withdraw <account> <amount>      debit an account
  order <user> <account> <product> <qty>
                                   place an order
  stats                            show engine statistics
  help                             show this help
  quit                             exit
`
)

func init() {
	duetCmd.AddCommand(replCmd)
}

func replRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	e := engine.NewEngine(engine.DefaultOptions())
	err := e.Start()
	if err != nil {
		return err
	}
	defer e.Stop()

	svc := workload.NewService(e)
	err = svc.Seed(ctx)
	if err != nil {
		return err
	}

	line := liner.NewLiner()
	defer line.Close()

	if f, err := os.Open(duetHistory); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(duetHistory); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		s, err := line.Prompt("duet: ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		line.AppendHistory(s)

		if s == "quit" || s == "exit" {
			return nil
		}
		err = replDispatch(ctx, e, svc, strings.Fields(s))
		if err != nil {
			fmt.Println(err)
		}
	}
}

func replDispatch(ctx context.Context, e *engine.Engine, svc *workload.Service,
	fields []string) error {

	switch fields[0] {
	case "help":
		fmt.Print(replHelp)
		return nil
	case "stats":
		printStats(e)
		return nil
	case "read":
		if len(fields) != 4 {
			return fmt.Errorf("duet: read <store> <table> <pk>")
		}
		pk, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return err
		}
		return e.Run(ctx,
			func(tx *engine.Tx) error {
				row, err := tx.Read(ctx, sql.ID(fields[1]), sql.ID(fields[2]),
					sql.Int64Value(pk))
				if err != nil {
					return err
				}
				if row == nil {
					fmt.Println("not found")
					return nil
				}
				for _, v := range row {
					fmt.Printf("%s ", sql.Format(v))
				}
				fmt.Println()
				return nil
			})
	case "scan":
		if len(fields) != 3 {
			return fmt.Errorf("duet: scan <store> <table>")
		}
		return printTable(ctx, e, sql.ID(fields[1]), sql.ID(fields[2]))
	case "transfer":
		args, err := replInts(fields[1:], 3)
		if err != nil {
			return err
		}
		return svc.Transfer(ctx, args[0], args[1], float64(args[2]))
	case "deposit":
		args, err := replInts(fields[1:], 2)
		if err != nil {
			return err
		}
		return svc.Deposit(ctx, args[0], float64(args[1]))
	case "withdraw":
		args, err := replInts(fields[1:], 2)
		if err != nil {
			return err
		}
		return svc.Withdraw(ctx, args[0], float64(args[1]))
	case "order":
		args, err := replInts(fields[1:], 4)
		if err != nil {
			return err
		}
		orderID, err := svc.PlaceOrder(ctx, args[0], args[1],
			[]workload.OrderItem{{ProductID: args[2], Qty: args[3]}})
		if err != nil {
			return err
		}
		fmt.Printf("order %d placed\n", orderID)
		return nil
	}
	return fmt.Errorf("duet: unknown command: %s", fields[0])
}

func replInts(fields []string, n int) ([]int64, error) {
	if len(fields) != n {
		return nil, fmt.Errorf("duet: expected %d arguments; got %d", n, len(fields))
	}
	args := make([]int64, n)
	for idx, f := range fields {
		i, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, err
		}
		args[idx] = i
	}
	return args, nil
}
