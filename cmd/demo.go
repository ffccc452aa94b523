package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leftmike/duet/engine"
	"github.com/leftmike/duet/sql"
	"github.com/leftmike/duet/workload"
)

var (
	demoCmd = &cobra.Command{
		Use:   "demo",
		Short: "Run a concurrent demo workload",
		RunE:  demoRun,
	}

	demoWorkers   = 8
	demoTransfers = 50
	demoOrders    = 10
)

func initDemoFlags(fs *pflag.FlagSet) {
	fs.IntVar(&demoWorkers, "workers", demoWorkers, "concurrent workers")
	fs.IntVar(&demoTransfers, "transfers", demoTransfers, "transfers per worker")
	fs.IntVar(&demoOrders, "orders", demoOrders, "orders per worker")
}

func init() {
	initDemoFlags(demoCmd.Flags())

	duetCmd.AddCommand(demoCmd)
}

func demoRun(cmd *cobra.Command, args []string) error {
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

	accounts := []int64{1, 2, 3, 4}
	products := []int64{1, 2, 3}

	var wg sync.WaitGroup
	for w := 0; w < demoWorkers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()

			rnd := rand.New(rand.NewSource(int64(w)))
			for t := 0; t < demoTransfers; t++ {
				from := accounts[rnd.Intn(len(accounts))]
				to := accounts[rnd.Intn(len(accounts))]
				if from == to {
					continue
				}
				svc.Transfer(ctx, from, to, float64(1+rnd.Intn(20)))
			}
			for o := 0; o < demoOrders; o++ {
				svc.PlaceOrder(ctx, 1+int64(rnd.Intn(3)), accounts[rnd.Intn(len(accounts))],
					[]workload.OrderItem{
						{ProductID: products[rnd.Intn(len(products))], Qty: 1},
					})
			}
		}(w)
	}
	wg.Wait()

	err = printTable(ctx, e, sql.FINANCIAL, sql.ACCOUNTS)
	if err != nil {
		return err
	}
	err = printTable(ctx, e, sql.INVENTORY, sql.PRODUCTS)
	if err != nil {
		return err
	}
	printStats(e)
	return nil
}

func printTable(ctx context.Context, e *engine.Engine, snam, tnam sql.Identifier) error {
	st, err := e.Store(snam)
	if err != nil {
		return err
	}
	tbl, err := st.LookupTable(tnam)
	if err != nil {
		return err
	}

	var rows [][]sql.Value
	err = e.Run(ctx,
		func(tx *engine.Tx) error {
			var err error
			rows, err = tx.Scan(ctx, snam, tnam, nil)
			return err
		})
	if err != nil {
		return err
	}

	fmt.Printf("%s.%s\n", snam, tnam)
	w := tablewriter.NewWriter(os.Stdout)
	w.SetAutoFormatHeaders(false)
	var header []string
	for _, col := range tbl.Columns() {
		header = append(header, col.String())
	}
	w.SetHeader(header)
	for _, row := range rows {
		var cells []string
		for _, v := range row {
			cells = append(cells, sql.Format(v))
		}
		w.Append(cells)
	}
	w.Render()
	return nil
}

func printStats(e *engine.Engine) {
	stats := e.Stats()

	w := tablewriter.NewWriter(os.Stdout)
	w.SetHeader([]string{"active", "committed", "aborted", "restarts", "deadlocks"})
	w.Append([]string{
		fmt.Sprintf("%d", stats.Active),
		fmt.Sprintf("%d", stats.Committed),
		fmt.Sprintf("%d", stats.Aborted),
		fmt.Sprintf("%d", stats.Restarts),
		fmt.Sprintf("%d", stats.DeadlocksDetected),
	})
	w.Render()
}
