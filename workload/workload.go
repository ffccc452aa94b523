// Package workload is the business layer of the demo system: every unit of
// business work is a transaction body run through the coordinator's retry
// loop. Bodies are idempotent under restart and perform no external side
// effects.
package workload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leftmike/duet/engine"
	"github.com/leftmike/duet/sql"
)

var (
	ErrNotFound          = errors.New("workload: not found")
	ErrInsufficientFunds = errors.New("workload: insufficient funds")
	ErrInsufficientStock = errors.New("workload: insufficient stock")
)

type Service struct {
	e *engine.Engine
}

func NewService(e *engine.Engine) *Service {
	return &Service{e: e}
}

type Account struct {
	ID      int64
	UserID  int64
	Type    string
	Balance float64
}

type Product struct {
	ID         int64
	CategoryID int64
	Name       string
	Price      float64
	Stock      int64
}

type OrderItem struct {
	ProductID int64
	Qty       int64
}

func accountFromRow(row []sql.Value) Account {
	return Account{
		ID:      int64(row[0].(sql.Int64Value)),
		UserID:  int64(row[1].(sql.Int64Value)),
		Type:    string(row[2].(sql.StringValue)),
		Balance: float64(row[3].(sql.Float64Value)),
	}
}

func productFromRow(row []sql.Value) Product {
	return Product{
		ID:         int64(row[0].(sql.Int64Value)),
		CategoryID: int64(row[1].(sql.Int64Value)),
		Name:       string(row[2].(sql.StringValue)),
		Price:      float64(row[3].(sql.Float64Value)),
		Stock:      int64(row[4].(sql.Int64Value)),
	}
}

func (svc *Service) CreateUser(ctx context.Context, id int64, username,
	email string) error {

	return svc.e.Run(ctx,
		func(tx *engine.Tx) error {
			_, err := tx.Insert(ctx, sql.FINANCIAL, sql.USERS,
				[]sql.Value{sql.Int64Value(id), sql.StringValue(username),
					sql.StringValue(email)})
			return err
		})
}

func (svc *Service) CreateAccount(ctx context.Context, id, userID int64, typ string,
	balance float64) error {

	return svc.e.Run(ctx,
		func(tx *engine.Tx) error {
			row, err := tx.Read(ctx, sql.FINANCIAL, sql.USERS, sql.Int64Value(userID))
			if err != nil {
				return err
			}
			if row == nil {
				return fmt.Errorf("%w: user %d", ErrNotFound, userID)
			}
			_, err = tx.Insert(ctx, sql.FINANCIAL, sql.ACCOUNTS,
				[]sql.Value{sql.Int64Value(id), sql.Int64Value(userID),
					sql.StringValue(typ), sql.Float64Value(balance)})
			return err
		})
}

func (svc *Service) GetAccount(ctx context.Context, id int64) (Account, error) {
	var act Account
	err := svc.e.Run(ctx,
		func(tx *engine.Tx) error {
			row, err := tx.Read(ctx, sql.FINANCIAL, sql.ACCOUNTS, sql.Int64Value(id))
			if err != nil {
				return err
			}
			if row == nil {
				return fmt.Errorf("%w: account %d", ErrNotFound, id)
			}
			act = accountFromRow(row)
			return nil
		})
	return act, err
}

// UserAccounts returns the user's accounts in account id order.
func (svc *Service) UserAccounts(ctx context.Context, userID int64) ([]Account, error) {
	var accounts []Account
	err := svc.e.Run(ctx,
		func(tx *engine.Tx) error {
			accounts = nil
			rows, err := tx.Scan(ctx, sql.FINANCIAL, sql.ACCOUNTS,
				func(row []sql.Value) bool {
					return sql.Compare(row[1], sql.Int64Value(userID)) == 0
				})
			if err != nil {
				return err
			}
			for _, row := range rows {
				accounts = append(accounts, accountFromRow(row))
			}
			return nil
		})
	return accounts, err
}

func auditRow(accountID int64, kind string, amount float64) []sql.Value {
	return []sql.Value{nil, sql.Int64Value(accountID), sql.StringValue(kind),
		sql.Float64Value(amount), sql.TimeValue(time.Now())}
}

// Transfer moves amount between two accounts and records an audit row for
// each side.
func (svc *Service) Transfer(ctx context.Context, fromID, toID int64,
	amount float64) error {

	return svc.e.Run(ctx,
		func(tx *engine.Tx) error {
			fromRow, err := tx.Read(ctx, sql.FINANCIAL, sql.ACCOUNTS,
				sql.Int64Value(fromID))
			if err != nil {
				return err
			}
			if fromRow == nil {
				return fmt.Errorf("%w: account %d", ErrNotFound, fromID)
			}
			from := accountFromRow(fromRow)
			if from.Balance < amount {
				return fmt.Errorf("%w: account %d has %v; want %v", ErrInsufficientFunds,
					fromID, from.Balance, amount)
			}

			toRow, err := tx.Read(ctx, sql.FINANCIAL, sql.ACCOUNTS, sql.Int64Value(toID))
			if err != nil {
				return err
			}
			if toRow == nil {
				return fmt.Errorf("%w: account %d", ErrNotFound, toID)
			}
			to := accountFromRow(toRow)

			err = tx.Update(ctx, sql.FINANCIAL, sql.ACCOUNTS, sql.Int64Value(fromID),
				[]sql.ColumnUpdate{{Column: sql.BALANCE,
					Value: sql.Float64Value(from.Balance - amount)}})
			if err != nil {
				return err
			}
			err = tx.Update(ctx, sql.FINANCIAL, sql.ACCOUNTS, sql.Int64Value(toID),
				[]sql.ColumnUpdate{{Column: sql.BALANCE,
					Value: sql.Float64Value(to.Balance + amount)}})
			if err != nil {
				return err
			}

			_, err = tx.Insert(ctx, sql.FINANCIAL, sql.TRANSACTIONS,
				auditRow(fromID, "transfer_out", amount))
			if err != nil {
				return err
			}
			_, err = tx.Insert(ctx, sql.FINANCIAL, sql.TRANSACTIONS,
				auditRow(toID, "transfer_in", amount))
			return err
		})
}

func (svc *Service) Deposit(ctx context.Context, accountID int64, amount float64) error {
	return svc.adjustBalance(ctx, accountID, amount, "deposit")
}

func (svc *Service) Withdraw(ctx context.Context, accountID int64, amount float64) error {
	return svc.adjustBalance(ctx, accountID, -amount, "withdrawal")
}

func (svc *Service) adjustBalance(ctx context.Context, accountID int64, amount float64,
	kind string) error {

	return svc.e.Run(ctx,
		func(tx *engine.Tx) error {
			row, err := tx.Read(ctx, sql.FINANCIAL, sql.ACCOUNTS,
				sql.Int64Value(accountID))
			if err != nil {
				return err
			}
			if row == nil {
				return fmt.Errorf("%w: account %d", ErrNotFound, accountID)
			}
			act := accountFromRow(row)
			if act.Balance+amount < 0 {
				return fmt.Errorf("%w: account %d has %v; want %v", ErrInsufficientFunds,
					accountID, act.Balance, -amount)
			}

			err = tx.Update(ctx, sql.FINANCIAL, sql.ACCOUNTS, sql.Int64Value(accountID),
				[]sql.ColumnUpdate{{Column: sql.BALANCE,
					Value: sql.Float64Value(act.Balance + amount)}})
			if err != nil {
				return err
			}
			_, err = tx.Insert(ctx, sql.FINANCIAL, sql.TRANSACTIONS,
				auditRow(accountID, kind, amount))
			return err
		})
}

func (svc *Service) CreateCategory(ctx context.Context, id int64, name string,
	parentID sql.Value) error {

	return svc.e.Run(ctx,
		func(tx *engine.Tx) error {
			_, err := tx.Insert(ctx, sql.INVENTORY, sql.CATEGORIES,
				[]sql.Value{sql.Int64Value(id), sql.StringValue(name), parentID})
			return err
		})
}

func (svc *Service) CreateProduct(ctx context.Context, id, categoryID int64, name string,
	price float64, stock int64) error {

	return svc.e.Run(ctx,
		func(tx *engine.Tx) error {
			row, err := tx.Read(ctx, sql.INVENTORY, sql.CATEGORIES,
				sql.Int64Value(categoryID))
			if err != nil {
				return err
			}
			if row == nil {
				return fmt.Errorf("%w: category %d", ErrNotFound, categoryID)
			}
			_, err = tx.Insert(ctx, sql.INVENTORY, sql.PRODUCTS,
				[]sql.Value{sql.Int64Value(id), sql.Int64Value(categoryID),
					sql.StringValue(name), sql.Float64Value(price), sql.Int64Value(stock)})
			return err
		})
}

func (svc *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	var prd Product
	err := svc.e.Run(ctx,
		func(tx *engine.Tx) error {
			row, err := tx.Read(ctx, sql.INVENTORY, sql.PRODUCTS, sql.Int64Value(id))
			if err != nil {
				return err
			}
			if row == nil {
				return fmt.Errorf("%w: product %d", ErrNotFound, id)
			}
			prd = productFromRow(row)
			return nil
		})
	return prd, err
}

// UpdateStock adjusts a product's stock by delta, failing rather than going
// negative.
func (svc *Service) UpdateStock(ctx context.Context, productID, delta int64) error {
	return svc.e.Run(ctx,
		func(tx *engine.Tx) error {
			row, err := tx.Read(ctx, sql.INVENTORY, sql.PRODUCTS,
				sql.Int64Value(productID))
			if err != nil {
				return err
			}
			if row == nil {
				return fmt.Errorf("%w: product %d", ErrNotFound, productID)
			}
			prd := productFromRow(row)
			if prd.Stock+delta < 0 {
				return fmt.Errorf("%w: product %d has %d; want %d", ErrInsufficientStock,
					productID, prd.Stock, -delta)
			}
			return tx.Update(ctx, sql.INVENTORY, sql.PRODUCTS, sql.Int64Value(productID),
				[]sql.ColumnUpdate{{Column: sql.STOCK,
					Value: sql.Int64Value(prd.Stock + delta)}})
		})
}

// PlaceOrder is the cross store distributed transaction: it inserts the
// order and its items in the inventory store, decrements product stock, and
// debits the payment account in the financial store, all or nothing.
func (svc *Service) PlaceOrder(ctx context.Context, userID, accountID int64,
	items []OrderItem) (int64, error) {

	var orderID int64
	err := svc.e.Run(ctx,
		func(tx *engine.Tx) error {
			userRow, err := tx.Read(ctx, sql.FINANCIAL, sql.USERS, sql.Int64Value(userID))
			if err != nil {
				return err
			}
			if userRow == nil {
				return fmt.Errorf("%w: user %d", ErrNotFound, userID)
			}

			actRow, err := tx.Read(ctx, sql.FINANCIAL, sql.ACCOUNTS,
				sql.Int64Value(accountID))
			if err != nil {
				return err
			}
			if actRow == nil {
				return fmt.Errorf("%w: account %d", ErrNotFound, accountID)
			}
			act := accountFromRow(actRow)

			var total float64
			products := make([]Product, 0, len(items))
			for _, item := range items {
				row, err := tx.Read(ctx, sql.INVENTORY, sql.PRODUCTS,
					sql.Int64Value(item.ProductID))
				if err != nil {
					return err
				}
				if row == nil {
					return fmt.Errorf("%w: product %d", ErrNotFound, item.ProductID)
				}
				prd := productFromRow(row)
				if prd.Stock < item.Qty {
					return fmt.Errorf("%w: product %s has %d; want %d",
						ErrInsufficientStock, prd.Name, prd.Stock, item.Qty)
				}
				total += prd.Price * float64(item.Qty)
				products = append(products, prd)
			}

			if act.Balance < total {
				return fmt.Errorf("%w: account %d has %v; want %v", ErrInsufficientFunds,
					accountID, act.Balance, total)
			}

			pk, err := tx.Insert(ctx, sql.INVENTORY, sql.ORDERS,
				[]sql.Value{nil, sql.Int64Value(userID), sql.StringValue("pending"),
					sql.Float64Value(total), sql.TimeValue(time.Now())})
			if err != nil {
				return err
			}
			orderID = int64(pk.(sql.Int64Value))

			for idx, item := range items {
				prd := products[idx]
				_, err = tx.Insert(ctx, sql.INVENTORY, sql.ORDER_ITEMS,
					[]sql.Value{nil, sql.Int64Value(orderID), sql.Int64Value(prd.ID),
						sql.Int64Value(item.Qty), sql.Float64Value(prd.Price)})
				if err != nil {
					return err
				}
				err = tx.Update(ctx, sql.INVENTORY, sql.PRODUCTS, sql.Int64Value(prd.ID),
					[]sql.ColumnUpdate{{Column: sql.STOCK,
						Value: sql.Int64Value(prd.Stock - item.Qty)}})
				if err != nil {
					return err
				}
			}

			err = tx.Update(ctx, sql.FINANCIAL, sql.ACCOUNTS, sql.Int64Value(accountID),
				[]sql.ColumnUpdate{{Column: sql.BALANCE,
					Value: sql.Float64Value(act.Balance - total)}})
			if err != nil {
				return err
			}
			_, err = tx.Insert(ctx, sql.FINANCIAL, sql.TRANSACTIONS,
				auditRow(accountID, "order_payment", total))
			return err
		})
	return orderID, err
}
