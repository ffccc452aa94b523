package workload

import (
	"context"

	"github.com/leftmike/duet/sql"
)

type seedUser struct {
	id       int64
	username string
	email    string
}

type seedAccount struct {
	id      int64
	userID  int64
	typ     string
	balance float64
}

type seedProduct struct {
	id         int64
	categoryID int64
	name       string
	price      float64
	stock      int64
}

var (
	seedUsers = []seedUser{
		{1, "alice", "alice@example.com"},
		{2, "bob", "bob@example.com"},
		{3, "carol", "carol@example.com"},
	}
	seedAccounts = []seedAccount{
		{1, 1, "checking", 1000},
		{2, 1, "savings", 5000},
		{3, 2, "checking", 750},
		{4, 3, "checking", 250},
	}
	seedCategories = []struct {
		id       int64
		name     string
		parentID sql.Value
	}{
		{1, "electronics", nil},
		{2, "books", nil},
		{3, "laptops", sql.Int64Value(1)},
	}
	seedProducts = []seedProduct{
		{1, 3, "ultralight laptop", 1299.99, 12},
		{2, 1, "noise cancelling headphones", 199.99, 40},
		{3, 2, "database internals", 49.99, 80},
	}
)

// Seed preloads the demo data set through ordinary transactions.
func (svc *Service) Seed(ctx context.Context) error {
	for _, u := range seedUsers {
		if err := svc.CreateUser(ctx, u.id, u.username, u.email); err != nil {
			return err
		}
	}
	for _, a := range seedAccounts {
		if err := svc.CreateAccount(ctx, a.id, a.userID, a.typ, a.balance); err != nil {
			return err
		}
	}
	for _, c := range seedCategories {
		if err := svc.CreateCategory(ctx, c.id, c.name, c.parentID); err != nil {
			return err
		}
	}
	for _, p := range seedProducts {
		err := svc.CreateProduct(ctx, p.id, p.categoryID, p.name, p.price, p.stock)
		if err != nil {
			return err
		}
	}
	return nil
}
