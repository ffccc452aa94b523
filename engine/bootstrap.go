package engine

import (
	"github.com/leftmike/duet/sql"
	"github.com/leftmike/duet/storage"
)

type tableDef struct {
	store    sql.Identifier
	name     sql.Identifier
	columns  []sql.Identifier
	colTypes []sql.ColumnType
	indexes  []storage.IndexSpec
}

var bootstrapTables = []tableDef{
	{
		store:    sql.FINANCIAL,
		name:     sql.USERS,
		columns:  []sql.Identifier{sql.IDCOL, sql.USERNAME, sql.EMAIL},
		colTypes: []sql.ColumnType{sql.IdColType, sql.StringColType, sql.NullStringColType},
		indexes:  []storage.IndexSpec{{Column: sql.USERNAME, Unique: true}},
	},
	{
		store:   sql.FINANCIAL,
		name:    sql.ACCOUNTS,
		columns: []sql.Identifier{sql.IDCOL, sql.USER_ID, sql.TYPE, sql.BALANCE},
		colTypes: []sql.ColumnType{sql.IdColType, sql.Int64ColType, sql.StringColType,
			sql.Float64ColType},
		indexes: []storage.IndexSpec{{Column: sql.USER_ID}},
	},
	{
		store:   sql.FINANCIAL,
		name:    sql.TRANSACTIONS,
		columns: []sql.Identifier{sql.IDCOL, sql.ACCOUNT_ID, sql.KIND, sql.AMOUNT, sql.TS},
		colTypes: []sql.ColumnType{sql.IdColType, sql.Int64ColType, sql.StringColType,
			sql.Float64ColType, sql.TimeColType},
		indexes: []storage.IndexSpec{{Column: sql.ACCOUNT_ID}},
	},
	{
		store:    sql.INVENTORY,
		name:     sql.CATEGORIES,
		columns:  []sql.Identifier{sql.IDCOL, sql.NAME, sql.PARENT_ID},
		colTypes: []sql.ColumnType{sql.IdColType, sql.StringColType, sql.NullInt64ColType},
		indexes: []storage.IndexSpec{{Column: sql.NAME, Unique: true},
			{Column: sql.PARENT_ID}},
	},
	{
		store:   sql.INVENTORY,
		name:    sql.PRODUCTS,
		columns: []sql.Identifier{sql.IDCOL, sql.CATEGORY_ID, sql.NAME, sql.PRICE, sql.STOCK},
		colTypes: []sql.ColumnType{sql.IdColType, sql.Int64ColType, sql.StringColType,
			sql.Float64ColType, sql.Int64ColType},
		indexes: []storage.IndexSpec{{Column: sql.CATEGORY_ID}},
	},
	{
		store:   sql.INVENTORY,
		name:    sql.ORDERS,
		columns: []sql.Identifier{sql.IDCOL, sql.USER_ID, sql.STATUS, sql.TOTAL, sql.TS},
		colTypes: []sql.ColumnType{sql.IdColType, sql.Int64ColType, sql.StringColType,
			sql.Float64ColType, sql.TimeColType},
		indexes: []storage.IndexSpec{{Column: sql.USER_ID}},
	},
	{
		store: sql.INVENTORY,
		name:  sql.ORDER_ITEMS,
		columns: []sql.Identifier{sql.IDCOL, sql.ORDER_ID, sql.PRODUCT_ID, sql.QTY,
			sql.UNIT_PRICE},
		colTypes: []sql.ColumnType{sql.IdColType, sql.Int64ColType, sql.Int64ColType,
			sql.Int64ColType, sql.Float64ColType},
		indexes: []storage.IndexSpec{{Column: sql.ORDER_ID}, {Column: sql.PRODUCT_ID}},
	},
}

// bootstrap installs the fixed schema: the financial and inventory stores
// and their tables.
func (e *Engine) bootstrap() error {
	for _, snam := range []sql.Identifier{sql.FINANCIAL, sql.INVENTORY} {
		_, err := e.CreateStore(snam)
		if err != nil {
			return err
		}
	}

	for _, td := range bootstrapTables {
		st, err := e.Store(td.store)
		if err != nil {
			return err
		}
		err = st.CreateTable(td.name, td.columns, td.colTypes, sql.IDCOL, td.indexes)
		if err != nil {
			return err
		}
	}
	return nil
}
