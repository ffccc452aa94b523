package sql

import (
	"fmt"
)

type TableName struct {
	Store Identifier
	Table Identifier
}

func (tn TableName) String() string {
	if tn.Store == 0 {
		return tn.Table.String()
	}
	return fmt.Sprintf("%s.%s", tn.Store, tn.Table)
}
