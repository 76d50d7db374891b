package sqlbuilderutil

import (
	"fmt"
	"strings"

	"fknsrs.biz/p/reflectutil"
	"fknsrs.biz/p/sqlbuilder"

	"github.com/usuwarium/usuwarium/internal/stringutil"
)

// Table wraps a sqlbuilder table so columns can be addressed by Go field
// name as well as by column name.
type Table struct {
	*sqlbuilder.Table
	columns map[string]string
}

func (t *Table) C(name string) *sqlbuilder.BasicColumn {
	if column, ok := t.columns[name]; ok {
		name = column
	}

	return t.Table.C(name)
}

// MakeTable builds a Table from a record struct. The table name comes from
// the "table" parameter of the sql tag on any field; column names come from
// the sql tag value, or the snake_cased field name.
func MakeTable(record interface{}) (*Table, error) {
	description, err := reflectutil.GetDescription(record)
	if err != nil {
		return nil, fmt.Errorf("sqlbuilderutil.MakeTable: could not describe record: %w", err)
	}

	tableName := ""
	columns := make(map[string]string)

	var columnNames []string

	for _, field := range description.Fields().WithoutTagValue("sql", "-") {
		sqlTag := field.Tag("sql")

		if sqlTag != nil {
			if p := sqlTag.Parameter("table"); p != nil {
				tableName = p.Value()
			}
		}

		column := stringutil.PascalToSnake(field.Name())
		if sqlTag != nil && sqlTag.Value() != "" {
			column = sqlTag.Value()
		}

		columnNames = append(columnNames, column)

		columns[field.Name()] = column
		columns[strings.ToLower(field.Name())] = column
		columns[column] = column
	}

	if tableName == "" {
		tableName = stringutil.PascalToSnake(description.Name())
	}

	return &Table{
		Table:   sqlbuilder.NewTable(tableName, columnNames...),
		columns: columns,
	}, nil
}

func MustMakeTable(record interface{}) *Table {
	t, err := MakeTable(record)
	if err != nil {
		panic(err)
	}

	return t
}
