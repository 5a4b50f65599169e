// Package sheet reads and writes header-keyed tables in xlsx workbooks.
package sheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is one worksheet: the first row names the columns.
type Table struct {
	Name    string
	Headers []string
	Rows    []map[string]string
}

// Read loads the named sheets from a workbook. Sheet lookup ignores case and
// surrounding spaces; a missing sheet is an error. Fully blank rows are skipped.
func Read(r io.Reader, names ...string) (map[string]Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	available := make(map[string]string)
	for _, sheetName := range f.GetSheetList() {
		available[normalize(sheetName)] = sheetName
	}

	tables := make(map[string]Table, len(names))
	for _, name := range names {
		actual, ok := available[normalize(name)]
		if !ok {
			return nil, fmt.Errorf("worksheet %q not found", name)
		}
		rows, err := f.GetRows(actual)
		if err != nil {
			return nil, fmt.Errorf("read worksheet %q: %w", actual, err)
		}
		tables[name] = toTable(name, rows)
	}
	return tables, nil
}

// Write renders tables into a new workbook in the given order.
func Write(w io.Writer, tables ...Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("no tables to write")
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, table := range tables {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", table.Name); err != nil {
				return fmt.Errorf("name sheet %q: %w", table.Name, err)
			}
		} else if _, err := f.NewSheet(table.Name); err != nil {
			return fmt.Errorf("add sheet %q: %w", table.Name, err)
		}

		header := make([]interface{}, len(table.Headers))
		for c, h := range table.Headers {
			header[c] = h
		}
		if err := f.SetSheetRow(table.Name, "A1", &header); err != nil {
			return err
		}
		for r, row := range table.Rows {
			values := make([]interface{}, len(table.Headers))
			for c, h := range table.Headers {
				values[c] = row[h]
			}
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(table.Name, cell, &values); err != nil {
				return fmt.Errorf("write %s row %d: %w", table.Name, r+1, err)
			}
		}
	}

	_, err := f.WriteTo(w)
	return err
}

func toTable(name string, rows [][]string) Table {
	table := Table{Name: name}
	if len(rows) == 0 {
		return table
	}
	for _, h := range rows[0] {
		table.Headers = append(table.Headers, strings.TrimSpace(h))
	}
	for _, raw := range rows[1:] {
		row := make(map[string]string, len(table.Headers))
		blank := true
		for i, h := range table.Headers {
			if h == "" || i >= len(raw) {
				continue
			}
			value := strings.TrimSpace(raw[i])
			if value != "" {
				blank = false
			}
			row[h] = value
		}
		if !blank {
			table.Rows = append(table.Rows, row)
		}
	}
	return table
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
