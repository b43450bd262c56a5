// Package cliout renders vaultctl command output as aligned tables.
package cliout

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// Table is an ad-hoc table with a fixed header row.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable starts a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow appends one data row. len(row) should match len(headers).
func (t *Table) AddRow(row ...string) {
	t.rows = append(t.rows, row)
}

// Print renders the table to w.
func (t *Table) Print(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(t.headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, row := range t.rows {
		table.Append(row)
	}
	table.Render()
}

// KeyValue prints a two-column key:value table, e.g. for a "show" command.
func KeyValue(w io.Writer, pairs [][2]string) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator(":")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, pair := range pairs {
		table.Append([]string{pair[0], pair[1]})
	}
	table.Render()
}
