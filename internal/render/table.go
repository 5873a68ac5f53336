// Package render formats ledger contents and run results for the terminal.
package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/thiagokokada/doublegit-go/internal/ledger"
	"github.com/thiagokokada/doublegit-go/internal/status"
)

func HistoryTable(w io.Writer, rows []ledger.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"REF", "KIND", "FROM", "TO", "COMMIT"})
	for _, row := range rows {
		to := "-"
		if row.ToDate != nil {
			to = row.ToDate.Format(ledger.TimeLayout)
		}
		ref := row.Ref()
		t.AppendRow(table.Row{
			ref.FullName(),
			ref.Kind.String(),
			row.FromDate.Format(ledger.TimeLayout),
			to,
			row.CommitID,
		})
	}
	t.Render()
}

func StatusTable(w io.Writer, records []status.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"REPOSITORY", "OUTCOME", "AT", "NEW/CHANGED/REMOVED", "KEPT/DROPPED", "ERROR"})
	for _, r := range records {
		at := "-"
		if !r.At.IsZero() {
			at = r.At.UTC().Format(ledger.TimeLayout)
		}
		t.AppendRow(table.Row{
			r.Repo,
			string(r.Outcome),
			at,
			fmt.Sprintf("%d/%d/%d", r.New, r.Changed, r.Removed),
			fmt.Sprintf("%d/%d", r.KeepersCreated, r.KeepersDeleted),
			r.Error,
		})
	}
	t.Render()
}
