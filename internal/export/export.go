// Package export writes activation keys and school members as xlsx workbooks.
package export

import (
	"fmt"
	"io"
	"time"

	"bookcraft-cli/internal/model"

	"github.com/xuri/excelize/v2"
)

const (
	KeysSheet    = "Keys"
	MembersSheet = "Members"
)

// Keys writes one row per activation key.
func Keys(w io.Writer, keys []model.ActivationKey) error {
	rows := make([][]any, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []any{k.Code, k.BookID, k.Uses, k.MaxUses, formatTime(k.ExpiresAt), k.Revoked})
	}
	return writeSheet(w, KeysSheet,
		[]any{"Code", "Book", "Uses", "Max uses", "Expires", "Revoked"},
		[]float64{24, 28, 8, 10, 22, 10},
		rows)
}

// Members writes one row per school member.
func Members(w io.Writer, members []model.SchoolMember) error {
	rows := make([][]any, 0, len(members))
	for _, m := range members {
		joined := ""
		if !m.JoinedAt.IsZero() {
			joined = m.JoinedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []any{m.Name, m.Email, string(m.Role), joined})
	}
	return writeSheet(w, MembersSheet,
		[]any{"Name", "Email", "Role", "Joined"},
		[]float64{28, 32, 12, 22},
		rows)
}

func writeSheet(w io.Writer, sheet string, header []any, widths []float64, rows [][]any) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}
	for i, wd := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, wd); err != nil {
			return err
		}
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	_, err = f.WriteTo(w)
	return err
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
