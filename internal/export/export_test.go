package export

import (
	"bytes"
	"testing"
	"time"

	"bookcraft-cli/internal/model"

	"github.com/xuri/excelize/v2"
)

func TestKeys_WritesHeaderAndRows(t *testing.T) {
	exp := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := Keys(&buf, []model.ActivationKey{
		{Code: "ABCD-EFGH-IJKL", BookID: "bk1", Uses: 2, MaxUses: 30, ExpiresAt: &exp},
		{Code: "MNOP-QRST-UVWX", BookID: "bk1", Revoked: true},
	})
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(KeysSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Code" || rows[1][0] != "ABCD-EFGH-IJKL" || rows[1][4] != "2026-09-01T00:00:00Z" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if rows[2][5] != "TRUE" {
		t.Fatalf("expected revoked flag, got %v", rows[2])
	}
}

func TestMembers_EmptyListStillHasHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := Members(&buf, nil); err != nil {
		t.Fatalf("Members: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows(MembersSheet)
	if len(rows) != 1 || rows[0][1] != "Email" {
		t.Fatalf("unexpected rows %v", rows)
	}
}
