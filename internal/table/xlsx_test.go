package table

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	testWorkbook = `<?xml version="1.0" encoding="UTF-8"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <sheets>
    <sheet name="Notes" sheetId="1" r:id="rId1"/>
    <sheet name="People" sheetId="2" r:id="rId2"/>
  </sheets>
</workbook>`
	testRels = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="worksheet" Target="worksheets/sheet1.xml"/>
  <Relationship Id="rId2" Type="worksheet" Target="/xl/worksheets/sheet2.xml"/>
</Relationships>`
	testShared = `<?xml version="1.0" encoding="UTF-8"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <si><t>id</t></si>
  <si><t>name</t></si>
  <si><t>zip</t></si>
  <si><r><t>Mar</t></r><r><t>tha</t></r></si>
</sst>`
	testSheet1 = `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>
  <row r="1"><c r="A1" t="inlineStr"><is><t>note</t></is></c></row>
</sheetData></worksheet>`
	testSheet2 = `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>
  <row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c><c r="C1" t="s"><v>2</v></c></row>
  <row r="2"><c r="A2"><v>1</v></c><c r="B2" t="s"><v>3</v></c><c r="C2" t="inlineStr"><is><t>02134</t></is></c></row>
  <row r="3"><c r="A3"><v>2.5</v></c><c r="C3" t="inlineStr"><is><t>92101</t></is></c></row>
</sheetData></worksheet>`
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.xlsx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, body := range map[string]string{
		"xl/workbook.xml":            testWorkbook,
		"xl/_rels/workbook.xml.rels": testRels,
		"xl/sharedStrings.xml":       testShared,
		"xl/worksheets/sheet1.xml":   testSheet1,
		"xl/worksheets/sheet2.xml":   testSheet2,
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

func TestReadXLSXBySheetName(t *testing.T) {
	path := writeWorkbook(t)
	opt := DefaultReadOptions()
	opt.SheetName = "people"
	tbl, err := Read(path, opt)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if tbl.Name != "people" || tbl.Len() != 2 {
		t.Fatalf("unexpected table %q with %d rows", tbl.Name, tbl.Len())
	}
	if got := strings.Join(tbl.Columns(), ","); got != "id,name,zip" {
		t.Fatalf("unexpected header: %s", got)
	}
	if k, _ := tbl.ColumnKind("id"); k != Number {
		t.Fatalf("id should be numeric, got %v", k)
	}
	if k, _ := tbl.ColumnKind("zip"); k != String {
		t.Fatalf("zip with a leading zero should stay text, got %v", k)
	}
	if got := tbl.Get(0, "name").Key(); got != "Martha" {
		t.Fatalf("rich text not joined: %q", got)
	}
	if !tbl.Get(1, "name").IsMissing() {
		t.Fatalf("absent cell should be missing")
	}
}

func TestReadXLSXByIndexAndErrors(t *testing.T) {
	path := writeWorkbook(t)
	opt := DefaultReadOptions()
	tbl, err := ReadXLSX(path, opt)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := strings.Join(tbl.Columns(), ","); got != "note" || tbl.Len() != 0 {
		t.Fatalf("default sheet should be the first: %s (%d rows)", got, tbl.Len())
	}

	opt.SheetName = "Missing"
	if _, err := ReadXLSX(path, opt); err == nil || !strings.Contains(err.Error(), "Notes, People") {
		t.Fatalf("expected sheet listing, got %v", err)
	}
	opt.SheetName = ""
	opt.SheetIndex = 3
	if _, err := ReadXLSX(path, opt); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestColumnIndex(t *testing.T) {
	cases := map[string]int{"A1": 0, "C12": 2, "Z3": 25, "AA1": 26, "ab7": 27, "": -1}
	for ref, want := range cases {
		if got := columnIndex(ref); got != want {
			t.Errorf("columnIndex(%q) = %d, want %d", ref, got, want)
		}
	}
}
