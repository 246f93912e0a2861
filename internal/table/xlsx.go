package table

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// ReadXLSX loads one worksheet of a workbook. The first row is the header; cells are
// typed with the same rules as ReadCSV.
func ReadXLSX(file string, opt ReadOptions) (*Table, error) {
	zr, err := zip.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer zr.Close()

	var wb workbook
	if err := decodeZipXML(&zr.Reader, "xl/workbook.xml", &wb); err != nil {
		return nil, err
	}
	var rels relationships
	if err := decodeZipXML(&zr.Reader, "xl/_rels/workbook.xml.rels", &rels); err != nil {
		return nil, err
	}
	var sst sharedStrings
	if err := decodeZipXML(&zr.Reader, "xl/sharedStrings.xml", &sst); err != nil && !errors.Is(err, errNoEntry) {
		return nil, err
	}

	target, err := sheetTarget(wb, rels, opt.SheetName, opt.SheetIndex)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(file), err)
	}
	f, err := zr.Open(target)
	if err != nil {
		return nil, fmt.Errorf("open sheet %s: %w", target, err)
	}
	defer f.Close()

	strs := sst.values()
	var header []string
	var raw [][]string
	err = eachSheetRow(f, strs, func(n int, cells []string) error {
		if header == nil {
			header = make([]string, len(cells))
			for i, h := range cells {
				header[i] = strings.TrimSpace(h)
			}
			return nil
		}
		if opt.MaxRows > 0 && len(raw) >= opt.MaxRows {
			return errStop
		}
		for i := len(header); i < len(cells); i++ {
			if strings.TrimSpace(cells[i]) != "" {
				return fmt.Errorf("row %d: value in column %d beyond header width %d", n, i+1, len(header))
			}
		}
		row := make([]string, len(header))
		copy(row, cells)
		raw = append(raw, row)
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	return fromRaw(strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)), header, raw, opt)
}

var (
	errNoEntry = errors.New("entry not found")
	errStop    = errors.New("stop")
)

type workbook struct {
	Sheets []struct {
		Name    string `xml:"name,attr"`
		SheetID int    `xml:"sheetId,attr"`
		RID     string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sheets>sheet"`
}

type relationships struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type textRun struct {
	T string `xml:"t"`
}

// richText is the shape shared by <si> entries and inline strings.
type richText struct {
	T    string    `xml:"t"`
	Runs []textRun `xml:"r"`
}

func (r richText) String() string {
	if len(r.Runs) == 0 {
		return r.T
	}
	var b strings.Builder
	b.WriteString(r.T)
	for _, run := range r.Runs {
		b.WriteString(run.T)
	}
	return b.String()
}

type sharedStrings struct {
	Items []richText `xml:"si"`
}

func (s sharedStrings) values() []string {
	out := make([]string, len(s.Items))
	for i, it := range s.Items {
		out[i] = it.String()
	}
	return out
}

type sheetCell struct {
	Ref    string   `xml:"r,attr"`
	Type   string   `xml:"t,attr"`
	V      string   `xml:"v"`
	Inline richText `xml:"is"`
}

func decodeZipXML(zr *zip.Reader, name string, v any) error {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		if err := xml.NewDecoder(rc).Decode(v); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		return nil
	}
	return fmt.Errorf("%s: %w", name, errNoEntry)
}

// sheetTarget resolves the zip path of the requested worksheet. An empty name selects
// by 1-based index (default 1).
func sheetTarget(wb workbook, rels relationships, name string, index int) (string, error) {
	rid := ""
	if name != "" {
		var names []string
		for _, s := range wb.Sheets {
			names = append(names, s.Name)
			if strings.EqualFold(s.Name, name) {
				rid = s.RID
			}
		}
		if rid == "" {
			return "", fmt.Errorf("sheet %q not found (available: %s)", name, strings.Join(names, ", "))
		}
	} else {
		if index <= 0 {
			index = 1
		}
		for _, s := range wb.Sheets {
			if s.SheetID == index {
				rid = s.RID
				break
			}
		}
		if rid == "" && index <= len(wb.Sheets) {
			rid = wb.Sheets[index-1].RID
		}
		if rid == "" {
			return "", fmt.Errorf("sheet index %d out of range (%d sheets)", index, len(wb.Sheets))
		}
	}
	for _, r := range rels.Rels {
		if r.ID == rid {
			t := strings.TrimPrefix(r.Target, "/")
			if !strings.HasPrefix(t, "xl/") {
				t = path.Join("xl", t)
			}
			return t, nil
		}
	}
	return "", fmt.Errorf("no relationship for sheet id %q", rid)
}

// eachSheetRow streams the rows of a worksheet, calling fn with the 1-based row number
// and the cell texts positioned by column.
func eachSheetRow(r io.Reader, shared []string, fn func(n int, cells []string) error) error {
	dec := xml.NewDecoder(r)
	var cells []string
	n := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse sheet: %w", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "row":
				n++
				for _, a := range el.Attr {
					if a.Name.Local == "r" {
						if v, err := strconv.Atoi(a.Value); err == nil {
							n = v
						}
					}
				}
				cells = cells[:0]
			case "c":
				var c sheetCell
				if err := dec.DecodeElement(&c, &el); err != nil {
					return fmt.Errorf("row %d: %w", n, err)
				}
				col := len(cells)
				if i := columnIndex(c.Ref); i >= 0 {
					col = i
				}
				for len(cells) <= col {
					cells = append(cells, "")
				}
				cells[col] = c.text(shared)
			}
		case xml.EndElement:
			if el.Name.Local == "row" {
				row := make([]string, len(cells))
				copy(row, cells)
				if err := fn(n, row); err != nil {
					return err
				}
			}
		}
	}
}

func (c sheetCell) text(shared []string) string {
	switch c.Type {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(c.V))
		if err != nil || i < 0 || i >= len(shared) {
			return ""
		}
		return shared[i]
	case "inlineStr":
		return c.Inline.String()
	case "b":
		if c.V == "1" {
			return "TRUE"
		}
		return "FALSE"
	default:
		return c.V
	}
}

// columnIndex converts the letters of a cell reference such as "AB12" to a 0-based
// column index.
func columnIndex(ref string) int {
	idx := 0
	for _, ch := range strings.ToUpper(ref) {
		if ch < 'A' || ch > 'Z' {
			break
		}
		idx = idx*26 + int(ch-'A'+1)
	}
	return idx - 1
}
