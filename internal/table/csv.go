package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/reclink-cli/internal/utils"
)

// ReadOptions controls how delimited files become tables.
type ReadOptions struct {
	// Delimiter for CSV. If 0, sniffed from the file name and header line.
	Delimiter rune
	// MaxRows limits rows read; 0 means unlimited.
	MaxRows int
	// NAValues are cell contents treated as missing in addition to blank cells.
	NAValues []string
	// Numeric parsing locale. When both are 0 no separator is stripped, so "1,234"
	// and "555 1234" stay text; set them to read locale numbers.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// StringColumns are never converted to numbers.
	StringColumns []string
	// DisableNumbers keeps every column as text.
	DisableNumbers bool
	// XLSX: sheet name to read, or 1-based index when the name is empty.
	SheetName  string
	SheetIndex int
}

// DefaultReadOptions returns reasonable defaults for record files.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{NAValues: []string{"NA", "NaN", "null"}}
}

// Read loads a .xlsx workbook or a delimited text file, chosen by extension.
func Read(path string, opt ReadOptions) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(path, opt)
	}
	return ReadCSV(path, opt)
}

// ReadCSV loads a delimited file. A column becomes numeric when every non-missing
// cell parses as a number; other columns keep their text verbatim.
func ReadCSV(path string, opt ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	br := bufio.NewReader(f)
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path, br)
	}
	return readDelimited(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), br, delim, opt)
}

// ParseCSV reads a table from r, which is useful for stdin and tests.
func ParseCSV(name string, r io.Reader, opt ReadOptions) (*Table, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = ','
	}
	return readDelimited(name, r, delim, opt)
}

func readDelimited(name string, src io.Reader, delim rune, opt ReadOptions) (*Table, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return New(name, nil)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	ncol := len(header)

	var raw [][]string
	for line := 2; ; line++ {
		if opt.MaxRows > 0 && len(raw) >= opt.MaxRows {
			break
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if len(rec) > ncol {
			return nil, fmt.Errorf("line %d: %d fields, header has %d", line, len(rec), ncol)
		}
		row := make([]string, ncol)
		copy(row, rec)
		raw = append(raw, row)
	}

	return fromRaw(name, header, raw, opt)
}

// fromRaw types the cells of raw and builds the table. Rows are already padded to the
// header width.
func fromRaw(name string, header []string, raw [][]string, opt ReadOptions) (*Table, error) {
	ncol := len(header)
	na := make(map[string]struct{}, len(opt.NAValues))
	for _, s := range opt.NAValues {
		na[s] = struct{}{}
	}
	forced := make(map[string]bool, len(opt.StringColumns))
	for _, c := range opt.StringColumns {
		forced[c] = true
	}
	numeric := make([]bool, ncol)
	for c := range header {
		numeric[c] = !opt.DisableNumbers && !forced[header[c]] && columnIsNumeric(raw, c, na, opt)
	}

	t, err := New(name, header)
	if err != nil {
		return nil, err
	}
	t.records = make([]Record, 0, len(raw))
	for _, row := range raw {
		rec := make(Record, ncol)
		for c, cell := range row {
			if isNA(cell, na) {
				continue
			}
			if numeric[c] {
				f, _ := parseNumeric(cell, opt)
				rec[c] = numText(f, strings.TrimSpace(cell))
				continue
			}
			rec[c] = Str(cell)
		}
		t.records = append(t.records, rec)
	}
	return t, nil
}

func isNA(cell string, na map[string]struct{}) bool {
	s := strings.TrimSpace(cell)
	if s == "" {
		return true
	}
	_, ok := na[s]
	return ok
}

func columnIsNumeric(raw [][]string, c int, na map[string]struct{}, opt ReadOptions) bool {
	seen := false
	for _, row := range raw {
		cell := row[c]
		if isNA(cell, na) {
			continue
		}
		if hasLeadingZero(cell) {
			return false
		}
		if _, ok := parseNumeric(cell, opt); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// hasLeadingZero flags codes such as "02134" that must stay text.
func hasLeadingZero(s string) bool {
	s = strings.TrimLeft(strings.TrimSpace(s), "+-")
	return len(s) > 1 && s[0] == '0' && s[1] >= '0' && s[1] <= '9'
}

func sniffDelimiter(path string, br *bufio.Reader) rune {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	head, _ := br.Peek(4096)
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	best, bestN := ',', bytes.Count(head, []byte{','})
	for _, d := range []rune{';', '\t', '|'} {
		if n := bytes.Count(head, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

// parseNumeric reads s as a number. Separators are only stripped when opt names them.
func parseNumeric(s string, opt ReadOptions) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" || !startsNumeric(raw) {
		return 0, false
	}
	if opt.DecimalSeparator == 0 && opt.ThousandsSeparator == 0 {
		if !plainDecimal(raw) {
			return 0, false
		}
		f, err := strconv.ParseFloat(raw, 64)
		return f, err == nil
	}
	dec := opt.DecimalSeparator
	if dec == 0 {
		dec = '.'
	}
	if thou := opt.ThousandsSeparator; thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
		if thou == ' ' {
			raw = strings.ReplaceAll(raw, "\u00A0", "")
		}
	}
	if dec != '.' {
		if strings.Contains(raw, ".") {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// plainDecimal accepts [+-]digits[.digits][e[+-]digits] and nothing else.
func plainDecimal(s string) bool {
	i := 0
	if s[i] == '+' || s[i] == '-' {
		i++
	}
	digits := func() int {
		n := 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			n++
		}
		return n
	}
	n := digits()
	if i < len(s) && s[i] == '.' {
		i++
		n += digits()
	}
	if n == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		if digits() == 0 {
			return false
		}
	}
	return i == len(s)
}

// startsNumeric rejects words ParseFloat accepts, such as "Inf" or "nan".
func startsNumeric(s string) bool {
	c := s[0]
	if c == '+' || c == '-' {
		if len(s) == 1 {
			return false
		}
		c = s[1]
	}
	return (c >= '0' && c <= '9') || c == '.' || c == ','
}

// WriteCSV writes t with a header line, replacing path atomically.
func WriteCSV(path string, t *Table) error {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, t, ','); err != nil {
		return err
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// EncodeCSV writes t to w. Missing values become empty cells.
func EncodeCSV(w io.Writer, t *Table, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := cw.Write(t.columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(t.columns))
	for _, r := range t.records {
		for i, v := range r {
			row[i] = v.Text()
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
