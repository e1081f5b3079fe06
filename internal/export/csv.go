// Package export writes result sets to the flat file and reads them back.
package export

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dbsmedya/corpfetch/internal/types"
)

// ErrMissingHeader is returned when a flat file has no header row.
var ErrMissingHeader = errors.New("flat file has no header row")

// encoding/csv reads a quoted "\r\n" back as "\n", so carriage returns are
// written as the two characters `\r` and backslashes are doubled. Reader
// reverses both.
var (
	fieldEscaper   = strings.NewReplacer(`\`, `\\`, "\r", `\r`)
	fieldUnescaper = strings.NewReplacer(`\\`, `\`, `\r`, "\r")
)

func escapeRow(row []string) []string {
	for i, v := range row {
		if strings.ContainsAny(v, "\\\r") {
			row[i] = fieldEscaper.Replace(v)
		}
	}
	return row
}

func unescapeRow(row []string) []string {
	for i, v := range row {
		if strings.IndexByte(v, '\\') >= 0 {
			row[i] = fieldUnescaper.Replace(v)
		}
	}
	return row
}

func fileError(op, path string, err error) error {
	return &types.ResourceError{Resource: types.ResourceFlatFile, Path: path, Op: op, Err: err}
}

// WriteCSV freezes rs and writes it to path, replacing any existing file.
// The header is types.Columns; each record contributes one row in that
// column order. Returns the number of data rows written.
func WriteCSV(rs *types.ResultSet, path string) (int, error) {
	rs.Freeze()

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fileError("mkdir", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fileError("create", path, err)
	}
	defer f.Close()

	bufw := bufio.NewWriterSize(f, 1<<20)
	w := csv.NewWriter(bufw)

	if err := w.Write(types.Columns); err != nil {
		return 0, fileError("write", path, err)
	}

	rows := 0
	for _, rec := range rs.Records() {
		if err := w.Write(escapeRow(rec.Row())); err != nil {
			return rows, fileError("write", path, err)
		}
		rows++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return rows, fileError("write", path, err)
	}
	if err := bufw.Flush(); err != nil {
		return rows, fileError("write", path, err)
	}
	if err := f.Sync(); err != nil {
		return rows, fileError("sync", path, err)
	}
	return rows, nil
}

// Reader streams rows from a flat file. Rows are returned with whatever
// field count they have; shape checks belong to the caller.
type Reader struct {
	path   string
	f      *os.File
	r      *csv.Reader
	header []string
}

// Open opens a flat file and reads its header row.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fileError("open", path, err)
	}

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		f.Close()
		if errors.Is(err, io.EOF) {
			return nil, fileError("read", path, ErrMissingHeader)
		}
		return nil, fileError("read", path, err)
	}

	return &Reader{path: path, f: f, r: r, header: unescapeRow(header)}, nil
}

// Header returns the header row.
func (r *Reader) Header() []string {
	return r.header
}

// Next returns the next row, or io.EOF after the last one.
func (r *Reader) Next() ([]string, error) {
	row, err := r.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fileError("read", r.path, err)
	}
	return unescapeRow(row), nil
}

// Line returns the file line on which the last returned row started.
func (r *Reader) Line() int {
	line, _ := r.r.FieldPos(0)
	return line
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

// ReadCSV reads the header and up to limit rows (all rows when limit <= 0).
func ReadCSV(path string, limit int) ([]string, [][]string, error) {
	r, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	var rows [][]string
	for limit <= 0 || len(rows) < limit {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return r.Header(), rows, err
		}
		rows = append(rows, row)
	}
	return r.Header(), rows, nil
}
