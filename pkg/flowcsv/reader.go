package flowcsv

import (
	"FlowSpectra/internal/model"
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Column order of an input row.
const (
	colSeq = iota
	colProtocol
	colTimestamp
	colSrc
	colDst
	colSrcPort
	colDstPort
	colTTL
	colLength
	colFragment
	colFlags
	numColumns
)

const (
	DefaultMissingToken = "?"
	// DefaultMaxMalformedRows is the tolerance used by the configuration. The
	// reader itself takes Options as given, so Options{} is strict.
	DefaultMaxMalformedRows = 1000

	// maxWarnings bounds the malformed rows kept in ReadStats.Warnings.
	maxWarnings = 10
	// maxLineSize bounds a single input line.
	maxLineSize = 1 << 20
)

// ErrTooManyMalformedRows is returned (wrapped in an IngestError) when more
// rows are skipped than the reader tolerates.
var ErrTooManyMalformedRows = errors.New("too many malformed rows")

// errNoAddresses marks a row of the right width whose source and destination
// are both not numbers, such as a header line.
var errNoAddresses = errors.New("source and destination are not numbers")

// IngestError reports that an input file could not be read.
type IngestError struct {
	Path string
	Err  error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Path, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// MalformedRecordWarning describes a row that was skipped. It is never
// returned as an error on its own.
type MalformedRecordWarning struct {
	Row    int // 1-based, counting non-blank, non-comment rows.
	Fields int
	Err    error // Parse error, nil when only the column count is wrong.
}

func (w *MalformedRecordWarning) Error() string {
	if w.Err != nil {
		return fmt.Sprintf("row %d skipped: %v", w.Row, w.Err)
	}
	return fmt.Sprintf("row %d skipped: %d columns, want %d", w.Row, w.Fields, numColumns)
}

// Options controls how rows are read.
type Options struct {
	// MaxRecords bounds the number of records returned; 0 reads everything.
	MaxRecords int
	// MaxMalformedRows is the number of skipped rows tolerated before the
	// read fails. 0 fails on the first skipped row; negative means unlimited.
	MaxMalformedRows int
	// MissingToken is the sentinel marking a missing value.
	MissingToken string
	// Delimiter separates the columns of a row.
	Delimiter rune
}

// ReadStats describes what happened during a read.
type ReadStats struct {
	Rows            int // Non-blank, non-comment rows seen.
	Records         int
	Malformed       int // Rows skipped because they could not be parsed.
	DefaultedFields int // Fields replaced by 0.

	// Warnings holds the first few skipped rows.
	Warnings []*MalformedRecordWarning
}

// Reader reads flow records from a delimited text file.
type Reader struct {
	path string
	file *os.File
	opts Options
}

// Open opens the file at path for reading.
func Open(path string, opts Options) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &IngestError{Path: path, Err: err}
	}
	if opts.MissingToken == "" {
		opts.MissingToken = DefaultMissingToken
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	return &Reader{path: path, file: file, opts: opts}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadAll reads the records of the file in file order. Every call starts
// again from the beginning of the file. Each line is parsed on its own, so a
// malformed line never swallows the lines after it.
func (r *Reader) ReadAll() ([]model.FlowRecord, ReadStats, error) {
	var stats ReadStats
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return nil, stats, &IngestError{Path: r.path, Err: err}
	}

	scanner := bufio.NewScanner(r.file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var records []model.FlowRecord
	for (r.opts.MaxRecords <= 0 || len(records) < r.opts.MaxRecords) && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		stats.Rows++

		row, err := r.splitLine(line)
		if err == nil && len(row) == numColumns {
			var rec model.FlowRecord
			var defaulted int
			rec, defaulted, err = r.parseRow(row)
			if err == nil {
				stats.DefaultedFields += defaulted
				records = append(records, rec)
				continue
			}
		}

		stats.Malformed++
		if len(stats.Warnings) < maxWarnings {
			stats.Warnings = append(stats.Warnings, &MalformedRecordWarning{Row: stats.Rows, Fields: len(row), Err: err})
		}
		if r.opts.MaxMalformedRows >= 0 && stats.Malformed > r.opts.MaxMalformedRows {
			return nil, stats, &IngestError{
				Path: r.path,
				Err:  fmt.Errorf("%w: %d skipped after %d rows", ErrTooManyMalformedRows, stats.Malformed, stats.Rows),
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, &IngestError{Path: r.path, Err: err}
	}

	stats.Records = len(records)
	return records, stats, nil
}

// splitLine splits a single line into its fields. Quotes are not part of the
// format, so a stray one is a parse error of that line only.
func (r *Reader) splitLine(line string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.Comma = r.opts.Delimiter
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	row, err := cr.Read()
	if err != nil {
		return nil, err
	}
	return row, nil
}

// parseRow converts one row of the expected width into a record. It returns
// the number of fields that were replaced by 0.
func (r *Reader) parseRow(row []string) (model.FlowRecord, int, error) {
	p := fieldParser{missing: r.opts.MissingToken}
	if p.garbage(row[colSrc]) && p.garbage(row[colDst]) {
		return model.FlowRecord{}, 0, errNoAddresses
	}
	rec := model.FlowRecord{
		Seq:       p.unsigned(row[colSeq], 64),
		Protocol:  uint8(p.unsigned(row[colProtocol], 8)),
		Timestamp: p.timestamp(row[colTimestamp]),
		Src:       model.Address(p.unsigned(row[colSrc], 32)),
		Dst:       model.Address(p.unsigned(row[colDst], 32)),
		SrcPort:   uint16(p.unsigned(row[colSrcPort], 16)),
		DstPort:   uint16(p.unsigned(row[colDstPort], 16)),
		TTL:       uint8(p.unsigned(row[colTTL], 8)),
		Length:    uint32(p.unsigned(row[colLength], 32)),
		Fragment:  uint32(p.unsigned(row[colFragment], 32)),
		Flags:     uint16(p.unsigned(row[colFlags], 16)),
	}
	return rec, p.defaulted, nil
}

type fieldParser struct {
	missing   string
	defaulted int
}

// garbage reports whether field is present but not a number at all.
func (p *fieldParser) garbage(field string) bool {
	field = strings.TrimSpace(field)
	if field == "" || field == p.missing {
		return false
	}
	_, err := strconv.ParseFloat(field, 64)
	return err != nil
}

func (p *fieldParser) unsigned(field string, bits int) uint64 {
	field = strings.TrimSpace(field)
	if field == "" || field == p.missing {
		p.defaulted++
		return 0
	}
	v, err := strconv.ParseUint(field, 10, bits)
	if err != nil {
		// Integral values written as floats ("6.0") are accepted.
		f, ferr := strconv.ParseFloat(field, 64)
		if ferr != nil || f < 0 || f > float64(uint64(1)<<bits-1) || f != math.Trunc(f) {
			p.defaulted++
			return 0
		}
		return uint64(f)
	}
	return v
}

func (p *fieldParser) timestamp(field string) float64 {
	field = strings.TrimSpace(field)
	if field == "" || field == p.missing {
		p.defaulted++
		return 0
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		p.defaulted++
		return 0
	}
	return v
}
