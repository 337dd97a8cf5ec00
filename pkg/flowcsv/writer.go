package flowcsv

import (
	"FlowSpectra/internal/model"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Writer writes flow records in the column order Reader expects.
type Writer struct {
	cw  *csv.Writer
	row []string
}

// NewWriter creates a writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{cw: csv.NewWriter(w), row: make([]string, numColumns)}
}

// Write buffers a single record.
func (w *Writer) Write(rec model.FlowRecord) error {
	w.row[colSeq] = strconv.FormatUint(rec.Seq, 10)
	w.row[colProtocol] = strconv.FormatUint(uint64(rec.Protocol), 10)
	w.row[colTimestamp] = strconv.FormatFloat(rec.Timestamp, 'f', -1, 64)
	w.row[colSrc] = strconv.FormatUint(uint64(rec.Src), 10)
	w.row[colDst] = strconv.FormatUint(uint64(rec.Dst), 10)
	w.row[colSrcPort] = strconv.FormatUint(uint64(rec.SrcPort), 10)
	w.row[colDstPort] = strconv.FormatUint(uint64(rec.DstPort), 10)
	w.row[colTTL] = strconv.FormatUint(uint64(rec.TTL), 10)
	w.row[colLength] = strconv.FormatUint(uint64(rec.Length), 10)
	w.row[colFragment] = strconv.FormatUint(uint64(rec.Fragment), 10)
	w.row[colFlags] = strconv.FormatUint(uint64(rec.Flags), 10)
	if err := w.cw.Write(w.row); err != nil {
		return fmt.Errorf("failed to write record %d: %w", rec.Seq, err)
	}
	return nil
}

// Flush writes any buffered records to the underlying writer.
func (w *Writer) Flush() error {
	w.cw.Flush()
	return w.cw.Error()
}
