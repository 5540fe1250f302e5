package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ports "timesheets/internal/sheets"
)

// Writer keeps approved rows in memory. Used when no spreadsheet is
// configured and in tests.
type Writer struct {
	mu    sync.Mutex
	rows  [][]interface{}
	index map[string]string
}

var _ ports.ApprovedTimeWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{index: map[string]string{}}
}

// AppendApproved stores the rows and returns a synthetic row reference.
func (w *Writer) AppendApproved(_ context.Context, a ports.ApprovedTimesheet) (string, error) {
	if a.Timesheet.ID == "" {
		return "", errors.New("timesheet without id")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if ref, ok := w.index[a.Timesheet.ID]; ok {
		return ref, nil
	}
	rows := a.Rows()
	first := len(w.rows) + 1
	w.rows = append(w.rows, rows...)
	ref := fmt.Sprintf("mem:%d-%d", first, len(w.rows))
	w.index[a.Timesheet.ID] = ref
	return ref, nil
}

// Rows returns a copy of everything written so far.
func (w *Writer) Rows() [][]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]interface{}(nil), w.rows...)
}
