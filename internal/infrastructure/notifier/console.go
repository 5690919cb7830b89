package notifier

import (
	"context"
	"fmt"
	"io"
	"sync"

	"balance_tracker/internal/app/port"
	"balance_tracker/internal/domain/entity"
)

// ConsoleSink prints reports for the verbose mode.
type ConsoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

var _ port.ReportSink = (*ConsoleSink)(nil)

// NewConsoleSink creates a ConsoleSink writing to out.
func NewConsoleSink(out io.Writer) *ConsoleSink {
	return &ConsoleSink{out: out}
}

// Publish writes the report text followed by a blank line.
func (s *ConsoleSink) Publish(_ context.Context, report *entity.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.out, "%s\n\n", report.Text)
	return err
}
