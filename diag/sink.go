package diag

import (
	"fmt"
	"io"
)

// Sink collects Reports raised while building or transforming IR owned by a
// single Context. It never panics the process; callers decide whether to
// abort the enclosing stage based on HasErrors.
type Sink struct {
	reports []*Report
	w       io.Writer
}

// NewSink returns a Sink that additionally echoes each report to w as it is
// emitted. w may be nil to only collect reports.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

// Emit records report and, if a writer was configured, prints it.
func (s *Sink) Emit(r *Report) {
	s.reports = append(s.reports, r)
	if s.w != nil {
		fmt.Fprintln(s.w, r.Error())
	}
}

// Reports returns every report emitted so far, oldest first.
func (s *Sink) Reports() []*Report { return s.reports }

// HasErrors reports whether any collected report has error severity.
func (s *Sink) HasErrors() bool {
	for _, r := range s.reports {
		if r.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Reset discards all collected reports.
func (s *Sink) Reset() { s.reports = s.reports[:0] }
