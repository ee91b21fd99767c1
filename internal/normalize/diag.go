package normalize

import "github.com/allattain/opsdash/internal/models"

// Sink collects typed diagnostics during normalization so callers can log or
// assert on them instead of parsing text output.
type Sink struct {
	events []models.Diagnostic
}

func (s *Sink) Add(d models.Diagnostic) { s.events = append(s.events, d) }

func (s *Sink) Events() []models.Diagnostic { return s.events }
