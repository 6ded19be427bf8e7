package audit

import (
	"context"
	"errors"
)

// MultiLogger writes every event to all of its loggers
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger fanning out to loggers. Nil entries are
// skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

// Log writes to every logger, even when one fails
func (m *MultiLogger) Log(ctx context.Context, event *Event) error {
	var errs []error
	for _, l := range m.loggers {
		if err := l.Log(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Search queries the first logger that supports searching
func (m *MultiLogger) Search(ctx context.Context, filter Filter) ([]*Event, error) {
	for _, l := range m.loggers {
		if s, ok := l.(Searcher); ok {
			return s.Search(ctx, filter)
		}
	}
	return nil, ErrSearchUnsupported
}

// Close closes every logger
func (m *MultiLogger) Close() error {
	var errs []error
	for _, l := range m.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
