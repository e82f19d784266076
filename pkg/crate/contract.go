package crate

import (
	"github.com/charmbracelet/log"
)

// Reporter receives read-before-load contract violations.
//
// Violation returns the error the caller should see. A nil return lets the
// read continue with an empty result.
type Reporter interface {
	Violation(err error) error
}

// StrictReporter fails every violating read.
type StrictReporter struct{}

// Violation returns err unchanged.
func (StrictReporter) Violation(err error) error { return err }

// LenientReporter logs violations as warnings and lets reads continue.
type LenientReporter struct {
	Logger *log.Logger
}

// Violation logs err and returns nil.
func (r LenientReporter) Violation(err error) error {
	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Warn("contract violation", "err", err)
	return nil
}

// NewReporter returns a [StrictReporter] when strict is set and a
// [LenientReporter] logging to logger otherwise.
func NewReporter(strict bool, logger *log.Logger) Reporter {
	if strict {
		return StrictReporter{}
	}
	return LenientReporter{Logger: logger}
}
