// Package diag formalizes spec.md §7's three-tier error model (Fatal /
// Critical / Warning) as a structured, queryable list instead of scattered
// log.Printf calls — RumoClaro logs these ad hoc via logger.L.Warn/log.Printf
// throughout its processors; here every site that used to log also appends
// to a Diagnostics collection the pipeline returns alongside its report.
package diag

import (
	"fmt"

	"github.com/google/uuid"
)

// Level is the severity of a Diagnostic entry.
type Level string

const (
	LevelFatal    Level = "FATAL"
	LevelCritical Level = "CRITICAL"
	LevelWarning  Level = "WARNING"
)

// Entry is one diagnostic record. LedgerSnapshot is only populated for Fatal
// entries raised by the FIFO ledger (spec.md §7: "the full offending event
// logged" / "ledger state snapshot").
type Entry struct {
	Level          Level
	Message        string
	EventID        *uuid.UUID
	AssetID        *uuid.UUID
	LedgerSnapshot string
}

func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s", e.Level, e.Message)
}

// Diagnostics is the per-run collector. It is append-only and safe to pass
// by pointer down through every pipeline stage.
type Diagnostics struct {
	entries []Entry
}

// Add appends an entry of the given level.
func (d *Diagnostics) Add(level Level, msg string) {
	d.entries = append(d.entries, Entry{Level: level, Message: msg})
}

// Addf appends a formatted entry of the given level.
func (d *Diagnostics) Addf(level Level, format string, args ...any) {
	d.Add(level, fmt.Sprintf(format, args...))
}

// AddEvent appends an entry tagged with the originating event and asset ids.
func (d *Diagnostics) AddEvent(level Level, eventID, assetID uuid.UUID, msg string) {
	d.entries = append(d.entries, Entry{Level: level, Message: msg, EventID: &eventID, AssetID: &assetID})
}

// Warning is a convenience for the most common call site.
func (d *Diagnostics) Warning(format string, args ...any) {
	d.Addf(LevelWarning, format, args...)
}

// Critical is a convenience for the second most common call site.
func (d *Diagnostics) Critical(format string, args ...any) {
	d.Addf(LevelCritical, format, args...)
}

// Entries returns every recorded diagnostic, in insertion order.
func (d *Diagnostics) Entries() []Entry {
	return d.entries
}

// HasFatal reports whether any Fatal-level entry was recorded. The pipeline
// itself records no Fatal-level entries; fatal conditions are returned as a
// FatalError instead (see pipeline.FatalError).
func (d *Diagnostics) HasFatal() bool {
	for _, e := range d.entries {
		if e.Level == LevelFatal {
			return true
		}
	}
	return false
}

// FatalError is returned by the FIFO layer for conditions spec.md §7 marks
// Fatal: unknown Open/Close, FIFO underflow, unparseable date, FX rate
// unavailable beyond the fallback window. It carries the same identifying
// context as a Fatal diag.Entry so the caller can log/persist it uniformly.
type FatalError struct {
	Entry
}

func (e *FatalError) Error() string {
	return e.Entry.String()
}

// NewFatal builds a FatalError, the propagation rule of spec.md §7: "the
// FIFO layer surfaces fatal errors upward immediately."
func NewFatal(eventID, assetID uuid.UUID, ledgerSnapshot, format string, args ...any) *FatalError {
	return &FatalError{Entry{
		Level:          LevelFatal,
		Message:        fmt.Sprintf(format, args...),
		EventID:        &eventID,
		AssetID:        &assetID,
		LedgerSnapshot: ledgerSnapshot,
	}}
}
