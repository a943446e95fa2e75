// Package ledger persists the record of (subject, date) work units already
// completed, so repeated pipeline runs skip expensive retrieval and
// computation they have already done.
package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Ledger is a durable subject → set-of-dates record. A pair is marked done
// only after a non-empty usable result exists; a failed or empty attempt
// leaves the pair unmarked so a later run retries it once the remote archive
// catches up. Not safe for concurrent use: a pipeline run owns the ledger
// for its full duration.
type Ledger struct {
	path    string
	entries map[string]map[string]bool
	logger  *slog.Logger
}

// Load reads the ledger file, starting from an empty ledger when the file is
// missing or corrupt. Corruption is logged, never fatal: losing the ledger
// only costs recomputation, while refusing to run would stall the batch.
func Load(path string, logger *slog.Logger) *Ledger {
	l := &Ledger{
		path:    path,
		entries: make(map[string]map[string]bool),
		logger:  logger,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("ledger unreadable, starting empty", "path", path, "error", err)
		}
		return l
	}

	var stored map[string][]string
	if err := json.Unmarshal(raw, &stored); err != nil {
		logger.Warn("ledger corrupt, starting empty", "path", path, "error", err)
		return l
	}

	for subject, dates := range stored {
		set := make(map[string]bool, len(dates))
		for _, d := range dates {
			set[d] = true
		}
		l.entries[subject] = set
	}
	return l
}

// IsDone reports whether the (subject, date) pair has already produced a
// usable result.
func (l *Ledger) IsDone(subject, date string) bool {
	return l.entries[subject][date]
}

// MarkDone records a completed (subject, date) pair. Idempotent.
func (l *Ledger) MarkDone(subject, date string) {
	if l.entries[subject] == nil {
		l.entries[subject] = make(map[string]bool)
	}
	l.entries[subject][date] = true
}

// Persist writes the ledger atomically (temp file + rename) as a subject →
// sorted-date-list JSON object. A crash between runs leaves either the old
// or the new file, never a torn one; unpersisted marks are simply redone on
// the next run.
func (l *Ledger) Persist() error {
	stored := make(map[string][]string, len(l.entries))
	for subject, set := range l.entries {
		dates := make([]string, 0, len(set))
		for d := range set {
			dates = append(dates, d)
		}
		sort.Strings(dates)
		stored[subject] = dates
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("commit ledger: %w", err)
	}
	return nil
}
