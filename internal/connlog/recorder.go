// Package connlog keeps the bounded, persisted connection event log.
package connlog

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/flyvpn/flyvpn-tui/internal/state"
)

// MaxEntries is how many entries the recorder retains.
const MaxEntries = 100

// Well-known event tags.
const (
	EventConnecting   = "Connecting"
	EventConnected    = "Connected"
	EventDisconnected = "Disconnected"
	EventServerChange = "Server Change"
	EventError        = "Error"
)

const exportTimeLayout = "2006-01-02T15:04:05.000Z"

var recordedTotal = metrics.NewCounter("flyvpn_connlog_recorded_total")

// Persister is the slice of the persistence gateway the recorder needs.
type Persister interface {
	LoadLogs() []state.LogEntry
	SaveLogs([]state.LogEntry) error
	ClearLogs() error
}

// Options configures a Recorder.
type Options struct {
	Persister Persister
	// Store receives a copy of the retained log after every change.
	Store *state.Store
	// Enabled gates Record. Nil means always enabled.
	Enabled func() bool
	Now     func() time.Time
	Logger  *slog.Logger
}

// Recorder appends events in completion order and keeps the newest MaxEntries.
type Recorder struct {
	mu      sync.Mutex
	entries []state.LogEntry

	persister Persister
	store     *state.Store
	enabled   func() bool
	now       func() time.Time
	log       *slog.Logger
}

// New returns an empty recorder. Call Load to restore persisted entries.
func New(opts Options) *Recorder {
	r := &Recorder{
		persister: opts.Persister,
		store:     opts.Store,
		enabled:   opts.Enabled,
		now:       opts.Now,
		log:       opts.Logger,
	}
	if r.enabled == nil {
		r.enabled = func() bool { return true }
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	return r
}

// Load restores the persisted log. Entries are loaded even when recording is disabled.
func (r *Recorder) Load() {
	if r.persister == nil {
		return
	}
	entries := r.persister.LoadLogs()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = truncate(entries)
	r.publish(r.copyLocked())
}

// Record appends an entry unless logging is disabled. It reports whether the
// entry was kept. Persistence failures are logged and do not undo the append.
func (r *Recorder) Record(event, details string) bool {
	if !r.enabled() {
		return false
	}

	r.mu.Lock()
	r.entries = truncate(append(r.entries, state.LogEntry{
		Timestamp: r.now().UnixMilli(),
		Event:     event,
		Details:   details,
	}))
	snapshot := r.copyLocked()
	if r.persister != nil {
		if err := r.persister.SaveLogs(snapshot); err != nil {
			r.log.Warn("connection log not persisted", "event", event, "err", err)
		}
	}
	// published under the lock so the store never lags behind a later record
	r.publish(snapshot)
	r.mu.Unlock()

	recordedTotal.Inc()
	return true
}

// Entries returns the retained log, oldest first.
func (r *Recorder) Entries() []state.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyLocked()
}

// Clear drops every entry in memory and in storage.
func (r *Recorder) Clear() error {
	r.mu.Lock()
	r.entries = nil
	var err error
	if r.persister != nil {
		err = r.persister.ClearLogs()
	}
	r.publish(nil)
	r.mu.Unlock()

	if err != nil {
		return fmt.Errorf("clear logs: %w", err)
	}
	return nil
}

// Export writes the retained log as text, one "<ISO time> [<event>] <details>"
// line per entry, separated by newlines with no trailing newline.
func (r *Recorder) Export(w io.Writer) error {
	_, err := io.WriteString(w, FormatEntries(r.Entries()))
	return err
}

// FormatEntries renders entries in the export format.
func FormatEntries(entries []state.LogEntry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = FormatEntry(e)
	}
	return strings.Join(lines, "\n")
}

// FormatEntry renders a single export line.
func FormatEntry(e state.LogEntry) string {
	return fmt.Sprintf("%s [%s] %s", e.Time().Format(exportTimeLayout), e.Event, e.Details)
}

// ExportFileName names an export taken at now.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("flyvpn_logs_%d.txt", now.UnixMilli())
}

func (r *Recorder) copyLocked() []state.LogEntry {
	out := make([]state.LogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Recorder) publish(entries []state.LogEntry) {
	if r.store != nil {
		r.store.SetLogs(entries)
	}
}

func truncate(entries []state.LogEntry) []state.LogEntry {
	if len(entries) <= MaxEntries {
		return entries
	}
	out := make([]state.LogEntry, MaxEntries)
	copy(out, entries[len(entries)-MaxEntries:])
	return out
}
