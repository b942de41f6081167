// Package audit keeps the append-only record of tool calls, decisions,
// overrides, evaluation results and errors. Entries live in memory until
// Flush copies the unflushed suffix to each configured Sink.
package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/piyushigoyal/claimtriage/internal/models"
)

// Sink is a durable destination for flushed entries. Write receives each
// entry at most once per sink.
type Sink interface {
	Write(ctx context.Context, entries []Entry) error
	Close() error
}

// Filter selects entries in Query. Zero fields match everything.
type Filter struct {
	Type    EntryType
	ClaimID string
}

// ToolCallStats counts tool invocations.
type ToolCallStats struct {
	Total  int            `json:"total_calls"`
	ByTool map[string]int `json:"by_tool"`
}

// Summary aggregates processed decisions and overrides.
type Summary struct {
	TotalClaimsProcessed  int     `json:"total_claims_processed"`
	AverageProcessingTime float64 `json:"average_processing_time"`
	TotalOverrides        int     `json:"total_overrides"`
	OverrideRate          float64 `json:"override_rate"`
}

// Log is the in-memory audit log. All appends are serialized; readers see a
// consistent snapshot.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	nextSeq int64

	flushMu sync.Mutex
	sinks   []Sink
	marks   []int

	now func() time.Time
}

// New creates an empty log that flushes to the given sinks.
func New(sinks ...Sink) *Log {
	return &Log{
		sinks: sinks,
		marks: make([]int, len(sinks)),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Positioner is implemented by sinks that can report the highest sequence
// number they already hold. ok is false for an empty sink.
type Positioner interface {
	LastSeq(ctx context.Context) (seq int64, ok bool, err error)
}

// Replay builds an in-memory log from previously persisted entries.
func Replay(entries []Entry) *Log {
	l := New()
	l.load(entries)
	return l
}

// Resume builds a log from previously persisted entries and places each
// sink's watermark after the last entry that sink reports holding. Sinks that
// are not Positioners receive the whole history on the next Flush.
func Resume(ctx context.Context, entries []Entry, sinks ...Sink) (*Log, error) {
	l := New(sinks...)
	l.load(entries)
	for i, sink := range sinks {
		p, ok := sink.(Positioner)
		if !ok {
			continue
		}
		last, held, err := p.LastSeq(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading position of sink %d: %w", i, err)
		}
		if !held {
			continue
		}
		for _, e := range l.entries {
			if e.Seq > last {
				break
			}
			l.marks[i]++
		}
	}
	return l, nil
}

func (l *Log) load(entries []Entry) {
	for _, e := range entries {
		l.entries = append(l.entries, e.clone())
		if e.Seq >= l.nextSeq {
			l.nextSeq = e.Seq + 1
		}
	}
}

// Append assigns a sequence number (and a timestamp if missing) and stores
// the entry. The stored copy is returned.
func (l *Log) Append(e Entry) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e = e.clone()
	e.Seq = l.nextSeq
	l.nextSeq++
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	l.entries = append(l.entries, e)
	return e
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Query returns matching entries in insertion order.
func (l *Log) Query(f Filter) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Entry
	for _, e := range l.entries {
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.ClaimID != "" && !e.MatchesClaim(f.ClaimID) {
			continue
		}
		out = append(out, e.clone())
	}
	return out
}

// Decisions returns the claim_processed steps for claimID in order.
func (l *Log) Decisions(claimID string) []Entry {
	var out []Entry
	for _, e := range l.Query(Filter{Type: EntryAgentStep, ClaimID: claimID}) {
		if e.Step() == StepClaimProcessed {
			out = append(out, e)
		}
	}
	return out
}

// ToolCallStats counts tool_call entries overall and per tool name.
func (l *Log) ToolCallStats() ToolCallStats {
	stats := ToolCallStats{ByTool: map[string]int{}}
	for _, e := range l.Query(Filter{Type: EntryToolCall}) {
		stats.Total++
		name, _ := e.Data["tool_name"].(string)
		if name == "" {
			name = "unknown"
		}
		stats.ByTool[name]++
	}
	return stats
}

// OverrideRate is human overrides divided by completed decisions, or 0 when
// nothing has been decided yet.
func (l *Log) OverrideRate() float64 {
	s := l.Summary()
	return s.OverrideRate
}

// Summary aggregates processed claims, mean processing time and overrides.
func (l *Log) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	var s Summary
	var totalTime float64
	for _, e := range l.entries {
		switch {
		case e.Type == EntryAgentStep && e.Step() == StepClaimProcessed:
			s.TotalClaimsProcessed++
			if v, ok := e.Data["processing_time"].(float64); ok {
				totalTime += v
			}
		case e.Type == EntryHumanOverride:
			s.TotalOverrides++
		}
	}
	if s.TotalClaimsProcessed > 0 {
		s.AverageProcessingTime = totalTime / float64(s.TotalClaimsProcessed)
		s.OverrideRate = float64(s.TotalOverrides) / float64(s.TotalClaimsProcessed)
	}
	return s
}

// Flush writes every entry a sink has not yet received. A sink's watermark
// only advances when its write succeeds, so calling Flush again after a
// success writes nothing and after a failure retries just that sink.
func (l *Log) Flush(ctx context.Context) error {
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	l.mu.Lock()
	snapshot := make([]Entry, len(l.entries))
	copy(snapshot, l.entries)
	l.mu.Unlock()

	var errs []error
	for i, sink := range l.sinks {
		pending := snapshot[l.marks[i]:]
		if len(pending) == 0 {
			continue
		}
		if err := sink.Write(ctx, pending); err != nil {
			errs = append(errs, fmt.Errorf("flushing %d entries to sink %d: %w", len(pending), i, err))
			continue
		}
		l.marks[i] = len(snapshot)
	}
	return errors.Join(errs...)
}

// Close flushes and closes every sink.
func (l *Log) Close(ctx context.Context) error {
	errs := []error{l.Flush(ctx)}
	for _, sink := range l.sinks {
		errs = append(errs, sink.Close())
	}
	return errors.Join(errs...)
}

// LatestDecision returns the most recent decision recorded for claimID.
func (l *Log) LatestDecision(claimID string) (models.Decision, bool) {
	entries := l.Decisions(claimID)
	if len(entries) == 0 {
		return models.Decision{}, false
	}
	return DecisionFromEntry(entries[len(entries)-1])
}
