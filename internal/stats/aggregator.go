package stats

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// RecentCapacity bounds the ring of recent lookups kept for the dashboard.
const RecentCapacity = 100

// maxWindow is the widest rolling engagement window; older history is pruned.
const maxWindow = 30 * time.Minute

// TermCount pairs a term with an occurrence count.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// LookupRecord is one definition request as shown on the dashboard.
type LookupRecord struct {
	Term    string    `json:"term"`
	Context string    `json:"context,omitempty"`
	At      time.Time `json:"at"`
}

// Snapshot is a read-only view of the session statistics.
type Snapshot struct {
	TotalWords               int            `json:"totalWords"`
	TotalLookups             int            `json:"totalLookups"`
	UniqueWordsLookedUp      int            `json:"uniqueWordsLookedUp"`
	LookupPercentage         float64        `json:"lookupPercentage"`
	TopLookups               []TermCount    `json:"topLookups"`
	TopSpokenWords           []TermCount    `json:"topSpokenWords"`
	RecentLookups            []LookupRecord `json:"recentLookups"`
	LookupsLast1Min          int            `json:"lookupsLast1Min"`
	LookupsLast5Min          int            `json:"lookupsLast5Min"`
	LookupsLast15Min         int            `json:"lookupsLast15Min"`
	LookupsLast30Min         int            `json:"lookupsLast30Min"`
	ConnectedStudents        int            `json:"connectedStudents"`
	PeakStudents             int            `json:"peakStudents"`
	EverConnected            int            `json:"everConnectedStudents"`
	AvgLookupsPerStudent     float64        `json:"avgLookupsPerStudent"`
	AvgLookupsPerEverStudent float64        `json:"avgLookupsPerEverStudent"`
	TotalTaps                int            `json:"totalTaps"`
	SessionDurationSec       int            `json:"sessionDurationSec"`
}

// Aggregator accumulates session statistics. It is the sole writer of its
// counters; every mutation goes through a method and is monotonic until
// Reset. Safe for concurrent use.
type Aggregator struct {
	mu    sync.Mutex
	now   func() time.Time
	start time.Time

	totalWords int
	wordFreq   map[string]int

	totalLookups int
	unique       map[string]struct{}
	lookupFreq   map[string]int
	history      []time.Time
	recent       []LookupRecord // newest last; bounded by RecentCapacity

	taps map[string]int

	connected int
	peak      int
	ever      int
}

// New creates an aggregator with the session clock started.
func New() *Aggregator {
	a := &Aggregator{now: time.Now}
	a.zero()
	return a
}

func (a *Aggregator) zero() {
	a.start = a.now()
	a.totalWords = 0
	a.wordFreq = make(map[string]int)
	a.totalLookups = 0
	a.unique = make(map[string]struct{})
	a.lookupFreq = make(map[string]int)
	a.history = nil
	a.recent = nil
	a.taps = make(map[string]int)
	a.peak = a.connected
	a.ever = a.connected
}

// RecordWords counts relayed caption words. Blank tokens and empty batches
// are no-ops.
func (a *Aggregator) RecordWords(words []string) {
	if len(words) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, w := range words {
		norm := normalize(w)
		if norm == "" {
			continue
		}
		a.totalWords++
		a.wordFreq[norm]++
	}
}

// RecordLookup counts one definition request. An empty term is a no-op.
func (a *Aggregator) RecordLookup(term, contextSnippet string) {
	norm := normalize(term)
	if norm == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	ts := a.now()
	a.totalLookups++
	a.unique[norm] = struct{}{}
	a.lookupFreq[norm]++

	a.history = append(a.history, ts)
	a.pruneHistory(ts)

	a.recent = append(a.recent, LookupRecord{Term: norm, Context: contextSnippet, At: ts})
	if len(a.recent) > RecentCapacity {
		a.recent = a.recent[len(a.recent)-RecentCapacity:]
	}
}

// RecordTap counts an audience tap. Taps are tracked apart from full
// lookups; GET /api/top reads them.
func (a *Aggregator) RecordTap(lemma string) {
	norm := normalize(lemma)
	if norm == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.taps[norm]++
}

// SetAudience records the current audience count; peak and ever-connected
// follow from increases.
func (a *Aggregator) SetAudience(current int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if current > a.connected {
		a.ever += current - a.connected
	}
	a.connected = current
	if current > a.peak {
		a.peak = current
	}
}

// Snapshot produces a read-only view of every statistic.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	ts := a.now()
	snap := Snapshot{
		TotalWords:          a.totalWords,
		TotalLookups:        a.totalLookups,
		UniqueWordsLookedUp: len(a.unique),
		TopLookups:          topN(a.lookupFreq, 10),
		TopSpokenWords:      topN(a.wordFreq, 10),
		LookupsLast1Min:     a.countSince(ts.Add(-1 * time.Minute)),
		LookupsLast5Min:     a.countSince(ts.Add(-5 * time.Minute)),
		LookupsLast15Min:    a.countSince(ts.Add(-15 * time.Minute)),
		LookupsLast30Min:    a.countSince(ts.Add(-maxWindow)),
		ConnectedStudents:   a.connected,
		PeakStudents:        a.peak,
		EverConnected:       a.ever,
		TotalTaps:           totalOf(a.taps),
		SessionDurationSec:  int(ts.Sub(a.start).Seconds()),
	}
	if a.totalWords > 0 {
		snap.LookupPercentage = float64(len(a.unique)) / float64(a.totalWords) * 100
	}
	if a.connected > 0 {
		snap.AvgLookupsPerStudent = float64(a.totalLookups) / float64(a.connected)
	}
	if a.ever > 0 {
		snap.AvgLookupsPerEverStudent = float64(a.totalLookups) / float64(a.ever)
	}

	// Newest first for the dashboard.
	snap.RecentLookups = make([]LookupRecord, len(a.recent))
	for i, r := range a.recent {
		snap.RecentLookups[len(a.recent)-1-i] = r
	}
	return snap
}

// TopTaps returns the n most-tapped lemmas, count descending.
func (a *Aggregator) TopTaps(n int) []TermCount {
	a.mu.Lock()
	defer a.mu.Unlock()
	return topN(a.taps, n)
}

// Reset zeroes every counter and restarts the session clock. The current
// audience count is live state, not history, so it survives.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.zero()
}

func (a *Aggregator) pruneHistory(now time.Time) {
	cutoff := now.Add(-maxWindow)
	i := 0
	for i < len(a.history) && a.history[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		a.history = a.history[i:]
	}
}

func (a *Aggregator) countSince(cutoff time.Time) int {
	n := 0
	for _, ts := range a.history {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func topN(freq map[string]int, n int) []TermCount {
	out := make([]TermCount, 0, len(freq))
	for term, count := range freq {
		out = append(out, TermCount{Term: term, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func totalOf(freq map[string]int) int {
	n := 0
	for _, c := range freq {
		n += c
	}
	return n
}
