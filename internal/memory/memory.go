package memory

import (
	"context"
	"runtime"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/dshills/wsindex/pkg/types"
)

const (
	// DefaultCeiling is the heap usage above which mitigation starts (1 GiB)
	DefaultCeiling uint64 = 1024 * 1024 * 1024

	// DefaultSymbolCap is the number of symbols kept per entry when trimming
	DefaultSymbolCap = 50
)

// TrimThreshold returns 80% of ceiling
func TrimThreshold(ceiling uint64) uint64 {
	return ceiling - ceiling/5
}

// Probe reports process memory usage
type Probe interface {
	// Usage returns the current memory usage in bytes
	Usage() uint64

	// Collect is a best-effort request to release memory. It may be a no-op.
	Collect()
}

// RuntimeProbe reads usage from the Go runtime
type RuntimeProbe struct{}

// Usage returns bytes of allocated heap objects
func (RuntimeProbe) Usage() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}

// Collect runs a garbage collection and returns freed memory to the OS
func (RuntimeProbe) Collect() {
	runtime.GC()
	debug.FreeOSMemory()
}

// Action is the outcome of a mitigation decision
type Action int

const (
	// ActionNone means usage is within the ceiling
	ActionNone Action = iota
	// ActionCollect means a collection should be requested
	ActionCollect
	// ActionTrim means symbols should be trimmed
	ActionTrim
)

// String returns a readable name for the action
func (a Action) String() string {
	switch a {
	case ActionCollect:
		return "collect"
	case ActionTrim:
		return "trim"
	default:
		return "none"
	}
}

// Decide returns the first mitigation step for a usage reading.
// Usage above the ceiling calls for a collection.
func Decide(usage, ceiling uint64) Action {
	if ceiling == 0 || usage <= ceiling {
		return ActionNone
	}
	return ActionCollect
}

// DecideAfterCollect returns ActionTrim when usage measured after a
// collection is still above 80% of the ceiling.
func DecideAfterCollect(usage, ceiling uint64) Action {
	if ceiling == 0 {
		return ActionNone
	}
	if usage > TrimThreshold(ceiling) {
		return ActionTrim
	}
	return ActionNone
}

// TrimSymbols truncates entry.Symbols to at most limit items. The returned
// entry shares nothing mutable with the input. The boolean reports whether
// anything was removed; an entry already at or under the cap is returned as is.
func TrimSymbols(entry types.FileIndexEntry, limit int) (types.FileIndexEntry, bool) {
	if limit < 0 {
		limit = 0
	}
	if len(entry.Symbols) <= limit {
		return entry, false
	}
	trimmed := make([]types.SymbolInfo, limit)
	copy(trimmed, entry.Symbols[:limit])
	entry.Symbols = trimmed
	return entry, true
}

// TrimEntries applies TrimSymbols to every entry and returns only the
// entries that changed, keyed by path.
func TrimEntries(entries map[string]types.FileIndexEntry, limit int) map[string]types.FileIndexEntry {
	changed := make(map[string]types.FileIndexEntry)
	for path, entry := range entries {
		if trimmed, ok := TrimSymbols(entry, limit); ok {
			changed[path] = trimmed
		}
	}
	return changed
}

// Trimmer is the index surface mitigation operates on
type Trimmer interface {
	// TrimSymbols truncates every entry's symbols to limit and returns
	// the number of entries modified.
	TrimSymbols(limit int) int
}

// Options configures a Governor
type Options struct {
	Ceiling   uint64 // Bytes; zero disables mitigation
	SymbolCap int
	Logger    zerolog.Logger
}

// Mitigation describes what a Mitigate call did
type Mitigation struct {
	UsageBefore    uint64
	UsageAfter     uint64
	Collected      bool
	EntriesTrimmed int
}

// Triggered reports whether any mitigation step ran
func (m Mitigation) Triggered() bool {
	return m.Collected
}

// Governor samples memory and applies the mitigation policy
type Governor struct {
	probe     Probe
	ceiling   uint64
	symbolCap int
	logger    zerolog.Logger
}

// NewGovernor creates a Governor. A nil probe uses RuntimeProbe.
func NewGovernor(probe Probe, opts Options) *Governor {
	if probe == nil {
		probe = RuntimeProbe{}
	}
	if opts.SymbolCap <= 0 {
		opts.SymbolCap = DefaultSymbolCap
	}
	return &Governor{
		probe:     probe,
		ceiling:   opts.Ceiling,
		symbolCap: opts.SymbolCap,
		logger:    opts.Logger,
	}
}

// Ceiling returns the configured ceiling in bytes
func (g *Governor) Ceiling() uint64 {
	return g.ceiling
}

// Check returns current memory usage in bytes
func (g *Governor) Check(_ context.Context) uint64 {
	return g.probe.Usage()
}

// Mitigate applies the policy against target. Above the ceiling it requests a
// collection; if usage is still above 80% of the ceiling afterwards it trims
// every entry's symbols to the configured cap.
func (g *Governor) Mitigate(ctx context.Context, target Trimmer) Mitigation {
	usage := g.Check(ctx)
	result := Mitigation{UsageBefore: usage, UsageAfter: usage}

	if Decide(usage, g.ceiling) == ActionNone {
		return result
	}

	g.probe.Collect()
	result.Collected = true
	result.UsageAfter = g.Check(ctx)

	if DecideAfterCollect(result.UsageAfter, g.ceiling) == ActionTrim && target != nil {
		result.EntriesTrimmed = target.TrimSymbols(g.symbolCap)
	}

	g.logger.Warn().
		Uint64("usage_before", result.UsageBefore).
		Uint64("usage_after", result.UsageAfter).
		Uint64("ceiling", g.ceiling).
		Int("entries_trimmed", result.EntriesTrimmed).
		Msg("memory ceiling exceeded")

	return result
}
