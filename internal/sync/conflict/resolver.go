// Package conflict provides conflict resolution between locally-mutated
// and server-mutated versions of the same record.
package conflict

import "github.com/araeLaver/petchecky-sub002/internal/models"

// Strategy defines how conflicts are resolved.
type Strategy string

const (
	// StrategyUseLocal keeps the local record verbatim.
	StrategyUseLocal Strategy = "use_local"

	// StrategyUseServer keeps the server record verbatim. This is the
	// default strategy.
	StrategyUseServer Strategy = "use_server"

	// StrategyMerge overlays the newer side's top-level fields onto the
	// older side's.
	StrategyMerge Strategy = "merge"
)

// Default is the strategy applied when none is configured.
const Default = StrategyUseServer

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyUseLocal || s == StrategyUseServer || s == StrategyMerge
}

// Resolve produces the record that should survive the conflict. It never
// persists anything; the caller writes the result back into the durable
// store. An unknown strategy falls back to use_server.
//
// Merge semantics are a shallow overlay by design: the chronologically
// older record's top-level fields form the base, and the newer record's
// fields win on overlap. If local is newer the result is
// {...server, ...local}; if server is newer or the timestamps are equal it
// is {...local, ...server}. Nested objects are replaced wholesale, not
// deep-merged.
func Resolve(c *models.SyncConflict, strategy Strategy) map[string]any {
	switch strategy {
	case StrategyUseLocal:
		return clone(c.LocalData)
	case StrategyMerge:
		if c.LocalTimestamp > c.ServerTimestamp {
			return overlay(c.ServerData, c.LocalData)
		}
		return overlay(c.LocalData, c.ServerData)
	default:
		return clone(c.ServerData)
	}
}

// overlay copies base, then writes every field of winner over it.
func overlay(base, winner map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(winner))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range winner {
		out[k] = v
	}
	return out
}

// clone shallow-copies a record so callers cannot mutate the conflict input.
func clone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
