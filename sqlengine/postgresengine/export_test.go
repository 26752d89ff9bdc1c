package postgresengine

import "github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/plugin"

// TrackedCursors returns how many cursors the executor behind s still closes on Close, or -1.
func TrackedCursors(s *Session) int {
	e, ok := plugin.Innermost(s.Executor()).(*executor)
	if !ok {
		return -1
	}

	return len(e.cursors)
}
