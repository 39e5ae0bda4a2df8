package constants

import "time"

// K factors per session multiplier. Special sessions double or triple the
// stakes of a normal ranked match.
const (
	KDefault = 32.0
	KDouble  = 64.0
	KTriple  = 96.0
)

const (
	// FullRosterSize is the player count of a standard ranked lobby. Batch
	// processing records smaller lobbies in the ledger but does not rate them.
	FullRosterSize = 10

	// NameMatchThreshold is the minimum similarity score for fuzzy roster
	// lookups, on a 0-100 scale.
	NameMatchThreshold = 70.0

	DefaultLeaderboardSize = 10
)

const (
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
	BatchTimeout    = 5 * time.Minute
)

const (
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 1 * time.Hour
)

const (
	ShutdownTimeout = 5 * time.Second
)
