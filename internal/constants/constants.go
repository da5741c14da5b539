package constants

import "time"

// Scoring.
const (
	PointsPerTeamWin = 1000
	PointsPerFrag    = 300
)

// Battle result codes carried on the wire and in the persisted blob.
const (
	ResultInBattle = -1
	ResultDefeat   = 0
	ResultVictory  = 1
	ResultDraw     = 2
)

// Placeholders stand in for missing data and never overwrite real values.
const (
	UnknownPlayer  = "Unknown Player"
	UnknownVehicle = "Unknown Vehicle"
	UnknownMap     = "Unknown Map"
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	PollInterval  = 5 * time.Minute
	DebounceDelay = 500 * time.Millisecond
)

const (
	WSHandshakeTimeout  = 20 * time.Second
	WSReconnectDelay    = 1 * time.Second
	WSMaxReconnectDelay = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)
