package types

// Version is the canonical project version.
// The CLI, the event log format and the capture record layout share it.
const Version = "0.3.0"

// EventLogVersion is the version stamped into recorded event logs.
// It moves in lockstep with Version.
const EventLogVersion = Version
