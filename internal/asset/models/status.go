package models

import "fmt"

// Status is the lifecycle position of an asset. Values are ordered: a
// transition may only move status forward along the legal edges, never
// backward and never skipping a state (except SOLD, reachable from either
// SANITIZED or RECYCLED).
type Status int

const (
	StatusRegistered Status = iota
	StatusSanitized
	StatusRecycled
	StatusSold
)

var statusNames = map[Status]string{
	StatusRegistered: "REGISTERED",
	StatusSanitized:  "SANITIZED",
	StatusRecycled:   "RECYCLED",
	StatusSold:       "SOLD",
}

// legalEdges encodes the transition DAG:
//
//	REGISTERED --sanitize--> SANITIZED --recycle--> RECYCLED
//	                  \                                  |
//	                   \--transfer------------> SOLD <---/
var legalEdges = map[Status][]Status{
	StatusRegistered: {StatusSanitized},
	StatusSanitized:  {StatusRecycled, StatusSold},
	StatusRecycled:   {StatusSold},
	StatusSold:       nil,
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// CanTransitionTo reports whether moving from s to next is a legal edge.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range legalEdges[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// MarshalText renders the status by name for JSON payloads.
func (s Status) MarshalText() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown status %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText parses a status by name.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(text))
}
