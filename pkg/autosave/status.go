package autosave

import "fmt"

// Status is the save state of an editing session.
type Status int

const (
	StatusIdle Status = iota
	StatusSaving
	StatusSaved
	StatusError
)

var statusNames = map[Status]string{
	StatusIdle:   "idle",
	StatusSaving: "saving",
	StatusSaved:  "saved",
	StatusError:  "error",
}

// transitions lists the legal moves out of each status.
var transitions = map[Status][]Status{
	StatusIdle:   {StatusSaving},
	StatusSaving: {StatusSaved, StatusError},
	StatusSaved:  {StatusIdle, StatusSaving},
	StatusError:  {StatusIdle, StatusSaving},
}

// CanTransition reports whether s may move to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText renders the status as its lowercase name.
func (s Status) MarshalText() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("autosave: unknown status %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText parses a lowercase status name.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("autosave: unknown status %q", string(text))
}
