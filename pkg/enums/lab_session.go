package enums

import "fmt"

// LabSession is the half-day slot an experiment runs in.
type LabSession string

const (
	LabSessionMorning   LabSession = "morning"
	LabSessionAfternoon LabSession = "afternoon"
)

// IsValid reports whether the value is a known LabSession.
func (s LabSession) IsValid() bool {
	return s == LabSessionMorning || s == LabSessionAfternoon
}

// ParseLabSession converts raw input into a LabSession.
func ParseLabSession(value string) (LabSession, error) {
	switch LabSession(value) {
	case LabSessionMorning:
		return LabSessionMorning, nil
	case LabSessionAfternoon:
		return LabSessionAfternoon, nil
	default:
		return "", fmt.Errorf("invalid lab session %q", value)
	}
}
