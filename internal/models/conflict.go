package models

// ConflictType names the constraint a candidate assignment violates.
type ConflictType string

const (
	ConflictTypeInput     ConflictType = "INPUT"
	ConflictTypeCapacity  ConflictType = "CAPACITY"
	ConflictTypeRoomType  ConflictType = "ROOM_TYPE"
	ConflictTypeClassroom ConflictType = "CLASSROOM"
	ConflictTypeDoctor    ConflictType = "DOCTOR"
	ConflictTypeTA        ConflictType = "TA"
)

// ConflictSeverity splits blocking errors from informational warnings.
type ConflictSeverity string

const (
	SeverityError   ConflictSeverity = "ERROR"
	SeverityWarning ConflictSeverity = "WARNING"
)

// Conflict is a detected violation of a scheduling constraint. Conflicts
// are returned as data and never persisted.
type Conflict struct {
	Type                ConflictType     `json:"type"`
	Severity            ConflictSeverity `json:"severity"`
	Message             string           `json:"message"`
	ReferencedSchedules []string         `json:"referenced_schedules,omitempty"`
}

// IsBlocking reports whether the conflict prevents a state transition.
func (c Conflict) IsBlocking() bool {
	return c.Severity == SeverityError
}

// HasBlocking reports whether any conflict in the list is an error.
func HasBlocking(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.IsBlocking() {
			return true
		}
	}
	return false
}
