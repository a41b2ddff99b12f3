package attendance

import (
	"errors"
	"time"

	"rollcall/internal/roster"
)

// Status of a student for one calendar date.
type Status string

const (
	StatusPresent   Status = "Present"
	StatusAbsent    Status = "Absent"
	StatusOnDuty    Status = "On Duty"
	StatusSuperPacc Status = "SuperPacc"
)

// Valid reports whether s is one of the four recognized statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusOnDuty, StatusSuperPacc:
		return true
	}
	return false
}

// InfoStatus records whether a guardian has been notified of an absence.
type InfoStatus string

const (
	InfoNA          InfoStatus = "NA"
	InfoInformed    InfoStatus = "Informed"
	InfoNotInformed InfoStatus = "NotInformed"
)

// DateLayout is the canonical wire format for dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD wire date. Comparisons downstream are
// chronological on the parsed value, never on the raw string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, errors.New("date must be YYYY-MM-DD")
	}
	return t, nil
}

// Record is one student's attendance for one date in one class.
// The natural key is (rollNo, date, yearOfStudy, branch, section); the
// store enforces uniqueness on that tuple.
type Record struct {
	RollNo     string
	Date       time.Time
	Status     Status
	Class      roster.ClassKey
	Locked     bool
	LeaveCount int
	InfoStatus InfoStatus
}

var (
	// ErrNoSuchClass signals a class-key with an empty roster.
	ErrNoSuchClass = errors.New("no students found for this class")
	// ErrAlreadyFullyRecorded signals that every roster member already has a record for the date.
	ErrAlreadyFullyRecorded = errors.New("attendance has already been marked for all students")
	// ErrNotMarked signals a snapshot query against a day with zero records.
	ErrNotMarked = errors.New("attendance has not been marked for this class on this date")
	// ErrNoSuperPacc signals a SuperPacc sweep over a class with no eligible students.
	ErrNoSuperPacc = errors.New("no students with SuperPacc found for the given criteria")
	// ErrInvalidStatus signals an out-of-set status value.
	ErrInvalidStatus = errors.New("invalid attendance status")
	// ErrInvalidInfoStatus signals an out-of-set info status value.
	ErrInvalidInfoStatus = errors.New("info status must be Informed or NotInformed")
)
