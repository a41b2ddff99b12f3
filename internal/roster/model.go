package roster

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// NoSection is the wire sentinel for year/branch-only cohorts.
const NoSection = "-"

// ClassKey identifies a cohort.
type ClassKey struct {
	YearOfStudy string `json:"yearOfStudy"`
	Branch      string `json:"branch"`
	Section     string `json:"section"`
}

// String renders the "II-AIDS-A" form used in status responses.
func (k ClassKey) String() string {
	return k.YearOfStudy + "-" + k.Branch + "-" + k.Section
}

// Complete reports whether all three fields are set.
func (k ClassKey) Complete() bool {
	return k.YearOfStudy != "" && k.Branch != "" && k.Section != ""
}

// Student is a roster entry. rollNo is the natural key throughout the system.
type Student struct {
	RollNo              string `json:"rollNo" validate:"required"`
	Name                string `json:"name" validate:"required"`
	HostellerDayScholar string `json:"hostellerDayScholar"`
	Gender              string `json:"gender"`
	YearOfStudy         string `json:"yearOfStudy"`
	Branch              string `json:"branch" validate:"required"`
	Section             string `json:"section"`
	ParentMobileNo      string `json:"parentMobileNo"`
	StudentMobileNo     string `json:"studentMobileNo"`
	SuperPacc           string `json:"superPacc"`
}

// ClassKey returns the cohort the student belongs to.
func (s Student) ClassKey() ClassKey {
	return ClassKey{YearOfStudy: s.YearOfStudy, Branch: s.Branch, Section: s.Section}
}

// Patch carries the mutable student fields for an update. Nil means leave
// unchanged; only these fields are ever written, arbitrary payload keys
// never reach the store.
type Patch struct {
	RollNo              *string `json:"rollNo"`
	Name                *string `json:"name"`
	HostellerDayScholar *string `json:"hostellerDayScholar"`
	Gender              *string `json:"gender"`
	YearOfStudy         *string `json:"yearOfStudy"`
	Branch              *string `json:"branch"`
	Section             *string `json:"section"`
	ParentMobileNo      *string `json:"parentMobileNo"`
	StudentMobileNo     *string `json:"studentMobileNo"`
	SuperPacc           *string `json:"superPacc"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.RollNo == nil && p.Name == nil && p.HostellerDayScholar == nil &&
		p.Gender == nil && p.YearOfStudy == nil && p.Branch == nil &&
		p.Section == nil && p.ParentMobileNo == nil && p.StudentMobileNo == nil &&
		p.SuperPacc == nil
}

// ClassInfo is a distinct cohort with its roster size.
type ClassInfo struct {
	ClassKey
	StudentCount int `json:"studentCount"`
}

var (
	// ErrNotFound signals a lookup by rollNo (or a roster query) matched nothing.
	ErrNotFound = errors.New("student not found")
	// ErrDuplicate signals an insert or rollNo change collided with an existing entry.
	ErrDuplicate = errors.New("student with this roll number already exists")
)

// RollNoValue extracts the numeric portion of a roll number. Roll numbers
// are alphanumeric with a numeric suffix that encodes seating order, so
// lists shown to staff sort by this value rather than lexicographically.
func RollNoValue(rollNo string) int {
	var b strings.Builder
	for _, r := range rollNo {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return n
}

// SortByRollNo orders students ascending by the numeric portion of rollNo.
func SortByRollNo(students []Student) {
	sort.SliceStable(students, func(i, j int) bool {
		return RollNoValue(students[i].RollNo) < RollNoValue(students[j].RollNo)
	})
}
