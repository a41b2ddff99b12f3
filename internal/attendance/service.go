package attendance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"rollcall/internal/metrics"
	"rollcall/internal/roster"
)

// RosterStore is the slice of the student directory the engine reads.
type RosterStore interface {
	FindByClassKey(ctx context.Context, key roster.ClassKey) ([]roster.Student, error)
	FindSuperPacc(ctx context.Context, key roster.ClassKey) ([]roster.Student, error)
	All(ctx context.Context) ([]roster.Student, error)
	DistinctClassKeys(ctx context.Context) ([]roster.ClassInfo, error)
}

// RecordStore persists attendance records.
type RecordStore interface {
	FindByClassKeyAndDate(ctx context.Context, key roster.ClassKey, date time.Time) ([]Record, error)
	FindByDate(ctx context.Context, date time.Time) ([]Record, error)
	// FindLatestBefore returns the most recent record strictly before date
	// for the same rollNo and class, or nil when none exists.
	FindLatestBefore(ctx context.Context, rollNo string, key roster.ClassKey, date time.Time) (*Record, error)
	// InsertMany inserts records, skipping natural-key conflicts. Returns
	// the inserted count and the roll numbers that were skipped.
	InsertMany(ctx context.Context, records []Record) (int, []string, error)
	// UpdateWhereAbsent moves records currently in Absent to the target
	// status and zeroes their leave count. Records in any other state are
	// left untouched.
	UpdateWhereAbsent(ctx context.Context, key roster.ClassKey, date time.Time, rollNos []string, to Status) (int64, error)
	// UpdateStatus overwrites the status field of one record, leaving
	// leaveCount and infoStatus as they are.
	UpdateStatus(ctx context.Context, key roster.ClassKey, date time.Time, rollNo string, to Status) (bool, error)
	UpdateInfoStatus(ctx context.Context, rollNo string, date time.Time, info InfoStatus) (bool, error)
}

// Service is the attendance reconciliation engine: roster-vs-record diffs,
// state transitions and the consecutive-absence streak.
type Service struct {
	roster  RosterStore
	records RecordStore
}

// NewService creates the engine over its two storage collaborators.
func NewService(rosterStore RosterStore, recordStore RecordStore) *Service {
	return &Service{roster: rosterStore, records: recordStore}
}

// NameEntry is a roster member in diff and absentee listings.
type NameEntry struct {
	RollNo string `json:"rollNo"`
	Name   string `json:"name"`
}

// UnrecordedResult is the roster-diff output.
type UnrecordedResult struct {
	Students      []NameEntry `json:"students"`
	TotalStudents int         `json:"totalStudents"`
}

func sortEntriesByRollNo(entries []NameEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return roster.RollNoValue(entries[i].RollNo) < roster.RollNoValue(entries[j].RollNo)
	})
}

func (s *Service) classRoster(ctx context.Context, key roster.ClassKey) ([]roster.Student, error) {
	students, err := s.roster.FindByClassKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch roster %s: %w", key, err)
	}
	if len(students) == 0 {
		return nil, fmt.Errorf("%w: %s %s %s", ErrNoSuchClass, key.YearOfStudy, key.Branch, key.Section)
	}
	return students, nil
}

// FindUnrecorded computes which roster members have no attendance record yet
// for the date. Read-only.
func (s *Service) FindUnrecorded(ctx context.Context, key roster.ClassKey, date time.Time) (UnrecordedResult, error) {
	students, err := s.classRoster(ctx, key)
	if err != nil {
		return UnrecordedResult{}, err
	}
	records, err := s.records.FindByClassKeyAndDate(ctx, key, date)
	if err != nil {
		return UnrecordedResult{}, fmt.Errorf("fetch attendance %s %s: %w", key, date.Format(DateLayout), err)
	}

	recorded := make(map[string]bool, len(records))
	for _, rec := range records {
		recorded[rec.RollNo] = true
	}

	unrecorded := []NameEntry{}
	for _, st := range students {
		if !recorded[st.RollNo] {
			unrecorded = append(unrecorded, NameEntry{RollNo: st.RollNo, Name: st.Name})
		}
	}
	if len(unrecorded) == 0 {
		return UnrecordedResult{}, ErrAlreadyFullyRecorded
	}
	sortEntriesByRollNo(unrecorded)
	return UnrecordedResult{Students: unrecorded, TotalStudents: len(students)}, nil
}

// MarkOnDuty flips records currently in Absent to On Duty and zeroes their
// streak; on-duty absences do not count against the leave streak. Records in
// any other state (or missing) are untouched.
func (s *Service) MarkOnDuty(ctx context.Context, key roster.ClassKey, date time.Time, rollNos []string) (int64, error) {
	if len(rollNos) == 0 {
		return 0, errors.New("roll numbers are required")
	}
	changed, err := s.records.UpdateWhereAbsent(ctx, key, date, rollNos, StatusOnDuty)
	if err != nil {
		return 0, fmt.Errorf("mark on duty %s %s: %w", key, date.Format(DateLayout), err)
	}
	metrics.Transitions.WithLabelValues("on_duty").Add(float64(changed))
	return changed, nil
}

// MarkAbsentResult reports new absences against requested ones; roll numbers
// already carrying a record for the date are skipped, not duplicated.
type MarkAbsentResult struct {
	Marked  int      `json:"marked"`
	Skipped []string `json:"skipped,omitempty"`
}

// MarkAbsent creates Absent records for the given roll numbers, computing
// each student's consecutive-absence streak at insert time. A tuple that
// already exists is skipped via the store's natural-key constraint, so a
// double submit cannot produce duplicate rows.
func (s *Service) MarkAbsent(ctx context.Context, key roster.ClassKey, date time.Time, rollNos []string) (MarkAbsentResult, error) {
	if len(rollNos) == 0 {
		return MarkAbsentResult{}, errors.New("roll numbers are required")
	}
	records := make([]Record, 0, len(rollNos))
	for _, rollNo := range rollNos {
		streak, err := s.computeStreak(ctx, rollNo, key, date)
		if err != nil {
			return MarkAbsentResult{}, err
		}
		records = append(records, Record{
			RollNo:     rollNo,
			Date:       date,
			Status:     StatusAbsent,
			Class:      key,
			Locked:     false,
			LeaveCount: streak,
			InfoStatus: InfoNotInformed,
		})
	}
	inserted, skipped, err := s.records.InsertMany(ctx, records)
	if err != nil {
		return MarkAbsentResult{}, fmt.Errorf("mark absent %s %s: %w", key, date.Format(DateLayout), err)
	}
	metrics.Transitions.WithLabelValues("absent").Add(float64(inserted))
	return MarkAbsentResult{Marked: inserted, Skipped: skipped}, nil
}

// computeStreak returns the leave count for a new Absent record: the most
// recent prior record's count plus one, or 1 when there is no prior record
// or its count is zero. Streaks are computed only at Absent-insert time and
// never rebuilt retroactively when history is edited; a later manual
// correction therefore does not cascade into already-written counts.
func (s *Service) computeStreak(ctx context.Context, rollNo string, key roster.ClassKey, date time.Time) (int, error) {
	prev, err := s.records.FindLatestBefore(ctx, rollNo, key, date)
	if err != nil {
		return 0, fmt.Errorf("streak lookup %s %s: %w", rollNo, date.Format(DateLayout), err)
	}
	if prev == nil || prev.LeaveCount <= 0 {
		return 1, nil
	}
	return prev.LeaveCount + 1, nil
}

// SweepPresent marks every roster member without any record for the date as
// Present. Idempotent: a second sweep finds nothing left and inserts zero.
func (s *Service) SweepPresent(ctx context.Context, key roster.ClassKey, date time.Time) (int, error) {
	students, err := s.classRoster(ctx, key)
	if err != nil {
		return 0, err
	}
	records, err := s.records.FindByClassKeyAndDate(ctx, key, date)
	if err != nil {
		return 0, fmt.Errorf("fetch attendance %s %s: %w", key, date.Format(DateLayout), err)
	}
	recorded := make(map[string]bool, len(records))
	for _, rec := range records {
		recorded[rec.RollNo] = true
	}

	var remaining []Record
	for _, st := range students {
		if recorded[st.RollNo] {
			continue
		}
		remaining = append(remaining, Record{
			RollNo:     st.RollNo,
			Date:       date,
			Status:     StatusPresent,
			Class:      key,
			Locked:     false,
			LeaveCount: 0,
			InfoStatus: InfoNA,
		})
	}
	if len(remaining) == 0 {
		return 0, nil
	}
	inserted, _, err := s.records.InsertMany(ctx, remaining)
	if err != nil {
		return 0, fmt.Errorf("sweep present %s %s: %w", key, date.Format(DateLayout), err)
	}
	metrics.Transitions.WithLabelValues("present_sweep").Add(float64(inserted))
	metrics.LastSweepSize.Set(float64(inserted))
	return inserted, nil
}

// SuperPaccResult separates overridden records from freshly inserted ones.
type SuperPaccResult struct {
	Updated int `json:"recordsUpdated"`
	Added   int `json:"recordsAdded"`
}

// MarkSuperPacc applies the exemption override for every eligible student of
// the class: an existing record of any status becomes SuperPacc, a missing
// one is inserted. Unlike the on-duty transition this fires from any state.
func (s *Service) MarkSuperPacc(ctx context.Context, key roster.ClassKey, date time.Time) (SuperPaccResult, error) {
	eligible, err := s.roster.FindSuperPacc(ctx, key)
	if err != nil {
		return SuperPaccResult{}, fmt.Errorf("fetch superpacc roster %s: %w", key, err)
	}
	if len(eligible) == 0 {
		return SuperPaccResult{}, ErrNoSuperPacc
	}
	records, err := s.records.FindByClassKeyAndDate(ctx, key, date)
	if err != nil {
		return SuperPaccResult{}, fmt.Errorf("fetch attendance %s %s: %w", key, date.Format(DateLayout), err)
	}
	existing := make(map[string]Record, len(records))
	for _, rec := range records {
		existing[rec.RollNo] = rec
	}

	var result SuperPaccResult
	var inserts []Record
	for _, st := range eligible {
		rec, ok := existing[st.RollNo]
		if !ok {
			inserts = append(inserts, Record{
				RollNo:     st.RollNo,
				Date:       date,
				Status:     StatusSuperPacc,
				Class:      key,
				Locked:     false,
				LeaveCount: 0,
				InfoStatus: InfoNA,
			})
			continue
		}
		if rec.Status == StatusSuperPacc {
			continue
		}
		changed, err := s.records.UpdateStatus(ctx, key, date, st.RollNo, StatusSuperPacc)
		if err != nil {
			return result, fmt.Errorf("superpacc update %s: %w", st.RollNo, err)
		}
		if changed {
			result.Updated++
		}
	}
	if len(inserts) > 0 {
		added, _, err := s.records.InsertMany(ctx, inserts)
		if err != nil {
			return result, fmt.Errorf("superpacc insert %s %s: %w", key, date.Format(DateLayout), err)
		}
		result.Added = added
	}
	metrics.Transitions.WithLabelValues("superpacc").Add(float64(result.Updated + result.Added))
	return result, nil
}

// OverrideStatus is the manual correction path: each roll number's status is
// overwritten (or a fresh record inserted with default counters). It
// deliberately bypasses streak recomputation, trading eventual leaveCount
// consistency for a fast admin fix.
func (s *Service) OverrideStatus(ctx context.Context, key roster.ClassKey, date time.Time, mapping map[string]Status) error {
	if len(mapping) == 0 {
		return errors.New("roll number state mapping is required")
	}
	for rollNo, status := range mapping {
		if !status.Valid() {
			return fmt.Errorf("%w for roll number %s: %q", ErrInvalidStatus, rollNo, status)
		}
	}
	records, err := s.records.FindByClassKeyAndDate(ctx, key, date)
	if err != nil {
		return fmt.Errorf("fetch attendance %s %s: %w", key, date.Format(DateLayout), err)
	}
	existing := make(map[string]bool, len(records))
	for _, rec := range records {
		existing[rec.RollNo] = true
	}

	var inserts []Record
	for rollNo, status := range mapping {
		if existing[rollNo] {
			if _, err := s.records.UpdateStatus(ctx, key, date, rollNo, status); err != nil {
				return fmt.Errorf("override %s: %w", rollNo, err)
			}
			continue
		}
		info := InfoNA
		if status == StatusAbsent {
			info = InfoNotInformed
		}
		inserts = append(inserts, Record{
			RollNo:     rollNo,
			Date:       date,
			Status:     status,
			Class:      key,
			Locked:     false,
			LeaveCount: 0,
			InfoStatus: info,
		})
	}
	if len(inserts) > 0 {
		if _, _, err := s.records.InsertMany(ctx, inserts); err != nil {
			return fmt.Errorf("override insert %s %s: %w", key, date.Format(DateLayout), err)
		}
	}
	metrics.Transitions.WithLabelValues("override").Add(float64(len(mapping)))
	return nil
}

// StateEntry is one student's effective status in a snapshot.
type StateEntry struct {
	RollNo string `json:"rollNo"`
	Name   string `json:"name"`
	State  Status `json:"state"`
}

// SnapshotResult lists every roster member's effective status for a date.
type SnapshotResult struct {
	States        []StateEntry `json:"attendanceStates"`
	TotalStudents int          `json:"totalStudents"`
}

// Snapshot returns every roster student's status for the date, presuming
// Absent for anyone without a record: no row means "absent until proven
// otherwise". ErrNotMarked when the day has no records at all.
func (s *Service) Snapshot(ctx context.Context, key roster.ClassKey, date time.Time) (SnapshotResult, error) {
	students, err := s.classRoster(ctx, key)
	if err != nil {
		return SnapshotResult{}, err
	}
	records, err := s.records.FindByClassKeyAndDate(ctx, key, date)
	if err != nil {
		return SnapshotResult{}, fmt.Errorf("fetch attendance %s %s: %w", key, date.Format(DateLayout), err)
	}
	if len(records) == 0 {
		return SnapshotResult{}, ErrNotMarked
	}

	statusByRoll := make(map[string]Status, len(records))
	for _, rec := range records {
		statusByRoll[rec.RollNo] = rec.Status
	}
	states := make([]StateEntry, 0, len(students))
	for _, st := range students {
		state, ok := statusByRoll[st.RollNo]
		if !ok {
			state = StatusAbsent
		}
		states = append(states, StateEntry{RollNo: st.RollNo, Name: st.Name, State: state})
	}
	sort.SliceStable(states, func(i, j int) bool {
		return roster.RollNoValue(states[i].RollNo) < roster.RollNoValue(states[j].RollNo)
	})
	return SnapshotResult{States: states, TotalStudents: len(students)}, nil
}

// StatusCounts collapses a snapshot to absent-vs-other totals. Marked is
// false when the day has zero records, which the API layer renders as the
// "N/A" sentinel: "nobody absent" and "not yet marked" must stay distinct.
type StatusCounts struct {
	Class  string
	Marked bool
	Absent int
	Other  int
}

// Counts returns the absent/other totals for a class and date.
func (s *Service) Counts(ctx context.Context, key roster.ClassKey, date time.Time) (StatusCounts, error) {
	counts := StatusCounts{Class: key.String()}
	snap, err := s.Snapshot(ctx, key, date)
	if errors.Is(err, ErrNotMarked) {
		return counts, nil
	}
	if err != nil {
		return counts, err
	}
	counts.Marked = true
	for _, entry := range snap.States {
		if entry.State == StatusAbsent {
			counts.Absent++
		} else {
			counts.Other++
		}
	}
	return counts, nil
}

// AbsentEntry is one absent student on the dashboard.
type AbsentEntry struct {
	RollNo     string `json:"rollNo"`
	Name       string `json:"name"`
	LeaveCount int    `json:"leaveCount"`
}

// DashboardClass is one cohort's state on the department-wide dashboard.
type DashboardClass struct {
	YearOfStudy    string        `json:"yearOfStudy"`
	Branch         string        `json:"branch"`
	Section        string        `json:"section"`
	Status         string        `json:"status"` // "marked" or "not_marked"
	AbsentStudents []AbsentEntry `json:"absentStudents"`
	TotalStudents  int           `json:"totalStudents"`
}

// Dashboard fans the per-class snapshot out over every distinct class for
// one date. Roster and attendance are each fetched once and partitioned in
// memory rather than queried per class.
func (s *Service) Dashboard(ctx context.Context, date time.Time) ([]DashboardClass, error) {
	classes, err := s.roster.DistinctClassKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch distinct classes: %w", err)
	}
	dayRecords, err := s.records.FindByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("fetch attendance for %s: %w", date.Format(DateLayout), err)
	}
	allStudents, err := s.roster.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch roster: %w", err)
	}

	studentsByClass := make(map[roster.ClassKey][]roster.Student)
	for _, st := range allStudents {
		studentsByClass[st.ClassKey()] = append(studentsByClass[st.ClassKey()], st)
	}
	recordsByClass := make(map[roster.ClassKey]map[string]Record)
	for _, rec := range dayRecords {
		m, ok := recordsByClass[rec.Class]
		if !ok {
			m = make(map[string]Record)
			recordsByClass[rec.Class] = m
		}
		m[rec.RollNo] = rec
	}

	result := make([]DashboardClass, 0, len(classes))
	for _, cls := range classes {
		students := studentsByClass[cls.ClassKey]
		classRecords := recordsByClass[cls.ClassKey]
		entry := DashboardClass{
			YearOfStudy:    cls.YearOfStudy,
			Branch:         cls.Branch,
			Section:        cls.Section,
			AbsentStudents: []AbsentEntry{},
			TotalStudents:  len(students),
		}
		if len(classRecords) == 0 {
			entry.Status = "not_marked"
			result = append(result, entry)
			continue
		}
		entry.Status = "marked"
		for _, st := range students {
			if rec, ok := classRecords[st.RollNo]; ok && rec.Status == StatusAbsent {
				entry.AbsentStudents = append(entry.AbsentStudents, AbsentEntry{
					RollNo:     st.RollNo,
					Name:       st.Name,
					LeaveCount: rec.LeaveCount,
				})
			}
		}
		sort.SliceStable(entry.AbsentStudents, func(i, j int) bool {
			return roster.RollNoValue(entry.AbsentStudents[i].RollNo) < roster.RollNoValue(entry.AbsentStudents[j].RollNo)
		})
		result = append(result, entry)
	}
	return result, nil
}

// CurrentAbsentees lists the students carrying an Absent record for the date.
func (s *Service) CurrentAbsentees(ctx context.Context, key roster.ClassKey, date time.Time) ([]NameEntry, error) {
	students, records, err := s.classWithRecords(ctx, key, date)
	if err != nil {
		return nil, err
	}
	nameByRoll := make(map[string]string, len(students))
	for _, st := range students {
		nameByRoll[st.RollNo] = st.Name
	}
	absentees := []NameEntry{}
	for _, rec := range records {
		if rec.Status == StatusAbsent {
			absentees = append(absentees, NameEntry{RollNo: rec.RollNo, Name: nameByRoll[rec.RollNo]})
		}
	}
	sortEntriesByRollNo(absentees)
	return absentees, nil
}

// InfoStatusEntry is one absentee with their guardian-notification state.
type InfoStatusEntry struct {
	RollNo     string     `json:"rollNo"`
	Name       string     `json:"name"`
	InfoStatus InfoStatus `json:"infoStatus"`
}

// AbsentInfoStatus lists absent students with their notification state.
func (s *Service) AbsentInfoStatus(ctx context.Context, key roster.ClassKey, date time.Time) ([]InfoStatusEntry, error) {
	students, records, err := s.classWithRecords(ctx, key, date)
	if err != nil {
		return nil, err
	}
	nameByRoll := make(map[string]string, len(students))
	for _, st := range students {
		nameByRoll[st.RollNo] = st.Name
	}
	entries := []InfoStatusEntry{}
	for _, rec := range records {
		if rec.Status != StatusAbsent {
			continue
		}
		info := rec.InfoStatus
		if info == "" {
			info = InfoNotInformed
		}
		entries = append(entries, InfoStatusEntry{RollNo: rec.RollNo, Name: nameByRoll[rec.RollNo], InfoStatus: info})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return roster.RollNoValue(entries[i].RollNo) < roster.RollNoValue(entries[j].RollNo)
	})
	return entries, nil
}

// InfoStatusUpdate is one row of a bulk notification-state update.
type InfoStatusUpdate struct {
	RollNo     string     `json:"rollNo"`
	InfoStatus InfoStatus `json:"infoStatus"`
}

// InfoStatusReport is the partial-success outcome of a bulk update.
type InfoStatusReport struct {
	Updated []InfoStatusUpdate `json:"updated"`
	Errors  []string           `json:"errors,omitempty"`
}

// BulkUpdateInfoStatus applies notification-state changes row by row; a bad
// row is reported, never fatal for the batch.
func (s *Service) BulkUpdateInfoStatus(ctx context.Context, date time.Time, updates []InfoStatusUpdate) (InfoStatusReport, error) {
	if len(updates) == 0 {
		return InfoStatusReport{}, errors.New("updates are required")
	}
	report := InfoStatusReport{Updated: []InfoStatusUpdate{}}
	for _, upd := range updates {
		if upd.RollNo == "" {
			report.Errors = append(report.Errors, "missing roll number in update")
			continue
		}
		if upd.InfoStatus != InfoInformed && upd.InfoStatus != InfoNotInformed {
			report.Errors = append(report.Errors, fmt.Sprintf("invalid infoStatus for %s: %s", upd.RollNo, upd.InfoStatus))
			continue
		}
		changed, err := s.records.UpdateInfoStatus(ctx, upd.RollNo, date, upd.InfoStatus)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("error updating %s: %v", upd.RollNo, err))
			continue
		}
		if !changed {
			report.Errors = append(report.Errors, fmt.Sprintf("attendance record not found for %s", upd.RollNo))
			continue
		}
		report.Updated = append(report.Updated, upd)
	}
	return report, nil
}

// AbsenteesWithLeaveCount lists absent students carrying a positive streak,
// longest streak first.
func (s *Service) AbsenteesWithLeaveCount(ctx context.Context, key roster.ClassKey, date time.Time) ([]AbsentEntry, error) {
	students, records, err := s.classWithRecords(ctx, key, date)
	if err != nil {
		return nil, err
	}
	nameByRoll := make(map[string]string, len(students))
	for _, st := range students {
		nameByRoll[st.RollNo] = st.Name
	}
	entries := []AbsentEntry{}
	for _, rec := range records {
		if rec.Status == StatusAbsent && rec.LeaveCount > 0 {
			entries = append(entries, AbsentEntry{RollNo: rec.RollNo, Name: nameByRoll[rec.RollNo], LeaveCount: rec.LeaveCount})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].LeaveCount > entries[j].LeaveCount
	})
	return entries, nil
}

func (s *Service) classWithRecords(ctx context.Context, key roster.ClassKey, date time.Time) ([]roster.Student, []Record, error) {
	students, err := s.roster.FindByClassKey(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch roster %s: %w", key, err)
	}
	records, err := s.records.FindByClassKeyAndDate(ctx, key, date)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch attendance %s %s: %w", key, date.Format(DateLayout), err)
	}
	return students, records, nil
}
