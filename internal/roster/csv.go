package roster

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// csvColumns is the fixed header-less column order of roster import files.
var csvColumns = []string{"rollNo", "name", "hostellerDayScholar", "gender", "yearOfStudy", "branch", "section"}

// ImportResult reports the outcome of a bulk import. Bad or duplicate rows
// never fail the batch; they are skipped with a reason.
type ImportResult struct {
	Inserted int          `json:"inserted"`
	Skipped  []SkippedRow `json:"skipped,omitempty"`
}

// SkippedRow names a row that was not imported and why.
type SkippedRow struct {
	RollNo string `json:"rollNo"`
	Reason string `json:"reason"`
}

// ImportCSV ingests a header-less CSV roster file: one batched read of
// existing roll numbers, then one batched write of the new rows.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []Student
	var result ImportResult
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{
				RollNo: fmt.Sprintf("line %d", line),
				Reason: "unparseable row: " + err.Error(),
			})
			continue
		}
		if len(record) < len(csvColumns) {
			result.Skipped = append(result.Skipped, SkippedRow{
				RollNo: fmt.Sprintf("line %d", line),
				Reason: fmt.Sprintf("expected %d columns, got %d", len(csvColumns), len(record)),
			})
			continue
		}
		st := Student{
			RollNo:              strings.TrimSpace(record[0]),
			Name:                strings.TrimSpace(record[1]),
			HostellerDayScholar: strings.TrimSpace(record[2]),
			Gender:              strings.TrimSpace(record[3]),
			YearOfStudy:         strings.TrimSpace(record[4]),
			Branch:              strings.TrimSpace(record[5]),
			Section:             strings.TrimSpace(record[6]),
			SuperPacc:           "NO",
		}
		if st.Section == "" {
			st.Section = NoSection
		}
		if err := s.validate.Struct(st); err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{RollNo: st.RollNo, Reason: "invalid row: " + err.Error()})
			continue
		}
		rows = append(rows, st)
	}
	if len(rows) == 0 {
		return result, nil
	}

	rollNos := make([]string, 0, len(rows))
	for _, st := range rows {
		rollNos = append(rollNos, st.RollNo)
	}
	existing, err := s.store.ExistingRollNos(ctx, rollNos)
	if err != nil {
		return result, err
	}

	seen := map[string]bool{}
	fresh := rows[:0]
	for _, st := range rows {
		if existing[st.RollNo] {
			result.Skipped = append(result.Skipped, SkippedRow{RollNo: st.RollNo, Reason: "roll number already exists"})
			continue
		}
		if seen[st.RollNo] {
			result.Skipped = append(result.Skipped, SkippedRow{RollNo: st.RollNo, Reason: "duplicate row in file"})
			continue
		}
		seen[st.RollNo] = true
		fresh = append(fresh, st)
	}
	if len(fresh) == 0 {
		return result, nil
	}

	inserted, err := s.store.InsertMany(ctx, fresh)
	result.Inserted = inserted
	return result, err
}
