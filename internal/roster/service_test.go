package roster

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	students []Student
}

var _ Store = (*fakeStore)(nil)

func (f *fakeStore) indexOf(rollNo string) int {
	for i, st := range f.students {
		if st.RollNo == rollNo {
			return i
		}
	}
	return -1
}

func (f *fakeStore) Insert(_ context.Context, s Student) error {
	if f.indexOf(s.RollNo) >= 0 {
		return ErrDuplicate
	}
	f.students = append(f.students, s)
	return nil
}

func (f *fakeStore) InsertMany(_ context.Context, students []Student) (int, error) {
	inserted := 0
	for _, st := range students {
		if f.indexOf(st.RollNo) >= 0 {
			continue
		}
		f.students = append(f.students, st)
		inserted++
	}
	return inserted, nil
}

func (f *fakeStore) Get(_ context.Context, rollNo string) (Student, error) {
	if i := f.indexOf(rollNo); i >= 0 {
		return f.students[i], nil
	}
	return Student{}, ErrNotFound
}

func (f *fakeStore) Update(_ context.Context, rollNo string, p Patch) (Student, error) {
	i := f.indexOf(rollNo)
	if i < 0 {
		return Student{}, ErrNotFound
	}
	st := f.students[i]
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&st.RollNo, p.RollNo)
	apply(&st.Name, p.Name)
	apply(&st.HostellerDayScholar, p.HostellerDayScholar)
	apply(&st.Gender, p.Gender)
	apply(&st.YearOfStudy, p.YearOfStudy)
	apply(&st.Branch, p.Branch)
	apply(&st.Section, p.Section)
	apply(&st.ParentMobileNo, p.ParentMobileNo)
	apply(&st.StudentMobileNo, p.StudentMobileNo)
	apply(&st.SuperPacc, p.SuperPacc)
	f.students[i] = st
	return st, nil
}

func (f *fakeStore) Delete(_ context.Context, rollNo string) error {
	i := f.indexOf(rollNo)
	if i < 0 {
		return ErrNotFound
	}
	f.students = append(f.students[:i], f.students[i+1:]...)
	return nil
}

func matchesKey(st Student, key ClassKey) bool {
	if key.YearOfStudy != "" && st.YearOfStudy != key.YearOfStudy {
		return false
	}
	if key.Branch != "" && st.Branch != key.Branch {
		return false
	}
	if key.Section != "" && st.Section != key.Section {
		return false
	}
	return true
}

func (f *fakeStore) DeleteWhere(_ context.Context, key ClassKey) (int64, error) {
	var kept []Student
	var deleted int64
	for _, st := range f.students {
		if matchesKey(st, key) {
			deleted++
			continue
		}
		kept = append(kept, st)
	}
	f.students = kept
	return deleted, nil
}

func (f *fakeStore) FindByClassKey(_ context.Context, key ClassKey) ([]Student, error) {
	var out []Student
	for _, st := range f.students {
		if st.ClassKey() == key {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeStore) FindSuperPacc(_ context.Context, key ClassKey) ([]Student, error) {
	var out []Student
	for _, st := range f.students {
		if st.ClassKey() == key && st.SuperPacc == "YES" {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeStore) All(_ context.Context) ([]Student, error) {
	return f.students, nil
}

func (f *fakeStore) SearchByName(_ context.Context, name string) ([]Student, error) {
	var out []Student
	for _, st := range f.students {
		if strings.Contains(strings.ToLower(st.Name), strings.ToLower(name)) {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeStore) SearchByRollNo(_ context.Context, rollNo string, limit int) ([]Student, error) {
	var out []Student
	for _, st := range f.students {
		if strings.HasPrefix(st.RollNo, rollNo) {
			out = append(out, st)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) ListBasic(_ context.Context) ([]Student, error) {
	return f.students, nil
}

func (f *fakeStore) ExistingRollNos(_ context.Context, rollNos []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, r := range rollNos {
		if f.indexOf(r) >= 0 {
			out[r] = true
		}
	}
	return out, nil
}

func (f *fakeStore) SetSuperPacc(_ context.Context, rollNo, value string) error {
	i := f.indexOf(rollNo)
	if i < 0 {
		return ErrNotFound
	}
	f.students[i].SuperPacc = value
	return nil
}

func (f *fakeStore) UpdateYear(_ context.Context, fromYear, toYear string) (int64, error) {
	var n int64
	for i, st := range f.students {
		if st.YearOfStudy == fromYear {
			f.students[i].YearOfStudy = toYear
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) DistinctClassKeys(_ context.Context) ([]ClassInfo, error) {
	counts := make(map[ClassKey]int)
	var order []ClassKey
	for _, st := range f.students {
		key := st.ClassKey()
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key]++
	}
	out := make([]ClassInfo, 0, len(order))
	for _, key := range order {
		out = append(out, ClassInfo{ClassKey: key, StudentCount: counts[key]})
	}
	return out, nil
}

func seededService() (*Service, *fakeStore) {
	store := &fakeStore{students: []Student{
		{RollNo: "A1", Name: "Anil", YearOfStudy: "I", Branch: "AIDS", Section: "A", SuperPacc: "NO"},
		{RollNo: "A2", Name: "Aruna", YearOfStudy: "I", Branch: "AIDS", Section: "B", SuperPacc: "NO"},
		{RollNo: "B1", Name: "Bhuvan", YearOfStudy: "II", Branch: "AIDS", Section: "A", SuperPacc: "YES"},
		{RollNo: "C1", Name: "Charan", YearOfStudy: "II", Branch: "CSE", Section: "A", SuperPacc: "NO"},
	}}
	return NewService(store), store
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults applied", func(t *testing.T) {
		svc, store := seededService()
		created, err := svc.Create(ctx, Student{RollNo: "D1", Name: "Devi", Branch: "ECE"})
		require.NoError(t, err)
		assert.Equal(t, NoSection, created.Section)
		assert.Equal(t, "NO", created.SuperPacc)
		assert.True(t, store.indexOf("D1") >= 0)
	})

	t.Run("missing required field", func(t *testing.T) {
		svc, _ := seededService()
		_, err := svc.Create(ctx, Student{RollNo: "D2", Branch: "ECE"})
		assert.Error(t, err)
	})

	t.Run("duplicate roll number", func(t *testing.T) {
		svc, _ := seededService()
		_, err := svc.Create(ctx, Student{RollNo: "A1", Name: "Clone", Branch: "AIDS"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	name := "Anil Kumar"
	takenRoll := "A2"
	freshRoll := "A9"

	t.Run("empty patch rejected", func(t *testing.T) {
		svc, _ := seededService()
		_, err := svc.Update(ctx, "A1", Patch{})
		assert.Error(t, err)
	})

	t.Run("field change", func(t *testing.T) {
		svc, _ := seededService()
		updated, err := svc.Update(ctx, "A1", Patch{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, name, updated.Name)
	})

	t.Run("rollNo change to taken value", func(t *testing.T) {
		svc, _ := seededService()
		_, err := svc.Update(ctx, "A1", Patch{RollNo: &takenRoll})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("rollNo change to free value", func(t *testing.T) {
		svc, store := seededService()
		updated, err := svc.Update(ctx, "A1", Patch{RollNo: &freshRoll})
		require.NoError(t, err)
		assert.Equal(t, freshRoll, updated.RollNo)
		assert.Equal(t, -1, store.indexOf("A1"))
	})

	t.Run("unknown student", func(t *testing.T) {
		svc, _ := seededService()
		_, err := svc.Update(ctx, "Z9", Patch{Name: &name})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestBulkDelete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		year        string
		branch      string
		section     string
		wantDeleted int64
		wantLeft    int
	}{
		{name: "all wipes the roster", year: "All", wantDeleted: 4, wantLeft: 0},
		{name: "all ignores narrower fields", year: "All", branch: "AIDS", section: "A", wantDeleted: 4, wantLeft: 0},
		{name: "year only", year: "I", wantDeleted: 2, wantLeft: 2},
		{name: "year and branch", year: "II", branch: "AIDS", wantDeleted: 1, wantLeft: 3},
		{name: "full key", year: "I", branch: "AIDS", section: "A", wantDeleted: 1, wantLeft: 3},
		{name: "wildcard branch keeps section out of the filter", year: "I", branch: "All", section: "A", wantDeleted: 2, wantLeft: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := seededService()
			deleted, err := svc.BulkDelete(ctx, tt.year, tt.branch, tt.section)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDeleted, deleted)
			assert.Len(t, store.students, tt.wantLeft)
		})
	}

	t.Run("year is required", func(t *testing.T) {
		svc, _ := seededService()
		_, err := svc.BulkDelete(ctx, "", "", "")
		assert.Error(t, err)
	})
}

func TestPromoteYear(t *testing.T) {
	ctx := context.Background()

	t.Run("promotes matching students", func(t *testing.T) {
		svc, store := seededService()
		n, err := svc.PromoteYear(ctx, "I", "II")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		for _, st := range store.students {
			assert.NotEqual(t, "I", st.YearOfStudy)
		}
	})

	t.Run("invalid year label", func(t *testing.T) {
		svc, _ := seededService()
		_, err := svc.PromoteYear(ctx, "V", "VI")
		assert.Error(t, err)
	})

	t.Run("empty source year", func(t *testing.T) {
		svc, _ := seededService()
		_, err := svc.PromoteYear(ctx, "IV", "I")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestBatchSetSuperPacc(t *testing.T) {
	svc, store := seededService()
	updated, skipped, err := svc.BatchSetSuperPacc(context.Background(), map[string]bool{
		"A1": true,
		"B1": false,
		"Z9": true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated)
	assert.Equal(t, []string{"Z9"}, skipped)
	assert.Equal(t, "YES", store.students[store.indexOf("A1")].SuperPacc)
	assert.Equal(t, "NO", store.students[store.indexOf("B1")].SuperPacc)
}

func TestRollNoValue(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{in: "A1", want: 1},
		{in: "CSE2K21-042", want: 221042},
		{in: "715522AD101", want: 715522101},
		{in: "nodigits", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RollNoValue(tt.in))
		})
	}
}

func TestSortByRollNo(t *testing.T) {
	students := []Student{{RollNo: "A10"}, {RollNo: "A2"}, {RollNo: "A1"}}
	SortByRollNo(students)
	assert.Equal(t, "A1", students[0].RollNo)
	assert.Equal(t, "A2", students[1].RollNo)
	assert.Equal(t, "A10", students[2].RollNo)
}
