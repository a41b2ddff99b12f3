package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Store is the persistence contract the service works against.
type Store interface {
	Insert(ctx context.Context, s Student) error
	InsertMany(ctx context.Context, students []Student) (int, error)
	Get(ctx context.Context, rollNo string) (Student, error)
	Update(ctx context.Context, rollNo string, p Patch) (Student, error)
	Delete(ctx context.Context, rollNo string) error
	DeleteWhere(ctx context.Context, key ClassKey) (int64, error)
	FindByClassKey(ctx context.Context, key ClassKey) ([]Student, error)
	FindSuperPacc(ctx context.Context, key ClassKey) ([]Student, error)
	All(ctx context.Context) ([]Student, error)
	SearchByName(ctx context.Context, name string) ([]Student, error)
	SearchByRollNo(ctx context.Context, rollNo string, limit int) ([]Student, error)
	ListBasic(ctx context.Context) ([]Student, error)
	ExistingRollNos(ctx context.Context, rollNos []string) (map[string]bool, error)
	SetSuperPacc(ctx context.Context, rollNo, value string) error
	UpdateYear(ctx context.Context, fromYear, toYear string) (int64, error)
	DistinctClassKeys(ctx context.Context) ([]ClassInfo, error)
}

var _ Store = (*Repository)(nil) // interface compliance check

var validYears = map[string]bool{"I": true, "II": true, "III": true, "IV": true}

// Service implements roster management on top of a Store.
type Service struct {
	store    Store
	validate *validator.Validate
}

// NewService creates a roster service.
func NewService(store Store) *Service {
	return &Service{store: store, validate: validator.New()}
}

// Create adds one student after validating required fields.
func (s *Service) Create(ctx context.Context, st Student) (Student, error) {
	if err := s.validate.Struct(st); err != nil {
		return Student{}, fmt.Errorf("invalid student: %w", err)
	}
	if st.Section == "" {
		st.Section = NoSection
	}
	if st.SuperPacc == "" {
		st.SuperPacc = "NO"
	}
	if err := s.store.Insert(ctx, st); err != nil {
		return Student{}, err
	}
	return st, nil
}

// Get fetches one student by roll number.
func (s *Service) Get(ctx context.Context, rollNo string) (Student, error) {
	if rollNo == "" {
		return Student{}, errors.New("roll number is required")
	}
	return s.store.Get(ctx, rollNo)
}

// Update applies a typed patch. A rollNo change is checked for collisions
// before the write so the caller gets a clean duplicate error.
func (s *Service) Update(ctx context.Context, rollNo string, p Patch) (Student, error) {
	if rollNo == "" {
		return Student{}, errors.New("roll number is required")
	}
	if p.Empty() {
		return Student{}, errors.New("no update fields provided")
	}
	if p.RollNo != nil && *p.RollNo != rollNo {
		if _, err := s.store.Get(ctx, *p.RollNo); err == nil {
			return Student{}, ErrDuplicate
		} else if !errors.Is(err, ErrNotFound) {
			return Student{}, err
		}
	}
	return s.store.Update(ctx, rollNo, p)
}

// Delete removes one student.
func (s *Service) Delete(ctx context.Context, rollNo string) error {
	if rollNo == "" {
		return errors.New("roll number is required")
	}
	return s.store.Delete(ctx, rollNo)
}

// BulkDelete removes students by class-key filter with "All" wildcard
// semantics: Year="All" clears the whole roster; a narrower field only
// applies when every broader field is specific.
func (s *Service) BulkDelete(ctx context.Context, yearOfStudy, branch, section string) (int64, error) {
	if yearOfStudy == "" {
		return 0, errors.New("year of study is required")
	}
	key := ClassKey{}
	if yearOfStudy != "All" {
		key.YearOfStudy = yearOfStudy
		if branch != "" && branch != "All" {
			key.Branch = branch
			if section != "" && section != "All" {
				key.Section = section
			}
		}
	}
	return s.store.DeleteWhere(ctx, key)
}

// SearchByName returns students whose name matches the fragment.
func (s *Service) SearchByName(ctx context.Context, name string) ([]Student, error) {
	if name == "" {
		return nil, errors.New("name search term is required")
	}
	return s.store.SearchByName(ctx, name)
}

// SearchByRollNo returns up to ten suggestion matches.
func (s *Service) SearchByRollNo(ctx context.Context, rollNo string) ([]Student, error) {
	if rollNo == "" {
		return nil, errors.New("roll number search term is required")
	}
	return s.store.SearchByRollNo(ctx, rollNo, 10)
}

// ListBasic returns identity and class fields for every student.
func (s *Service) ListBasic(ctx context.Context) ([]Student, error) {
	return s.store.ListBasic(ctx)
}

// SuperPaccStatus lists a cohort with each member's exemption flag.
func (s *Service) SuperPaccStatus(ctx context.Context, key ClassKey) ([]Student, error) {
	if !key.Complete() {
		return nil, errors.New("yearOfStudy, branch and section are required")
	}
	return s.store.FindByClassKey(ctx, key)
}

// SetSuperPacc flips the exemption flag for one student.
func (s *Service) SetSuperPacc(ctx context.Context, rollNo string, enabled bool) error {
	if rollNo == "" {
		return errors.New("roll number is required")
	}
	value := "NO"
	if enabled {
		value = "YES"
	}
	return s.store.SetSuperPacc(ctx, rollNo, value)
}

// BatchSetSuperPacc flips the flag for many students, reporting how many
// were found and which roll numbers were skipped.
func (s *Service) BatchSetSuperPacc(ctx context.Context, mapping map[string]bool) (updated int, skipped []string, err error) {
	for rollNo, enabled := range mapping {
		if err := s.SetSuperPacc(ctx, rollNo, enabled); err != nil {
			if errors.Is(err, ErrNotFound) {
				skipped = append(skipped, rollNo)
				continue
			}
			return updated, skipped, err
		}
		updated++
	}
	return updated, skipped, nil
}

// PromoteYear moves every student from one year of study to the next.
func (s *Service) PromoteYear(ctx context.Context, fromYear, toYear string) (int64, error) {
	if !validYears[fromYear] || !validYears[toYear] {
		return 0, errors.New("invalid year values, years must be I, II, III, or IV")
	}
	n, err := s.store.UpdateYear(ctx, fromYear, toYear)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: no students in year %s", ErrNotFound, fromYear)
	}
	return n, nil
}

// DistinctClasses returns every cohort present in the roster.
func (s *Service) DistinctClasses(ctx context.Context) ([]ClassInfo, error) {
	classes, err := s.store.DistinctClassKeys(ctx)
	if err != nil {
		return nil, err
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("%w: no classes in the roster", ErrNotFound)
	}
	return classes, nil
}
