package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/repository"
)

// memStore is an in-memory storage gateway with blocking row locks held until commit or rollback.
// A lock wait gives up when its context is done, as a Postgres statement does.
type memStore struct {
	mu          sync.Mutex
	offerings   map[string]*models.OfferingDetail
	students    map[string]bool
	enrollments map[string]*models.Enrollment
	current     string
	locks       map[string]chan struct{}
	seq         int

	beginErr error
	failStep string
}

func newMemStore(currentSemester string) *memStore {
	return &memStore{
		offerings:   map[string]*models.OfferingDetail{},
		students:    map[string]bool{},
		enrollments: map[string]*models.Enrollment{},
		current:     currentSemester,
		locks:       map[string]chan struct{}{},
	}
}

func (s *memStore) addStudent(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.students[id] = true
	}
}

func (s *memStore) addOffering(o models.OfferingDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := o
	s.offerings[o.ID] = &copied
}

func (s *memStore) seed(e models.Enrollment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := e
	s.enrollments[e.ID] = &copied
	if e.Status == models.EnrollmentStatusEnrolled {
		s.offerings[e.OfferingID].EnrolledCount++
	}
}

func (s *memStore) count(offeringID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offerings[offeringID].EnrolledCount
}

func (s *memStore) enrolledRows(offeringID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.enrollments {
		if e.OfferingID == offeringID && e.Status == models.EnrollmentStatusEnrolled {
			n++
		}
	}
	return n
}

func (s *memStore) enrollment(id string) models.Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.enrollments[id]
}

func (s *memStore) rowLock(key string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[key] = l
	}
	return l
}

func (s *memStore) Begin(ctx context.Context) (repository.RegistrationTx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return &memTx{store: s}, nil
}

func (s *memStore) Snapshot(ctx context.Context, studentID, offeringID string) (*models.EligibilitySnapshot, error) {
	s.mu.Lock()
	offering, ok := s.offerings[offeringID]
	known := s.students[studentID]
	s.mu.Unlock()
	if !ok {
		return nil, sql.ErrNoRows
	}
	if !known {
		return nil, repository.ErrUnknownStudent
	}
	return s.snapshot(studentID, *offering), nil
}

func (s *memStore) snapshot(studentID string, offering models.OfferingDetail) *models.EligibilitySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &models.EligibilitySnapshot{Offering: offering}
	for _, e := range s.enrollments {
		if e.StudentID != studentID {
			continue
		}
		o := s.offerings[e.OfferingID]
		if e.OfferingID == offering.ID {
			snap.ExistingStatuses = append(snap.ExistingStatuses, e.Status)
		}
		if e.Status == models.EnrollmentStatusEnrolled && o.SemesterID == s.current {
			snap.CurrentSchedule = append(snap.CurrentSchedule, models.ScheduledEnrollment{
				EnrollmentID: e.ID,
				OfferingID:   o.ID,
				CourseCode:   o.CourseCode,
				ScheduleDays: o.ScheduleDays,
				ScheduleTime: o.ScheduleTime,
			})
		}
		if e.Status == models.EnrollmentStatusCompleted {
			snap.Completed = append(snap.Completed, models.CompletedCourse{CourseID: o.CourseID, CourseCode: o.CourseCode, Grade: e.Grade})
		}
	}
	return snap
}

type memTx struct {
	store *memStore
	held  []chan struct{}
	undo  []func()
	done  bool
}

var errInjected = errors.New("injected storage failure")

func (t *memTx) fail(step string) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.failStep == step {
		return errInjected
	}
	return nil
}

func (t *memTx) lock(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := t.store.rowLock(key)
	select {
	case l <- struct{}{}:
		t.held = append(t.held, l)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *memTx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		<-t.held[i]
	}
	t.held = nil
	t.done = true
}

func (t *memTx) LockOffering(ctx context.Context, offeringID string) (*models.OfferingDetail, error) {
	if err := t.fail("LockOffering"); err != nil {
		return nil, err
	}
	t.store.mu.Lock()
	_, ok := t.store.offerings[offeringID]
	t.store.mu.Unlock()
	if !ok {
		return nil, sql.ErrNoRows
	}
	if err := t.lock(ctx, "offering:"+offeringID); err != nil {
		return nil, err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	copied := *t.store.offerings[offeringID]
	return &copied, nil
}

func (t *memTx) LockStudent(ctx context.Context, studentID string) error {
	t.store.mu.Lock()
	ok := t.store.students[studentID]
	t.store.mu.Unlock()
	if !ok {
		return sql.ErrNoRows
	}
	return t.lock(ctx, "student:"+studentID)
}

func (t *memTx) LoadSnapshot(ctx context.Context, studentID string, offering models.OfferingDetail) (*models.EligibilitySnapshot, error) {
	if err := t.fail("LoadSnapshot"); err != nil {
		return nil, err
	}
	return t.store.snapshot(studentID, offering), nil
}

func (t *memTx) InsertEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, e := range t.store.enrollments {
		if e.StudentID == enrollment.StudentID && e.OfferingID == enrollment.OfferingID && e.Status == models.EnrollmentStatusEnrolled {
			return repository.ErrDuplicateEnrollment
		}
	}
	t.store.seq++
	enrollment.ID = fmt.Sprintf("enr-%d", t.store.seq)
	copied := *enrollment
	t.store.enrollments[enrollment.ID] = &copied
	id := enrollment.ID
	t.undo = append(t.undo, func() { delete(t.store.enrollments, id) })
	return nil
}

func (t *memTx) IncrementEnrolled(ctx context.Context, offeringID string) (bool, error) {
	if err := t.fail("IncrementEnrolled"); err != nil {
		return false, err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	o := t.store.offerings[offeringID]
	if o.EnrolledCount >= o.MaxCapacity {
		return false, nil
	}
	o.EnrolledCount++
	t.undo = append(t.undo, func() { o.EnrolledCount-- })
	return true, nil
}

func (t *memTx) DecrementEnrolled(ctx context.Context, offeringID string) (bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	o := t.store.offerings[offeringID]
	if o.EnrolledCount <= 0 {
		return false, nil
	}
	o.EnrolledCount--
	t.undo = append(t.undo, func() { o.EnrolledCount++ })
	return true, nil
}

func (t *memTx) EnrollmentOffering(ctx context.Context, enrollmentID string) (string, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	e, ok := t.store.enrollments[enrollmentID]
	if !ok {
		return "", sql.ErrNoRows
	}
	return e.OfferingID, nil
}

func (t *memTx) LockEnrollment(ctx context.Context, enrollmentID string) (*models.Enrollment, error) {
	if err := t.lock(ctx, "enrollment:"+enrollmentID); err != nil {
		return nil, err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	e, ok := t.store.enrollments[enrollmentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *e
	return &copied, nil
}

func (t *memTx) UpdateEnrollmentStatus(ctx context.Context, enrollmentID string, status models.EnrollmentStatus, grade *models.Grade) error {
	if err := t.fail("UpdateEnrollmentStatus"); err != nil {
		return err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	e := t.store.enrollments[enrollmentID]
	prevStatus, prevGrade := e.Status, e.Grade
	e.Status = status
	if grade != nil {
		e.Grade = grade
	}
	t.undo = append(t.undo, func() { e.Status, e.Grade = prevStatus, prevGrade })
	return nil
}

func (t *memTx) Commit() error {
	if err := t.fail("Commit"); err != nil {
		return err
	}
	t.undo = nil
	t.release()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.store.mu.Unlock()
	t.release()
	return nil
}
