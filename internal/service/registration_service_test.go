package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/course-registration-api/internal/models"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
	"github.com/noah-isme/course-registration-api/pkg/events"
	"github.com/noah-isme/course-registration-api/pkg/middleware/requestid"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) Emit(evt events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *eventRecorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.Type)
	}
	return out
}

type enrollmentListerMock struct {
	items  []models.EnrollmentDetail
	total  int
	err    error
	calls  int
	filter models.EnrollmentFilter
}

func (m *enrollmentListerMock) ListByStudent(ctx context.Context, studentID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	m.calls++
	m.filter = filter
	return m.items, m.total, m.err
}

func offering(id, courseID, code string, capacity int, days, slot string) models.OfferingDetail {
	return models.OfferingDetail{
		CourseOffering: models.CourseOffering{
			ID:           id,
			CourseID:     courseID,
			SemesterID:   "sem-current",
			MaxCapacity:  capacity,
			ScheduleDays: days,
			ScheduleTime: slot,
			Status:       models.OfferingStatusOpen,
		},
		CourseCode: code,
	}
}

func newRegistrationFixture(t *testing.T) (*RegistrationService, *memStore, *eventRecorder) {
	t.Helper()
	store := newMemStore("sem-current")
	store.addStudent("stu-1", "stu-2")
	store.addOffering(offering("off-101", "course-101", "CS101", 30, "MWF", "09:00-10:00"))
	store.addOffering(offering("off-201", "course-201", "CS201", 30, "MWF", "10:00-11:00"))

	recorder := &eventRecorder{}
	svc := NewRegistrationService(store, &enrollmentListerMock{}, nil, recorder, NewMetricsService(), nil, nil, RegistrationServiceConfig{})
	return svc, store, recorder
}

func TestRegistrationServiceEnrollSuccess(t *testing.T) {
	svc, store, recorder := newRegistrationFixture(t)

	enrollment, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{OfferingID: "off-201"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
	assert.NotEmpty(t, enrollment.ID)
	assert.Equal(t, 1, store.count("off-201"))
	assert.Equal(t, []events.Type{events.EnrollmentEnrolled}, recorder.types())
}

func TestRegistrationServiceEnrollTwiceIsAlreadyEnrolled(t *testing.T) {
	svc, store, recorder := newRegistrationFixture(t)
	ctx := context.Background()

	_, err := svc.Enroll(ctx, "stu-1", EnrollRequest{OfferingID: "off-201"})
	require.NoError(t, err)

	_, err = svc.Enroll(ctx, "stu-1", EnrollRequest{OfferingID: "off-201"})
	assert.ErrorIs(t, err, appErrors.ErrAlreadyEnrolled)
	assert.Equal(t, 1, store.count("off-201"))
	assert.Equal(t, 1, store.enrolledRows("off-201"))
	assert.Len(t, recorder.types(), 1)
}

func TestRegistrationServiceEnrollValidation(t *testing.T) {
	svc, _, _ := newRegistrationFixture(t)

	_, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Enroll(context.Background(), "", EnrollRequest{OfferingID: "off-201"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestRegistrationServiceEnrollNotFound(t *testing.T) {
	svc, _, _ := newRegistrationFixture(t)

	_, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{OfferingID: "missing"})
	assert.ErrorIs(t, err, appErrors.ErrOfferingNotFound)

	_, err = svc.Enroll(context.Background(), "ghost", EnrollRequest{OfferingID: "off-201"})
	assert.ErrorIs(t, err, appErrors.ErrStudentNotFound)
}

func TestRegistrationServiceEnrollCourseFull(t *testing.T) {
	svc, store, _ := newRegistrationFixture(t)
	store.addOffering(offering("off-full", "course-9", "ART9", 1, "Sa", "08:00-09:00"))
	store.seed(models.Enrollment{ID: "seed-1", StudentID: "stu-2", OfferingID: "off-full", Status: models.EnrollmentStatusEnrolled})

	_, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{OfferingID: "off-full"})
	assert.ErrorIs(t, err, appErrors.ErrCourseFull)
	assert.Equal(t, 1, store.count("off-full"))
}

func TestRegistrationServiceTimeConflictScenario(t *testing.T) {
	svc, store, _ := newRegistrationFixture(t)
	store.addOffering(offering("off-math", "course-m", "MATH150", 30, "MWF", "10:00-11:00"))
	ctx := context.Background()

	_, err := svc.Enroll(ctx, "stu-1", EnrollRequest{OfferingID: "off-math"})
	require.NoError(t, err)

	_, err = svc.Enroll(ctx, "stu-1", EnrollRequest{OfferingID: "off-201"})
	require.ErrorIs(t, err, appErrors.ErrTimeConflict)
	assert.Equal(t, "Time conflict with MATH150", appErrors.FromError(err).Message)
	assert.Equal(t, 0, store.count("off-201"))
}

func TestRegistrationServicePrerequisiteScenario(t *testing.T) {
	svc, store, _ := newRegistrationFixture(t)
	prereqID, prereqCode := "course-101", "CS101"
	advanced := offering("off-301", "course-301", "CS301", 30, "TTh", "13:00-14:30")
	advanced.PrerequisiteCourseID = &prereqID
	advanced.PrerequisiteCode = &prereqCode
	store.addOffering(advanced)
	ctx := context.Background()

	_, err := svc.Enroll(ctx, "stu-1", EnrollRequest{OfferingID: "off-301"})
	require.ErrorIs(t, err, appErrors.ErrPrerequisiteNotMet)
	assert.Equal(t, "Prerequisite not met: CS101 required", appErrors.FromError(err).Message)

	grade := models.GradeC
	store.seed(models.Enrollment{ID: "hist-1", StudentID: "stu-1", OfferingID: "off-101", Status: models.EnrollmentStatusCompleted, Grade: &grade})

	_, err = svc.Enroll(ctx, "stu-1", EnrollRequest{OfferingID: "off-301"})
	require.NoError(t, err)
	assert.Equal(t, 1, store.count("off-301"))
}

func TestRegistrationServiceConcurrentEnrollNeverExceedsCapacity(t *testing.T) {
	const capacity, students = 5, 40
	store := newMemStore("sem-current")
	store.addOffering(offering("off-hot", "course-hot", "HOT1", capacity, "MWF", "08:00-09:00"))
	for i := 0; i < students; i++ {
		store.addStudent(fmt.Sprintf("stu-%d", i))
	}
	svc := NewRegistrationService(store, &enrollmentListerMock{}, nil, nil, nil, nil, nil, RegistrationServiceConfig{})

	var wg sync.WaitGroup
	var mu sync.Mutex
	outcomes := map[string]int{}
	for i := 0; i < students; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.Enroll(context.Background(), id, EnrollRequest{OfferingID: "off-hot"})
			code := "OK"
			if err != nil {
				code = appErrors.FromError(err).Code
			}
			mu.Lock()
			outcomes[code]++
			mu.Unlock()
		}(fmt.Sprintf("stu-%d", i))
	}
	wg.Wait()

	assert.Equal(t, capacity, outcomes["OK"])
	assert.Equal(t, students-capacity, outcomes[appErrors.ErrCourseFull.Code])
	assert.Equal(t, capacity, store.count("off-hot"))
	assert.Equal(t, capacity, store.enrolledRows("off-hot"))
}

func TestRegistrationServiceLastSeatRace(t *testing.T) {
	store := newMemStore("sem-current")
	store.addStudent("stu-a", "stu-b")
	store.addOffering(offering("off-last", "course-l", "LAST1", 1, "F", "15:00-16:00"))
	svc := NewRegistrationService(store, &enrollmentListerMock{}, nil, nil, nil, nil, nil, RegistrationServiceConfig{})

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, id := range []string{"stu-a", "stu-b"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = svc.Enroll(context.Background(), id, EnrollRequest{OfferingID: "off-last"})
		}(i, id)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
			assert.ErrorIs(t, err, appErrors.ErrCourseFull)
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, 1, store.count("off-last"))
}

func TestRegistrationServiceConcurrentSameSlotForOneStudent(t *testing.T) {
	store := newMemStore("sem-current")
	store.addStudent("stu-1")
	store.addOffering(offering("off-x", "course-x", "X100", 10, "TTh", "11:00-12:30"))
	store.addOffering(offering("off-y", "course-y", "Y100", 10, "TTh", "11:00-12:30"))
	svc := NewRegistrationService(store, &enrollmentListerMock{}, nil, nil, nil, nil, nil, RegistrationServiceConfig{})

	for round := 0; round < 20; round++ {
		errs := make([]error, 2)
		var wg sync.WaitGroup
		for i, off := range []string{"off-x", "off-y"} {
			wg.Add(1)
			go func(i int, off string) {
				defer wg.Done()
				_, errs[i] = svc.Enroll(context.Background(), "stu-1", EnrollRequest{OfferingID: off})
			}(i, off)
		}
		wg.Wait()

		if round == 0 {
			oks := 0
			for _, err := range errs {
				if err == nil {
					oks++
				} else {
					assert.ErrorIs(t, err, appErrors.ErrTimeConflict)
				}
			}
			require.Equal(t, 1, oks)
		}
		require.Equal(t, 1, store.enrolledRows("off-x")+store.enrolledRows("off-y"))
	}
}

func TestRegistrationServiceDropLifecycle(t *testing.T) {
	svc, store, recorder := newRegistrationFixture(t)
	ctx := context.Background()

	enrollment, err := svc.Enroll(ctx, "stu-1", EnrollRequest{OfferingID: "off-201"})
	require.NoError(t, err)

	_, err = svc.Drop(ctx, "stu-2", enrollment.ID)
	assert.ErrorIs(t, err, appErrors.ErrEnrollmentNotFound)
	assert.Equal(t, 1, store.count("off-201"))

	dropped, err := svc.Drop(ctx, "stu-1", enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusDropped, dropped.Status)
	assert.Equal(t, 0, store.count("off-201"))

	_, err = svc.Drop(ctx, "stu-1", enrollment.ID)
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)
	assert.Equal(t, 0, store.count("off-201"))

	_, err = svc.Withdraw(ctx, "stu-1", enrollment.ID)
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)

	_, err = svc.Drop(ctx, "stu-1", "enr-missing")
	assert.ErrorIs(t, err, appErrors.ErrEnrollmentNotFound)

	again, err := svc.Enroll(ctx, "stu-1", EnrollRequest{OfferingID: "off-201"})
	require.NoError(t, err)
	assert.NotEqual(t, enrollment.ID, again.ID)
	assert.Equal(t, 1, store.count("off-201"))

	assert.Equal(t, []events.Type{events.EnrollmentEnrolled, events.EnrollmentDropped, events.EnrollmentEnrolled}, recorder.types())
}

func TestRegistrationServiceWithdrawAndComplete(t *testing.T) {
	svc, store, _ := newRegistrationFixture(t)
	ctx := context.Background()

	first, err := svc.Enroll(ctx, "stu-1", EnrollRequest{OfferingID: "off-101"})
	require.NoError(t, err)
	second, err := svc.Enroll(ctx, "stu-2", EnrollRequest{OfferingID: "off-101"})
	require.NoError(t, err)
	require.Equal(t, 2, store.count("off-101"))

	withdrawn, err := svc.Withdraw(ctx, "stu-1", first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusWithdrawn, withdrawn.Status)

	_, err = svc.Complete(ctx, second.ID, CompleteRequest{Grade: "E"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	completed, err := svc.Complete(ctx, second.ID, CompleteRequest{Grade: models.GradeA})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, completed.Status)
	require.NotNil(t, completed.Grade)
	assert.Equal(t, models.GradeA, *completed.Grade)
	assert.Equal(t, models.GradeA, *store.enrollment(second.ID).Grade)
	assert.Equal(t, 0, store.count("off-101"))

	_, err = svc.Enroll(ctx, "stu-2", EnrollRequest{OfferingID: "off-101"})
	assert.ErrorIs(t, err, appErrors.ErrAlreadyEnrolled)
}

func TestRegistrationServiceStorageFailuresRollBack(t *testing.T) {
	svc, store, recorder := newRegistrationFixture(t)
	ctx := context.Background()

	store.beginErr = errors.New("connection refused")
	_, err := svc.Enroll(ctx, "stu-1", EnrollRequest{OfferingID: "off-201"})
	require.ErrorIs(t, err, appErrors.ErrStorage)
	assert.True(t, appErrors.FromError(err).Retryable())
	store.beginErr = nil

	store.failStep = "Commit"
	_, err = svc.Enroll(ctx, "stu-1", EnrollRequest{OfferingID: "off-201"})
	require.ErrorIs(t, err, appErrors.ErrStorage)
	assert.Equal(t, 0, store.count("off-201"))
	assert.Equal(t, 0, store.enrolledRows("off-201"))
	store.failStep = ""

	enrollment, err := svc.Enroll(ctx, "stu-1", EnrollRequest{OfferingID: "off-201"})
	require.NoError(t, err)

	store.failStep = "Commit"
	_, err = svc.Drop(ctx, "stu-1", enrollment.ID)
	require.ErrorIs(t, err, appErrors.ErrStorage)
	assert.Equal(t, 1, store.count("off-201"))
	assert.Equal(t, models.EnrollmentStatusEnrolled, store.enrollment(enrollment.ID).Status)
	store.failStep = ""

	assert.Equal(t, []events.Type{events.EnrollmentEnrolled}, recorder.types())
}

func TestRegistrationServiceLockWaitTimeoutRollsBack(t *testing.T) {
	store := newMemStore("sem-current")
	store.addStudent("stu-1")
	store.addOffering(offering("off-201", "course-201", "CS201", 30, "MWF", "10:00-11:00"))
	recorder := &eventRecorder{}
	svc := NewRegistrationService(store, &enrollmentListerMock{}, nil, recorder, nil, nil, nil,
		RegistrationServiceConfig{TxTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	holder, err := store.Begin(ctx)
	require.NoError(t, err)
	_, err = holder.LockOffering(ctx, "off-201")
	require.NoError(t, err)

	start := time.Now()
	_, err = svc.Enroll(ctx, "stu-1", EnrollRequest{OfferingID: "off-201"})
	require.ErrorIs(t, err, appErrors.ErrStorage)
	assert.True(t, appErrors.FromError(err).Retryable())
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 0, store.count("off-201"))
	assert.Equal(t, 0, store.enrolledRows("off-201"))
	assert.Empty(t, recorder.types())

	require.NoError(t, holder.Rollback())

	_, err = svc.Enroll(ctx, "stu-1", EnrollRequest{OfferingID: "off-201"})
	require.NoError(t, err)
	assert.Equal(t, 1, store.count("off-201"))
}

func TestRegistrationServiceAbandonedRequestRollsBack(t *testing.T) {
	svc, store, recorder := newRegistrationFixture(t)
	enrollment, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{OfferingID: "off-201"})
	require.NoError(t, err)

	holder, err := store.Begin(context.Background())
	require.NoError(t, err)
	_, err = holder.LockOffering(context.Background(), "off-201")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = svc.Drop(ctx, "stu-1", enrollment.ID)
	require.ErrorIs(t, err, appErrors.ErrStorage)
	require.NoError(t, holder.Rollback())

	assert.Equal(t, 1, store.count("off-201"))
	assert.Equal(t, models.EnrollmentStatusEnrolled, store.enrollment(enrollment.ID).Status)
	assert.Equal(t, []events.Type{events.EnrollmentEnrolled}, recorder.types())

	_, err = svc.Enroll(ctx, "stu-2", EnrollRequest{OfferingID: "off-201"})
	require.ErrorIs(t, err, appErrors.ErrStorage)
	assert.Equal(t, 1, store.enrolledRows("off-201"))
}

func TestRegistrationServiceCheckEligibilityRequiresKnownStudent(t *testing.T) {
	svc, _, _ := newRegistrationFixture(t)
	ctx := context.Background()

	_, err := svc.CheckEligibility(ctx, "", EnrollRequest{OfferingID: "off-201"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.CheckEligibility(ctx, "ghost", EnrollRequest{OfferingID: "off-201"})
	assert.ErrorIs(t, err, appErrors.ErrStudentNotFound)

	_, err = svc.CheckEligibility(ctx, "ghost", EnrollRequest{OfferingID: "missing"})
	assert.ErrorIs(t, err, appErrors.ErrOfferingNotFound)
}

func TestRegistrationServiceCheckEligibilityDoesNotWrite(t *testing.T) {
	svc, store, recorder := newRegistrationFixture(t)
	store.addOffering(offering("off-tiny", "course-t", "TINY1", 1, "MWF", "09:00-10:00"))
	store.seed(models.Enrollment{ID: "seed-1", StudentID: "stu-2", OfferingID: "off-tiny", Status: models.EnrollmentStatusEnrolled})
	store.seed(models.Enrollment{ID: "seed-2", StudentID: "stu-1", OfferingID: "off-101", Status: models.EnrollmentStatusEnrolled})

	decision, err := svc.CheckEligibility(context.Background(), "stu-1", EnrollRequest{OfferingID: "off-tiny"})
	require.NoError(t, err)
	assert.False(t, decision.Eligible)
	require.Len(t, decision.Reasons, 2)
	assert.Equal(t, models.ReasonCourseFull, decision.Reasons[0].Code)
	assert.Equal(t, models.ReasonTimeConflict, decision.Reasons[1].Code)
	assert.Equal(t, "Time conflict with CS101", decision.Reasons[1].Message)

	assert.Equal(t, 1, store.count("off-tiny"))
	assert.Empty(t, recorder.types())

	_, err = svc.CheckEligibility(context.Background(), "stu-1", EnrollRequest{OfferingID: "nope"})
	assert.ErrorIs(t, err, appErrors.ErrOfferingNotFound)
}

func TestRegistrationServiceMixedConcurrencyKeepsCounterInSync(t *testing.T) {
	const capacity = 8
	store := newMemStore("sem-current")
	store.addOffering(offering("off-mix", "course-mix", "MIX1", capacity, "MWF", "14:00-15:00"))
	ids := make([]string, 24)
	for i := range ids {
		ids[i] = fmt.Sprintf("stu-%d", i)
		store.addStudent(ids[i])
	}
	svc := NewRegistrationService(store, &enrollmentListerMock{}, nil, nil, nil, nil, nil, RegistrationServiceConfig{})

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			ctx := context.Background()
			for attempt := 0; attempt < 3; attempt++ {
				enrollment, err := svc.Enroll(ctx, id, EnrollRequest{OfferingID: "off-mix"})
				if err != nil {
					continue
				}
				if attempt%2 == 0 {
					_, _ = svc.Drop(ctx, id, enrollment.ID)
				}
			}
		}(id)
	}
	wg.Wait()

	assert.LessOrEqual(t, store.count("off-mix"), capacity)
	assert.Equal(t, store.enrolledRows("off-mix"), store.count("off-mix"))
}

func TestRegistrationServiceListStudentEnrollments(t *testing.T) {
	lister := &enrollmentListerMock{
		items: []models.EnrollmentDetail{{Enrollment: models.Enrollment{ID: "enr-1"}, CourseCode: "CS101"}},
		total: 1,
	}
	svc := NewRegistrationService(newMemStore("sem"), lister, nil, nil, nil, nil, nil, RegistrationServiceConfig{})

	items, pagination, err := svc.ListStudentEnrollments(context.Background(), "stu-1", models.EnrollmentFilter{Status: models.EnrollmentStatusEnrolled, CurrentOnly: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 50, pagination.PageSize)
	assert.True(t, lister.filter.CurrentOnly)

	_, _, err = svc.ListStudentEnrollments(context.Background(), "stu-1", models.EnrollmentFilter{Status: "PENDING"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	lister.err = errors.New("db down")
	_, _, err = svc.ListStudentEnrollments(context.Background(), "stu-1", models.EnrollmentFilter{})
	assert.ErrorIs(t, err, appErrors.ErrStorage)
}

func TestRegistrationServiceEnrollmentListCacheInvalidatedOnCommit(t *testing.T) {
	store := newMemStore("sem-current")
	store.addStudent("stu-1")
	store.addOffering(offering("off-101", "course-101", "CS101", 30, "MWF", "09:00-10:00"))
	lister := &enrollmentListerMock{items: []models.EnrollmentDetail{}, total: 0}
	cacheRepo := newCacheRepoMock()
	cache := NewCacheService(cacheRepo, nil, 0, nil, true)
	svc := NewRegistrationService(store, lister, cache, nil, nil, nil, nil, RegistrationServiceConfig{})
	ctx := context.Background()

	_, _, err := svc.ListStudentEnrollments(ctx, "stu-1", models.EnrollmentFilter{})
	require.NoError(t, err)
	_, _, err = svc.ListStudentEnrollments(ctx, "stu-1", models.EnrollmentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, lister.calls)
	assert.Equal(t, studentEnrollmentsTTL, cacheRepo.ttls[studentEnrollmentsKey("stu-1")])

	_, err = svc.Enroll(ctx, "stu-1", EnrollRequest{OfferingID: "off-101"})
	require.NoError(t, err)
	assert.Contains(t, cacheRepo.deleted, studentEnrollmentsKey("stu-1"))

	_, _, err = svc.ListStudentEnrollments(ctx, "stu-1", models.EnrollmentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, lister.calls)

	_, _, err = svc.ListStudentEnrollments(ctx, "stu-1", models.EnrollmentFilter{CurrentOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 3, lister.calls)
}

func TestRegistrationServiceLogsCarryRequestID(t *testing.T) {
	store := newMemStore("sem-current")
	store.addStudent("stu-1")
	store.addOffering(offering("off-101", "course-101", "CS101", 30, "MWF", "09:00-10:00"))
	core, logs := observer.New(zapcore.DebugLevel)
	svc := NewRegistrationService(store, &enrollmentListerMock{}, nil, nil, nil, nil, zap.New(core), RegistrationServiceConfig{})

	ctx := requestid.WithValue(context.Background(), "req-42")
	_, err := svc.Enroll(ctx, "stu-1", EnrollRequest{OfferingID: "missing"})
	require.ErrorIs(t, err, appErrors.ErrOfferingNotFound)

	entries := logs.FilterField(zap.String("request_id", "req-42")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "registration operation denied", entries[0].Message)
}
