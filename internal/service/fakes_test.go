package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func day(raw string) time.Time {
	t, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		panic(err)
	}
	return t
}

func strPtr(s string) *string { return &s }

// memoryAttendanceStore mimics the unique (enrollment_id, date) upserts.
type memoryAttendanceStore struct {
	mu       sync.Mutex
	records  map[string]models.AttendanceRecord
	err      error
	failFor  map[string]error
	writes   int
	upserted []models.AttendanceStatus
}

func newMemoryAttendanceStore() *memoryAttendanceStore {
	return &memoryAttendanceStore{records: make(map[string]models.AttendanceRecord), failFor: make(map[string]error)}
}

func recordKey(enrollmentID string, date time.Time) string {
	return enrollmentID + "|" + date.Format(models.DateLayout)
}

func (m *memoryAttendanceStore) seed(record models.AttendanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record.ID = "seed-" + record.EnrollmentID
	m.records[recordKey(record.EnrollmentID, record.Date)] = record
}

func (m *memoryAttendanceStore) get(enrollmentID, date string) (models.AttendanceRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[recordKey(enrollmentID, day(date))]
	return r, ok
}

func (m *memoryAttendanceStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memoryAttendanceStore) fail(enrollmentID string) error {
	if m.err != nil {
		return m.err
	}
	return m.failFor[enrollmentID]
}

func (m *memoryAttendanceStore) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(record.EnrollmentID); err != nil {
		return nil, err
	}
	key := recordKey(record.EnrollmentID, record.Date)
	stored := *record
	if existing, ok := m.records[key]; ok {
		stored.ID = existing.ID
	} else {
		stored.ID = "rec-" + key
	}
	m.records[key] = stored
	m.writes++
	m.upserted = append(m.upserted, stored.Status)
	return &stored, nil
}

func (m *memoryAttendanceStore) lastUpserted() models.AttendanceStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.upserted) == 0 {
		return ""
	}
	return m.upserted[len(m.upserted)-1]
}

func (m *memoryAttendanceStore) ApplyDecision(ctx context.Context, params repository.DecisionParams) (*models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(params.EnrollmentID); err != nil {
		return nil, err
	}
	key := recordKey(params.EnrollmentID, params.Date)
	approvedBy := params.ApprovedBy
	approvalDate := params.ApprovalDate
	record, ok := m.records[key]
	if !ok {
		record = models.AttendanceRecord{ID: "rec-" + key, EnrollmentID: params.EnrollmentID, Date: params.Date}
	}
	record.Status = params.Status
	record.ApprovalStatus = params.ApprovalStatus
	record.ApprovedBy = &approvedBy
	record.ApprovalDate = &approvalDate
	if params.Reason != nil || !ok {
		record.Reason = params.Reason
	}
	m.records[key] = record
	m.writes++
	return &record, nil
}

func (m *memoryAttendanceStore) OpenExcuse(ctx context.Context, enrollmentID string, date time.Time, reason string) (*models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(enrollmentID); err != nil {
		return nil, err
	}
	key := recordKey(enrollmentID, date)
	record, ok := m.records[key]
	if !ok {
		record = models.AttendanceRecord{ID: "rec-" + key, EnrollmentID: enrollmentID, Date: date, Status: models.AttendanceStatusAbsent}
	}
	record.Reason = &reason
	record.ApprovalStatus = models.ApprovalStatusPending
	record.ApprovedBy = nil
	record.ApprovalDate = nil
	m.records[key] = record
	m.writes++
	return &record, nil
}

func (m *memoryAttendanceStore) ListPendingForTeacher(ctx context.Context, teacherID string) ([]models.PendingExcuse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.PendingExcuse
	for _, r := range m.records {
		if r.ApprovalStatus == models.ApprovalStatusPending {
			out = append(out, models.PendingExcuse{AttendanceRecord: r})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrollmentID < out[j].EnrollmentID })
	return out, nil
}

type enrollmentRow struct {
	ID         string
	StudentID  string
	TeacherID  string
	CourseName string
	Program    string
	Section    string
}

type fakeEnrollmentDirectory struct {
	rows  []enrollmentRow
	err   error
	calls int
}

func (f *fakeEnrollmentDirectory) FindActive(ctx context.Context, key models.EnrollmentKey, teacherID string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var ids []string
	for _, row := range f.rows {
		if row.StudentID != key.StudentID || row.CourseName != key.CourseName {
			continue
		}
		if key.Program != "" && row.Program != key.Program {
			continue
		}
		if key.Section != "" && row.Section != key.Section {
			continue
		}
		if teacherID != "" && row.TeacherID != teacherID {
			continue
		}
		ids = append(ids, row.ID)
	}
	return ids, nil
}

func (f *fakeEnrollmentDirectory) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	for _, row := range f.rows {
		if row.ID == id {
			return &models.EnrollmentDetail{
				Enrollment: models.Enrollment{ID: row.ID, StudentID: row.StudentID, Status: models.EnrollmentStatusActive},
				TeacherID:  row.TeacherID,
				CourseName: row.CourseName,
				Section:    row.Section,
				Program:    row.Program,
			}, nil
		}
	}
	return nil, sql.ErrNoRows
}

type memoryNotifications struct {
	mu    sync.Mutex
	items []models.Notification
	err   error
}

func (m *memoryNotifications) Create(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	n.ID = int64(len(m.items) + 1)
	m.items = append(m.items, *n)
	return nil
}

func (m *memoryNotifications) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.items {
		if n.RecipientUserID == filter.RecipientUserID && (!filter.UnreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (m *memoryNotifications) MarkRead(ctx context.Context, recipientUserID string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].RecipientUserID == recipientUserID {
			m.items[i].IsRead = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memoryNotifications) all() []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Notification(nil), m.items...)
}

type fakeUserDirectory struct {
	students map[string]models.DirectoryEntry
	teachers map[string]models.DirectoryEntry
}

func newFakeUserDirectory() *fakeUserDirectory {
	return &fakeUserDirectory{
		students: map[string]models.DirectoryEntry{
			"stu-10": {UserID: "user-stu-10", Role: models.RoleStudent, FirstName: "Budi", LastName: "Santoso"},
		},
		teachers: map[string]models.DirectoryEntry{
			"tch-5": {UserID: "user-tch-5", Role: models.RoleTeacher, FirstName: "Ana", LastName: "Cruz"},
		},
	}
}

func (f *fakeUserDirectory) FindStudent(ctx context.Context, id string) (*models.DirectoryEntry, error) {
	if e, ok := f.students[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserDirectory) FindTeacher(ctx context.Context, id string) (*models.DirectoryEntry, error) {
	if e, ok := f.teachers[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserDirectory) FindByUserID(ctx context.Context, userID string) (*models.DirectoryEntry, error) {
	for _, group := range []map[string]models.DirectoryEntry{f.students, f.teachers} {
		for _, e := range group {
			if e.UserID == userID {
				entry := e
				return &entry, nil
			}
		}
	}
	return nil, sql.ErrNoRows
}

type recordingInvalidator struct {
	mu       sync.Mutex
	students []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, studentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.students = append(r.students, studentID)
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}
