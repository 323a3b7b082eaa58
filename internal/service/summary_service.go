package service

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type attendanceCounter interface {
	CountsByStudent(ctx context.Context, studentID string, courseNames []string) (*models.AttendanceSummary, error)
	CountsByEnrollment(ctx context.Context, enrollmentID string) (*models.AttendanceSummary, error)
}

// SummaryRequest selects the records to count: one enrollment, or a student
// optionally narrowed to some courses.
type SummaryRequest struct {
	StudentID    string
	EnrollmentID string
	CourseNames  []string
}

// SummaryService produces per-status attendance counts. Student rollups are
// cached and dropped whenever that student's records change. A rollup read
// while an invalidation for the same student lands is returned but not
// cached.
type SummaryService struct {
	repo   attendanceCounter
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger

	mu          sync.Mutex
	generations map[string]uint64
}

// NewSummaryService constructs SummaryService. A nil cache disables caching.
func NewSummaryService(repo attendanceCounter, cacheSvc *CacheService, ttl time.Duration, logger *zap.Logger) *SummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryService{repo: repo, cache: cacheSvc, ttl: ttl, logger: logger, generations: make(map[string]uint64)}
}

// Counts returns the status rollup for the request.
func (s *SummaryService) Counts(ctx context.Context, req SummaryRequest) (*models.AttendanceSummary, error) {
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.EnrollmentID = strings.TrimSpace(req.EnrollmentID)

	if req.EnrollmentID != "" {
		summary, err := s.repo.CountsByEnrollment(ctx, req.EnrollmentID)
		if err != nil {
			return nil, storageFailure(err, "failed to summarise attendance")
		}
		return summary, nil
	}
	if req.StudentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId or enrollmentId is required")
	}

	courses := normalizeCourses(req.CourseNames)
	key := cache.SummaryKey(req.StudentID, courseFingerprint(courses))
	var cached models.AttendanceSummary
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	generation := s.generation(req.StudentID)
	summary, err := s.repo.CountsByStudent(ctx, req.StudentID, courses)
	if err != nil {
		return nil, storageFailure(err, "failed to summarise attendance")
	}
	if s.generation(req.StudentID) != generation {
		s.logger.Debug("summary changed during read, not caching", zap.String("student_id", req.StudentID))
		return summary, nil
	}
	s.cache.Set(ctx, key, summary, s.ttl)
	return summary, nil
}

// Invalidate drops every cached rollup for the student.
func (s *SummaryService) Invalidate(ctx context.Context, studentID string) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return
	}
	s.mu.Lock()
	s.generations[studentID]++
	s.mu.Unlock()
	s.cache.Invalidate(ctx, cache.SummaryPattern(studentID))
}

func (s *SummaryService) generation(studentID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[studentID]
}

func normalizeCourses(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func courseFingerprint(courses []string) string {
	if len(courses) == 0 {
		return "all"
	}
	return url.QueryEscape(strings.Join(courses, ","))
}
