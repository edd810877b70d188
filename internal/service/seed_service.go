package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/raito-kakutani/timable/internal/dto"
	"github.com/raito-kakutani/timable/internal/models"
	appErrors "github.com/raito-kakutani/timable/pkg/errors"
)

const seedFlagKey = "seed:demo:loaded"

type seedTeacherWriter interface {
	Create(ctx context.Context, req dto.TeacherRequest) (*models.Teacher, error)
}

type seedClassWriter interface {
	Create(ctx context.Context, req dto.ClassRequest) (*models.SchoolClass, error)
}

type seedConfigWriter interface {
	Get(ctx context.Context) (*models.SchoolConfig, error)
	Put(ctx context.Context, req dto.SchoolConfigRequest) (*models.SchoolConfig, error)
}

type seedPriorityWriter interface {
	Put(ctx context.Context, classID string, req dto.PriorityRequest) (*models.PriorityConfig, error)
}

type seedFlagStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// SeedService loads a one-shot demo dataset: week shape, a twelve
// teacher roster, six stream classes, and priority defaults. A
// persisted flag keeps it from running twice.
type SeedService struct {
	teachers   seedTeacherWriter
	classes    seedClassWriter
	configs    seedConfigWriter
	priorities seedPriorityWriter
	flags      seedFlagStore
	logger     *zap.Logger
}

// NewSeedService constructs a SeedService instance.
func NewSeedService(teachers seedTeacherWriter, classes seedClassWriter, configs seedConfigWriter, priorities seedPriorityWriter, flags seedFlagStore, logger *zap.Logger) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{teachers: teachers, classes: classes, configs: configs, priorities: priorities, flags: flags, logger: logger}
}

type demoTeacher struct {
	name             string
	subjects         []string
	sections         []string
	maxPeriodsPerDay int
}

type demoSubject struct {
	subject string
	weekly  int
	teacher string
}

type demoClass struct {
	id       string
	grade    string
	subjects []demoSubject
}

func demoRoster() []demoTeacher {
	sci := []string{"11SCI", "12SCI"}
	com := []string{"11COM", "12COM"}
	hum := []string{"11HUM", "12HUM"}
	all := []string{"11SCI", "12SCI", "11COM", "12COM", "11HUM", "12HUM"}
	return []demoTeacher{
		{"Eric Simon", []string{"Physics"}, sci, 5},
		{"Aisha Khan", []string{"Chemistry"}, sci, 5},
		{"Rahul Mehta", []string{"Mathematics"}, append(append([]string{}, sci...), com...), 5},
		{"Neha Verma", []string{"Biology"}, sci, 5},
		{"Daniel Brooks", []string{"English"}, all, 4},
		{"Priya Nair", []string{"Economics"}, com, 5},
		{"Arjun Patel", []string{"Accountancy"}, com, 5},
		{"Kavita Rao", []string{"Business Studies"}, com, 4},
		{"Sofia Mendes", []string{"History"}, hum, 5},
		{"Aman Gupta", []string{"Political Science"}, hum, 5},
		{"Ritu Chawla", []string{"Geography"}, hum, 4},
		{"Marcus Lee", []string{"Physical Education"}, all, 3},
	}
}

func demoClasses() []demoClass {
	scienceCore := []demoSubject{
		{"Physics", 6, "Eric Simon"},
		{"Chemistry", 6, "Aisha Khan"},
		{"Mathematics", 6, "Rahul Mehta"},
		{"Biology", 6, "Neha Verma"},
		{"English", 4, "Daniel Brooks"},
		{"Physical Education", 2, "Marcus Lee"},
	}
	commerceCore := []demoSubject{
		{"Accountancy", 6, "Arjun Patel"},
		{"Business Studies", 6, "Kavita Rao"},
		{"Economics", 6, "Priya Nair"},
		{"Mathematics", 4, "Rahul Mehta"},
		{"English", 4, "Daniel Brooks"},
		{"Physical Education", 2, "Marcus Lee"},
	}
	humanitiesCore := []demoSubject{
		{"History", 6, "Sofia Mendes"},
		{"Political Science", 6, "Aman Gupta"},
		{"Geography", 6, "Ritu Chawla"},
		{"English", 4, "Daniel Brooks"},
		{"Physical Education", 2, "Marcus Lee"},
	}
	return []demoClass{
		{"11SCI", "11", scienceCore},
		{"12SCI", "12", scienceCore},
		{"11COM", "11", commerceCore},
		{"12COM", "12", commerceCore},
		{"11HUM", "11", humanitiesCore},
		{"12HUM", "12", humanitiesCore},
	}
}

// Load seeds the demo dataset once. A second call fails with a conflict.
func (s *SeedService) Load(ctx context.Context) (*dto.SeedResponse, error) {
	if s.flags != nil {
		if loaded, err := s.flags.Get(ctx, seedFlagKey).Result(); err == nil && loaded == "1" {
			return nil, appErrors.Clone(appErrors.ErrConflict, "demo data already loaded")
		}
	}

	response := &dto.SeedResponse{}

	if _, err := s.configs.Get(ctx); err != nil {
		cfg := dto.SchoolConfigRequest{
			Days:          []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
			PeriodsPerDay: 8,
			Breaks:        map[int]string{4: "Lunch"},
		}
		if _, err := s.configs.Put(ctx, cfg); err != nil {
			return nil, err
		}
		response.ConfigSet = true
	}

	teacherIDs := make(map[string]string)
	for _, t := range demoRoster() {
		created, err := s.teachers.Create(ctx, dto.TeacherRequest{
			FullName:         t.name,
			Subjects:         t.subjects,
			Sections:         t.sections,
			MaxPeriodsPerDay: t.maxPeriodsPerDay,
		})
		if err != nil {
			return nil, err
		}
		teacherIDs[t.name] = created.ID
		response.Teachers++
	}

	for _, c := range demoClasses() {
		subjects := make([]dto.ClassSubjectRequest, 0, len(c.subjects))
		for _, cs := range c.subjects {
			subjects = append(subjects, dto.ClassSubjectRequest{
				Subject:       cs.subject,
				TeacherID:     teacherIDs[cs.teacher],
				WeeklyPeriods: cs.weekly,
			})
		}
		if _, err := s.classes.Create(ctx, dto.ClassRequest{ID: c.id, Grade: c.grade, Subjects: subjects}); err != nil {
			return nil, err
		}
		response.Classes++
	}

	heavyByStream := map[string][]string{
		"11SCI": {"Physics", "Chemistry", "Mathematics", "Biology"},
		"12SCI": {"Physics", "Chemistry", "Mathematics", "Biology"},
		"11COM": {"Accountancy", "Economics", "Mathematics"},
		"12COM": {"Accountancy", "Economics", "Mathematics"},
		"11HUM": {"History", "Political Science"},
		"12HUM": {"History", "Political Science"},
	}
	priorityByStream := map[string][]string{
		"11SCI": {"Mathematics"},
		"12SCI": {"Mathematics"},
		"11COM": {"Mathematics"},
		"12COM": {"Mathematics"},
		"11HUM": {"English"},
		"12HUM": {"English"},
	}
	for _, c := range demoClasses() {
		if _, err := s.priorities.Put(ctx, c.id, dto.PriorityRequest{
			PrioritySubjects: priorityByStream[c.id],
			HeavySubjects:    heavyByStream[c.id],
		}); err != nil {
			return nil, err
		}
		response.Priorities++
	}

	if s.flags != nil {
		if err := s.flags.Set(ctx, seedFlagKey, "1", 0).Err(); err != nil {
			s.logger.Warn("failed to persist demo flag", zap.Error(err))
		}
	}
	s.logger.Info("demo data loaded",
		zap.Int("teachers", response.Teachers),
		zap.Int("classes", response.Classes))
	return response, nil
}
