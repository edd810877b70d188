package dto

// TeacherRequest creates or updates a teacher.
type TeacherRequest struct {
	FullName         string   `json:"fullName" validate:"required"`
	Subjects         []string `json:"subjects" validate:"required,min=1,dive,required"`
	Sections         []string `json:"sections" validate:"omitempty,dive,required"`
	MaxPeriodsPerDay int      `json:"maxPeriodsPerDay" validate:"required,min=1,max=16"`
}

// ClassSubjectRequest is one curriculum row of a class.
type ClassSubjectRequest struct {
	Subject       string `json:"subject" validate:"required"`
	TeacherID     string `json:"teacherId" validate:"required"`
	WeeklyPeriods int    `json:"weeklyPeriods" validate:"required,min=1,max=16"`
}

// ClassRequest creates a class with its curriculum.
type ClassRequest struct {
	ID       string                `json:"id" validate:"required"`
	Grade    string                `json:"grade" validate:"required"`
	Subjects []ClassSubjectRequest `json:"subjects" validate:"required,min=1,dive"`
}

// ClassUpdateRequest changes class attributes or the whole curriculum.
type ClassUpdateRequest struct {
	Grade    string                `json:"grade" validate:"omitempty"`
	Subjects []ClassSubjectRequest `json:"subjects" validate:"omitempty,min=1,dive"`
}

// SchoolConfigRequest replaces the school-week layout.
type SchoolConfigRequest struct {
	Days          []string       `json:"days" validate:"required,min=1,max=7,dive,required"`
	PeriodsPerDay int            `json:"periodsPerDay" validate:"required,min=1,max=16"`
	Breaks        map[int]string `json:"breaks" validate:"omitempty"`
}

// SeedResponse reports what the demo loader created.
type SeedResponse struct {
	Teachers   int  `json:"teachers"`
	Classes    int  `json:"classes"`
	Priorities int  `json:"priorities"`
	ConfigSet  bool `json:"configSet"`
}

// PriorityRequest stores per-class scheduling preferences.
type PriorityRequest struct {
	PrioritySubjects []string `json:"prioritySubjects" validate:"omitempty,dive,required"`
	WeakSubjects     []string `json:"weakSubjects" validate:"omitempty,dive,required"`
	HeavySubjects    []string `json:"heavySubjects" validate:"omitempty,dive,required"`
}
