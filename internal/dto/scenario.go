package dto

// ScenarioType enumerates the supported what-if overlays.
type ScenarioType string

const (
	ScenarioTeacherAbsent   ScenarioType = "TEACHER_ABSENT"
	ScenarioRoomUnavailable ScenarioType = "ROOM_UNAVAILABLE"
	ScenarioShortenedDay    ScenarioType = "SHORTENED_DAY"
	ScenarioEmergencyFree   ScenarioType = "EMERGENCY_FREE"
	ScenarioSubstitute      ScenarioType = "SUBSTITUTE"
)

// ScenarioRequest previews an overlay on one stored week. Fields are
// interpreted per type; the validator enforces only the common shape
// and the service checks type-specific requirements.
type ScenarioRequest struct {
	Type ScenarioType `json:"type" validate:"required,oneof=TEACHER_ABSENT ROOM_UNAVAILABLE SHORTENED_DAY EMERGENCY_FREE SUBSTITUTE"`
	Week int          `json:"week" validate:"min=0"`

	// TEACHER_ABSENT, SUBSTITUTE
	TeacherID    string `json:"teacherId,omitempty"`
	Day          *int   `json:"day,omitempty"`
	SubstituteID string `json:"substituteId,omitempty"`

	// ROOM_UNAVAILABLE: every lesson of the subject on the day is dropped.
	Subject string `json:"subject,omitempty"`

	// SHORTENED_DAY: lessons at or after CutoffPeriod are dropped.
	CutoffPeriod *int `json:"cutoffPeriod,omitempty"`

	// EMERGENCY_FREE
	ClassID string `json:"classId,omitempty"`
	Period  *int   `json:"period,omitempty"`
}

// ScenarioChange describes one cell the overlay touched.
type ScenarioChange struct {
	ClassID     string `json:"classId"`
	Day         int    `json:"day"`
	Period      int    `json:"period"`
	Action      string `json:"action"`
	Subject     string `json:"subject,omitempty"`
	FromTeacher string `json:"fromTeacher,omitempty"`
	ToTeacher   string `json:"toTeacher,omitempty"`
}

// ScenarioResponse is the resolved preview. The stored timetable is
// never mutated.
type ScenarioResponse struct {
	TimetableID string           `json:"timetableId"`
	Week        int              `json:"week"`
	Type        ScenarioType     `json:"type"`
	Changes     []ScenarioChange `json:"changes"`
	Classes     []WeekGrid       `json:"classes"`
	ClassIDs    []string         `json:"classIds"`
}
