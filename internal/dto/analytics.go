package dto

// TeacherLoadRow is one teacher's periods taught per day.
type TeacherLoadRow struct {
	TeacherID   string `json:"teacherId"`
	TeacherName string `json:"teacherName"`
	PerDay      []int  `json:"perDay"`
	Total       int    `json:"total"`
}

// FatigueRow is one class's heavy-subject density per period index,
// averaged across days.
type FatigueRow struct {
	ClassID   string    `json:"classId"`
	PerPeriod []float64 `json:"perPeriod"`
}

// CongestionRow is the number of simultaneous lessons per period of a day.
type CongestionRow struct {
	Day       int   `json:"day"`
	PerPeriod []int `json:"perPeriod"`
}

// ClashRiskCell flags a teacher close to their daily cap.
type ClashRiskCell struct {
	TeacherID   string `json:"teacherId"`
	TeacherName string `json:"teacherName"`
	Day         int    `json:"day"`
	Load        int    `json:"load"`
	Cap         int    `json:"cap"`
}

// InsightsResponse aggregates heatmap data for one stored week.
type InsightsResponse struct {
	TimetableID string           `json:"timetableId"`
	Week        int              `json:"week"`
	Days        []string         `json:"days"`
	Periods     int              `json:"periods"`
	TeacherLoad []TeacherLoadRow `json:"teacherLoad"`
	Fatigue     []FatigueRow     `json:"fatigue"`
	Congestion  []CongestionRow  `json:"congestion"`
	ClashRisk   []ClashRiskCell  `json:"clashRisk"`
}
