package course

// Record is a course section returned by the catalog.
type Record struct {
	RegistrationNumber string          `json:"nrc"`
	Code               string          `json:"code"`
	Section            string          `json:"section"`
	Name               string          `json:"name"`
	Credits            int             `json:"credits"`
	Vacancy            Vacancy         `json:"vacancy"`
	Schedule           []ScheduleEntry `json:"schedule,omitempty"`
	Teachers           []string        `json:"teachers,omitempty"`
}

// Vacancy holds the seat counts of a section.
type Vacancy struct {
	Available int `json:"available"`
	Total     int `json:"total"`
}

// ScheduleEntry is one row of a section's timetable.
type ScheduleEntry struct {
	Type  string `json:"type"`  // Session type (CLAS, AYU, LAB, ...)
	When  string `json:"when"`  // Days and modules (e.g., "L-W:2")
	Where string `json:"where"` // Classroom
}

// Label returns the "CODE-SECTION" label of the record.
func (r Record) Label() string {
	return r.Code + "-" + r.Section
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	c := r
	if r.Schedule != nil {
		c.Schedule = append([]ScheduleEntry(nil), r.Schedule...)
	}
	if r.Teachers != nil {
		c.Teachers = append([]string(nil), r.Teachers...)
	}
	return c
}
