package models

import "time"

// TeacherStatus gates attendance actions: only active teachers may clock in/out.
type TeacherStatus string

const (
	TeacherActive   TeacherStatus = "active"
	TeacherInactive TeacherStatus = "inactive"
)

// Valid reports whether s is a supported teacher status.
func (s TeacherStatus) Valid() bool {
	return s == TeacherActive || s == TeacherInactive
}

// ClockInStatus classifies a clock-in relative to the lesson start.
type ClockInStatus string

const (
	ClockInEarly    ClockInStatus = "early"
	ClockInOnTime   ClockInStatus = "on_time"
	ClockInLate     ClockInStatus = "late"
	ClockInVeryLate ClockInStatus = "very_late"
)

// ClockOutStatus classifies a clock-out relative to the lesson end.
type ClockOutStatus string

const (
	ClockOutOnTime ClockOutStatus = "on_time"
	ClockOutLate   ClockOutStatus = "late"
)

// AttendanceStatus is the overall outcome of one lesson slot.
// AttendanceMissed is only ever written by the nightly sweep.
type AttendanceStatus string

const (
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendancePresent AttendanceStatus = "present"
	AttendanceMissed  AttendanceStatus = "missed"
)

// Purpose binds a challenge to the ceremony it was issued for.
type Purpose string

const (
	PurposeRegister     Purpose = "register"
	PurposeAuthenticate Purpose = "authenticate"
)

// Teacher is a member of staff whose lessons are tracked.
type Teacher struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Phone      string        `json:"phone"`
	EmployeeID string        `json:"employee_id"`
	Status     TeacherStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Admin is an operator account for the management API.
type Admin struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"created_at"`
}

// Credential is a registered platform-authenticator public key.
type Credential struct {
	ID              int64      `json:"id"`
	TeacherID       int64      `json:"teacher_id"`
	CredentialID    []byte     `json:"credential_id"`
	PublicKey       []byte     `json:"-"` // COSE_Key bytes
	AAGUID          []byte     `json:"aaguid,omitempty"`
	AttestationType string     `json:"attestation_type"`
	SignCount       uint32     `json:"sign_count"`
	LastUsed        *time.Time `json:"last_used,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// TimetableEntry is one weekly recurring lesson. DayOfWeek is ISO (1=Monday).
// LessonStart and LessonEnd are "HH:MM:SS" wall-clock times.
type TimetableEntry struct {
	ID          int64     `json:"id"`
	TeacherID   int64     `json:"teacher_id"`
	DayOfWeek   int       `json:"day_of_week"`
	LessonStart string    `json:"lesson_start"`
	LessonEnd   string    `json:"lesson_end"`
	Subject     string    `json:"subject"`
	CreatedAt   time.Time `json:"created_at"`
}

// Holiday covers HolidayDate..EndDate inclusive; EndDate nil means one day.
// Dates are "YYYY-MM-DD". IsRecurring is stored but not expanded across years.
type Holiday struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	HolidayDate string    `json:"holiday_date"`
	EndDate     *string   `json:"end_date,omitempty"`
	IsRecurring bool      `json:"is_recurring"`
	CreatedAt   time.Time `json:"created_at"`
}

// LessonKey identifies one lesson slot: a teacher's lesson on a given date.
type LessonKey struct {
	TeacherID   int64
	LessonDate  string // YYYY-MM-DD
	LessonStart string // HH:MM:SS
}

// AttendanceLog is a teacher's recorded presence for one lesson slot.
type AttendanceLog struct {
	ID               int64            `json:"id"`
	TeacherID        int64            `json:"teacher_id"`
	LessonDate       string           `json:"lesson_date"`
	LessonStartTime  string           `json:"lesson_start_time"`
	LessonEndTime    string           `json:"lesson_end_time"`
	ClockInTime      *time.Time       `json:"clock_in_time,omitempty"`
	ClockOutTime     *time.Time       `json:"clock_out_time,omitempty"`
	ClockInStatus    *ClockInStatus   `json:"clock_in_status,omitempty"`
	ClockOutStatus   *ClockOutStatus  `json:"clock_out_status,omitempty"`
	AttendanceStatus AttendanceStatus `json:"attendance_status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Key returns the slot identity of the log row.
func (l AttendanceLog) Key() LessonKey {
	return LessonKey{TeacherID: l.TeacherID, LessonDate: l.LessonDate, LessonStart: l.LessonStartTime}
}

// AuditEntry is one row of the audit trail.
type AuditEntry struct {
	UserType  string
	UserID    int64
	Action    string
	Details   string
	IPAddress string
}
