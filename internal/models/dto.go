package models

import "encoding/json"

// ---- Request / Response DTOs ----

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	Admin Admin  `json:"admin"`
}

// TeacherRequest carries the teacher_id every ceremony endpoint starts from.
type TeacherRequest struct {
	TeacherID int64 `json:"teacher_id" validate:"required,gt=0"`
}

// CeremonyRequest wraps the browser's PublicKeyCredential JSON. Credential is
// kept raw so the ceremony package can run its own structured decode.
type CeremonyRequest struct {
	TeacherID  int64           `json:"teacher_id" validate:"required,gt=0"`
	Credential json.RawMessage `json:"credential" validate:"required"`
}

type AllowedCredential struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Transports []string `json:"transports,omitempty"`
}

type AuthChallengeResponse struct {
	Success          bool                `json:"success"`
	Challenge        string              `json:"challenge"`
	RPID             string              `json:"rpId"`
	Timeout          int64               `json:"timeout"`
	AllowCredentials []AllowedCredential `json:"allowCredentials"`
}

type RegisterChallengeResponse struct {
	Success         bool   `json:"success"`
	Challenge       string `json:"challenge"`
	RPID            string `json:"rp_id"`
	RPName          string `json:"rp_name"`
	UserID          string `json:"user_id"`
	UserName        string `json:"user_name"`
	UserDisplayName string `json:"user_display_name"`
	Timeout         int64  `json:"timeout"`
}

type ClockResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Status    string `json:"status,omitempty"`
	IsHoliday bool   `json:"is_holiday,omitempty"`
	NoLessons bool   `json:"no_lessons,omitempty"`
}

// TimelineEntry is one line of a teacher's "today" view.
type TimelineEntry struct {
	Time   string `json:"time"`
	Action string `json:"action"`
	Status string `json:"status"`
}

type TodayResponse struct {
	Success    bool            `json:"success"`
	Attendance []TimelineEntry `json:"attendance"`
}

type CreateTeacherRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone" validate:"max=50"`
	EmployeeID string `json:"employee_id" validate:"max=50"`
}

type UpdateTeacherRequest struct {
	Name       string        `json:"name" validate:"required,max=200"`
	Email      string        `json:"email" validate:"omitempty,email"`
	Phone      string        `json:"phone" validate:"max=50"`
	EmployeeID string        `json:"employee_id" validate:"max=50"`
	Status     TeacherStatus `json:"status" validate:"required,oneof=active inactive"`
}

type CreateTimetableRequest struct {
	TeacherID   int64  `json:"teacher_id" validate:"required,gt=0"`
	DayOfWeek   int    `json:"day_of_week" validate:"required,min=1,max=7"`
	LessonStart string `json:"lesson_start" validate:"required"`
	LessonEnd   string `json:"lesson_end" validate:"required"`
	Subject     string `json:"subject" validate:"max=200"`
}

type CreateHolidayRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	HolidayDate string  `json:"holiday_date" validate:"required,datetime=2006-01-02"`
	EndDate     *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	IsRecurring bool    `json:"is_recurring"`
}

type CreateAdminRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=8"`
	Email    string `json:"email" validate:"omitempty,email"`
}
