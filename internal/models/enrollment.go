package models

import "time"

// Enrollment assigns a student to a course. Presence means assigned.
type Enrollment struct {
	StudentID string    `db:"student_id" json:"student_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RosterEntry is an enrolled student as listed to admins.
type RosterEntry struct {
	StudentID   string    `db:"student_id" json:"student_id"`
	Name        string    `db:"name" json:"name"`
	Email       string    `db:"email" json:"email"`
	IsActivated bool      `db:"is_activated" json:"is_activated"`
	EnrolledAt  time.Time `db:"enrolled_at" json:"enrolled_at"`
}
