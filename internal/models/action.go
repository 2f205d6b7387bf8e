package models

// ActionResult is the uniform outcome of a mutation intent.
type ActionResult struct {
	Success     bool              `json:"success"`
	Message     string            `json:"message"`
	Code        string            `json:"code,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
	CourseSlug  string            `json:"course_slug,omitempty"`
	SegmentSlug string            `json:"segment_slug,omitempty"`
	StudentID   string            `json:"student_id,omitempty"`
	Redirect    string            `json:"redirect,omitempty"`
	Token       string            `json:"token,omitempty"`
	Status      int               `json:"status"`

	// Session is set by sign-in intents so the transport can issue a cookie.
	Session *Session `json:"-"`
	// ClearSession asks the transport to drop the session cookie.
	ClearSession bool `json:"-"`
}
