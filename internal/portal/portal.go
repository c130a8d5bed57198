// Package portal drives the university self-service portal: it logs in,
// finds a course in the course list and reads one cell of its grade table.
package portal

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAuth means the login flow did not reach the course list, either the
	// credentials are wrong or the login page changed.
	ErrAuth = errors.New("portal: authentication failed")
	// ErrCourseNotFound means no course entry contains the requested name.
	ErrCourseNotFound = errors.New("portal: course not found")
	// ErrTimeout means an element did not show up in time.
	ErrTimeout = errors.New("portal: timed out")
	// ErrMissingElement means the page structure is not the expected one.
	ErrMissingElement = errors.New("portal: missing element")
)

type Credentials struct {
	Username string
	Password string
}

// CourseRef is an opaque handle to a course entry of the current session.
type CourseRef struct {
	// ID is the element id of the course entry, ex. "idCurso1234".
	ID string
	// Label is the normalized visible text of the entry.
	Label string
}

// Reading is a single observation of a grade cell.
type Reading struct {
	Course     string
	Header     string
	Cell       string
	ObservedAt time.Time
}

// Driver opens authenticated portal sessions.
type Driver interface {
	// Authenticate logs in and returns a session positioned on the course
	// list. On error every resource it acquired is already released.
	Authenticate(ctx context.Context, creds Credentials) (Session, error)
}

// Session is a logged in portal. Close must be called on every path once
// Authenticate succeeded.
type Session interface {
	// FindCourse returns the first course entry, in document order, whose
	// visible text contains name.
	FindCourse(ctx context.Context, name string) (CourseRef, error)
	// ReadGradeCell opens the grade table of course and returns the header
	// and first row text of the 1-based column.
	ReadGradeCell(ctx context.Context, course CourseRef, column int) (header string, cell string, err error)
	Close() error
}
