package portal

import (
	"context"
	"fmt"

	"gradewatch/lib/htmlutil"
)

// FakeDriver serves sessions backed by a static html page that holds both
// the course list and the grade tables. It counts opened and closed
// sessions so callers can check the release contract.
type FakeDriver struct {
	Html string
	// AuthErr, when set, is returned by Authenticate.
	AuthErr error
	// ReadErr, when set, is returned by ReadGradeCell.
	ReadErr error

	Opened int
	Closed int
	// Creds holds the credentials of the last Authenticate call.
	Creds Credentials
}

func (d *FakeDriver) Authenticate(ctx context.Context, creds Credentials) (Session, error) {
	d.Creds = creds
	if d.AuthErr != nil {
		return nil, d.AuthErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.Opened++
	return &fakeSession{driver: d}, nil
}

type fakeSession struct {
	driver *FakeDriver
	closed bool
}

func (s *fakeSession) FindCourse(ctx context.Context, name string) (CourseRef, error) {
	doc, err := htmlutil.ParseFragment(s.driver.Html)
	if err != nil {
		return CourseRef{}, fmt.Errorf("parse fake page: %w", err)
	}
	return findCourse(doc, name)
}

func (s *fakeSession) ReadGradeCell(ctx context.Context, course CourseRef, column int) (string, string, error) {
	if s.driver.ReadErr != nil {
		return "", "", s.driver.ReadErr
	}
	doc, err := htmlutil.ParseFragment(s.driver.Html)
	if err != nil {
		return "", "", fmt.Errorf("parse fake page: %w", err)
	}
	return readTable(doc, tableId(course.ID), column)
}

func (s *fakeSession) Close() error {
	if !s.closed {
		s.closed = true
		s.driver.Closed++
	}
	return nil
}
