package portal

import (
	"fmt"
	"strings"

	"gradewatch/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	courseItemSelector = `li[id^="idCurso"]`
	courseIdPrefix     = "idCurso"
	tableIdPrefix      = "tabla"
)

// tableId maps a course entry id to the id of its grade table,
// "idCurso1234" becomes "tabla1234".
func tableId(courseId string) string {
	return strings.Replace(courseId, courseIdPrefix, tableIdPrefix, 1)
}

// toolSelector is the first tool icon (grades) of a course entry.
func toolSelector(courseId string) string {
	return fmt.Sprintf("#%s > div > i:nth-child(1)", courseId)
}

func headerSelector(tableId string, column int) string {
	return fmt.Sprintf("#%s thead th:nth-child(%d)", tableId, column)
}

func cellSelector(tableId string, column int) string {
	return fmt.Sprintf("#%s > tbody > tr > td:nth-child(%d)", tableId, column)
}

// courseLabels lists every course entry of the page in document order.
func courseLabels(doc *goquery.Document) []CourseRef {
	var courses []CourseRef
	doc.Find(courseItemSelector).Each(func(_ int, sel *goquery.Selection) {
		id, _ := sel.Attr("id")
		courses = append(courses, CourseRef{
			ID:    id,
			Label: htmlutil.SelectionText(sel),
		})
	})
	return courses
}

// findCourse scans the course list for the first entry containing name.
func findCourse(doc *goquery.Document, name string) (CourseRef, error) {
	name = htmlutil.Normalize(name)
	if name == "" {
		return CourseRef{}, fmt.Errorf("%w: empty course name", ErrCourseNotFound)
	}

	courses := courseLabels(doc)
	for _, course := range courses {
		if course.ID != "" && strings.Contains(course.Label, name) {
			return course, nil
		}
	}

	suggestions := suggest(name, courses, 3)
	if len(suggestions) == 0 {
		return CourseRef{}, fmt.Errorf("%w: %q (the course list is empty)", ErrCourseNotFound, name)
	}
	return CourseRef{}, fmt.Errorf(
		"%w: %q (closest: %s)",
		ErrCourseNotFound, name, strings.Join(suggestions, "; "),
	)
}

// readTable extracts the header and first row cell of a 1-based column.
func readTable(doc *goquery.Document, tableId string, column int) (string, string, error) {
	if column < 1 {
		return "", "", fmt.Errorf("%w: column must be >= 1, got %d", ErrMissingElement, column)
	}
	if doc.Find("#"+tableId).Length() == 0 {
		return "", "", fmt.Errorf("%w: table #%s", ErrMissingElement, tableId)
	}

	header := doc.Find(headerSelector(tableId, column))
	if header.Length() == 0 {
		return "", "", fmt.Errorf("%w: header of column %d in #%s", ErrMissingElement, column, tableId)
	}
	cell := doc.Find(cellSelector(tableId, column))
	if cell.Length() == 0 {
		return "", "", fmt.Errorf("%w: cell of column %d in #%s", ErrMissingElement, column, tableId)
	}

	return htmlutil.SelectionText(header.First()), htmlutil.SelectionText(cell.First()), nil
}
