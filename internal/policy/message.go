package policy

import (
	"fmt"

	"gradewatch/internal/chrono"
	"gradewatch/internal/portal"
)

// Event is a notification ready to be handed to the notifier.
type Event struct {
	Category Category
	Message  string
}

const emptyGrade = "(vacía)"

func display(grade string) string {
	if grade == "" {
		return emptyGrade
	}
	return grade
}

// Compose renders the message of a notify decision. Every template carries
// the course, the column header, the grade and the observation time in the
// clock's location.
func Compose(d Decision, r portal.Reading, clock chrono.TimeAPI) Event {
	at := chrono.FormatLocal(clock, r.ObservedAt)

	var msg string
	switch d.Category {
	case Changed:
		msg = fmt.Sprintf(
			"🔔 Cambió tu nota\n\n📚 Materia: %s\n📝 Columna: %s\n📉 Nota anterior: %s\n📊 Nota actual: %s\n\n🕐 %s",
			r.Course, r.Header, display(d.Previous), display(d.Current), at,
		)
	case NewlyAvailable:
		msg = fmt.Sprintf(
			"🎉 ¡Nota disponible!\n\n📚 Materia: %s\n📝 Columna: %s\n📊 Nota: %s\n\n🕐 %s",
			r.Course, r.Header, display(d.Current), at,
		)
	default:
		msg = fmt.Sprintf(
			"📋 Verificación de nota\n\n📚 Materia: %s\n📝 Columna: %s\n📊 Nota actual: %s\n\n🕐 %s",
			r.Course, r.Header, display(d.Current), at,
		)
	}

	return Event{Category: d.Category, Message: msg}
}
