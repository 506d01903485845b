package prompts

import (
	"fmt"
	"time"
)

// Spanish calendar names, indexed by time.Weekday (Sunday first) and by
// month number - 1. The model is asked "¿qué día es hoy?" often enough that
// these must be exact for every combination.
var spanishDays = [7]string{
	"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado",
}

var spanishMonths = [12]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// SpanishDay returns the Spanish name for a weekday.
func SpanishDay(d time.Weekday) string {
	return spanishDays[d]
}

// SpanishMonth returns the Spanish name for a month.
func SpanishMonth(m time.Month) string {
	return spanishMonths[m-1]
}

// FormatSpanishDate renders a date as "Lunes, 2 de Marzo de 2026".
func FormatSpanishDate(t time.Time) string {
	return fmt.Sprintf("%s, %d de %s de %d",
		SpanishDay(t.Weekday()), t.Day(), SpanishMonth(t.Month()), t.Year())
}
