package scheduler

import "time"

// occurrenceIn возвращает дату события в году year; 29 февраля в невисокосный год переносится на 28-е.
func occurrenceIn(date time.Time, year int) time.Time {
	month, day := date.Month(), date.Day()
	if month == time.February && day == 29 && !isLeap(year) {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// civilDate отбрасывает время и зону, оставляя календарную дату.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextOccurrence возвращает ближайшую дату события не раньше today
// и число дней до неё.
func NextOccurrence(date, today time.Time) (time.Time, int) {
	day := civilDate(today)
	next := occurrenceIn(date, day.Year())
	if next.Before(day) {
		next = occurrenceIn(date, day.Year()+1)
	}
	return next, int(next.Sub(day).Hours() / 24)
}

// YearsAt считает полные годы от start до даты occurrence.
func YearsAt(start, occurrence time.Time) int {
	return occurrence.Year() - start.Year()
}
