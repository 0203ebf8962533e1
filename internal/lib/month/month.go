// Package month содержит календарные вычисления: расчётный период
// ежемесячной смены слотов, полный возраст в годах и разбор дат.
package month

import (
	"fmt"
	"time"
)

// PeriodLayout формат ключа расчётного периода.
const PeriodLayout = "2006-01"

// DateLayout формат даты рождения во входящих запросах и ответах.
const DateLayout = "2006-01-02"

// Period возвращает ключ календарного месяца, в который попадает t.
// Часовой пояс берётся из самого t.
func Period(t time.Time) string {
	return t.Format(PeriodLayout)
}

// FullYears считает количество полных лет между birth и now.
func FullYears(birth, now time.Time) int {
	by, bm, bd := birth.Date()
	ny, nm, nd := now.Date()

	years := ny - by
	// день рождения в этом году ещё не наступил
	if nm < bm || (nm == bm && nd < bd) {
		years--
	}
	return years
}

// ParseDate разбирает дату в формате 2006-01-02 или RFC3339.
// Результат всегда в UTC и без времени суток.
func ParseDate(s string) (time.Time, error) {
	const op = "month.ParseDate"

	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %q is not a date", op, s)
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}
