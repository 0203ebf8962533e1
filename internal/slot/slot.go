// Package slot описывает жизненный цикл слота пользователя: допустимые
// значения и ежемесячный переход nextSlot -> currSlot со сбросом оплаты.
package slot

import (
	"regexp"

	"github.com/magabrotheeeer/slot-booking/internal/models"
)

// DefaultSlot слот, назначаемый пользователю без текущего и следующего слота.
const DefaultSlot = "6-7AM"

var labelRe = regexp.MustCompile(`^(1[0-2]|[1-9])-(1[0-2]|[1-9])(AM|PM)$`)

// Valid сообщает, является ли label корректной меткой часового окна, например "6-7AM".
func Valid(label string) bool {
	return labelRe.MatchString(label)
}

// Rollover применяет ежемесячный переход к копии записи:
// выбранный следующий слот становится текущим, следующий слот очищается,
// статус оплаты сбрасывается. Если следующий слот не выбран, текущий
// сохраняется, а при его отсутствии назначается defaultSlot.
func Rollover(u models.User, defaultSlot string) models.User {
	out := u
	switch {
	case u.NextSlot != nil && *u.NextSlot != "":
		out.CurrSlot = *u.NextSlot
	case u.CurrSlot == "":
		out.CurrSlot = defaultSlot
	}
	out.NextSlot = nil
	out.PaymentStatus = false
	return out
}

// Advance применяет Rollover за период period и отмечает запись этим периодом.
// Запись, уже отмеченная period, возвращается без изменений и changed=false,
// поэтому повторный проход за тот же период не сдвигает слоты дважды.
func Advance(u models.User, defaultSlot, period string) (next models.User, changed bool) {
	if u.RolledPeriod == period {
		return u, false
	}
	next = Rollover(u, defaultSlot)
	next.RolledPeriod = period
	return next, true
}
