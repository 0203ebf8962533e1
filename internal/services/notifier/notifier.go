// Package notifier рассылает напоминания об оплате пользователям,
// чей слот сменился в новом расчётном периоде.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/slot-booking/internal/lib/sl"
	"github.com/magabrotheeeer/slot-booking/internal/lib/smtp"
	"github.com/magabrotheeeer/slot-booking/internal/models"
)

// Mailer отправляет письмо.
type Mailer interface {
	Send(ctx context.Context, msg smtp.Message) error
}

// Service отправляет напоминания через Mailer.
type Service struct {
	mailer Mailer
	log    *slog.Logger
}

// New создает новый экземпляр Service.
func New(log *slog.Logger, mailer Mailer) *Service {
	return &Service{
		mailer: mailer,
		log:    log,
	}
}

// HandleSlotRolled обрабатывает событие slot.rolled. Некорректное
// сообщение отбрасывается, ошибка отправки возвращает его в очередь.
func (s *Service) HandleSlotRolled(ctx context.Context, body []byte) error {
	const op = "notifier.HandleSlotRolled"

	var event models.SlotRolledEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Error("dropping malformed slot rolled event", sl.Err(err))
		return nil
	}
	if event.Email == "" {
		s.log.Warn("slot rolled event without email", sl.UserID(event.UserID))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := s.mailer.Send(ctx, reminder(event))
	if errors.Is(err, smtp.ErrInvalidAddress) || errors.Is(err, smtp.ErrNoRecipients) {
		// повторная доставка не поможет
		s.log.Error("dropping slot rolled event with bad address", sl.UserID(event.UserID), sl.Err(err))
		return nil
	}
	if err != nil {
		s.log.Error("failed to send payment reminder", sl.UserID(event.UserID), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("payment reminder sent", sl.UserID(event.UserID), sl.Period(event.Period))
	return nil
}

// reminder письмо-напоминание об оплате нового периода.
func reminder(e models.SlotRolledEvent) smtp.Message {
	return smtp.Message{
		To:      []string{e.Email},
		Subject: fmt.Sprintf("Оплата слота за %s", e.Period),
		Body:    reminderText(e),
	}
}

func reminderText(e models.SlotRolledEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Здравствуйте, %s!\n\n", e.Name)
	if e.PreviousSlot != "" && e.PreviousSlot != e.CurrentSlot {
		fmt.Fprintf(&b, "С периода %s ваш слот изменён с %s на %s.\n", e.Period, e.PreviousSlot, e.CurrentSlot)
	} else {
		fmt.Fprintf(&b, "В периоде %s за вами сохранён слот %s.\n", e.Period, e.CurrentSlot)
	}
	b.WriteString("Статус оплаты сброшен. Пожалуйста, оплатите новый период, чтобы сохранить бронь.\n")
	return b.String()
}
