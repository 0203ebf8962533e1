package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/slot-booking/internal/lib/smtp"
	"github.com/magabrotheeeer/slot-booking/internal/models"
)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg smtp.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

const eventBody = `{"user_id":"u1","name":"Alice","email":"alice@example.com","period":"2024-02","previous_slot":"6-7AM","current_slot":"8-9AM"}`

// isReminder проверяет, что письмо адресовано Alice и описывает смену слота.
var isReminder = mock.MatchedBy(func(msg smtp.Message) bool {
	return len(msg.To) == 1 && msg.To[0] == "alice@example.com" &&
		msg.Subject == "Оплата слота за 2024-02" &&
		assert.ObjectsAreEqual(reminderText(models.SlotRolledEvent{
			Name: "Alice", Period: "2024-02", PreviousSlot: "6-7AM", CurrentSlot: "8-9AM",
		}), msg.Body)
})

func TestService_HandleSlotRolled(t *testing.T) {
	tests := []struct {
		name          string
		body          []byte
		setupMocks    func(*MockMailer)
		expectedError bool
		errorMessage  string
	}{
		{
			name: "success - payment reminder sent",
			body: []byte(eventBody),
			setupMocks: func(m *MockMailer) {
				m.On("Send", mock.Anything, isReminder).Return(nil).Once()
			},
		},
		{
			name:       "invalid JSON is dropped",
			body:       []byte(`invalid json`),
			setupMocks: func(_ *MockMailer) {},
		},
		{
			name:       "event without email is dropped",
			body:       []byte(`{"user_id":"u1","period":"2024-02"}`),
			setupMocks: func(_ *MockMailer) {},
		},
		{
			name: "bad address is dropped",
			body: []byte(`{"user_id":"u1","email":"not an address","period":"2024-02"}`),
			setupMocks: func(m *MockMailer) {
				m.On("Send", mock.Anything, mock.Anything).
					Return(fmt.Errorf("smtp.Send: %w", smtp.ErrInvalidAddress)).Once()
			},
		},
		{
			name: "SMTP connection error is retried",
			body: []byte(eventBody),
			setupMocks: func(m *MockMailer) {
				m.On("Send", mock.Anything, isReminder).Return(errors.New("connection error")).Once()
			},
			expectedError: true,
			errorMessage:  "connection error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := new(MockMailer)
			service := New(newNoopLogger(), mailer)

			tt.setupMocks(mailer)

			err := service.HandleSlotRolled(context.Background(), tt.body)
			if tt.expectedError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMessage)
			} else {
				assert.NoError(t, err)
			}

			mailer.AssertExpectations(t)
		})
	}
}

func TestService_HandleSlotRolledCanceled(t *testing.T) {
	mailer := new(MockMailer)
	service := New(newNoopLogger(), mailer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := service.HandleSlotRolled(ctx, []byte(eventBody))
	assert.ErrorIs(t, err, context.Canceled)
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestReminderText(t *testing.T) {
	same := reminderText(models.SlotRolledEvent{Name: "Bob", Period: "2024-03", PreviousSlot: "6-7AM", CurrentSlot: "6-7AM"})
	assert.Contains(t, same, "сохранён слот 6-7AM")

	changed := reminderText(models.SlotRolledEvent{Name: "Bob", Period: "2024-03", PreviousSlot: "6-7AM", CurrentSlot: "1-2PM"})
	assert.Contains(t, changed, "с 6-7AM на 1-2PM")
}
