package slot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/slot-booking/internal/models"
)

func ptr(s string) *string { return &s }

func TestRollover(t *testing.T) {
	tests := []struct {
		name     string
		in       models.User
		wantCurr string
	}{
		{
			name:     "next slot becomes current",
			in:       models.User{CurrSlot: "6-7AM", NextSlot: ptr("7-8AM"), PaymentStatus: true},
			wantCurr: "7-8AM",
		},
		{
			name:     "no next slot keeps current",
			in:       models.User{CurrSlot: "6-7AM", NextSlot: nil, PaymentStatus: true},
			wantCurr: "6-7AM",
		},
		{
			name:     "empty next slot keeps current",
			in:       models.User{CurrSlot: "5-6PM", NextSlot: ptr(""), PaymentStatus: false},
			wantCurr: "5-6PM",
		},
		{
			name:     "no slots at all gets default",
			in:       models.User{},
			wantCurr: DefaultSlot,
		},
		{
			name:     "no current but next set",
			in:       models.User{NextSlot: ptr("8-9PM")},
			wantCurr: "8-9PM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rollover(tt.in, DefaultSlot)

			assert.Equal(t, tt.wantCurr, got.CurrSlot)
			assert.Nil(t, got.NextSlot)
			assert.False(t, got.PaymentStatus)
		})
	}
}

func TestRollover_ScenarioNextSlotSet(t *testing.T) {
	in := models.User{ID: "u1", CurrSlot: "6-7AM", NextSlot: ptr("7-8AM"), PaymentStatus: true}

	got := Rollover(in, DefaultSlot)

	assert.Equal(t, models.User{ID: "u1", CurrSlot: "7-8AM", NextSlot: nil, PaymentStatus: false}, got)
	assert.Equal(t, "7-8AM", *in.NextSlot, "input must not be modified")
	assert.True(t, in.PaymentStatus)
}

func TestRollover_ScenarioNextSlotAbsent(t *testing.T) {
	in := models.User{ID: "u1", CurrSlot: "6-7AM", NextSlot: nil, PaymentStatus: true}

	got := Rollover(in, DefaultSlot)

	assert.Equal(t, models.User{ID: "u1", CurrSlot: "6-7AM", NextSlot: nil, PaymentStatus: false}, got)
}

func TestRollover_CustomDefault(t *testing.T) {
	got := Rollover(models.User{}, "9-10AM")
	assert.Equal(t, "9-10AM", got.CurrSlot)
}

func TestRollover_Idempotent(t *testing.T) {
	in := models.User{CurrSlot: "6-7AM", NextSlot: ptr("11-12AM"), PaymentStatus: true}

	once := Rollover(in, DefaultSlot)
	twice := Rollover(once, DefaultSlot)

	assert.Equal(t, once, twice)
	assert.Equal(t, "11-12AM", twice.CurrSlot)
}

func TestAdvance(t *testing.T) {
	in := models.User{CurrSlot: "6-7AM", NextSlot: ptr("7-8AM"), PaymentStatus: true, RolledPeriod: "2026-09"}

	next, changed := Advance(in, DefaultSlot, "2026-10")
	assert.True(t, changed)
	assert.Equal(t, "7-8AM", next.CurrSlot)
	assert.Equal(t, "2026-10", next.RolledPeriod)
	assert.Nil(t, next.NextSlot)
	assert.False(t, next.PaymentStatus)

	// пользователь оплатил и выбрал новый слот в том же периоде
	next.PaymentStatus = true
	next.NextSlot = ptr("8-9AM")

	again, changed := Advance(next, DefaultSlot, "2026-10")
	assert.False(t, changed)
	assert.Equal(t, next, again)
}

func TestValid(t *testing.T) {
	valid := []string{"6-7AM", "7-8AM", "11-12PM", "12-1PM", "1-2AM", "9-10PM"}
	invalid := []string{"", "6-7", "6AM", "0-1AM", "13-14PM", "6-7am", " 6-7AM", "6 - 7AM", "06-07AM"}

	for _, label := range valid {
		assert.True(t, Valid(label), label)
	}
	for _, label := range invalid {
		assert.False(t, Valid(label), label)
	}
}
