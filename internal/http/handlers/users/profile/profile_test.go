package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/slot-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/slot-booking/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) GetProfile(ctx context.Context, id string) (models.PublicUser, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.PublicUser), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestProfileHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		userID         string
		setupMock      func(m *ServiceMock)
		wantStatusCode int
		wantError      string
	}{
		{
			name:   "success",
			userID: "u1",
			setupMock: func(m *ServiceMock) {
				m.On("GetProfile", mock.Anything, "u1").
					Return(models.PublicUser{ID: "u1", Name: "Alice", CurrSlot: "6-7AM"}, nil).Once()
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:   "not found",
			userID: "u1",
			setupMock: func(m *ServiceMock) {
				m.On("GetProfile", mock.Anything, "u1").
					Return(models.PublicUser{}, fmt.Errorf("users.GetProfile: %w", models.ErrUserNotFound)).Once()
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      "user not found",
		},
		{
			name:           "no user in context",
			setupMock:      func(_ *ServiceMock) {},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      "not authorized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setupMock(svc)
			handler := New(newNoopLogger(), svc)

			req := httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
			if tt.userID != "" {
				req = req.WithContext(middlewarectx.WithUserID(req.Context(), tt.userID))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
			} else {
				data := got["data"].(map[string]any)
				assert.Equal(t, "Alice", data["name"])
				assert.Nil(t, data["nextSlot"])
			}
			svc.AssertExpectations(t)
		})
	}
}
