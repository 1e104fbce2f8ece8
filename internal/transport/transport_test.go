package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ds124wfegd/fractal-bot/internal/entity"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRenderService struct{ mock.Mock }

func (m *mockRenderService) HandleUpdate(ctx context.Context, update entity.Update) error {
	return m.Called(ctx, update).Error(0)
}

func (m *mockRenderService) Render(ctx context.Context, chatID int64, text string) error {
	return m.Called(ctx, chatID, text).Error(0)
}

func init() {
	gin.SetMode(gin.TestMode)
}

const updateJSON = `{"update_id":3,"message":{"message_id":1,"chat":{"id":42,"type":"private"},"text":"hi"}}`

func serve(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router := InitRoutes(NewUpdateHandler(&mockRenderService{}, "", 1), false)

	w := serve(router, http.MethodGet, "/health", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "polling", body["mode"])
}

func TestWebhookNotRegisteredInPollingMode(t *testing.T) {
	router := InitRoutes(NewUpdateHandler(&mockRenderService{}, "", 1), false)

	w := serve(router, http.MethodPost, "/webhook", updateJSON, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestWebhook проверяет обработку входящих обновлений
func TestWebhook(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		headers    map[string]string
		body       string
		serviceErr error
		wantCode   int
		wantCalled bool
	}{
		{name: "accepted", body: updateJSON, wantCode: http.StatusOK, wantCalled: true},
		{name: "secret matches", secret: "s", headers: map[string]string{secretHeader: "s"},
			body: updateJSON, wantCode: http.StatusOK, wantCalled: true},
		{name: "secret mismatch", secret: "s", headers: map[string]string{secretHeader: "x"},
			body: updateJSON, wantCode: http.StatusUnauthorized},
		{name: "bad json", body: "{", wantCode: http.StatusBadRequest},
		{name: "service error still acknowledged", body: updateJSON,
			serviceErr: errors.New("render failed"), wantCode: http.StatusOK, wantCalled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockRenderService{}
			svc.On("HandleUpdate", mock.Anything, mock.MatchedBy(func(u entity.Update) bool {
				return u.UpdateID == 3 && u.Message != nil && u.Message.Chat.ID == 42 && u.Message.Text == "hi"
			})).Return(tt.serviceErr).Maybe()
			router := InitRoutes(NewUpdateHandler(svc, tt.secret, 2), true)

			w := serve(router, http.MethodPost, "/webhook", tt.body, tt.headers)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCalled {
				svc.AssertNumberOfCalls(t, "HandleUpdate", 1)
			} else {
				svc.AssertNotCalled(t, "HandleUpdate", mock.Anything, mock.Anything)
			}
		})
	}
}
