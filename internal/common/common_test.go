package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:4321"
	require.Equal(t, "192.0.2.10", ClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	require.Equal(t, "198.51.100.2", ClientIP(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.5 , 10.0.0.1")
	require.Equal(t, "203.0.113.5", ClientIP(req))

	require.Empty(t, ClientIP(nil))
}

func TestWriteErrorAppError(t *testing.T) {
	rr := httptest.NewRecorder()
	base := errors.New("boom")
	appErr := NewAppError("UNKNOWN_ITEM", "no rule", http.StatusUnprocessableEntity, base)
	appErr.Details = map[string]any{"item": "x"}
	WriteError(rr, appErr)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.ErrorIs(t, appErr, base)
	var body struct {
		Error ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "UNKNOWN_ITEM", body.Error.Code)
	require.Equal(t, "no rule", body.Error.Message)
}

func TestWriteErrorPlainError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, errors.New("db password leaked"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "password")
}

func TestClientIPIgnoresGarbageHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[::ffff:192.0.2.7]:80"
	req.Header.Set("X-Forwarded-For", "not-an-ip, 10.0.0.1")
	req.Header.Set("X-Real-IP", "also bad")
	require.Equal(t, "192.0.2.7", ClientIP(req))
}

func TestJSONEncodeFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	JSON(rr, http.StatusOK, map[string]any{"bad": make(chan int)})
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.JSONEq(t, `{"error":{"code":"INTERNAL","message":"failed to encode response"}}`, rr.Body.String())
}

func TestDataEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	Data(rr, http.StatusCreated, map[string]any{"total": 0})
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.JSONEq(t, `{"data":{"total":0}}`, rr.Body.String())
}
