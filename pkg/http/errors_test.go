package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusError(t *testing.T) {
	assert.Equal(t, "ERR_NOT_FOUND", NotFoundError("x").Code)
	assert.Equal(t, "ERR_RATE_LIMITED", StatusError(http.StatusTooManyRequests, "slow down").Code)
	assert.Equal(t, "ERR_UNKNOWN", StatusError(http.StatusTeapot, "tea").Code)
	assert.Equal(t, "ERR_CUSTOM", NewAppError("ERR_CUSTOM", "f", "m", http.StatusBadRequest).Code)
}

func TestStatusOf(t *testing.T) {
	cause := errors.New("disk")
	wrapped := fmt.Errorf("load: %w", BadRequestError("bad").WithError(cause))

	assert.Equal(t, http.StatusBadRequest, StatusOf(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, http.StatusInternalServerError, StatusOf(cause))
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, AppErrorResponse(c, NotFoundErrorf("asset %q", "dogecoin").WithParam("asset", "dogecoin")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"status":404,"message":"Not Found","data":[{"code":"ERR_NOT_FOUND","message":"asset \"dogecoin\"","params":{"asset":"dogecoin"}}]}`, rec.Body.String())
}

func TestErrorMessageResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	require.NoError(t, ErrorMessageResponse(c, http.StatusBadRequest, "open: missing"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"open: missing"}`, rec.Body.String())
}

func TestCacheFor(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	CacheFor(c, time.Minute)
	assert.Equal(t, "private, max-age=60", rec.Header().Get(echo.HeaderCacheControl))
}
