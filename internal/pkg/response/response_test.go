package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deptrooms/internal/domain"
)

type envelope struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func failWith(t *testing.T, err error) (int, envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

	Fail(c, err)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func TestFail_MapsDomainErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.Errorf(domain.ErrNotFound, "room 3 not found"), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("create: %w", domain.ErrSlotConflict), http.StatusConflict, "SLOT_CONFLICT"},
		{domain.ErrRoomUnavailable, http.StatusConflict, "ROOM_UNAVAILABLE"},
		{domain.Errorf(domain.ErrInvalidState, "booking already cancelled"), http.StatusConflict, "INVALID_STATE"},
		{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{domain.Errorf(domain.ErrValidation, "bad date"), http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tc := range cases {
		status, env := failWith(t, tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.False(t, env.Success)
		assert.Equal(t, tc.code, env.Error.Code)
		assert.Equal(t, tc.err.Error(), env.Error.Message)
	}
}

func TestFail_ValidationDetails(t *testing.T) {
	verr := domain.NewValidationError("start_time", "time is not aligned to the slot grid")
	status, env := failWith(t, verr)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "time is not aligned to the slot grid", env.Error.Details["start_time"])
}

func TestFail_HidesInternalErrors(t *testing.T) {
	status, env := failWith(t, errors.New("pq: connection reset"))

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
	assert.Equal(t, "Internal server error", env.Error.Message)
}
