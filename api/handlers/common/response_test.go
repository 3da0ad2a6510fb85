package common

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"agentorch/internal/scheduler"
	"agentorch/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"工作流不存在", workflow.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{"调度不存在(包装)", fmt.Errorf("查询调度失败: %w", scheduler.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{"不可取消", scheduler.ErrNotCancelable, http.StatusConflict, CodeConflict},
		{"已完成", scheduler.ErrScheduleCompleted, http.StatusConflict, CodeConflict},
		{"非法转移", workflow.ErrInvalidTransition, http.StatusConflict, CodeConflict},
		{"非法 cron", scheduler.ErrInvalidCron, http.StatusUnprocessableEntity, CodeInvalidRequest},
		{"未知错误", fmt.Errorf("boom"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			Error(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tc.code, resp.Code)
			assert.Equal(t, tc.err.Error(), resp.Message)
		})
	}
}

func TestListResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	List(c, []string{"a", "b"}, 2)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Items []string `json:"items"`
			Total int      `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"a", "b"}, resp.Data.Items)
	assert.Equal(t, 2, resp.Data.Total)
}
