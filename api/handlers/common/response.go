package common

import (
	"errors"
	"net/http"

	"agentorch/internal/scheduler"
	"agentorch/internal/workflow"

	"github.com/gin-gonic/gin"
)

// Success 返回 200 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// Accepted 返回 202，表示已异步受理
func Accepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, APIResponse{Success: true, Message: message, Data: data})
}

// List 返回列表响应
func List(c *gin.Context, items any, total int) {
	Success(c, ListResponse{Items: items, Total: total})
}

// NoContent 返回 204
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Fail 返回错误响应
func Fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Success: false, Code: code, Message: message})
}

// BadRequest 返回 400
func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, CodeInvalidRequest, message)
}

// Error 将领域错误映射为 HTTP 状态码
func Error(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrNotFound), errors.Is(err, scheduler.ErrNotFound):
		Fail(c, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, scheduler.ErrNotCancelable),
		errors.Is(err, scheduler.ErrScheduleCompleted),
		errors.Is(err, workflow.ErrInvalidTransition):
		Fail(c, http.StatusConflict, CodeConflict, err.Error())
	case errors.Is(err, scheduler.ErrInvalidCron),
		errors.Is(err, scheduler.ErrInvalidInterval),
		errors.Is(err, scheduler.ErrUnknownScheduleType),
		errors.Is(err, workflow.ErrUnknownPhase):
		Fail(c, http.StatusUnprocessableEntity, CodeInvalidRequest, err.Error())
	default:
		Fail(c, http.StatusInternalServerError, CodeInternalError, err.Error())
	}
}
