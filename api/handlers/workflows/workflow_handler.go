package workflows

import (
	"strconv"

	response "agentorch/api/handlers/common"
	"agentorch/internal/workflow"

	"github.com/gin-gonic/gin"
)

// WorkflowHandler 工作流状态查询 Handler
type WorkflowHandler struct {
	store *workflow.Store
}

// NewWorkflowHandler 创建 WorkflowHandler 实例
func NewWorkflowHandler(store *workflow.Store) *WorkflowHandler {
	return &WorkflowHandler{store: store}
}

// ListActive 查询进行中的工作流
// @Summary 查询进行中的工作流
// @Tags Workflows
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /api/workflows/active [get]
func (h *WorkflowHandler) ListActive(c *gin.Context) {
	items, err := h.store.GetActiveWorkflows(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, len(items))
}

// GetWorkflow 查询单个工作流
// @Summary 查询工作流详情
// @Tags Workflows
// @Produce json
// @Param id path string true "工作流 ID"
// @Success 200 {object} workflow.WorkflowExecution
// @Failure 404 {object} response.ErrorResponse
// @Router /api/workflows/{id} [get]
func (h *WorkflowHandler) GetWorkflow(c *gin.Context) {
	wf, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, wf)
}

// GetBySession 按会话查询最近的工作流
// @Router /api/workflows/session/{sid} [get]
func (h *WorkflowHandler) GetBySession(c *gin.Context) {
	wf, err := h.store.GetBySessionID(c.Request.Context(), c.Param("sid"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, wf)
}

// ListEvents 断线重连补发事件
// @Summary 查询缓冲事件
// @Tags Workflows
// @Produce json
// @Param id path string true "工作流 ID"
// @Param after query int false "只返回 sequence 大于该值的事件"
// @Success 200 {object} response.APIResponse
// @Router /api/workflows/{id}/events [get]
func (h *WorkflowHandler) ListEvents(c *gin.Context) {
	after := int64(-1)
	if raw := c.Query("after"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(c, "after 参数必须为整数")
			return
		}
		after = v
	}

	events, err := h.store.EventsSince(c.Request.Context(), c.Param("id"), after)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, events, len(events))
}

// DeleteWorkflow 删除工作流，不存在时同样返回 204
// @Router /api/workflows/{id} [delete]
func (h *WorkflowHandler) DeleteWorkflow(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
