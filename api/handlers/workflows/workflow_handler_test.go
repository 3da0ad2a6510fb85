package workflows

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"agentorch/internal/workflow"
	"agentorch/internal/workflow/state"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupWorkflowRouter(t *testing.T) (*gin.Engine, *workflow.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := workflow.NewStore(state.NewMemoryKV())
	h := NewWorkflowHandler(store)

	r := gin.New()
	g := r.Group("/api/workflows")
	g.GET("/active", h.ListActive)
	g.GET("/session/:sid", h.GetBySession)
	g.GET("/:id", h.GetWorkflow)
	g.GET("/:id/events", h.ListEvents)
	g.DELETE("/:id", h.DeleteWorkflow)
	return r, store
}

func doRequest(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

type listBody struct {
	Data struct {
		Items []json.RawMessage `json:"items"`
		Total int               `json:"total"`
	} `json:"data"`
}

func TestWorkflowHandler_GetAndDelete(t *testing.T) {
	r, store := setupWorkflowRouter(t)
	ctx := context.Background()
	wf, err := store.CreateWorkflow(ctx, workflow.CreateParams{SessionID: "s-1", AgentID: "a-1"})
	require.NoError(t, err)

	w := doRequest(r, http.MethodGet, "/api/workflows/"+wf.WorkflowID)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data workflow.WorkflowExecution `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, wf.WorkflowID, body.Data.WorkflowID)
	assert.Equal(t, workflow.PhaseInitial, body.Data.Phase)

	w = doRequest(r, http.MethodGet, "/api/workflows/session/s-1")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodDelete, "/api/workflows/"+wf.WorkflowID)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(r, http.MethodGet, "/api/workflows/"+wf.WorkflowID)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(r, http.MethodDelete, "/api/workflows/"+wf.WorkflowID)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestWorkflowHandler_ListActive(t *testing.T) {
	r, store := setupWorkflowRouter(t)
	ctx := context.Background()
	running, err := store.CreateWorkflow(ctx, workflow.CreateParams{SessionID: "s-1"})
	require.NoError(t, err)
	_, err = store.UpdatePhase(ctx, running.WorkflowID, workflow.PhaseExecuting, nil, "")
	require.NoError(t, err)
	done, err := store.CreateWorkflow(ctx, workflow.CreateParams{SessionID: "s-2"})
	require.NoError(t, err)
	_, err = store.Complete(ctx, done.WorkflowID)
	require.NoError(t, err)

	w := doRequest(r, http.MethodGet, "/api/workflows/active")
	require.Equal(t, http.StatusOK, w.Code)
	var body listBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.Total)
}

func TestWorkflowHandler_ListEvents(t *testing.T) {
	r, store := setupWorkflowRouter(t)
	ctx := context.Background()
	wf, err := store.CreateWorkflow(ctx, workflow.CreateParams{SessionID: "s-1"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = store.AddEvent(ctx, wf.WorkflowID, workflow.WorkflowEvent{Type: "tick"})
		require.NoError(t, err)
	}

	w := doRequest(r, http.MethodGet, "/api/workflows/"+wf.WorkflowID+"/events?after=0")
	require.Equal(t, http.StatusOK, w.Code)
	var body listBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Data.Total)

	w = doRequest(r, http.MethodGet, "/api/workflows/"+wf.WorkflowID+"/events")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Data.Total)

	w = doRequest(r, http.MethodGet, "/api/workflows/"+wf.WorkflowID+"/events?after=x")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodGet, "/api/workflows/missing/events")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
