package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"maintenance-task-service/internal/domain"
	"maintenance-task-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// accepted layouts for date query parameters, tried in order
var queryTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

type TaskHandler struct {
	service *service.TaskService
	logger  zerolog.Logger
	now     func() time.Time
}

func NewTaskHandler(service *service.TaskService, logger zerolog.Logger) *TaskHandler {
	return &TaskHandler{
		service: service,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateTask godoc
// @Summary Create a new task
// @Tags tasks
// @Accept json
// @Produce json
// @Param task body domain.CreateTaskDTO true "Task Request"
// @Success 201 {object} SuccessResponse{data=domain.TaskResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var dto domain.CreateTaskDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		h.logger.Debug().Err(err).Msg("invalid create task request body")
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request body: "+err.Error()))
		return
	}

	task, err := h.service.Create(c.Request.Context(), dto, h.now())
	if err != nil {
		h.writeError(c, err, "failed to create task")
		return
	}

	c.JSON(http.StatusCreated, NewSuccessResponse(task.ToResponse()))
}

// CreateBulkTask godoc
// @Summary Create multiple tasks
// @Description Invalid entries are reported per index; valid ones are stored in one transaction.
// @Tags tasks
// @Accept json
// @Produce json
// @Param tasks body domain.CreateBulkTaskDTO true "Bulk Task Request"
// @Success 201 {object} SuccessResponse{data=domain.BulkTaskResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tasks/bulk [post]
func (h *TaskHandler) CreateBulkTask(c *gin.Context) {
	var dto domain.CreateBulkTaskDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request body: "+err.Error()))
		return
	}

	resp, err := h.service.CreateBulk(c.Request.Context(), dto, h.now())
	if err != nil {
		h.writeError(c, err, "failed to create bulk tasks")
		return
	}

	c.JSON(http.StatusCreated, NewSuccessResponse(resp))
}

// GetTask godoc
// @Summary Get task by ID
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} SuccessResponse{data=domain.TaskResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}

	task, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to get task")
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse(task.ToResponse()))
}

// ListTasks godoc
// @Summary List all tasks
// @Tags tasks
// @Produce json
// @Success 200 {object} SuccessResponse{data=[]domain.TaskResponse}
// @Failure 500 {object} ErrorResponse
// @Router /tasks [get]
func (h *TaskHandler) ListTasks(c *gin.Context) {
	tasks, err := h.service.List(c.Request.Context())
	h.writeTasks(c, tasks, err)
}

// ListByAssignee godoc
// @Summary List tasks by assignee
// @Tags tasks
// @Produce json
// @Param assigneeId path int true "Assignee ID"
// @Success 200 {object} SuccessResponse{data=[]domain.TaskResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tasks/assignee/{assigneeId} [get]
func (h *TaskHandler) ListByAssignee(c *gin.Context) {
	assigneeID, ok := h.int64Param(c, "assigneeId")
	if !ok {
		return
	}
	tasks, err := h.service.FindByAssignee(c.Request.Context(), assigneeID)
	h.writeTasks(c, tasks, err)
}

// ListByCreator godoc
// @Summary List tasks by creator
// @Tags tasks
// @Produce json
// @Param creatorId path int true "Creator ID"
// @Success 200 {object} SuccessResponse{data=[]domain.TaskResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tasks/creator/{creatorId} [get]
func (h *TaskHandler) ListByCreator(c *gin.Context) {
	creatorID, ok := h.int64Param(c, "creatorId")
	if !ok {
		return
	}
	tasks, err := h.service.FindByCreator(c.Request.Context(), creatorID)
	h.writeTasks(c, tasks, err)
}

// ListByProperty godoc
// @Summary List tasks by property
// @Tags tasks
// @Produce json
// @Param propertyId path int true "Property ID"
// @Success 200 {object} SuccessResponse{data=[]domain.TaskResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tasks/property/{propertyId} [get]
func (h *TaskHandler) ListByProperty(c *gin.Context) {
	propertyID, ok := h.int64Param(c, "propertyId")
	if !ok {
		return
	}
	tasks, err := h.service.FindByProperty(c.Request.Context(), propertyID)
	h.writeTasks(c, tasks, err)
}

// ListByStatus godoc
// @Summary List tasks by status
// @Tags tasks
// @Produce json
// @Param status path string true "Task status" Enums(NEW, ASSIGNED, IN_PROGRESS, COMPLETED, CANCELED, OVERDUE, ESCALATED)
// @Success 200 {object} SuccessResponse{data=[]domain.TaskResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tasks/status/{status} [get]
func (h *TaskHandler) ListByStatus(c *gin.Context) {
	tasks, err := h.service.FindByStatus(c.Request.Context(), c.Param("status"))
	h.writeTasks(c, tasks, err)
}

// ListByPriority godoc
// @Summary List tasks by priority
// @Tags tasks
// @Produce json
// @Param priority path string true "Task priority" Enums(LOW, MEDIUM, HIGH, CRITICAL)
// @Success 200 {object} SuccessResponse{data=[]domain.TaskResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tasks/priority/{priority} [get]
func (h *TaskHandler) ListByPriority(c *gin.Context) {
	tasks, err := h.service.FindByPriority(c.Request.Context(), c.Param("priority"))
	h.writeTasks(c, tasks, err)
}

// ListOverdue godoc
// @Summary List overdue tasks
// @Description Open tasks past their due date. Their stored status is not changed.
// @Tags tasks
// @Produce json
// @Success 200 {object} SuccessResponse{data=[]domain.TaskResponse}
// @Failure 500 {object} ErrorResponse
// @Router /tasks/overdue [get]
func (h *TaskHandler) ListOverdue(c *gin.Context) {
	tasks, err := h.service.FindOverdue(c.Request.Context(), h.now())
	h.writeTasks(c, tasks, err)
}

// SearchTasks godoc
// @Summary Search tasks
// @Description All filters are optional and combined with AND.
// @Tags tasks
// @Produce json
// @Param assigneeId query int false "Assignee"
// @Param creatorId query int false "Creator"
// @Param status query string false "Status"
// @Param priority query string false "Priority"
// @Param propertyId query int false "Property"
// @Param createdAfter query string false "Inclusive lower bound on creation date"
// @Param createdBefore query string false "Inclusive upper bound on creation date"
// @Success 200 {object} SuccessResponse{data=[]domain.TaskResponse}
// @Failure 400 {object} ErrorResponse
// @Router /tasks/search [get]
func (h *TaskHandler) SearchTasks(c *gin.Context) {
	var (
		params domain.SearchParams
		err    error
	)

	if params.AssigneeID, err = int64Query(c, "assigneeId"); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	if params.CreatorID, err = int64Query(c, "creatorId"); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	if params.PropertyID, err = int64Query(c, "propertyId"); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	if params.CreatedAfter, err = timeQuery(c, "createdAfter"); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	if params.CreatedBefore, err = timeQuery(c, "createdBefore"); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	params.Status = stringQuery(c, "status")
	params.Priority = stringQuery(c, "priority")

	tasks, err := h.service.Search(c.Request.Context(), params)
	h.writeTasks(c, tasks, err)
}

// AssignTask godoc
// @Summary Assign a NEW task
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Param assigneeId path int true "Assignee ID"
// @Success 200 {object} SuccessResponse{data=domain.TaskResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tasks/{id}/assign/{assigneeId} [post]
func (h *TaskHandler) AssignTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}
	assigneeID, ok := h.int64Param(c, "assigneeId")
	if !ok {
		return
	}

	task, err := h.service.Assign(c.Request.Context(), id, &assigneeID)
	h.writeTask(c, task, err, "failed to assign task")
}

// StartTask godoc
// @Summary Start work on a task
// @Description Only the assignee may start a NEW or ASSIGNED task.
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Param userId query int true "Acting user ID"
// @Success 200 {object} SuccessResponse{data=domain.TaskResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tasks/{id}/start [post]
func (h *TaskHandler) StartTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}
	userID, err := int64Query(c, "userId")
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}

	task, err := h.service.Start(c.Request.Context(), id, userID)
	h.writeTask(c, task, err, "failed to start task")
}

// CompleteTask godoc
// @Summary Complete a task
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Param userId query int true "Acting user ID"
// @Success 200 {object} SuccessResponse{data=domain.TaskResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tasks/{id}/complete [post]
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}
	userID, err := int64Query(c, "userId")
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}

	task, err := h.service.Complete(c.Request.Context(), id, userID, h.now())
	h.writeTask(c, task, err, "failed to complete task")
}

// CancelTask godoc
// @Summary Cancel a task
// @Description Cancel any task that is not yet completed or canceled. The reason is only carried on the event.
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Param reason query string false "Cancellation reason"
// @Success 200 {object} SuccessResponse{data=domain.TaskResponse}
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /tasks/{id}/cancel [post]
func (h *TaskHandler) CancelTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}

	task, err := h.service.Cancel(c.Request.Context(), id, stringQuery(c, "reason"))
	h.writeTask(c, task, err, "failed to cancel task")
}

// EscalateTask godoc
// @Summary Escalate a task
// @Description Raises the escalation level and reassigns the task.
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Param escalatedTo query int true "Escalation target user ID"
// @Success 200 {object} SuccessResponse{data=domain.TaskResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tasks/{id}/escalate [post]
func (h *TaskHandler) EscalateTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}
	escalatedTo, err := int64Query(c, "escalatedTo")
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}

	task, err := h.service.Escalate(c.Request.Context(), id, escalatedTo)
	h.writeTask(c, task, err, "failed to escalate task")
}

// UpdateTask godoc
// @Summary Update a task
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param task body domain.UpdateTaskDTO true "Fields to change"
// @Success 200 {object} SuccessResponse{data=domain.TaskResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}

	var dto domain.UpdateTaskDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request body: "+err.Error()))
		return
	}

	task, err := h.service.Update(c.Request.Context(), id, dto)
	h.writeTask(c, task, err, "failed to update task")
}

// UpdatePriority godoc
// @Summary Change task priority
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Param priority query string true "New priority" Enums(LOW, MEDIUM, HIGH, CRITICAL)
// @Success 200 {object} SuccessResponse{data=domain.TaskResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tasks/{id}/priority [patch]
func (h *TaskHandler) UpdatePriority(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}
	priority := stringQuery(c, "priority")
	if priority == nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("priority is required"))
		return
	}

	task, err := h.service.UpdatePriority(c.Request.Context(), id, *priority)
	h.writeTask(c, task, err, "failed to update task priority")
}

// UpdateDueDate godoc
// @Summary Change task due date
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Param dueDate query string true "New due date (RFC3339)"
// @Success 200 {object} SuccessResponse{data=domain.TaskResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tasks/{id}/due-date [patch]
func (h *TaskHandler) UpdateDueDate(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}
	dueDate, err := timeQuery(c, "dueDate")
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	if dueDate == nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("dueDate is required"))
		return
	}

	task, err := h.service.UpdateDueDate(c.Request.Context(), id, *dueDate)
	h.writeTask(c, task, err, "failed to update task due date")
}

// DeleteTask godoc
// @Summary Delete a task
// @Description Only completed or canceled tasks can be deleted.
// @Tags tasks
// @Param id path string true "Task ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err, "failed to delete task")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetMetrics godoc
// @Summary Get task metrics
// @Description Get aggregated metrics of tasks
// @Tags metrics
// @Produce json
// @Success 200 {object} SuccessResponse{data=domain.TaskMetrics}
// @Failure 500 {object} ErrorResponse
// @Router /metrics [get]
func (h *TaskHandler) GetMetrics(c *gin.Context) {
	metrics, err := h.service.GetMetrics(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to get metrics")
		c.JSON(http.StatusInternalServerError, NewErrorResponse("failed to get metrics"))
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse(metrics))
}

func (h *TaskHandler) writeTask(c *gin.Context, task *domain.Task, err error, msg string) {
	if err != nil {
		h.writeError(c, err, msg)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(task.ToResponse()))
}

func (h *TaskHandler) writeTasks(c *gin.Context, tasks []*domain.Task, err error) {
	if err != nil {
		h.writeError(c, err, "failed to list tasks")
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(domain.ToResponses(tasks)))
}

func (h *TaskHandler) taskID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid task id format"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *TaskHandler) int64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(fmt.Sprintf("invalid %s", name)))
		return 0, false
	}
	return v, true
}

func stringQuery(c *gin.Context, name string) *string {
	raw, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	return &raw
}

func int64Query(c *gin.Context, name string) (*int64, error) {
	raw := stringQuery(c, name)
	if raw == nil {
		return nil, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(*raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %s", name, *raw)
	}
	return &v, nil
}

func timeQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := stringQuery(c, name)
	if raw == nil {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	for _, layout := range queryTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid %s: %s", name, *raw)
}
