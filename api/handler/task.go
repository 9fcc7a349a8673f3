package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/planhr/backend/api/transport"
	"github.com/planhr/backend/domain"
	"github.com/planhr/backend/pkg/httpcontext"
	"github.com/planhr/backend/repository"
	recurrenceUC "github.com/planhr/backend/usecase/recurrence"
	taskUC "github.com/planhr/backend/usecase/task"
)

type TaskHandler struct {
	baseHandler
	uc     *taskUC.UseCase
	engine *recurrenceUC.Engine
}

func NewTaskHandler(uc *taskUC.UseCase, engine *recurrenceUC.Engine, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		engine:      engine,
	}
}

// @Summary List tasks
// @Tags tasks
// @Router /api/v1/tasks [get]
func (h *TaskHandler) GetTasks(ctx *fasthttp.RequestCtx) {
	filter := repository.TaskFilter{
		EmployeeID: string(ctx.QueryArgs().Peek("employee_id")),
		CompanyID:  string(ctx.QueryArgs().Peek("company_id")),
		State:      domain.TaskState(ctx.QueryArgs().Peek("state")),
		Limit:      parseInt(string(ctx.QueryArgs().Peek("limit")), 50),
		Offset:     parseInt(string(ctx.QueryArgs().Peek("offset")), 0),
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tasks, err := h.uc.ListTasks(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, tasks)
}

// @Summary Get a single task
// @Tags tasks
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) GetTask(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.GetTask(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Create task
// @Tags tasks
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	task, tz, ok := h.parseTask(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.CreateTask(stdCtx, task, tz)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Update task
// @Tags tasks
// @Router /api/v1/tasks/{id} [put]
func (h *TaskHandler) UpdateTask(ctx *fasthttp.RequestCtx) {
	task, tz, ok := h.parseTask(ctx)
	if !ok {
		return
	}

	if task.ID == "" {
		if id, ok := ctx.UserValue("id").(string); ok {
			task.ID = id
		}
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := h.uc.UpdateTask(stdCtx, task, tz)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}

// @Summary Delete task
// @Tags tasks
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.DeleteTask(stdCtx, id); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary Set task state
// @Tags tasks
// @Router /api/v1/tasks/{id}/state [post]
func (h *TaskHandler) SetState(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathID(ctx)
	if !ok {
		return
	}

	var req transport.StateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeValidation), "invalid payload", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.SetState(stdCtx, id, domain.TaskState(req.State))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Enable, disable or edit the recurrence rule of a task
// @Tags tasks
// @Router /api/v1/tasks/{id}/repeat [put]
func (h *TaskHandler) SetRepeat(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathID(ctx)
	if !ok {
		return
	}

	var req transport.RepeatRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeValidation), "invalid payload", nil))
		return
	}

	params, err := repeatParams(req)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.GetTask(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	if req.Enabled && task.IsRecurrent() {
		err = h.engine.UpdateRule(stdCtx, task, params)
	} else {
		err = h.engine.SetRepeat(stdCtx, task, req.Enabled, params)
	}
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Leave conflict warning for a task
// @Tags tasks
// @Router /api/v1/tasks/{id}/leave-warning [get]
func (h *TaskHandler) LeaveWarning(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathID(ctx)
	if !ok {
		return
	}
	tz := string(ctx.QueryArgs().Peek("tz"))

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	warning, err := h.uc.LeaveWarning(stdCtx, id, tz)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"warning": warning})
}

// @Summary Number of tasks overlapping this one for the same employee
// @Tags tasks
// @Router /api/v1/tasks/{id}/overlaps [get]
func (h *TaskHandler) OverlapCount(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	count, err := h.uc.OverlapCount(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]int{"count": count})
}

// @Summary Plan a task for the calling user against a subject
// @Tags tasks
// @Router /api/v1/tasks/subject [post]
func (h *TaskHandler) CreateForSubject(ctx *fasthttp.RequestCtx) {
	userID := string(ctx.Request.Header.Peek("X-User-ID"))
	if userID == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeValidation), "missing user id", nil))
		return
	}

	var req transport.SubjectCreateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeValidation), "invalid payload", nil))
		return
	}

	start, err := parseTime(req.StartAt)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	end, err := parseTime(req.EndAt)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	subject := domain.SubjectRef{
		Kind: domain.TaskKind(req.Kind),
		ID:   req.SubjectID,
		Name: req.SubjectName,
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.CreateForSubject(stdCtx, userID, subject, start, end, req.Timezone)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

func (h *TaskHandler) parseTask(ctx *fasthttp.RequestCtx) (*domain.Task, string, bool) {
	var req transport.TaskRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeValidation), "invalid payload", nil))
		return nil, "", false
	}

	start, err := parseTime(req.StartAt)
	if err != nil {
		h.respondError(ctx, err)
		return nil, "", false
	}
	end, err := parseTime(req.EndAt)
	if err != nil {
		h.respondError(ctx, err)
		return nil, "", false
	}

	kind := domain.TaskKind(req.Kind)
	if kind == "" {
		kind = domain.KindGeneric
	}

	task := &domain.Task{
		ID: req.ID,
		Subject: domain.SubjectRef{
			Kind: kind,
			ID:   req.SubjectID,
			Name: req.SubjectName,
		},
		EmployeeID:          req.EmployeeID,
		CompanyID:           req.CompanyID,
		StartAt:             start,
		EndAt:               end,
		AllocatedHours:      req.AllocatedHours,
		AllocatedPercentage: req.AllocatedPercentage,
		State:               domain.TaskState(req.State),
		ForceRecompute:      req.ForceRecompute,
	}

	return task, req.Timezone, true
}

func (h *TaskHandler) pathID(ctx *fasthttp.RequestCtx) (string, bool) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeValidation), "missing task id", nil))
		return "", false
	}
	return id, true
}

func repeatParams(req transport.RepeatRequest) (recurrenceUC.RuleParams, error) {
	params := recurrenceUC.RuleParams{
		Interval: req.Interval,
		Unit:     domain.RepeatUnit(req.Unit),
		End:      domain.EndPolicy{Type: domain.EndPolicyType(req.EndType), Count: req.Count},
	}
	if req.Until != "" {
		until, err := parseTime(req.Until)
		if err != nil {
			return params, err
		}
		params.End.Until = until
	}
	return params, nil
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, domain.NewErrorf(domain.ErrCodeValidation, "invalid datetime %q", value)
	}
	return parsed.UTC(), nil
}

func parseInt(value string, fallback int) int {
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}
