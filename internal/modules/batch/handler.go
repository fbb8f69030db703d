package batch

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"texpro/internal/domain"
	"texpro/internal/middleware"
	"texpro/internal/pkg/clock"
	"texpro/internal/pkg/response"
	"texpro/internal/pkg/validator"
)

type Handler struct {
	service *Service
	clock   clock.Clock
}

func NewHandler(service *Service, clk clock.Clock) *Handler {
	return &Handler{service: service, clock: clk}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	b := rg.Group("/batches")
	{
		b.POST("", middleware.Management(), h.Create)
		b.GET("", h.List)
		b.GET("/:id", h.Get)
		b.GET("/:id/progress", h.Progress)
		b.POST("/:id/start", middleware.Management(), h.Start)
		b.POST("/:id/complete", middleware.Management(), h.Complete)
		b.POST("/:id/delay", middleware.Management(), h.Delay)
		b.POST("/:id/cancel", middleware.Management(), h.Cancel)
		b.POST("/bulk-transition", middleware.Management(), h.BulkTransition)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid fields", errs)
		return
	}

	in := CreateInput{
		BatchCode:    req.BatchCode,
		Description:  req.Description,
		SupervisorID: req.SupervisorID,
	}
	if req.StartDate != "" {
		d, _ := clock.ParseDate(req.StartDate)
		in.StartDate = &d
	}
	if req.EndDate != "" {
		d, _ := clock.ParseDate(req.EndDate)
		in.EndDate = &d
	}

	b, err := h.service.Create(c.Request.Context(), middleware.ActorFrom(c), in)
	if err != nil {
		switch err {
		case ErrInvalidCode, ErrInvalidSupervisor:
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		case ErrDuplicateCode:
			response.Error(c, http.StatusConflict, "DUPLICATE_CODE", err.Error())
		default:
			response.FromDomainError(c, err)
		}
		return
	}
	response.Success(c, http.StatusCreated, b)
}

func (h *Handler) List(c *gin.Context) {
	status := domain.BatchStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown status filter")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	batches, err := h.service.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, batches)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid batch id")
		return
	}
	b, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) Progress(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid batch id")
		return
	}
	b, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	today := clock.Today(h.clock)
	response.Success(c, http.StatusOK, ProgressResponse{
		BatchID:       b.ID,
		BatchCode:     b.BatchCode,
		Status:        string(b.Status),
		DurationDays:  b.DurationDays(),
		DaysRemaining: b.DaysRemaining(today),
		Progress:      b.ProgressPercentage(today),
		Overdue:       b.IsOverdue(today),
	})
}

func (h *Handler) Start(c *gin.Context) {
	h.simpleTransition(c, h.service.Start)
}

func (h *Handler) Complete(c *gin.Context) {
	h.simpleTransition(c, h.service.Complete)
}

func (h *Handler) Delay(c *gin.Context) {
	h.simpleTransition(c, h.service.Delay)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid batch id")
		return
	}
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid fields", errs)
		return
	}

	b, err := h.service.Cancel(c.Request.Context(), middleware.ActorFrom(c), id, req.Reason)
	if err != nil {
		if err == ErrReasonRequired {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) BulkTransition(c *gin.Context) {
	var req BulkTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid fields", errs)
		return
	}

	res, err := h.service.BulkTransition(c.Request.Context(), middleware.ActorFrom(c), req.IDs, domain.BatchStatus(req.Status), req.Reason)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

type transitionFn func(ctx context.Context, actor domain.Actor, id int64) (*domain.BatchWorkflow, error)

func (h *Handler) simpleTransition(c *gin.Context, fn transitionFn) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid batch id")
		return
	}
	b, err := fn(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}
