package maintenance

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"texpro/internal/domain"
	"texpro/internal/middleware"
	"texpro/internal/pkg/response"
	"texpro/internal/pkg/validator"
	"texpro/internal/repository"
)

type Handler struct {
	service   *Service
	scheduler *Scheduler
	predictor *Predictor
	machines  *repository.MachineRepository
}

func NewHandler(service *Service, scheduler *Scheduler, predictor *Predictor, machines *repository.MachineRepository) *Handler {
	return &Handler{service: service, scheduler: scheduler, predictor: predictor, machines: machines}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	mnt := rg.Group("/maintenance")
	{
		mnt.POST("/logs", h.OpenLog)
		mnt.GET("/logs/:id", h.GetLog)
		mnt.PATCH("/logs/:id", h.AdvanceLog)
		mnt.POST("/logs/:id/complete", h.CompleteLog)
		mnt.GET("/machines/:id/logs", h.MachineLogs)
		mnt.GET("/machines/:id/prediction", h.Prediction)
		mnt.GET("/machines/:id/recommendation", h.Recommendation)
		mnt.GET("/sweep", middleware.RequireRole("admin", "supervisor", "analyst"), h.Sweep)
	}
}

func (h *Handler) OpenLog(c *gin.Context) {
	var req OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid fields", errs)
		return
	}

	l, err := h.service.Open(c.Request.Context(), middleware.ActorFrom(c), req.MachineID, req.TechnicianID, req.Issue, domain.MaintenancePriority(req.Priority))
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, l)
}

func (h *Handler) GetLog(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid log id")
		return
	}
	l, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, l)
}

func (h *Handler) AdvanceLog(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid log id")
		return
	}
	var req AdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid fields", errs)
		return
	}

	l, err := h.service.Advance(c.Request.Context(), middleware.ActorFrom(c), id, req.patch())
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, l)
}

func (h *Handler) CompleteLog(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid log id")
		return
	}
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid fields", errs)
		return
	}

	l, err := h.service.Complete(c.Request.Context(), middleware.ActorFrom(c), id, CompleteInput{
		Action:        req.ActionTaken,
		DowntimeHours: req.DowntimeHours,
		Cost:          req.Cost,
		PartsReplaced: req.PartsReplaced,
		Notes:         req.Notes,
	})
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, l)
}

func (h *Handler) MachineLogs(c *gin.Context) {
	machineID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid machine id")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	logs, err := h.service.ListByMachine(c.Request.Context(), machineID, limit, offset)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, logs)
}

func (h *Handler) Prediction(c *gin.Context) {
	machineID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid machine id")
		return
	}
	m, err := h.machines.GetByID(c.Request.Context(), machineID)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	pred, err := h.predictor.NextDueDate(c.Request.Context(), m)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, PredictionResponse{
		MachineID:    m.ID,
		NextDue:      pred.NextDue.Format("2006-01-02"),
		Urgency:      string(pred.Urgency),
		DaysUntil:    pred.DaysUntil,
		IntervalDays: pred.IntervalDays,
		HoursRatio:   pred.HoursRatio,
		Reliability:  pred.Reliability,
	})
}

func (h *Handler) Recommendation(c *gin.Context) {
	machineID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid machine id")
		return
	}
	m, err := h.machines.GetByID(c.Request.Context(), machineID)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	rec, err := h.scheduler.RecommendFor(c.Request.Context(), m)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rec)
}

func (h *Handler) Sweep(c *gin.Context) {
	report, err := h.scheduler.Sweep(c.Request.Context())
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, report)
}
