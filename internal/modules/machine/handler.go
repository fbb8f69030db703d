package machine

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"texpro/internal/domain"
	"texpro/internal/middleware"
	"texpro/internal/pkg/response"
	"texpro/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	m := rg.Group("/machines")
	{
		m.POST("/types", middleware.AdminOnly(), h.CreateType)
		m.GET("/types", h.ListTypes)
		m.POST("", middleware.Management(), h.Create)
		m.GET("", h.List)
		m.GET("/:id", h.Get)
		m.PATCH("/:id/status", h.UpdateStatus)
		m.POST("/:id/hours", h.AddHours)
	}
}

func (h *Handler) CreateType(c *gin.Context) {
	var req CreateTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid fields", errs)
		return
	}

	t, err := h.service.CreateType(c.Request.Context(), &domain.MachineType{
		Name:                    req.Name,
		Description:             req.Description,
		RecommendedIntervalDays: req.RecommendedIntervalDays,
		RecommendedIntervalHrs:  req.RecommendedIntervalHrs,
		TypicalPowerKW:          req.TypicalPowerKW,
		TypicalRate:             req.TypicalRate,
	})
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, t)
}

func (h *Handler) ListTypes(c *gin.Context) {
	types, err := h.service.ListTypes(c.Request.Context())
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, types)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid fields", errs)
		return
	}

	in := CreateMachineInput{
		MachineCode:       req.MachineCode,
		TypeID:            req.TypeID,
		PrimaryOperatorID: req.PrimaryOperatorID,
		LocationSite:      req.LocationSite,
		LocationBuilding:  req.LocationBuilding,
		LocationFloor:     req.LocationFloor,
		LocationDetails:   req.LocationDetails,
	}
	if req.InstallationDate != "" {
		in.InstallationDate = &req.InstallationDate
	}

	m, err := h.service.Create(c.Request.Context(), middleware.ActorFrom(c), in)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, m)
}

func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	machines, err := h.service.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, machines)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid machine id")
		return
	}
	m, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, m)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid machine id")
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid fields", errs)
		return
	}

	m, err := h.service.UpdateStatus(c.Request.Context(), middleware.ActorFrom(c), id, domain.MachineStatus(req.Status), req.Reason)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, m)
}

func (h *Handler) AddHours(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid machine id")
		return
	}
	var req AddHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid fields", errs)
		return
	}

	m, err := h.service.AddOperatingHours(c.Request.Context(), middleware.ActorFrom(c), id, req.Hours, req.Note)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, m)
}
