package allocation

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"texpro/internal/middleware"
	"texpro/internal/pkg/clock"
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
	a := rg.Group("/allocations")
	{
		a.POST("/workforce", middleware.Management(), h.AllocateWorkforce)
		a.DELETE("/workforce/:id", middleware.Management(), h.ReleaseWorkforce)
		a.POST("/materials", middleware.Management(), h.AllocateMaterial)
		a.DELETE("/materials/:id", middleware.Management(), h.ReleaseMaterial)
		a.GET("/check", h.Check)
		a.GET("/batches/:id/workforce", h.BatchWorkforce)
		a.GET("/batches/:id/materials", h.BatchMaterials)
		a.GET("/batches/:id/summary", h.BatchSummary)
	}
}

func parseDatePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	d, err := clock.ParseDate(s)
	if err != nil {
		return nil
	}
	return &d
}

func (h *Handler) AllocateWorkforce(c *gin.Context) {
	var req AllocateWorkforceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid fields", errs)
		return
	}

	res, err := h.service.AllocateWorkforce(c.Request.Context(), middleware.ActorFrom(c), WorkforceInput{
		BatchID:      req.BatchID,
		UserID:       req.UserID,
		RoleAssigned: req.RoleAssigned,
		StartDate:    parseDatePtr(req.StartDate),
		EndDate:      parseDatePtr(req.EndDate),
	})
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

func (h *Handler) ReleaseWorkforce(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid allocation id")
		return
	}
	if err := h.service.ReleaseWorkforce(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"released": id})
}

func (h *Handler) AllocateMaterial(c *gin.Context) {
	var req AllocateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid fields", errs)
		return
	}

	a, err := h.service.AllocateMaterial(c.Request.Context(), middleware.ActorFrom(c), MaterialInput{
		BatchID:      req.BatchID,
		MaterialName: req.MaterialName,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		CostPerUnit:  req.CostPerUnit,
		Supplier:     req.Supplier,
	})
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, a)
}

func (h *Handler) ReleaseMaterial(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid allocation id")
		return
	}
	if err := h.service.ReleaseMaterial(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"released": id})
}

func (h *Handler) Check(c *gin.Context) {
	var req CheckRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid fields", errs)
		return
	}

	report, err := h.service.Check(c.Request.Context(), req.UserID, req.BatchID, parseDatePtr(req.StartDate), parseDatePtr(req.EndDate), req.ExceptID)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, report)
}

func (h *Handler) BatchWorkforce(c *gin.Context) {
	batchID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid batch id")
		return
	}
	rows, err := h.service.ListWorkforce(c.Request.Context(), batchID)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rows)
}

func (h *Handler) BatchMaterials(c *gin.Context) {
	batchID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid batch id")
		return
	}
	rows, err := h.service.ListMaterials(c.Request.Context(), batchID)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rows)
}

func (h *Handler) BatchSummary(c *gin.Context) {
	batchID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid batch id")
		return
	}
	sum, err := h.service.Summary(c.Request.Context(), batchID)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sum)
}
