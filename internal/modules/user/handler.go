package user

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"texpro/internal/domain"
	"texpro/internal/middleware"
	"texpro/internal/pkg/response"
	"texpro/internal/pkg/validator"
)

type CreateRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=admin supervisor technician inspector analyst operator"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	u := rg.Group("/users", middleware.AdminOnly())
	{
		u.POST("", h.Create)
		u.GET("", h.List)
		u.GET("/:id", h.Get)
		u.DELETE("/:id", h.Deactivate)
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

	u, err := h.service.Create(c.Request.Context(), CreateInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     domain.UserRole(req.Role),
	})
	if err != nil {
		if err == ErrDuplicateEmail {
			response.Error(c, http.StatusConflict, "DUPLICATE_EMAIL", err.Error())
			return
		}
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, u)
}

func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	users, err := h.service.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, users)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid user id")
		return
	}
	u, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, u)
}

func (h *Handler) Deactivate(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid user id")
		return
	}
	if err := h.service.Deactivate(c.Request.Context(), id); err != nil {
		response.FromDomainError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deactivated": id})
}
