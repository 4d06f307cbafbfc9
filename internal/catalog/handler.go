package catalog

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"studiopass/internal/api"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	repo Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{repo: NewRepository(db)}
}

// ListPackages godoc
// @Summary      List packages
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Package
// @Failure      500  {object}  api.ErrorResponse
// @Router       /packages [get]
func (h *Handler) ListPackages(c *gin.Context) {
	pkgs, err := h.repo.ListPackages(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Database error"})
		return
	}

	c.JSON(http.StatusOK, pkgs)
}

// ListPlans godoc
// @Summary      List plans
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Plan
// @Failure      500  {object}  api.ErrorResponse
// @Router       /plans [get]
func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.repo.ListPlans(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Database error"})
		return
	}

	c.JSON(http.StatusOK, plans)
}

// ListTemplates godoc
// @Summary      List class templates
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   ClassTemplate
// @Failure      500  {object}  api.ErrorResponse
// @Router       /templates [get]
func (h *Handler) ListTemplates(c *gin.Context) {
	templates, err := h.repo.ListTemplates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Database error"})
		return
	}

	c.JSON(http.StatusOK, templates)
}

// CreatePlan godoc
// @Summary      Create plan
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreatePlanRequest  true  "Plan data"
// @Success      201      {object}  Plan
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /admin/plans [post]
func (h *Handler) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	if !AccessType(req.AccessType).Valid() {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Unknown access type"})
		return
	}
	if _, ok := BillingCycle(req.BillingCycle).Days(); !ok && BillingCycle(req.BillingCycle) != CycleFixed {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Unknown billing cycle"})
		return
	}
	// fixed-term plans get their end date per sale; every other cycle must
	// repeat at least once
	if BillingCycle(req.BillingCycle) != CycleFixed && req.RepeatCount < 1 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Repeat count must be at least 1"})
		return
	}

	plan, err := h.repo.CreatePlan(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create plan"})
		return
	}

	c.JSON(http.StatusCreated, plan)
}

// CreatePackage godoc
// @Summary      Create package
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreatePackageRequest  true  "Package data"
// @Success      201      {object}  Package
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /admin/packages [post]
func (h *Handler) CreatePackage(c *gin.Context) {
	var req CreatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	if _, err := h.repo.GetPlanByID(c.Request.Context(), req.PlanID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Database error"})
		return
	}

	pkg, err := h.repo.CreatePackage(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create package"})
		return
	}

	c.JSON(http.StatusCreated, pkg)
}

// CreatePermission godoc
// @Summary      Authorize package for class template
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreatePermissionRequest  true  "Permission pair"
// @Success      201      {object}  api.MessageResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /admin/permissions [post]
func (h *Handler) CreatePermission(c *gin.Context) {
	var req CreatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.repo.EnsurePermission(c.Request.Context(), req.PackageID, req.TemplateID); err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create permission"})
		return
	}

	c.JSON(http.StatusCreated, api.MessageResponse{Message: "Permission created"})
}

// GetPackage godoc
// @Summary      Get package
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        packageID  path      int  true  "Package ID"
// @Success      200        {object}  Package
// @Failure      400        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Router       /packages/{packageID} [get]
func (h *Handler) GetPackage(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("packageID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid package ID"})
		return
	}

	pkg, err := h.repo.GetPackageByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Package not found"})
		return
	}

	c.JSON(http.StatusOK, pkg)
}
