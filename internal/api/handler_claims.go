package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fleet-records-backend/internal/authz"
	"fleet-records-backend/internal/model"
	"fleet-records-backend/internal/mw"
)

type claimRequest struct {
	MachineID           *int64      `json:"machine_id"`
	FailureDate         *model.Date `json:"failure_date"`
	OperatingHours      *uint       `json:"operating_hours"`
	FailureNodeInput    *string     `json:"failure_node_input"`
	FailureDescription  *string     `json:"failure_description"`
	RecoveryMethodInput *string     `json:"recovery_method_input"`
	SparePartsUsed      *string     `json:"spare_parts"`
	RecoveryDate        *model.Date `json:"recovery_date"`
}

// ListClaims handles GET /api/claims.
func (h *Handler) ListClaims(c *gin.Context) {
	user, _ := mw.CurrentUser(c)
	params, ok := parseListParams(c, "failure_node", "recovery_method", "service_company")
	if !ok {
		return
	}

	query := h.store.DB().WithContext(c.Request.Context()).
		Model(&model.Claim{}).
		Scopes(authz.ClaimScope(user))

	if value, ok := params.Filters["failure_node"]; ok {
		query = query.Where(
			"claims.failure_node_id IN (?)",
			h.store.DB().Model(&model.DictionaryEntry{}).
				Select("id").
				Where("entity = ? AND LOWER(name) LIKE ?", model.EntityFailureNode, containsPattern(value)),
		)
	}
	if value, ok := params.Filters["recovery_method"]; ok {
		query = query.Where(
			"claims.recovery_method_id IN (?)",
			h.store.DB().Model(&model.DictionaryEntry{}).
				Select("id").
				Where("entity = ? AND LOWER(name) LIKE ?", model.EntityRecoveryMethod, containsPattern(value)),
		)
	}
	if value, ok := params.Filters["service_company"]; ok {
		query = query.Where(
			"claims.machine_id IN (?)",
			h.store.DB().Model(&model.Machine{}).
				Select("machines.id").
				Joins("JOIN users ON users.id = machines.service_company_id").
				Where("LOWER(users.description) LIKE ?", containsPattern(value)),
		)
	}

	var claims []model.Claim
	err := query.
		Preload("Machine").Preload("FailureNode").Preload("RecoveryMethod").
		Order("claims.failure_date").
		Limit(params.Limit).Offset(params.Offset).
		Find(&claims).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve claims"})
		return
	}

	views := make([]claimView, 0, len(claims))
	for i := range claims {
		views = append(views, claimToView(&claims[i]))
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) loadClaim(c *gin.Context) (*model.Claim, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fieldError(c, "id", "must be an integer")
		return nil, false
	}

	var claim model.Claim
	err = h.store.DB().WithContext(c.Request.Context()).
		Preload("Machine").Preload("FailureNode").Preload("RecoveryMethod").
		First(&claim, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "claim")
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return nil, false
	}
	return &claim, true
}

// GetClaim handles GET /api/claims/:id.
func (h *Handler) GetClaim(c *gin.Context) {
	user, _ := mw.CurrentUser(c)
	claim, ok := h.loadClaim(c)
	if !ok {
		return
	}
	if !authz.CanViewMachine(user, &claim.Machine) {
		notFound(c, "claim")
		return
	}
	c.JSON(http.StatusOK, claimToView(claim))
}

// CreateClaim handles POST /api/claims. Only the assigned service company
// (or manager/superadmin) may file claims; clients are read-only here.
func (h *Handler) CreateClaim(c *gin.Context) {
	user, _ := mw.CurrentUser(c)
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.MachineID == nil {
		fieldError(c, "machine_id", "value is required")
		return
	}
	if req.FailureDate == nil {
		fieldError(c, "failure_date", "value is required")
		return
	}
	if req.OperatingHours == nil {
		fieldError(c, "operating_hours", "value is required")
		return
	}

	ctx := c.Request.Context()
	var machine model.Machine
	if err := h.store.DB().WithContext(ctx).First(&machine, *req.MachineID).Error; err != nil {
		notFound(c, "machine")
		return
	}
	if !authz.CanViewMachine(user, &machine) {
		notFound(c, "machine")
		return
	}
	if !authz.CanMutateClaim(user, &machine, authz.ActionCreate) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return
	}

	nodeValue := ""
	if req.FailureNodeInput != nil {
		nodeValue = *req.FailureNodeInput
	}
	failureNode, err := h.resolveEntryInput(ctx, model.EntityFailureNode, nodeValue, "failure_node_input")
	if err != nil {
		writeSaveError(c, err)
		return
	}

	claim := model.Claim{
		MachineID:      machine.ID,
		FailureDate:    *req.FailureDate,
		OperatingHours: *req.OperatingHours,
		FailureNodeID:  failureNode.ID,
		RecoveryDate:   req.RecoveryDate,
	}
	if req.FailureDescription != nil {
		claim.FailureDescription = *req.FailureDescription
	}
	if req.SparePartsUsed != nil {
		claim.SparePartsUsed = *req.SparePartsUsed
	}
	if req.RecoveryMethodInput != nil && strings.TrimSpace(*req.RecoveryMethodInput) != "" {
		method, err := h.resolveEntryInput(ctx, model.EntityRecoveryMethod, *req.RecoveryMethodInput, "recovery_method_input")
		if err != nil {
			writeSaveError(c, err)
			return
		}
		claim.RecoveryMethodID = &method.ID
	}

	err = h.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(&claim).Error
	})
	if err != nil {
		writeSaveError(c, err)
		return
	}

	created, err := h.reloadClaim(c, claim.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, claimToView(created))
}

// UpdateClaim handles PUT /api/claims/:id. A blank recovery_method_input
// clears the reference; downtime is re-derived on every save.
func (h *Handler) UpdateClaim(c *gin.Context) {
	user, _ := mw.CurrentUser(c)
	claim, ok := h.loadClaim(c)
	if !ok {
		return
	}
	if !authz.CanViewMachine(user, &claim.Machine) {
		notFound(c, "claim")
		return
	}
	if !authz.CanMutateClaim(user, &claim.Machine, authz.ActionUpdate) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return
	}

	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	if req.MachineID != nil && *req.MachineID != claim.MachineID {
		var target model.Machine
		if err := h.store.DB().WithContext(ctx).First(&target, *req.MachineID).Error; err != nil {
			notFound(c, "machine")
			return
		}
		if !authz.CanMutateClaim(user, &target, authz.ActionUpdate) {
			notFound(c, "machine")
			return
		}
		claim.MachineID = target.ID
	}
	if req.FailureDate != nil {
		claim.FailureDate = *req.FailureDate
	}
	if req.OperatingHours != nil {
		claim.OperatingHours = *req.OperatingHours
	}
	if req.FailureNodeInput != nil {
		failureNode, err := h.resolveEntryInput(ctx, model.EntityFailureNode, *req.FailureNodeInput, "failure_node_input")
		if err != nil {
			writeSaveError(c, err)
			return
		}
		claim.FailureNodeID = failureNode.ID
	}
	if req.FailureDescription != nil {
		claim.FailureDescription = *req.FailureDescription
	}
	if req.SparePartsUsed != nil {
		claim.SparePartsUsed = *req.SparePartsUsed
	}
	if req.RecoveryDate != nil {
		if req.RecoveryDate.Time.IsZero() {
			claim.RecoveryDate = nil
		} else {
			claim.RecoveryDate = req.RecoveryDate
		}
	}
	if req.RecoveryMethodInput != nil {
		if strings.TrimSpace(*req.RecoveryMethodInput) == "" {
			claim.RecoveryMethodID = nil
			claim.RecoveryMethod = nil
		} else {
			method, err := h.resolveEntryInput(ctx, model.EntityRecoveryMethod, *req.RecoveryMethodInput, "recovery_method_input")
			if err != nil {
				writeSaveError(c, err)
				return
			}
			claim.RecoveryMethodID = &method.ID
		}
	}

	err := h.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Select all columns so clearing recovery_method_id persists.
		return tx.Omit(clause.Associations).Select("*").Save(claim).Error
	})
	if err != nil {
		writeSaveError(c, err)
		return
	}

	updated, err := h.reloadClaim(c, claim.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, claimToView(updated))
}

// DeleteClaim handles DELETE /api/claims/:id.
func (h *Handler) DeleteClaim(c *gin.Context) {
	user, _ := mw.CurrentUser(c)
	claim, ok := h.loadClaim(c)
	if !ok {
		return
	}
	if !authz.CanViewMachine(user, &claim.Machine) {
		notFound(c, "claim")
		return
	}
	if !authz.CanMutateClaim(user, &claim.Machine, authz.ActionDelete) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return
	}

	if err := h.store.DB().WithContext(c.Request.Context()).Delete(&model.Claim{}, claim.ID).Error; err != nil {
		writeSaveError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) reloadClaim(c *gin.Context, id int64) (*model.Claim, error) {
	var claim model.Claim
	err := h.store.DB().WithContext(c.Request.Context()).
		Preload("Machine").Preload("FailureNode").Preload("RecoveryMethod").
		First(&claim, id).Error
	return &claim, err
}
