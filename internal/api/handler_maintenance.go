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

type maintenanceRequest struct {
	MachineID            *int64      `json:"machine_id"`
	MaintenanceTypeInput *string     `json:"maintenance_type_input"`
	MaintenanceDate      *model.Date `json:"maintenance_date"`
	OperatingHours       *uint       `json:"operating_hours"`
	WorkOrderNumber      *string     `json:"work_order_number"`
	WorkOrderDate        *model.Date `json:"work_order_date"`
	ServiceCompanyInput  *string     `json:"service_company_input"`
}

// ListMaintenance handles GET /api/maintenance. The row scope filters
// through the parent machine before any free-text filter or pagination.
func (h *Handler) ListMaintenance(c *gin.Context) {
	user, _ := mw.CurrentUser(c)
	params, ok := parseListParams(c, "maintenance_type", "service_company")
	if !ok {
		return
	}

	query := h.store.DB().WithContext(c.Request.Context()).
		Model(&model.Maintenance{}).
		Scopes(authz.MaintenanceScope(user))

	if value, ok := params.Filters["maintenance_type"]; ok {
		query = query.Where(
			"maintenances.maintenance_type_id IN (?)",
			h.store.DB().Model(&model.DictionaryEntry{}).
				Select("id").
				Where("entity = ? AND LOWER(name) LIKE ?", model.EntityMaintenanceType, containsPattern(value)),
		)
	}
	if value, ok := params.Filters["service_company"]; ok {
		query = query.Where(
			"maintenances.service_company_id IN (?)",
			h.store.DB().Model(&model.User{}).
				Select("id").
				Where("LOWER(description) LIKE ?", containsPattern(value)),
		)
	}

	var records []model.Maintenance
	err := query.
		Preload("Machine").Preload("MaintenanceType").Preload("ServiceCompany").
		Order("maintenances.maintenance_date").
		Limit(params.Limit).Offset(params.Offset).
		Find(&records).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve maintenance records"})
		return
	}

	views := make([]maintenanceView, 0, len(records))
	for i := range records {
		views = append(views, maintenanceToView(&records[i]))
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) loadMaintenance(c *gin.Context) (*model.Maintenance, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fieldError(c, "id", "must be an integer")
		return nil, false
	}

	var record model.Maintenance
	err = h.store.DB().WithContext(c.Request.Context()).
		Preload("Machine").Preload("MaintenanceType").Preload("ServiceCompany").
		First(&record, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "maintenance record")
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return nil, false
	}
	return &record, true
}

// GetMaintenance handles GET /api/maintenance/:id.
func (h *Handler) GetMaintenance(c *gin.Context) {
	user, _ := mw.CurrentUser(c)
	record, ok := h.loadMaintenance(c)
	if !ok {
		return
	}
	if !authz.CanViewMachine(user, &record.Machine) {
		notFound(c, "maintenance record")
		return
	}
	c.JSON(http.StatusOK, maintenanceToView(record))
}

// CreateMaintenance handles POST /api/maintenance. Clients may record
// maintenance on their own machines; service companies on theirs.
func (h *Handler) CreateMaintenance(c *gin.Context) {
	user, _ := mw.CurrentUser(c)
	var req maintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.MachineID == nil {
		fieldError(c, "machine_id", "value is required")
		return
	}
	if req.MaintenanceDate == nil {
		fieldError(c, "maintenance_date", "value is required")
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
	if !authz.CanMutateMaintenance(user, &machine, authz.ActionCreate) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return
	}

	typeValue := ""
	if req.MaintenanceTypeInput != nil {
		typeValue = *req.MaintenanceTypeInput
	}
	maintenanceType, err := h.resolveEntryInput(ctx, model.EntityMaintenanceType, typeValue, "maintenance_type_input")
	if err != nil {
		writeSaveError(c, err)
		return
	}

	record := model.Maintenance{
		MachineID:         machine.ID,
		MaintenanceTypeID: maintenanceType.ID,
		MaintenanceDate:   *req.MaintenanceDate,
		OperatingHours:    *req.OperatingHours,
		WorkOrderDate:     req.WorkOrderDate,
		ServiceCompanyID:  machine.ServiceCompanyID,
	}
	if req.WorkOrderNumber != nil {
		record.WorkOrderNumber = *req.WorkOrderNumber
	}
	if req.ServiceCompanyInput != nil && strings.TrimSpace(*req.ServiceCompanyInput) != "" {
		company, err := h.resolveUserInput(ctx, *req.ServiceCompanyInput, "service_company_input", model.RoleServiceCompany)
		if err != nil {
			writeSaveError(c, err)
			return
		}
		record.ServiceCompanyID = company.ID
	}

	err = h.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(&record).Error
	})
	if err != nil {
		writeSaveError(c, err)
		return
	}

	created, err := h.reloadMaintenance(c, record.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, maintenanceToView(created))
}

// UpdateMaintenance handles PUT /api/maintenance/:id.
func (h *Handler) UpdateMaintenance(c *gin.Context) {
	user, _ := mw.CurrentUser(c)
	record, ok := h.loadMaintenance(c)
	if !ok {
		return
	}
	if !authz.CanViewMachine(user, &record.Machine) {
		notFound(c, "maintenance record")
		return
	}
	if !authz.CanMutateMaintenance(user, &record.Machine, authz.ActionUpdate) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return
	}

	var req maintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	if req.MachineID != nil && *req.MachineID != record.MachineID {
		var target model.Machine
		if err := h.store.DB().WithContext(ctx).First(&target, *req.MachineID).Error; err != nil {
			notFound(c, "machine")
			return
		}
		if !authz.CanMutateMaintenance(user, &target, authz.ActionUpdate) {
			notFound(c, "machine")
			return
		}
		record.MachineID = target.ID
	}
	if req.MaintenanceTypeInput != nil {
		maintenanceType, err := h.resolveEntryInput(ctx, model.EntityMaintenanceType, *req.MaintenanceTypeInput, "maintenance_type_input")
		if err != nil {
			writeSaveError(c, err)
			return
		}
		record.MaintenanceTypeID = maintenanceType.ID
	}
	if req.MaintenanceDate != nil {
		record.MaintenanceDate = *req.MaintenanceDate
	}
	if req.OperatingHours != nil {
		record.OperatingHours = *req.OperatingHours
	}
	if req.WorkOrderNumber != nil {
		record.WorkOrderNumber = *req.WorkOrderNumber
	}
	if req.WorkOrderDate != nil {
		if req.WorkOrderDate.Time.IsZero() {
			record.WorkOrderDate = nil
		} else {
			record.WorkOrderDate = req.WorkOrderDate
		}
	}
	if req.ServiceCompanyInput != nil {
		company, err := h.resolveUserInput(ctx, *req.ServiceCompanyInput, "service_company_input", model.RoleServiceCompany)
		if err != nil {
			writeSaveError(c, err)
			return
		}
		record.ServiceCompanyID = company.ID
	}

	err := h.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Save(record).Error
	})
	if err != nil {
		writeSaveError(c, err)
		return
	}

	updated, err := h.reloadMaintenance(c, record.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, maintenanceToView(updated))
}

// DeleteMaintenance handles DELETE /api/maintenance/:id.
func (h *Handler) DeleteMaintenance(c *gin.Context) {
	user, _ := mw.CurrentUser(c)
	record, ok := h.loadMaintenance(c)
	if !ok {
		return
	}
	if !authz.CanViewMachine(user, &record.Machine) {
		notFound(c, "maintenance record")
		return
	}
	if !authz.CanMutateMaintenance(user, &record.Machine, authz.ActionDelete) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return
	}

	if err := h.store.DB().WithContext(c.Request.Context()).Delete(&model.Maintenance{}, record.ID).Error; err != nil {
		writeSaveError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) reloadMaintenance(c *gin.Context, id int64) (*model.Maintenance, error) {
	var record model.Maintenance
	err := h.store.DB().WithContext(c.Request.Context()).
		Preload("Machine").Preload("MaintenanceType").Preload("ServiceCompany").
		First(&record, id).Error
	return &record, err
}
