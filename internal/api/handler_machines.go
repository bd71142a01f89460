package api

import (
	"context"
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

// machineRequest is the write payload. Dictionary and user references are
// entered as free text and resolved against the dictionary / user tables;
// pointer fields distinguish "omitted" from "explicitly blank".
type machineRequest struct {
	FactoryNumber *string `json:"factory_number"`

	ModelTechInput            *string `json:"model_tech_input"`
	EngineModelInput          *string `json:"engine_model_input"`
	EngineFactoryNumber       *string `json:"engine_factory_number"`
	TransmissionModelInput    *string `json:"transmission_model_input"`
	TransmissionFactoryNumber *string `json:"transmission_factory_number"`
	DriveAxleModelInput       *string `json:"drive_axle_model_input"`
	DriveAxleFactoryNumber    *string `json:"drive_axle_factory_number"`
	SteeringAxleModelInput    *string `json:"steering_axle_model_input"`
	SteeringAxleFactoryNumber *string `json:"steering_axle_factory_number"`

	DeliveryContract *string     `json:"delivery_contract"`
	ShipmentDate     *model.Date `json:"shipment_date"`
	Consignee        *string     `json:"consignee"`
	DeliveryAddress  *string     `json:"delivery_address"`
	Configuration    *string     `json:"configuration"`

	ClientInput         *string `json:"client_input"`
	ServiceCompanyInput *string `json:"service_company_input"`
}

// structural reports whether the payload touches structural fields:
// component model assignments, party assignments, or the factory number.
func (r *machineRequest) structural() bool {
	return r.FactoryNumber != nil ||
		r.ModelTechInput != nil ||
		r.EngineModelInput != nil ||
		r.TransmissionModelInput != nil ||
		r.DriveAxleModelInput != nil ||
		r.SteeringAxleModelInput != nil ||
		r.ClientInput != nil ||
		r.ServiceCompanyInput != nil
}

// resolveEntryInput maps a free-text name to a dictionary entry reference,
// case-insensitively within entity. A non-blank unresolved value is a
// validation error naming it; blank values are the caller's problem.
func (h *Handler) resolveEntryInput(ctx context.Context, entity model.EntityType, value, field string) (*model.DictionaryEntry, error) {
	name := strings.TrimSpace(value)
	if name == "" {
		return nil, &model.ValidationError{Field: field, Message: "value is required"}
	}
	entry, err := h.store.ResolveEntry(ctx, entity, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &model.ValidationError{
				Field:   field,
				Message: "\"" + name + "\" is not in the " + entity.Label() + " dictionary",
			}
		}
		return nil, err
	}
	return entry, nil
}

// resolveUserInput maps a user description to a user reference. The
// resolved account must carry the expected role: a machine's client slot
// takes client accounts only, a service-company slot service companies.
func (h *Handler) resolveUserInput(ctx context.Context, value, field string, role model.Role) (*model.User, error) {
	description := strings.TrimSpace(value)
	if description == "" {
		return nil, &model.ValidationError{Field: field, Message: "value is required"}
	}
	user, err := h.store.UserByDescription(ctx, description)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &model.ValidationError{
				Field:   field,
				Message: "no user with description \"" + description + "\"",
			}
		}
		return nil, err
	}
	if user.Role != role {
		return nil, &model.ValidationError{
			Field:   field,
			Message: "\"" + description + "\" is not a " + strings.ReplaceAll(string(role), "_", " ") + " account",
		}
	}
	return user, nil
}

var machineModelFilters = map[string]model.EntityType{
	"model_tech":          model.EntityMachineModel,
	"engine_model":        model.EntityEngineModel,
	"transmission_model":  model.EntityTransmissionModel,
	"drive_axle_model":    model.EntityDriveAxleModel,
	"steering_axle_model": model.EntitySteeringAxleModel,
}

var machineModelColumns = map[string]string{
	"model_tech":          "model_tech_id",
	"engine_model":        "engine_model_id",
	"transmission_model":  "transmission_model_id",
	"drive_axle_model":    "drive_axle_model_id",
	"steering_axle_model": "steering_axle_model_id",
}

// ListMachines handles GET /api/machines. The role scope is applied before
// any user-supplied filter or pagination.
func (h *Handler) ListMachines(c *gin.Context) {
	user, _ := mw.CurrentUser(c)
	params, ok := parseListParams(c,
		"factory_number", "model_tech", "engine_model", "transmission_model",
		"drive_axle_model", "steering_axle_model")
	if !ok {
		return
	}

	query := h.store.DB().WithContext(c.Request.Context()).
		Model(&model.Machine{}).
		Scopes(authz.MachineScope(user))

	for key, value := range params.Filters {
		if key == "factory_number" {
			query = query.Where("LOWER(machines.factory_number) LIKE ?", containsPattern(value))
			continue
		}
		query = query.Where(
			"machines."+machineModelColumns[key]+" IN (?)",
			h.store.DB().Model(&model.DictionaryEntry{}).
				Select("id").
				Where("entity = ? AND LOWER(name) LIKE ?", machineModelFilters[key], containsPattern(value)),
		)
	}

	var machines []model.Machine
	err := query.
		Preload("ModelTech").Preload("EngineModel").Preload("TransmissionModel").
		Preload("DriveAxleModel").Preload("SteeringAxleModel").
		Preload("Client").Preload("ServiceCompany").
		Order("machines.shipment_date").
		Limit(params.Limit).Offset(params.Offset).
		Find(&machines).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve machines"})
		return
	}

	views := make([]machineFullView, 0, len(machines))
	for i := range machines {
		views = append(views, fullMachineView(&machines[i]))
	}
	c.JSON(http.StatusOK, views)
}

func containsPattern(value string) string {
	return "%" + strings.ToLower(strings.TrimSpace(value)) + "%"
}

// GetMachine handles GET /api/machines/:id. Machines outside the caller's
// scope are reported as missing.
func (h *Handler) GetMachine(c *gin.Context) {
	user, _ := mw.CurrentUser(c)
	machine, ok := h.loadMachine(c)
	if !ok {
		return
	}
	if !authz.CanViewMachine(user, machine) {
		notFound(c, "machine")
		return
	}
	c.JSON(http.StatusOK, fullMachineView(machine))
}

func (h *Handler) loadMachine(c *gin.Context) (*model.Machine, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fieldError(c, "id", "must be an integer")
		return nil, false
	}

	var machine model.Machine
	err = h.store.DB().WithContext(c.Request.Context()).
		Preload("ModelTech").Preload("EngineModel").Preload("TransmissionModel").
		Preload("DriveAxleModel").Preload("SteeringAxleModel").
		Preload("Client").Preload("ServiceCompany").
		First(&machine, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "machine")
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return nil, false
	}
	return &machine, true
}

// CreateMachine handles POST /api/machines (manager/superadmin only).
func (h *Handler) CreateMachine(c *gin.Context) {
	var req machineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.FactoryNumber == nil || strings.TrimSpace(*req.FactoryNumber) == "" {
		fieldError(c, "factory_number", "value is required")
		return
	}
	if req.ShipmentDate == nil {
		fieldError(c, "shipment_date", "value is required")
		return
	}

	ctx := c.Request.Context()
	machine := model.Machine{
		FactoryNumber: strings.TrimSpace(*req.FactoryNumber),
		ShipmentDate:  *req.ShipmentDate,
	}
	applyMachineFreeText(&machine, &req)

	type entryTarget struct {
		entity model.EntityType
		input  *string
		field  string
		dest   *int64
	}
	targets := []entryTarget{
		{model.EntityMachineModel, req.ModelTechInput, "model_tech_input", &machine.ModelTechID},
		{model.EntityEngineModel, req.EngineModelInput, "engine_model_input", &machine.EngineModelID},
		{model.EntityTransmissionModel, req.TransmissionModelInput, "transmission_model_input", &machine.TransmissionModelID},
		{model.EntityDriveAxleModel, req.DriveAxleModelInput, "drive_axle_model_input", &machine.DriveAxleModelID},
		{model.EntitySteeringAxleModel, req.SteeringAxleModelInput, "steering_axle_model_input", &machine.SteeringAxleModelID},
	}
	for _, target := range targets {
		value := ""
		if target.input != nil {
			value = *target.input
		}
		entry, err := h.resolveEntryInput(ctx, target.entity, value, target.field)
		if err != nil {
			writeSaveError(c, err)
			return
		}
		*target.dest = entry.ID
	}

	for _, userTarget := range []struct {
		input *string
		field string
		role  model.Role
		dest  *int64
	}{
		{req.ClientInput, "client_input", model.RoleClient, &machine.ClientID},
		{req.ServiceCompanyInput, "service_company_input", model.RoleServiceCompany, &machine.ServiceCompanyID},
	} {
		value := ""
		if userTarget.input != nil {
			value = *userTarget.input
		}
		resolved, err := h.resolveUserInput(ctx, value, userTarget.field, userTarget.role)
		if err != nil {
			writeSaveError(c, err)
			return
		}
		*userTarget.dest = resolved.ID
	}

	err := h.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(&machine).Error
	})
	if err != nil {
		writeSaveError(c, err)
		return
	}

	created, err := h.store.MachineByFactoryNumber(ctx, machine.FactoryNumber)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, fullMachineView(created))
}

// UpdateMachine handles PUT /api/machines/:id. Structural changes need
// manager/superadmin; the assigned service company may edit logistics
// fields of its own machines.
func (h *Handler) UpdateMachine(c *gin.Context) {
	user, _ := mw.CurrentUser(c)
	machine, ok := h.loadMachine(c)
	if !ok {
		return
	}
	if !authz.CanViewMachine(user, machine) {
		notFound(c, "machine")
		return
	}

	var req machineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !authz.CanMutateMachine(user, machine, req.structural()) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return
	}

	ctx := c.Request.Context()
	if req.FactoryNumber != nil {
		machine.FactoryNumber = strings.TrimSpace(*req.FactoryNumber)
	}
	if req.ShipmentDate != nil {
		machine.ShipmentDate = *req.ShipmentDate
	}
	applyMachineFreeText(machine, &req)

	for _, target := range []struct {
		entity model.EntityType
		input  *string
		field  string
		dest   *int64
	}{
		{model.EntityMachineModel, req.ModelTechInput, "model_tech_input", &machine.ModelTechID},
		{model.EntityEngineModel, req.EngineModelInput, "engine_model_input", &machine.EngineModelID},
		{model.EntityTransmissionModel, req.TransmissionModelInput, "transmission_model_input", &machine.TransmissionModelID},
		{model.EntityDriveAxleModel, req.DriveAxleModelInput, "drive_axle_model_input", &machine.DriveAxleModelID},
		{model.EntitySteeringAxleModel, req.SteeringAxleModelInput, "steering_axle_model_input", &machine.SteeringAxleModelID},
	} {
		if target.input == nil {
			continue
		}
		entry, err := h.resolveEntryInput(ctx, target.entity, *target.input, target.field)
		if err != nil {
			writeSaveError(c, err)
			return
		}
		*target.dest = entry.ID
	}

	for _, userTarget := range []struct {
		input *string
		field string
		role  model.Role
		dest  *int64
	}{
		{req.ClientInput, "client_input", model.RoleClient, &machine.ClientID},
		{req.ServiceCompanyInput, "service_company_input", model.RoleServiceCompany, &machine.ServiceCompanyID},
	} {
		if userTarget.input == nil {
			continue
		}
		resolved, err := h.resolveUserInput(ctx, *userTarget.input, userTarget.field, userTarget.role)
		if err != nil {
			writeSaveError(c, err)
			return
		}
		*userTarget.dest = resolved.ID
	}

	err := h.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Save(machine).Error
	})
	if err != nil {
		writeSaveError(c, err)
		return
	}

	updated, err := h.store.MachineByFactoryNumber(ctx, machine.FactoryNumber)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, fullMachineView(updated))
}

func applyMachineFreeText(machine *model.Machine, req *machineRequest) {
	if req.EngineFactoryNumber != nil {
		machine.EngineFactoryNumber = *req.EngineFactoryNumber
	}
	if req.TransmissionFactoryNumber != nil {
		machine.TransmissionFactoryNumber = *req.TransmissionFactoryNumber
	}
	if req.DriveAxleFactoryNumber != nil {
		machine.DriveAxleFactoryNumber = *req.DriveAxleFactoryNumber
	}
	if req.SteeringAxleFactoryNumber != nil {
		machine.SteeringAxleFactoryNumber = *req.SteeringAxleFactoryNumber
	}
	if req.DeliveryContract != nil {
		machine.DeliveryContract = *req.DeliveryContract
	}
	if req.Consignee != nil {
		machine.Consignee = *req.Consignee
	}
	if req.DeliveryAddress != nil {
		machine.DeliveryAddress = *req.DeliveryAddress
	}
	if req.Configuration != nil {
		machine.Configuration = *req.Configuration
	}
}

// DeleteMachine handles DELETE /api/machines/:id (manager/superadmin only).
// Machines with maintenance or claim history are protected.
func (h *Handler) DeleteMachine(c *gin.Context) {
	machine, ok := h.loadMachine(c)
	if !ok {
		return
	}

	children, err := h.store.MachineChildCount(c.Request.Context(), machine.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if children > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "machine has maintenance or claim records and cannot be deleted",
		})
		return
	}

	if err := h.store.DB().WithContext(c.Request.Context()).Delete(&model.Machine{}, machine.ID).Error; err != nil {
		writeSaveError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
