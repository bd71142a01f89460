package api

import "fleet-records-backend/internal/model"

// machinePublicView is the reduced field set returned to unauthenticated
// factory-number searches: component identity only, no parties, no
// commercial terms.
type machinePublicView struct {
	FactoryNumber             string `json:"factory_number"`
	ModelTechName             string `json:"model_tech_name"`
	EngineModelName           string `json:"engine_model_name"`
	EngineFactoryNumber       string `json:"engine_factory_number"`
	TransmissionModelName     string `json:"transmission_model_name"`
	TransmissionFactoryNumber string `json:"transmission_factory_number"`
	DriveAxleModelName        string `json:"drive_axle_model_name"`
	DriveAxleFactoryNumber    string `json:"drive_axle_factory_number"`
	SteeringAxleModelName     string `json:"steering_axle_model_name"`
	SteeringAxleFactoryNumber string `json:"steering_axle_factory_number"`
}

// machineFullView extends the public view with shipment metadata and the
// assigned parties.
type machineFullView struct {
	ID int64 `json:"id"`
	machinePublicView
	DeliveryContract   string     `json:"delivery_contract"`
	ShipmentDate       model.Date `json:"shipment_date"`
	Consignee          string     `json:"consignee"`
	DeliveryAddress    string     `json:"delivery_address"`
	Configuration      string     `json:"configuration"`
	ClientName         string     `json:"client_name"`
	ServiceCompanyName string     `json:"service_company_name"`
}

func publicMachineView(m *model.Machine) machinePublicView {
	return machinePublicView{
		FactoryNumber:             m.FactoryNumber,
		ModelTechName:             m.ModelTech.Name,
		EngineModelName:           m.EngineModel.Name,
		EngineFactoryNumber:       m.EngineFactoryNumber,
		TransmissionModelName:     m.TransmissionModel.Name,
		TransmissionFactoryNumber: m.TransmissionFactoryNumber,
		DriveAxleModelName:        m.DriveAxleModel.Name,
		DriveAxleFactoryNumber:    m.DriveAxleFactoryNumber,
		SteeringAxleModelName:     m.SteeringAxleModel.Name,
		SteeringAxleFactoryNumber: m.SteeringAxleFactoryNumber,
	}
}

func fullMachineView(m *model.Machine) machineFullView {
	return machineFullView{
		ID:                 m.ID,
		machinePublicView:  publicMachineView(m),
		DeliveryContract:   m.DeliveryContract,
		ShipmentDate:       m.ShipmentDate,
		Consignee:          m.Consignee,
		DeliveryAddress:    m.DeliveryAddress,
		Configuration:      m.Configuration,
		ClientName:         m.Client.Description,
		ServiceCompanyName: m.ServiceCompany.Description,
	}
}

type maintenanceView struct {
	ID                   int64       `json:"id"`
	MachineID            int64       `json:"machine_id"`
	MachineFactoryNumber string      `json:"machine_factory_number"`
	MaintenanceTypeName  string      `json:"maintenance_type_name"`
	MaintenanceDate      model.Date  `json:"maintenance_date"`
	OperatingHours       uint        `json:"operating_hours"`
	WorkOrderNumber      string      `json:"work_order_number"`
	WorkOrderDate        *model.Date `json:"work_order_date"`
	ServiceCompanyName   string      `json:"service_company_name"`
}

func maintenanceToView(m *model.Maintenance) maintenanceView {
	return maintenanceView{
		ID:                   m.ID,
		MachineID:            m.MachineID,
		MachineFactoryNumber: m.Machine.FactoryNumber,
		MaintenanceTypeName:  m.MaintenanceType.Name,
		MaintenanceDate:      m.MaintenanceDate,
		OperatingHours:       m.OperatingHours,
		WorkOrderNumber:      m.WorkOrderNumber,
		WorkOrderDate:        m.WorkOrderDate,
		ServiceCompanyName:   m.ServiceCompany.Description,
	}
}

type claimView struct {
	ID                   int64       `json:"id"`
	MachineID            int64       `json:"machine_id"`
	MachineFactoryNumber string      `json:"machine_factory_number"`
	FailureDate          model.Date  `json:"failure_date"`
	OperatingHours       uint        `json:"operating_hours"`
	FailureNodeName      string      `json:"failure_node_name"`
	FailureDescription   string      `json:"failure_description"`
	RecoveryMethodName   string      `json:"recovery_method_name"`
	SparePartsUsed       string      `json:"spare_parts"`
	RecoveryDate         *model.Date `json:"recovery_date"`
	DowntimeDays         uint        `json:"downtime_days"`
}

func claimToView(cl *model.Claim) claimView {
	view := claimView{
		ID:                   cl.ID,
		MachineID:            cl.MachineID,
		MachineFactoryNumber: cl.Machine.FactoryNumber,
		FailureDate:          cl.FailureDate,
		OperatingHours:       cl.OperatingHours,
		FailureNodeName:      cl.FailureNode.Name,
		FailureDescription:   cl.FailureDescription,
		SparePartsUsed:       cl.SparePartsUsed,
		RecoveryDate:         cl.RecoveryDate,
		DowntimeDays:         cl.DowntimeDays,
	}
	if cl.RecoveryMethod != nil {
		view.RecoveryMethodName = cl.RecoveryMethod.Name
	}
	return view
}

type dictEntryView struct {
	ID            int64            `json:"id"`
	Entity        model.EntityType `json:"entity"`
	EntityDisplay string           `json:"entity_display"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
}

func dictEntryToView(e *model.DictionaryEntry) dictEntryView {
	return dictEntryView{
		ID:            e.ID,
		Entity:        e.Entity,
		EntityDisplay: e.Entity.Label(),
		Name:          e.Name,
		Description:   e.Description,
	}
}

type userView struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Description string     `json:"description"`
	Role        model.Role `json:"role"`
}

func userToView(u *model.User) userView {
	return userView{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Description: u.Description,
		Role:        u.Role,
	}
}
