package model

import (
	"time"

	"gorm.io/gorm"
)

// Maintenance records one service event performed on a machine.
type Maintenance struct {
	ID int64 `gorm:"primaryKey" json:"id"`

	MachineID int64   `gorm:"not null;index" json:"machine_id"`
	Machine   Machine `gorm:"foreignKey:MachineID;constraint:OnDelete:RESTRICT" json:"-"`

	MaintenanceTypeID int64           `gorm:"not null" json:"-"`
	MaintenanceType   DictionaryEntry `gorm:"foreignKey:MaintenanceTypeID;constraint:OnDelete:RESTRICT" json:"-"`

	MaintenanceDate Date   `gorm:"not null" json:"maintenance_date"`
	OperatingHours  uint   `gorm:"not null" json:"operating_hours"`
	WorkOrderNumber string `gorm:"size:50" json:"work_order_number"`
	WorkOrderDate   *Date  `json:"work_order_date"`

	ServiceCompanyID int64 `gorm:"not null" json:"-"`
	ServiceCompany   User  `gorm:"foreignKey:ServiceCompanyID;constraint:OnDelete:RESTRICT" json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// BeforeSave enforces work_order_date <= maintenance_date <= today.
func (m *Maintenance) BeforeSave(_ *gorm.DB) error {
	if m.MaintenanceDate.Time.IsZero() {
		return validationErrorf("maintenance_date", "maintenance date is required")
	}
	if m.MaintenanceDate.After(Today()) {
		return validationErrorf("maintenance_date", "maintenance date cannot be in the future")
	}
	if m.WorkOrderDate != nil && !m.WorkOrderDate.Time.IsZero() && m.WorkOrderDate.After(m.MaintenanceDate) {
		return validationErrorf("work_order_date", "work order date cannot be later than the maintenance date")
	}
	return nil
}
