package model

import (
	"time"

	"gorm.io/gorm"
)

// Machine is a shipped unit of equipment. Five component models reference
// the dictionary; client and service company reference users. Referenced
// rows are protected from deletion while the machine exists.
type Machine struct {
	ID            int64  `gorm:"primaryKey" json:"id"`
	FactoryNumber string `gorm:"uniqueIndex;size:50;not null" json:"factory_number"`

	ModelTechID int64           `gorm:"not null" json:"-"`
	ModelTech   DictionaryEntry `gorm:"foreignKey:ModelTechID;constraint:OnDelete:RESTRICT" json:"-"`

	EngineModelID       int64           `gorm:"not null" json:"-"`
	EngineModel         DictionaryEntry `gorm:"foreignKey:EngineModelID;constraint:OnDelete:RESTRICT" json:"-"`
	EngineFactoryNumber string          `gorm:"size:50" json:"engine_factory_number"`

	TransmissionModelID       int64           `gorm:"not null" json:"-"`
	TransmissionModel         DictionaryEntry `gorm:"foreignKey:TransmissionModelID;constraint:OnDelete:RESTRICT" json:"-"`
	TransmissionFactoryNumber string          `gorm:"size:50" json:"transmission_factory_number"`

	DriveAxleModelID       int64           `gorm:"not null" json:"-"`
	DriveAxleModel         DictionaryEntry `gorm:"foreignKey:DriveAxleModelID;constraint:OnDelete:RESTRICT" json:"-"`
	DriveAxleFactoryNumber string          `gorm:"size:50" json:"drive_axle_factory_number"`

	SteeringAxleModelID       int64           `gorm:"not null" json:"-"`
	SteeringAxleModel         DictionaryEntry `gorm:"foreignKey:SteeringAxleModelID;constraint:OnDelete:RESTRICT" json:"-"`
	SteeringAxleFactoryNumber string          `gorm:"size:50" json:"steering_axle_factory_number"`

	DeliveryContract string `gorm:"size:100" json:"delivery_contract"`
	ShipmentDate     Date   `gorm:"not null" json:"shipment_date"`
	Consignee        string `gorm:"size:200" json:"consignee"`
	DeliveryAddress  string `json:"delivery_address"`
	Configuration    string `json:"configuration"`

	ClientID int64 `gorm:"not null" json:"-"`
	Client   User  `gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT" json:"-"`

	ServiceCompanyID int64 `gorm:"not null" json:"-"`
	ServiceCompany   User  `gorm:"foreignKey:ServiceCompanyID;constraint:OnDelete:RESTRICT" json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// BeforeSave enforces the shipment date invariant on every persist.
func (m *Machine) BeforeSave(_ *gorm.DB) error {
	if m.FactoryNumber == "" {
		return validationErrorf("factory_number", "factory number is required")
	}
	if m.ShipmentDate.Time.IsZero() {
		return validationErrorf("shipment_date", "shipment date is required")
	}
	if m.ShipmentDate.After(Today()) {
		return validationErrorf("shipment_date", "shipment date cannot be in the future")
	}
	return nil
}
