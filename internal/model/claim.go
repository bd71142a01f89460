package model

import (
	"time"

	"gorm.io/gorm"
)

// Claim is a warranty claim against a machine. DowntimeDays is derived and
// never settable by callers.
type Claim struct {
	ID int64 `gorm:"primaryKey" json:"id"`

	MachineID int64   `gorm:"not null;index" json:"machine_id"`
	Machine   Machine `gorm:"foreignKey:MachineID;constraint:OnDelete:RESTRICT" json:"-"`

	FailureDate    Date `gorm:"not null" json:"failure_date"`
	OperatingHours uint `gorm:"not null" json:"operating_hours"`

	FailureNodeID int64           `gorm:"not null" json:"-"`
	FailureNode   DictionaryEntry `gorm:"foreignKey:FailureNodeID;constraint:OnDelete:RESTRICT" json:"-"`

	FailureDescription string `json:"failure_description"`

	RecoveryMethodID *int64           `json:"-"`
	RecoveryMethod   *DictionaryEntry `gorm:"foreignKey:RecoveryMethodID;constraint:OnDelete:RESTRICT" json:"-"`

	SparePartsUsed string `json:"spare_parts"`
	RecoveryDate   *Date  `json:"recovery_date"`
	DowntimeDays   uint   `gorm:"not null;default:0" json:"downtime_days"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// BeforeSave validates the date ordering and recomputes DowntimeDays on
// every persist, so editing either date always re-derives the field.
func (c *Claim) BeforeSave(_ *gorm.DB) error {
	if c.FailureDate.Time.IsZero() {
		return validationErrorf("failure_date", "failure date is required")
	}
	today := Today()
	if c.FailureDate.After(today) {
		return validationErrorf("failure_date", "failure date cannot be in the future")
	}
	hasRecovery := c.RecoveryDate != nil && !c.RecoveryDate.Time.IsZero()
	if hasRecovery {
		if c.RecoveryDate.After(today) {
			return validationErrorf("recovery_date", "recovery date cannot be in the future")
		}
		if c.RecoveryDate.Before(c.FailureDate) {
			return validationErrorf("recovery_date", "recovery date cannot precede the failure date")
		}
	}

	c.DowntimeDays = 0
	if hasRecovery {
		if days := c.FailureDate.DaysUntil(*c.RecoveryDate); days > 0 {
			c.DowntimeDays = uint(days)
		}
	}
	return nil
}
