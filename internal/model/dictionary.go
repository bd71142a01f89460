package model

import "time"

// EntityType tags which reference list a DictionaryEntry belongs to.
type EntityType string

const (
	EntityMachineModel      EntityType = "machine_model"
	EntityEngineModel       EntityType = "engine_model"
	EntityTransmissionModel EntityType = "transmission_model"
	EntitySteeringAxleModel EntityType = "steering_axle_model"
	EntityDriveAxleModel    EntityType = "drive_axle_model"
	EntityMaintenanceType   EntityType = "maintenance_type"
	EntityFailureNode       EntityType = "failure_node"
	EntityRecoveryMethod    EntityType = "recovery_method"
)

// entityLabels holds the display names shown in list responses.
var entityLabels = map[EntityType]string{
	EntityMachineModel:      "Machine model",
	EntityEngineModel:       "Engine model",
	EntityTransmissionModel: "Transmission model",
	EntitySteeringAxleModel: "Steering axle model",
	EntityDriveAxleModel:    "Drive axle model",
	EntityMaintenanceType:   "Maintenance type",
	EntityFailureNode:       "Failure node",
	EntityRecoveryMethod:    "Recovery method",
}

// Valid reports whether e is one of the fixed entity types.
func (e EntityType) Valid() bool {
	_, ok := entityLabels[e]
	return ok
}

// Label returns the human-readable name of the entity type.
func (e EntityType) Label() string {
	if label, ok := entityLabels[e]; ok {
		return label
	}
	return string(e)
}

// DictionaryEntry is one named value within a fixed reference category.
// (entity, name) pairs are unique; entries in use cannot be deleted.
type DictionaryEntry struct {
	ID          int64      `gorm:"primaryKey" json:"id"`
	Entity      EntityType `gorm:"size:50;not null;uniqueIndex:idx_dictionary_entity_name" json:"entity"`
	Name        string     `gorm:"size:100;not null;uniqueIndex:idx_dictionary_entity_name" json:"name"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"-"`
	UpdatedAt   time.Time  `json:"-"`
}
