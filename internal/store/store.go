package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fleet-records-backend/internal/model"
)

// Store defines the shared database operations used by the API layer and
// the bulk import job.
type Store interface {
	DB() *gorm.DB

	// WithTx returns a Store bound to the given transaction handle, so a
	// caller can group several store operations into one atomic unit.
	WithTx(tx *gorm.DB) Store

	UserByID(ctx context.Context, id int64) (*model.User, error)
	UserByUsername(ctx context.Context, username string) (*model.User, error)
	UserByDescription(ctx context.Context, description string) (*model.User, error)

	// ResolveEntry looks up a dictionary entry case-insensitively within an
	// entity type. It never creates; a missing name is gorm.ErrRecordNotFound.
	ResolveEntry(ctx context.Context, entity model.EntityType, name string) (*model.DictionaryEntry, error)

	// GetOrCreateEntry is the import-path variant: it creates the entry if
	// absent, surviving concurrent creation of the same (entity, name) pair.
	GetOrCreateEntry(ctx context.Context, entity model.EntityType, name, description string) (*model.DictionaryEntry, bool, error)

	// GetOrCreateUser finds a user by its unique description or creates one
	// with credentials from newCredentials. Race-safe like GetOrCreateEntry.
	GetOrCreateUser(ctx context.Context, description string, role model.Role, newCredentials func() (login, passwordHash string, err error)) (*model.User, bool, error)

	MachineByFactoryNumber(ctx context.Context, factoryNumber string) (*model.Machine, error)

	EntryReferenceCount(ctx context.Context, entryID int64) (int64, error)
	MachineChildCount(ctx context.Context, machineID int64) (int64, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) WithTx(tx *gorm.DB) Store {
	return &gormStore{db: tx}
}

func (s *gormStore) UserByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormStore) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormStore) UserByDescription(ctx context.Context, description string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("description = ?", description).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormStore) ResolveEntry(ctx context.Context, entity model.EntityType, name string) (*model.DictionaryEntry, error) {
	var entry model.DictionaryEntry
	err := s.db.WithContext(ctx).
		Where("entity = ? AND LOWER(name) = LOWER(?)", entity, name).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetOrCreateEntry relies on the (entity, name) unique constraint rather
// than a prior existence check: insert with ON CONFLICT DO NOTHING, then
// re-fetch if the row already existed.
func (s *gormStore) GetOrCreateEntry(ctx context.Context, entity model.EntityType, name, description string) (*model.DictionaryEntry, bool, error) {
	entry := model.DictionaryEntry{Entity: entity, Name: name, Description: description}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entity"}, {Name: "name"}},
		DoNothing: true,
	}).Create(&entry)
	if res.Error != nil {
		return nil, false, fmt.Errorf("creating dictionary entry %s/%s: %w", entity, name, res.Error)
	}
	if res.RowsAffected > 0 {
		return &entry, true, nil
	}

	var existing model.DictionaryEntry
	if err := s.db.WithContext(ctx).Where("entity = ? AND name = ?", entity, name).First(&existing).Error; err != nil {
		return nil, false, fmt.Errorf("fetching dictionary entry %s/%s after conflict: %w", entity, name, err)
	}
	return &existing, false, nil
}

func (s *gormStore) GetOrCreateUser(ctx context.Context, description string, role model.Role, newCredentials func() (string, string, error)) (*model.User, bool, error) {
	login, passwordHash, err := newCredentials()
	if err != nil {
		return nil, false, err
	}

	user := model.User{
		Username:     login,
		PasswordHash: passwordHash,
		Description:  description,
		Role:         role,
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "description"}},
		DoNothing: true,
	}).Create(&user)
	if res.Error != nil {
		return nil, false, fmt.Errorf("creating user %q: %w", description, res.Error)
	}
	if res.RowsAffected > 0 {
		return &user, true, nil
	}

	var existing model.User
	if err := s.db.WithContext(ctx).Where("description = ?", description).First(&existing).Error; err != nil {
		return nil, false, fmt.Errorf("fetching user %q after conflict: %w", description, err)
	}
	return &existing, false, nil
}

func (s *gormStore) MachineByFactoryNumber(ctx context.Context, factoryNumber string) (*model.Machine, error) {
	var machine model.Machine
	err := s.db.WithContext(ctx).
		Preload("ModelTech").
		Preload("EngineModel").
		Preload("TransmissionModel").
		Preload("DriveAxleModel").
		Preload("SteeringAxleModel").
		Preload("Client").
		Preload("ServiceCompany").
		Where("factory_number = ?", factoryNumber).
		First(&machine).Error
	if err != nil {
		return nil, err
	}
	return &machine, nil
}

// EntryReferenceCount counts domain rows referencing a dictionary entry,
// backing the protect-on-delete rule.
func (s *gormStore) EntryReferenceCount(ctx context.Context, entryID int64) (int64, error) {
	db := s.db.WithContext(ctx)
	var total, n int64

	err := db.Model(&model.Machine{}).Where(
		"model_tech_id = ? OR engine_model_id = ? OR transmission_model_id = ? OR drive_axle_model_id = ? OR steering_axle_model_id = ?",
		entryID, entryID, entryID, entryID, entryID,
	).Count(&n).Error
	if err != nil {
		return 0, err
	}
	total += n

	if err := db.Model(&model.Maintenance{}).Where("maintenance_type_id = ?", entryID).Count(&n).Error; err != nil {
		return 0, err
	}
	total += n

	if err := db.Model(&model.Claim{}).Where("failure_node_id = ? OR recovery_method_id = ?", entryID, entryID).Count(&n).Error; err != nil {
		return 0, err
	}
	total += n

	return total, nil
}

// MachineChildCount counts maintenance and claim rows attached to a
// machine; a machine with children cannot be deleted.
func (s *gormStore) MachineChildCount(ctx context.Context, machineID int64) (int64, error) {
	db := s.db.WithContext(ctx)
	var total, n int64

	if err := db.Model(&model.Maintenance{}).Where("machine_id = ?", machineID).Count(&n).Error; err != nil {
		return 0, err
	}
	total += n

	if err := db.Model(&model.Claim{}).Where("machine_id = ?", machineID).Count(&n).Error; err != nil {
		return 0, err
	}
	total += n

	return total, nil
}
