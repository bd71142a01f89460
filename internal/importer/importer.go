package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fleet-records-backend/internal/auth"
	"fleet-records-backend/internal/model"
	"fleet-records-backend/internal/store"
)

// Sheet names recognized in an import workbook.
const (
	SheetMachines    = "machines"
	SheetMaintenance = "maintenance"
	SheetClaims      = "claims"
)

// The machines sheet carries two banner rows above the header; the child
// sheets carry one.
const (
	machinesHeaderRow = 3
	childHeaderRow    = 2
)

// Importer loads machines, maintenance records and claims from an XLSX
// workbook. Rows are processed independently: a bad row is logged and
// skipped, never aborting the run, and each row's writes commit atomically.
type Importer struct {
	store store.Store
}

// New creates an Importer on top of the shared store.
func New(s store.Store) *Importer {
	return &Importer{store: s}
}

// Summary reports the outcome of one sheet.
type Summary struct {
	Sheet   string
	Created int
	Skipped int
	Failed  int
}

func (s Summary) String() string {
	return fmt.Sprintf("%s: %d created, %d skipped, %d failed", s.Sheet, s.Created, s.Skipped, s.Failed)
}

// Run imports the named sheets from the workbook at path. With no sheet
// names given it imports every recognized sheet present, machines first so
// child rows can resolve their parent.
func (imp *Importer) Run(ctx context.Context, path string, sheets []string) ([]Summary, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	if len(sheets) == 0 {
		for _, name := range []string{SheetMachines, SheetMaintenance, SheetClaims} {
			if idx, err := f.GetSheetIndex(name); err == nil && idx >= 0 {
				sheets = append(sheets, name)
			}
		}
	}

	var summaries []Summary
	for _, sheet := range sheets {
		var summary Summary
		switch sheet {
		case SheetMachines:
			summary, err = imp.importMachines(ctx, f)
		case SheetMaintenance:
			summary, err = imp.importMaintenance(ctx, f)
		case SheetClaims:
			summary, err = imp.importClaims(ctx, f)
		default:
			return nil, fmt.Errorf("unknown sheet %q", sheet)
		}
		if err != nil {
			return nil, fmt.Errorf("importing sheet %q: %w", sheet, err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// headerIndex maps normalized header names to column positions.
func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, cell := range header {
		key := strings.ToLower(strings.TrimSpace(cell))
		key = strings.ReplaceAll(key, " ", "_")
		if key != "" {
			index[key] = i
		}
	}
	return index
}

func cellAt(row []string, index map[string]int, key string) string {
	i, ok := index[key]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func sheetRows(f *excelize.File, sheet string, headerRow int) ([][]string, map[string]int, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) < headerRow {
		return nil, nil, fmt.Errorf("sheet %q has no header row", sheet)
	}
	return rows[headerRow:], headerIndex(rows[headerRow-1]), nil
}

// optionalCellDate parses a date cell that may legitimately be absent or
// mangled. A value that fails to parse is logged against the row and the
// field imports as null; only required dates fail their row.
func optionalCellDate(row []string, index map[string]int, key, sheet string, rowNum int) *model.Date {
	raw := cellAt(row, index, key)
	if raw == "" {
		return nil
	}
	d, err := parseCellDate(raw)
	if err != nil {
		log.Printf("%s row %d: %s: %v, importing without it", sheet, rowNum, key, err)
		return nil
	}
	return &d
}

func (imp *Importer) importMachines(ctx context.Context, f *excelize.File) (Summary, error) {
	summary := Summary{Sheet: SheetMachines}
	rows, index, err := sheetRows(f, SheetMachines, machinesHeaderRow)
	if err != nil {
		return summary, err
	}

	for i, row := range rows {
		rowNum := machinesHeaderRow + 1 + i
		outcome, err := imp.importMachineRow(ctx, row, index)
		switch {
		case err != nil:
			log.Printf("machines row %d: %v", rowNum, err)
			summary.Failed++
		case outcome == rowSkipped:
			summary.Skipped++
		default:
			summary.Created++
		}
	}
	return summary, nil
}

type rowOutcome int

const (
	rowCreated rowOutcome = iota
	rowSkipped
)

func (imp *Importer) importMachineRow(ctx context.Context, row []string, index map[string]int) (rowOutcome, error) {
	factoryNumber := cellAt(row, index, "factory_number")
	if factoryNumber == "" {
		return 0, errors.New("missing factory number")
	}

	if _, err := imp.store.MachineByFactoryNumber(ctx, factoryNumber); err == nil {
		log.Printf("machine %s already exists, skipping", factoryNumber)
		return rowSkipped, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	shipmentDate, err := parseCellDate(cellAt(row, index, "shipment_date"))
	if err != nil {
		return 0, fmt.Errorf("shipment_date: %w", err)
	}

	// Dictionary entries are shared across rows, so they are created
	// outside the row transaction: a later row failure must not roll back
	// an entry another row already references.
	provenance := "auto-created for machine " + factoryNumber
	entryID := func(entity model.EntityType, key string) (int64, error) {
		name := cellAt(row, index, key)
		if name == "" {
			return 0, fmt.Errorf("missing %s", key)
		}
		entry, _, err := imp.store.GetOrCreateEntry(ctx, entity, name, provenance)
		if err != nil {
			return 0, err
		}
		return entry.ID, nil
	}

	machine := model.Machine{
		FactoryNumber:             factoryNumber,
		EngineFactoryNumber:       cellAt(row, index, "engine_factory_number"),
		TransmissionFactoryNumber: cellAt(row, index, "transmission_factory_number"),
		DriveAxleFactoryNumber:    cellAt(row, index, "drive_axle_factory_number"),
		SteeringAxleFactoryNumber: cellAt(row, index, "steering_axle_factory_number"),
		DeliveryContract:          cellAt(row, index, "delivery_contract"),
		ShipmentDate:              shipmentDate,
		Consignee:                 cellAt(row, index, "consignee"),
		DeliveryAddress:           cellAt(row, index, "delivery_address"),
		Configuration:             cellAt(row, index, "configuration"),
	}

	if machine.ModelTechID, err = entryID(model.EntityMachineModel, "model"); err != nil {
		return 0, err
	}
	if machine.EngineModelID, err = entryID(model.EntityEngineModel, "engine_model"); err != nil {
		return 0, err
	}
	if machine.TransmissionModelID, err = entryID(model.EntityTransmissionModel, "transmission_model"); err != nil {
		return 0, err
	}
	if machine.DriveAxleModelID, err = entryID(model.EntityDriveAxleModel, "drive_axle_model"); err != nil {
		return 0, err
	}
	if machine.SteeringAxleModelID, err = entryID(model.EntitySteeringAxleModel, "steering_axle_model"); err != nil {
		return 0, err
	}

	// Users and the machine itself commit together: a row that fails the
	// machine save must not leave credentialed accounts behind.
	var created []createdAccount
	err = imp.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txStore := imp.store.WithTx(tx)

		client, account, err := getOrCreateAccount(ctx, txStore, cellAt(row, index, "client"), model.RoleClient)
		if err != nil {
			return fmt.Errorf("client: %w", err)
		}
		if account != nil {
			created = append(created, *account)
		}
		machine.ClientID = client.ID

		company, account, err := getOrCreateAccount(ctx, txStore, cellAt(row, index, "service_company"), model.RoleServiceCompany)
		if err != nil {
			return fmt.Errorf("service_company: %w", err)
		}
		if account != nil {
			created = append(created, *account)
		}
		machine.ServiceCompanyID = company.ID

		return tx.Omit(clause.Associations).Create(&machine).Error
	})
	if err != nil {
		return 0, err
	}

	logCreatedAccounts(created)
	return rowCreated, nil
}

// createdAccount holds generated credentials for post-commit logging, so
// nothing is printed for accounts a rolled-back row never actually created.
type createdAccount struct {
	role         model.Role
	description  string
	login        string
	tempPassword string
}

func logCreatedAccounts(accounts []createdAccount) {
	for _, account := range accounts {
		log.Printf("created %s account %q, login=%s temp_password=%s",
			account.role, account.description, account.login, account.tempPassword)
	}
}

// getOrCreateAccount resolves an account by its unique description, creating
// one with a generated login and temporary password if absent. The operator
// is expected to hand generated credentials over and force a change.
func getOrCreateAccount(ctx context.Context, s store.Store, description string, role model.Role) (*model.User, *createdAccount, error) {
	if description == "" {
		return nil, nil, errors.New("missing value")
	}

	var tempPassword string
	user, created, err := s.GetOrCreateUser(ctx, description, role, func() (string, string, error) {
		login := generateLogin(description)
		password, err := auth.TempPassword()
		if err != nil {
			return "", "", err
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return "", "", err
		}
		tempPassword = password
		return login, hash, nil
	})
	if err != nil {
		return nil, nil, err
	}
	if !created {
		return user, nil, nil
	}
	return user, &createdAccount{
		role:         role,
		description:  description,
		login:        user.Username,
		tempPassword: tempPassword,
	}, nil
}

// generateLogin derives a login from the account description plus a random
// suffix so repeated imports of similar names never collide.
func generateLogin(description string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(description) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('_')
		}
	}
	slug := strings.Trim(b.String(), "_")
	if len(slug) > 24 {
		slug = slug[:24]
	}
	if slug == "" {
		slug = "user"
	}
	return slug + "_" + uuid.NewString()[:8]
}

func (imp *Importer) importMaintenance(ctx context.Context, f *excelize.File) (Summary, error) {
	summary := Summary{Sheet: SheetMaintenance}
	rows, index, err := sheetRows(f, SheetMaintenance, childHeaderRow)
	if err != nil {
		return summary, err
	}

	for i, row := range rows {
		rowNum := childHeaderRow + 1 + i
		outcome, err := imp.importMaintenanceRow(ctx, row, index, rowNum)
		switch {
		case err != nil:
			log.Printf("maintenance row %d: %v", rowNum, err)
			summary.Failed++
		case outcome == rowSkipped:
			summary.Skipped++
		default:
			summary.Created++
		}
	}
	return summary, nil
}

func (imp *Importer) importMaintenanceRow(ctx context.Context, row []string, index map[string]int, rowNum int) (rowOutcome, error) {
	factoryNumber := cellAt(row, index, "factory_number")
	if factoryNumber == "" {
		return 0, errors.New("missing factory number")
	}
	machine, err := imp.store.MachineByFactoryNumber(ctx, factoryNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("maintenance references unknown machine %s, skipping", factoryNumber)
			return rowSkipped, nil
		}
		return 0, err
	}

	typeName := cellAt(row, index, "maintenance_type")
	if typeName == "" {
		return 0, errors.New("missing maintenance type")
	}
	maintenanceType, _, err := imp.store.GetOrCreateEntry(ctx, model.EntityMaintenanceType, typeName,
		"auto-created for machine "+factoryNumber)
	if err != nil {
		return 0, err
	}

	maintenanceDate, err := parseCellDate(cellAt(row, index, "maintenance_date"))
	if err != nil {
		return 0, fmt.Errorf("maintenance_date: %w", err)
	}
	operatingHours, err := parseCellUint(cellAt(row, index, "operating_hours"))
	if err != nil {
		return 0, fmt.Errorf("operating_hours: %w", err)
	}

	record := model.Maintenance{
		MachineID:         machine.ID,
		MaintenanceTypeID: maintenanceType.ID,
		MaintenanceDate:   maintenanceDate,
		OperatingHours:    operatingHours,
		WorkOrderNumber:   cellAt(row, index, "work_order_number"),
		WorkOrderDate:     optionalCellDate(row, index, "work_order_date", SheetMaintenance, rowNum),
		ServiceCompanyID:  machine.ServiceCompanyID,
	}

	var existing int64
	err = imp.store.DB().WithContext(ctx).Model(&model.Maintenance{}).
		Where("machine_id = ? AND maintenance_type_id = ? AND maintenance_date = ?",
			record.MachineID, record.MaintenanceTypeID, record.MaintenanceDate).
		Count(&existing).Error
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return rowSkipped, nil
	}

	var created []createdAccount
	err = imp.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if companyName := cellAt(row, index, "service_company"); companyName != "" {
			company, account, err := getOrCreateAccount(ctx, imp.store.WithTx(tx), companyName, model.RoleServiceCompany)
			if err != nil {
				return fmt.Errorf("service_company: %w", err)
			}
			if account != nil {
				created = append(created, *account)
			}
			record.ServiceCompanyID = company.ID
		}
		return tx.Omit(clause.Associations).Create(&record).Error
	})
	if err != nil {
		return 0, err
	}

	logCreatedAccounts(created)
	return rowCreated, nil
}

func (imp *Importer) importClaims(ctx context.Context, f *excelize.File) (Summary, error) {
	summary := Summary{Sheet: SheetClaims}
	rows, index, err := sheetRows(f, SheetClaims, childHeaderRow)
	if err != nil {
		return summary, err
	}

	for i, row := range rows {
		rowNum := childHeaderRow + 1 + i
		outcome, err := imp.importClaimRow(ctx, row, index, rowNum)
		switch {
		case err != nil:
			log.Printf("claims row %d: %v", rowNum, err)
			summary.Failed++
		case outcome == rowSkipped:
			summary.Skipped++
		default:
			summary.Created++
		}
	}
	return summary, nil
}

func (imp *Importer) importClaimRow(ctx context.Context, row []string, index map[string]int, rowNum int) (rowOutcome, error) {
	factoryNumber := cellAt(row, index, "factory_number")
	if factoryNumber == "" {
		return 0, errors.New("missing factory number")
	}
	machine, err := imp.store.MachineByFactoryNumber(ctx, factoryNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("claim references unknown machine %s, skipping", factoryNumber)
			return rowSkipped, nil
		}
		return 0, err
	}

	nodeName := cellAt(row, index, "failure_node")
	if nodeName == "" {
		return 0, errors.New("missing failure node")
	}
	failureNode, _, err := imp.store.GetOrCreateEntry(ctx, model.EntityFailureNode, nodeName,
		"auto-created for machine "+factoryNumber)
	if err != nil {
		return 0, err
	}

	failureDate, err := parseCellDate(cellAt(row, index, "failure_date"))
	if err != nil {
		return 0, fmt.Errorf("failure_date: %w", err)
	}
	operatingHours, err := parseCellUint(cellAt(row, index, "operating_hours"))
	if err != nil {
		return 0, fmt.Errorf("operating_hours: %w", err)
	}

	claim := model.Claim{
		MachineID:          machine.ID,
		FailureDate:        failureDate,
		OperatingHours:     operatingHours,
		FailureNodeID:      failureNode.ID,
		FailureDescription: cellAt(row, index, "failure_description"),
		SparePartsUsed:     cellAt(row, index, "spare_parts"),
		RecoveryDate:       optionalCellDate(row, index, "recovery_date", SheetClaims, rowNum),
	}
	if methodName := cellAt(row, index, "recovery_method"); methodName != "" {
		method, _, err := imp.store.GetOrCreateEntry(ctx, model.EntityRecoveryMethod, methodName,
			"auto-created for machine "+factoryNumber)
		if err != nil {
			return 0, err
		}
		claim.RecoveryMethodID = &method.ID
	}

	var existing int64
	err = imp.store.DB().WithContext(ctx).Model(&model.Claim{}).
		Where("machine_id = ? AND failure_node_id = ? AND failure_date = ?",
			claim.MachineID, claim.FailureNodeID, claim.FailureDate).
		Count(&existing).Error
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return rowSkipped, nil
	}

	if err := imp.store.DB().WithContext(ctx).Omit(clause.Associations).Create(&claim).Error; err != nil {
		return 0, err
	}
	return rowCreated, nil
}
