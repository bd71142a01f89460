package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fleet-records-backend/config"
	"fleet-records-backend/internal/auth"
	"fleet-records-backend/internal/db"
	"fleet-records-backend/internal/model"
	"fleet-records-backend/internal/store"
)

type testAPI struct {
	router *gin.Engine
	store  store.Store
	tokens *auth.Manager
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))

	cfg := &config.Config{
		Server: config.ServerConfig{
			RateLimitPerSec: 1000,
			RateLimitBurst:  1000,
			CacheTTLSeconds: 1,
		},
		Auth: config.AuthConfig{
			Secret:          "integration-test-secret",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
			CookieInsecure:  true,
		},
	}

	appStore := store.NewGormStore(gormDB)
	tokens := auth.NewManager(cfg.Auth.Secret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	handler := NewHandler(appStore, tokens, cfg.Auth, cache.New(time.Second, time.Minute))

	return &testAPI{
		router: NewRouter(handler, cfg),
		store:  appStore,
		tokens: tokens,
	}
}

// do issues a request, optionally authenticated via the access cookie.
func (a *testAPI) do(t *testing.T, method, path string, body any, user *model.User) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, err := a.tokens.AccessToken(user)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: auth.AccessCookie, Value: token})
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) createUser(t *testing.T, username, description, password string, role model.Role) *model.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	user := &model.User{
		Username:     username,
		PasswordHash: hash,
		Description:  description,
		Role:         role,
	}
	require.NoError(t, a.store.DB().Create(user).Error)
	return user
}

func (a *testAPI) createEntry(t *testing.T, entity model.EntityType, name string) *model.DictionaryEntry {
	t.Helper()
	entry := &model.DictionaryEntry{Entity: entity, Name: name}
	require.NoError(t, a.store.DB().Create(entry).Error)
	return entry
}

func (a *testAPI) createMachine(t *testing.T, factoryNumber string, client, company *model.User) *model.Machine {
	t.Helper()
	machine := &model.Machine{
		FactoryNumber:       factoryNumber,
		ModelTechID:         a.createEntry(t, model.EntityMachineModel, "FG-70 "+factoryNumber).ID,
		EngineModelID:       a.createEntry(t, model.EntityEngineModel, "Kamina D-180 "+factoryNumber).ID,
		TransmissionModelID: a.createEntry(t, model.EntityTransmissionModel, "10VA "+factoryNumber).ID,
		DriveAxleModelID:    a.createEntry(t, model.EntityDriveAxleModel, "20V "+factoryNumber).ID,
		SteeringAxleModelID: a.createEntry(t, model.EntitySteeringAxleModel, "VS-20 "+factoryNumber).ID,
		ShipmentDate:        model.NewDate(2022, time.June, 1),
		ClientID:            client.ID,
		ServiceCompanyID:    company.ID,
	}
	require.NoError(t, a.store.DB().Create(machine).Error)
	return machine
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	return list
}

func decodeObject(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var obj map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &obj))
	return obj
}

func TestLoginFlow(t *testing.T) {
	a := setupAPI(t)
	a.createUser(t, "client1", "Client One", "correct-horse", model.RoleClient)

	w := a.do(t, "POST", "/api/auth/login", gin.H{"username": "client1", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, "POST", "/api/auth/login", gin.H{"username": "nobody", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "unknown users and bad passwords are indistinguishable")

	w = a.do(t, "POST", "/api/auth/login", gin.H{"username": "client1"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, "POST", "/api/auth/login", gin.H{"username": "client1", "password": "correct-horse"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	var names []string
	for _, cookie := range cookies {
		names = append(names, cookie.Name)
		assert.True(t, cookie.HttpOnly, "%s must be http-only", cookie.Name)
	}
	assert.Contains(t, names, auth.AccessCookie)
	assert.Contains(t, names, auth.RefreshCookie)
}

func TestCurrentUserAndPermissions(t *testing.T) {
	a := setupAPI(t)
	client := a.createUser(t, "client1", "Client One", "pw", model.RoleClient)

	w := a.do(t, "GET", "/api/auth/user", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, "GET", "/api/auth/user", nil, client)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeObject(t, w)
	perms := body["permissions"].([]any)
	assert.Contains(t, perms, "machine.view")
	assert.NotContains(t, perms, "claim.create")
}

func TestRefreshAndKeepAlive(t *testing.T) {
	a := setupAPI(t)
	client := a.createUser(t, "client1", "Client One", "pw", model.RoleClient)

	w := a.do(t, "POST", "/api/auth/token-refresh", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	refresh, err := a.tokens.RefreshToken(client)
	require.NoError(t, err)
	req, _ := http.NewRequest("POST", "/api/auth/token-refresh", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshCookie, Value: refresh})
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// An access token in the refresh slot must be rejected.
	access, err := a.tokens.AccessToken(client)
	require.NoError(t, err)
	req, _ = http.NewRequest("POST", "/api/auth/token-refresh", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshCookie, Value: access})
	rec = httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Keep-alive never fails, authenticated or not.
	w = a.do(t, "GET", "/api/keep-alive", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeObject(t, w)["is_authenticated"])

	w = a.do(t, "GET", "/api/keep-alive", nil, client)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeObject(t, w)["is_authenticated"])
}

func TestMachineVisibilityScoping(t *testing.T) {
	a := setupAPI(t)
	client1 := a.createUser(t, "client1", "Client One", "pw", model.RoleClient)
	client2 := a.createUser(t, "client2", "Client Two", "pw", model.RoleClient)
	service1 := a.createUser(t, "service1", "Service One", "pw", model.RoleServiceCompany)
	service2 := a.createUser(t, "service2", "Service Two", "pw", model.RoleServiceCompany)
	manager := a.createUser(t, "manager", "Manager", "pw", model.RoleManager)

	m1 := a.createMachine(t, "0001", client1, service1)
	m2 := a.createMachine(t, "0002", client2, service2)

	w := a.do(t, "GET", "/api/machines", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, "GET", "/api/machines", nil, client1)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeList(t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "0001", list[0]["factory_number"])

	w = a.do(t, "GET", "/api/machines", nil, service2)
	require.Equal(t, http.StatusOK, w.Code)
	list = decodeList(t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "0002", list[0]["factory_number"])

	w = a.do(t, "GET", "/api/machines", nil, manager)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w), 2)

	// Out-of-scope machines are missing, not forbidden.
	w = a.do(t, "GET", fmt.Sprintf("/api/machines/%d", m2.ID), nil, client1)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, "GET", fmt.Sprintf("/api/machines/%d", m1.ID), nil, client1)
	assert.Equal(t, http.StatusOK, w.Code)

	// Unknown filter keys are rejected outright.
	w = a.do(t, "GET", "/api/machines?colour=red", nil, client1)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchMachinePublicVsFull(t *testing.T) {
	a := setupAPI(t)
	client := a.createUser(t, "client1", "Client One", "pw", model.RoleClient)
	service := a.createUser(t, "service1", "Service One", "pw", model.RoleServiceCompany)
	a.createMachine(t, "7107", client, service)

	w := a.do(t, "POST", "/api/machines/search", gin.H{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, "POST", "/api/machines/search", gin.H{"factory_number": "no-such"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, "POST", "/api/machines/search", gin.H{"factory_number": "7107"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeObject(t, w)
	assert.Equal(t, "unauthorized", body["user_status"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "7107", data["factory_number"])
	assert.NotContains(t, data, "client_name", "public view must hide the parties")
	assert.NotContains(t, data, "delivery_contract")

	w = a.do(t, "POST", "/api/machines/search", gin.H{"factory_number": "7107"}, client)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeObject(t, w)
	assert.Equal(t, "authorized", body["user_status"])
	data = body["data"].(map[string]any)
	assert.Equal(t, "Client One", data["client_name"])
	assert.Equal(t, "Service One", data["service_company_name"])
}

func TestMachineCreateAndStructuralUpdate(t *testing.T) {
	a := setupAPI(t)
	client := a.createUser(t, "client1", "Client One", "pw", model.RoleClient)
	service := a.createUser(t, "service1", "Service One", "pw", model.RoleServiceCompany)
	manager := a.createUser(t, "manager", "Manager", "pw", model.RoleManager)

	a.createEntry(t, model.EntityMachineModel, "FG-70")
	a.createEntry(t, model.EntityEngineModel, "Kamina D-180")
	a.createEntry(t, model.EntityTransmissionModel, "10VA")
	a.createEntry(t, model.EntityDriveAxleModel, "20V")
	a.createEntry(t, model.EntitySteeringAxleModel, "VS-20")

	payload := gin.H{
		"factory_number": "0031",
		// Resolution is case-insensitive.
		"model_tech_input":          "fg-70",
		"engine_model_input":        "KAMINA D-180",
		"transmission_model_input":  "10va",
		"drive_axle_model_input":    "20v",
		"steering_axle_model_input": "vs-20",
		"shipment_date":             "2022-06-01",
		"client_input":              "Client One",
		"service_company_input":     "Service One",
	}

	// Non-elevated roles never reach the handler.
	w := a.do(t, "POST", "/api/machines", payload, service)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, "POST", "/api/machines", payload, manager)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeObject(t, w)
	assert.Equal(t, "FG-70", created["model_tech_name"], "the stored name wins over the typed case")
	machineID := int64(created["id"].(float64))

	// Unresolved free text is a field error naming the bad value.
	bad := gin.H{}
	for k, v := range payload {
		bad[k] = v
	}
	bad["factory_number"] = "0032"
	bad["engine_model_input"] = "Mystery Engine"
	w = a.do(t, "POST", "/api/machines", bad, manager)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Mystery Engine")

	// Duplicate factory numbers are rejected.
	w = a.do(t, "POST", "/api/machines", payload, manager)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	path := fmt.Sprintf("/api/machines/%d", machineID)

	// The assigned service company may edit logistics fields.
	w = a.do(t, "PUT", path, gin.H{"delivery_address": "12 Depot Rd"}, service)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "12 Depot Rd", decodeObject(t, w)["delivery_address"])

	// But never structural ones.
	w = a.do(t, "PUT", path, gin.H{"model_tech_input": "FG-70"}, service)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Clients cannot edit at all.
	w = a.do(t, "PUT", path, gin.H{"delivery_address": "somewhere"}, client)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, "PUT", path, gin.H{"model_tech_input": "FG-70"}, manager)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMachineDeleteProtection(t *testing.T) {
	a := setupAPI(t)
	client := a.createUser(t, "client1", "Client One", "pw", model.RoleClient)
	service := a.createUser(t, "service1", "Service One", "pw", model.RoleServiceCompany)
	manager := a.createUser(t, "manager", "Manager", "pw", model.RoleManager)
	machine := a.createMachine(t, "0001", client, service)

	maintenanceType := a.createEntry(t, model.EntityMaintenanceType, "TO-1")
	record := &model.Maintenance{
		MachineID:         machine.ID,
		MaintenanceTypeID: maintenanceType.ID,
		MaintenanceDate:   model.NewDate(2023, time.February, 1),
		OperatingHours:    120,
		ServiceCompanyID:  service.ID,
	}
	require.NoError(t, a.store.DB().Create(record).Error)

	path := fmt.Sprintf("/api/machines/%d", machine.ID)
	w := a.do(t, "DELETE", path, nil, manager)
	assert.Equal(t, http.StatusBadRequest, w.Code, "machines with history are protected")

	require.NoError(t, a.store.DB().Delete(&model.Maintenance{}, record.ID).Error)
	w = a.do(t, "DELETE", path, nil, manager)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestUserInputRoleValidation(t *testing.T) {
	a := setupAPI(t)
	manager := a.createUser(t, "manager1", "Manager One", "pw", model.RoleManager)
	client := a.createUser(t, "client1", "Client One", "pw", model.RoleClient)
	service := a.createUser(t, "service1", "Service One", "pw", model.RoleServiceCompany)
	machine := a.createMachine(t, "0001", client, service)
	a.createEntry(t, model.EntityMaintenanceType, "TO-1")

	// The performing service company on a maintenance record must hold the
	// service company role; a client account in that slot is rejected.
	w := a.do(t, "POST", "/api/maintenance", gin.H{
		"machine_id":             machine.ID,
		"maintenance_type_input": "TO-1",
		"maintenance_date":       "2023-02-01",
		"operating_hours":        120,
		"service_company_input":  "Client One",
	}, manager)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "service_company_input")
	assert.Contains(t, w.Body.String(), "Client One")

	var records int64
	require.NoError(t, a.store.DB().Model(&model.Maintenance{}).Count(&records).Error)
	assert.Zero(t, records)

	// Same rule on the machine party slots, both directions.
	w = a.do(t, "PUT", fmt.Sprintf("/api/machines/%d", machine.ID), gin.H{
		"client_input": "Service One",
	}, manager)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "is not a client account")

	w = a.do(t, "PUT", fmt.Sprintf("/api/machines/%d", machine.ID), gin.H{
		"service_company_input": "Client One",
	}, manager)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "is not a service company account")
}

func TestMaintenanceLifecycle(t *testing.T) {
	a := setupAPI(t)
	client := a.createUser(t, "client1", "Client One", "pw", model.RoleClient)
	client2 := a.createUser(t, "client2", "Client Two", "pw", model.RoleClient)
	service := a.createUser(t, "service1", "Service One", "pw", model.RoleServiceCompany)
	machine := a.createMachine(t, "0001", client, service)
	other := a.createMachine(t, "0002", client2, service)
	a.createEntry(t, model.EntityMaintenanceType, "TO-1")

	payload := gin.H{
		"machine_id":             machine.ID,
		"maintenance_type_input": "to-1",
		"maintenance_date":       "2023-02-01",
		"operating_hours":        120,
	}

	// Clients record maintenance on their own machines.
	w := a.do(t, "POST", "/api/maintenance", payload, client)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeObject(t, w)
	assert.Equal(t, "TO-1", created["maintenance_type_name"])
	assert.Equal(t, "Service One", created["service_company_name"], "defaults to the machine's service company")
	recordID := int64(created["id"].(float64))

	// But not on machines that are not theirs; the machine does not exist
	// as far as they can tell.
	foreign := gin.H{}
	for k, v := range payload {
		foreign[k] = v
	}
	foreign["machine_id"] = other.ID
	w = a.do(t, "POST", "/api/maintenance", foreign, client)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Future maintenance dates are rejected.
	future := gin.H{}
	for k, v := range payload {
		future[k] = v
	}
	future["maintenance_date"] = model.DateOf(time.Now().AddDate(0, 0, 2)).String()
	w = a.do(t, "POST", "/api/maintenance", future, client)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "maintenance_date")

	// A work order postdating the maintenance is rejected on update.
	path := fmt.Sprintf("/api/maintenance/%d", recordID)
	w = a.do(t, "PUT", path, gin.H{"work_order_date": "2023-02-05"}, service)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "work_order_date")

	w = a.do(t, "PUT", path, gin.H{"work_order_date": "2023-01-30", "work_order_number": "WO-17"}, service)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeObject(t, w)
	assert.Equal(t, "WO-17", updated["work_order_number"])

	// Clients cannot delete maintenance; the service company can.
	w = a.do(t, "DELETE", path, nil, client)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = a.do(t, "DELETE", path, nil, service)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestClaimLifecycle(t *testing.T) {
	a := setupAPI(t)
	client := a.createUser(t, "client1", "Client One", "pw", model.RoleClient)
	service := a.createUser(t, "service1", "Service One", "pw", model.RoleServiceCompany)
	machine := a.createMachine(t, "0001", client, service)
	a.createEntry(t, model.EntityFailureNode, "Hydraulics")
	a.createEntry(t, model.EntityRecoveryMethod, "Part replacement")

	payload := gin.H{
		"machine_id":         machine.ID,
		"failure_date":       "2023-01-10",
		"operating_hours":    2100,
		"failure_node_input": "hydraulics",
	}

	// Clients are read-only on claims even for their own machines.
	w := a.do(t, "POST", "/api/claims", payload, client)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, "POST", "/api/claims", payload, service)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeObject(t, w)
	assert.Equal(t, "Hydraulics", created["failure_node_name"])
	assert.Equal(t, float64(0), created["downtime_days"], "open claims have no downtime")
	claimID := int64(created["id"].(float64))
	path := fmt.Sprintf("/api/claims/%d", claimID)

	// The client can read it.
	w = a.do(t, "GET", path, nil, client)
	assert.Equal(t, http.StatusOK, w.Code)

	// Recovery before failure is rejected.
	w = a.do(t, "PUT", path, gin.H{"recovery_date": "2023-01-05"}, service)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "recovery_date")

	// Closing the claim derives downtime from the two dates.
	w = a.do(t, "PUT", path, gin.H{
		"recovery_date":         "2023-01-17",
		"recovery_method_input": "part REPLACEMENT",
	}, service)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeObject(t, w)
	assert.Equal(t, float64(7), updated["downtime_days"])
	assert.Equal(t, "Part replacement", updated["recovery_method_name"])

	// Reopening clears both the method and the derived downtime.
	w = a.do(t, "PUT", path, gin.H{
		"recovery_date":         "",
		"recovery_method_input": "",
	}, service)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	reopened := decodeObject(t, w)
	assert.Equal(t, float64(0), reopened["downtime_days"])
	assert.Equal(t, "", reopened["recovery_method_name"])

	// Unresolved failure nodes are named in the error.
	bad := gin.H{
		"machine_id":         machine.ID,
		"failure_date":       "2023-01-10",
		"operating_hours":    100,
		"failure_node_input": "gremlins",
	}
	w = a.do(t, "POST", "/api/claims", bad, service)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "gremlins")
}

func TestClaimListScoping(t *testing.T) {
	a := setupAPI(t)
	client1 := a.createUser(t, "client1", "Client One", "pw", model.RoleClient)
	client2 := a.createUser(t, "client2", "Client Two", "pw", model.RoleClient)
	service1 := a.createUser(t, "service1", "Service One", "pw", model.RoleServiceCompany)
	service2 := a.createUser(t, "service2", "Service Two", "pw", model.RoleServiceCompany)
	m1 := a.createMachine(t, "0001", client1, service1)
	m2 := a.createMachine(t, "0002", client2, service2)
	node := a.createEntry(t, model.EntityFailureNode, "Engine")

	for _, machineID := range []int64{m1.ID, m2.ID} {
		claim := &model.Claim{
			MachineID:     machineID,
			FailureDate:   model.NewDate(2023, time.January, 10),
			FailureNodeID: node.ID,
		}
		require.NoError(t, a.store.DB().Create(claim).Error)
	}

	w := a.do(t, "GET", "/api/claims", nil, client1)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeList(t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "0001", list[0]["machine_factory_number"])

	w = a.do(t, "GET", "/api/claims", nil, service2)
	require.Equal(t, http.StatusOK, w.Code)
	list = decodeList(t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "0002", list[0]["machine_factory_number"])
}

func TestDictionaryEndpoints(t *testing.T) {
	a := setupAPI(t)
	client := a.createUser(t, "client1", "Client One", "pw", model.RoleClient)
	service := a.createUser(t, "service1", "Service One", "pw", model.RoleServiceCompany)
	manager := a.createUser(t, "manager", "Manager", "pw", model.RoleManager)

	// Writes are manager territory.
	w := a.do(t, "POST", "/api/dict-entries", gin.H{"entity": "failure_node", "name": "Hydraulics"}, client)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, "POST", "/api/dict-entries", gin.H{"entity": "flux_capacitor", "name": "X"}, manager)
	assert.Equal(t, http.StatusBadRequest, w.Code, "entity types are a closed set")

	w = a.do(t, "POST", "/api/dict-entries", gin.H{"entity": "failure_node", "name": "Hydraulics"}, manager)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeObject(t, w)
	assert.Equal(t, "Failure node", created["entity_display"])
	entryID := int64(created["id"].(float64))

	// (entity, name) must be unique.
	w = a.do(t, "POST", "/api/dict-entries", gin.H{"entity": "failure_node", "name": "Hydraulics"}, manager)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Every authenticated role reads the dictionary.
	w = a.do(t, "GET", "/api/dict-entries?entity=failure_node", nil, service)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w), 1)

	// Referenced entries cannot be deleted.
	machine := a.createMachine(t, "0001", client, service)
	claim := &model.Claim{
		MachineID:     machine.ID,
		FailureDate:   model.NewDate(2023, time.January, 10),
		FailureNodeID: entryID,
	}
	require.NoError(t, a.store.DB().Create(claim).Error)

	path := fmt.Sprintf("/api/dict-entries/%d", entryID)
	w = a.do(t, "DELETE", path, nil, manager)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.NoError(t, a.store.DB().Delete(&model.Claim{}, claim.ID).Error)
	w = a.do(t, "DELETE", path, nil, manager)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
