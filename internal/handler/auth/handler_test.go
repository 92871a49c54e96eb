package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
	authsvc "github.com/jwalitptl/hospital-api/internal/service/auth"
	"github.com/jwalitptl/hospital-api/pkg/auth"
	"github.com/jwalitptl/hospital-api/pkg/validator"
)

type response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setup(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.RegisterGinValidators()

	mem := memory.NewStore()
	svc := authsvc.NewService(mem.Users(), auth.NewJWTService("test-secret", "hospital-api", time.Hour), auth.NewBcryptHasher(4))

	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api"))
	return r, mem
}

func post(t *testing.T, r http.Handler, path string, body interface{}) (int, response) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func TestRegisterThenLogin(t *testing.T) {
	r, mem := setup(t)

	code, resp := post(t, r, "/api/register", map[string]string{
		"first_name": "Jane",
		"last_name":  "Doe",
		"email":      "Jane@Example.com",
		"password":   "correct-horse",
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)

	var registered model.LoginResponse
	require.NoError(t, json.Unmarshal(resp.Data, &registered))
	assert.Equal(t, model.RolePatient, registered.User.Role)
	assert.Equal(t, "jane@example.com", registered.User.Email)
	assert.NotEmpty(t, registered.Token)

	patients, err := mem.Patients().List(context.Background())
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, "Jane", patients[0].FirstName)

	code, resp = post(t, r, "/api/login", map[string]string{"email": "jane@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, code)
	var login model.LoginResponse
	require.NoError(t, json.Unmarshal(resp.Data, &login))
	assert.Equal(t, registered.User.ID, login.User.ID)
}

func TestRegisterRejections(t *testing.T) {
	r, _ := setup(t)
	valid := map[string]string{"first_name": "Jane", "last_name": "Doe", "email": "jane@example.com", "password": "correct-horse"}

	code, _ := post(t, r, "/api/register", valid)
	require.Equal(t, http.StatusCreated, code)

	code, resp := post(t, r, "/api/register", valid)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "email already registered", resp.Message)

	code, resp = post(t, r, "/api/register", map[string]string{"first_name": "A", "last_name": "B", "email": "a@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "password must be at least 8 characters", resp.Message)
}

func TestLoginRejections(t *testing.T) {
	r, _ := setup(t)

	code, resp := post(t, r, "/api/login", map[string]string{"email": "nobody@example.com", "password": "whatever"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized", resp.Message)

	code, resp = post(t, r, "/api/login", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Message, "email must be a valid email address")
}
