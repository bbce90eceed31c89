package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mojocn/base64Captcha"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenify/greenify/config"
	"github.com/greenify/greenify/models"
	"github.com/greenify/greenify/utils"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupTestRouter(t *testing.T, opts ...func(*config.AppConfig)) *gin.Engine {
	t.Helper()
	dir := t.TempDir()
	cfg := config.AppConfig{
		JWTSecret: "router-secret",
		GinMode:   "test",
		GinPath:   filepath.Join(dir, "gin.log"),
		DBDriver:  "sqlite",
		DBName:    filepath.Join(dir, "greenify"),
		LogLevel:  "silent",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	config.SetForTest(cfg)
	utils.SetRedis(nil)

	db, err := config.OpenDatabase(config.Get())
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, models.AllModels()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return SetupRouter(db)
}

func call(t *testing.T, r http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func registerAndLogin(t *testing.T, r http.Handler, username string) string {
	t.Helper()
	w, _ := call(t, r, http.MethodPost, "/api/user/register", "", gin.H{
		"username": username, "email": username + "@example.com", "password": "secret-pass",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env := call(t, r, http.MethodPost, "/api/user/login", "", gin.H{"username": username, "password": "secret-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.Token)
	return login.Token
}

func TestHealth(t *testing.T) {
	r := setupTestRouter(t)
	w, env := call(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))
	assert.NotEmpty(t, w.Header().Get(utils.RequestIDHeader))
}

func TestDailyEntryAndStreakFlow(t *testing.T) {
	r := setupTestRouter(t)
	token := registerAndLogin(t, r, "alice")

	w, env := call(t, r, http.MethodGet, "/api/streak", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"current":0,"longest":0,"goal":10,"lastDate":null}`, string(env.Data))

	w, env = call(t, r, http.MethodPost, "/api/daily-entry", token, gin.H{
		"date": "2024-03-01", "milesDriven": 0, "trashCount": 0, "recycleCount": 5,
		"reusableBag": true, "reusableBottle": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{
		"date": "2024-03-01",
		"pointsTotal": 16,
		"raw": {"date": "2024-03-01", "milesDriven": 0, "trashCount": 0, "recycleCount": 5, "reusableBag": true, "reusableBottle": true}
	}`, string(env.Data))

	w, _ = call(t, r, http.MethodPost, "/api/daily-entry", token, gin.H{"date": "2024-03-02", "recycleCount": 6})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = call(t, r, http.MethodGet, "/api/streak", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"current":2,"longest":2,"goal":10,"lastDate":"2024-03-02"}`, string(env.Data))

	w, env = call(t, r, http.MethodGet, "/api/daily-entry/2024-03-01", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"pointsTotal":16`)

	w, env = call(t, r, http.MethodGet, "/api/daily-entry/2024-04-01", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"pointsTotal":0`)
}

func TestDailyEntryValidation(t *testing.T) {
	r := setupTestRouter(t)
	token := registerAndLogin(t, r, "bob")

	w, env := call(t, r, http.MethodPost, "/api/daily-entry", token, gin.H{"date": "2024-03-01", "trashCount": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40002, env.Code)

	w, env = call(t, r, http.MethodPost, "/api/daily-entry", token, gin.H{"date": "March 1st"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40002, env.Code)

	w, env = call(t, r, http.MethodPost, "/api/daily-entry", token, gin.H{"date": "2024-03-01", "milesDriven": "far"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40001, env.Code)

	w, _ = call(t, r, http.MethodGet, "/api/daily-entry/not-a-date", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = call(t, r, http.MethodPost, "/api/daily-entry", "", gin.H{"date": "2024-03-01"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEntriesAreScopedToTheCaller(t *testing.T) {
	r := setupTestRouter(t)
	alice := registerAndLogin(t, r, "alice")
	bob := registerAndLogin(t, r, "bob")

	w, _ := call(t, r, http.MethodPost, "/api/daily-entry", alice, gin.H{"date": "2024-03-01", "recycleCount": 10})
	require.Equal(t, http.StatusOK, w.Code)

	_, env := call(t, r, http.MethodGet, "/api/daily-entry/2024-03-01", bob, nil)
	assert.Contains(t, string(env.Data), `"pointsTotal":0`)
	_, env = call(t, r, http.MethodGet, "/api/streak", bob, nil)
	assert.Contains(t, string(env.Data), `"current":0`)
}

func TestAccountLifecycle(t *testing.T) {
	r := setupTestRouter(t)
	token := registerAndLogin(t, r, "carol")

	w, env := call(t, r, http.MethodPost, "/api/user/register", "", gin.H{
		"username": "carol", "email": "other@example.com", "password": "secret-pass",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Username already taken", env.Message)

	w, env = call(t, r, http.MethodPost, "/api/user/register", "", gin.H{
		"username": "carol2", "email": "CAROL@example.com", "password": "secret-pass",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Email already in use", env.Message)

	w, env = call(t, r, http.MethodGet, "/api/user/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"username":"carol"`)

	w, _ = call(t, r, http.MethodPut, "/api/user/me/username", token, gin.H{"newUsername": "caroline"})
	require.Equal(t, http.StatusOK, w.Code)
	_, env = call(t, r, http.MethodGet, "/api/user/me", token, nil)
	assert.Contains(t, string(env.Data), `"username":"caroline"`)

	w, _ = call(t, r, http.MethodPost, "/api/daily-entry", token, gin.H{"date": "2024-03-01", "recycleCount": 10})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = call(t, r, http.MethodPut, "/api/user/me/password", token, gin.H{"newPassword": "brand-new-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, r, http.MethodGet, "/api/user/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "password change revokes the old token")

	w, _ = call(t, r, http.MethodPost, "/api/user/login", "", gin.H{"username": "caroline", "password": "secret-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, env = call(t, r, http.MethodPost, "/api/user/login", "", gin.H{"username": "caroline", "password": "brand-new-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))

	w, _ = call(t, r, http.MethodDelete, "/api/user/me", login.Token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = call(t, r, http.MethodGet, "/api/streak", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	fresh := registerAndLogin(t, r, "caroline")
	_, env = call(t, r, http.MethodGet, "/api/daily-entry/2024-03-01", fresh, nil)
	assert.Contains(t, string(env.Data), `"pointsTotal":0`)
}

func TestDeletedAccountCannotWriteWithOtherToken(t *testing.T) {
	r := setupTestRouter(t)
	first := registerAndLogin(t, r, "frank")
	w, env := call(t, r, http.MethodPost, "/api/user/login", "", gin.H{"username": "frank", "password": "secret-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	second := login.Token

	w, _ = call(t, r, http.MethodDelete, "/api/user/me", first, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w, env = call(t, r, http.MethodPost, "/api/daily-entry", second, gin.H{"date": "2024-03-01", "recycleCount": 6})
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	assert.Equal(t, 40401, env.Code)

	w, env = call(t, r, http.MethodGet, "/api/streak", second, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"current":0,"longest":0,"goal":10,"lastDate":null}`, string(env.Data))
	w, env = call(t, r, http.MethodGet, "/api/daily-entry/2024-03-01", second, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"pointsTotal":0`)
}

func TestOversizedMileageIsRejected(t *testing.T) {
	r := setupTestRouter(t)
	token := registerAndLogin(t, r, "gina")

	w, env := call(t, r, http.MethodPost, "/api/daily-entry", token, gin.H{"date": "2024-03-01", "milesDriven": int64(1) << 62})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40002, env.Code)

	w, env = call(t, r, http.MethodGet, "/api/streak", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"current":0`)
}

func TestLogoutRevokesToken(t *testing.T) {
	r := setupTestRouter(t)
	token := registerAndLogin(t, r, "dave")

	w, _ := call(t, r, http.MethodPost, "/api/user/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, env := call(t, r, http.MethodGet, "/api/streak", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40104, env.Code)
}

func TestUnknownRoute(t *testing.T) {
	r := setupTestRouter(t)
	w, env := call(t, r, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40400, env.Code)
}

func TestRegisterWithCaptcha(t *testing.T) {
	r := setupTestRouter(t, func(c *config.AppConfig) { c.CaptchaEnabled = true })
	body := gin.H{"username": "erin", "email": "erin@example.com", "password": "secret-pass"}

	w, env := call(t, r, http.MethodPost, "/api/user/register", "", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40004, env.Code)

	w, env = call(t, r, http.MethodGet, "/api/user/captcha", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var captcha struct {
		ID    string `json:"captcha_id"`
		Image string `json:"image"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &captcha))
	require.NotEmpty(t, captcha.Image)

	body["captcha_id"] = captcha.ID
	body["captcha_answer"] = base64Captcha.DefaultMemStore.Get(captcha.ID, false)
	w, _ = call(t, r, http.MethodPost, "/api/user/register", "", body)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}
