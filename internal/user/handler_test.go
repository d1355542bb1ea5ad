package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inabottle/internal/logger"
)

func newRouter(repo Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(NewService(repo), logger.NopLogger()).RegisterRoutes(r)
	return r
}

func call(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerUserLifecycle(t *testing.T) {
	r := newRouter(newFakeRepository())

	w := call(r, http.MethodPost, "/user", `{"name":"Ana","email":"Ana@InABottle.app","points":999}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "ana@inabottle.app", created.Email)
	assert.Zero(t, created.Points)
	assert.NotContains(t, w.Body.String(), "appliedEvents")

	assert.Equal(t, http.StatusConflict, call(r, http.MethodPost, "/user", `{"email":"ana@inabottle.app"}`).Code)

	w = call(r, http.MethodGet, "/user/ana@inabottle.app", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Ana"`)

	assert.Equal(t, http.StatusOK, call(r, http.MethodDelete, "/user/"+created.ID, "").Code)

	w = call(r, http.MethodGet, "/user/ana@inabottle.app", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHandlerLoginUpserts(t *testing.T) {
	repo := newFakeRepository()
	r := newRouter(repo)

	first := call(r, http.MethodPost, "/user/login", `{"email":"bo@inabottle.app","name":"Bo"}`)
	require.Equal(t, http.StatusCreated, first.Code)

	second := call(r, http.MethodPost, "/user/login", `{"email":"bo@inabottle.app","photoUrl":"https://img/bo.png"}`)
	require.Equal(t, http.StatusCreated, second.Code)

	var a, b User
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, "Bo", b.Name)
	assert.Equal(t, "https://img/bo.png", b.PhotoURL)

	var all []User
	require.NoError(t, json.Unmarshal(call(r, http.MethodGet, "/user", "").Body.Bytes(), &all))
	assert.Len(t, all, 1)
}

func TestHandlerRequiresEmail(t *testing.T) {
	r := newRouter(newFakeRepository())

	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPost, "/user", `{"name":"nobody"}`).Code)
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPost, "/user/login", `{"email":" "}`).Code)
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPost, "/user", `{"email":"a@b","id":"nope"}`).Code)
}
