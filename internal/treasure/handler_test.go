package treasure

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

func newTestRouter(pub *fakePublisher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(newTestService(pub, newFakeRepository()), logger.NopLogger()).RegisterRoutes(r)
	return r
}

func request(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerLifecycle(t *testing.T) {
	r := newTestRouter(&fakePublisher{})

	w := request(r, http.MethodPost, "/treasure", `{
		"createdBy": "ana@inabottle.app",
		"title": "harbour",
		"extraPoints": 50,
		"messages": [{"text": "first clue"}]
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created TreasureHunt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Selector)
	assert.Equal(t, created.Selector, created.Messages[0].HuntID)
	require.Len(t, created.Outbox, 2)

	w = request(r, http.MethodGet, "/treasure/"+created.Selector, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"published"`)

	w = request(r, http.MethodGet, "/treasure", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.Selector)

	w = request(r, http.MethodDelete, "/treasure/"+created.Selector, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(r, http.MethodGet, "/treasure/"+created.Selector, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())

	w = request(r, http.MethodDelete, "/treasure/"+created.Selector, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerPendingOutbox(t *testing.T) {
	r := newTestRouter(&fakePublisher{fail: true})

	w := request(r, http.MethodPost, "/treasure", `{"createdBy":"ana@inabottle.app","extraPoints":5}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = request(r, http.MethodGet, "/treasure/outbox/pending", "")
	require.Equal(t, http.StatusOK, w.Code)

	var pending []PendingEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "points.add", pending[0].RoutingKey)
	assert.Equal(t, OutboxPending, pending[0].Status)
}

func TestHandlerEmptyListIsArray(t *testing.T) {
	r := newTestRouter(&fakePublisher{})

	w := request(r, http.MethodGet, "/treasure/outbox/pending", "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestHandlerRejectsBadBody(t *testing.T) {
	r := newTestRouter(&fakePublisher{})

	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPost, "/treasure", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPost, "/treasure", `{}`).Code)
}

func TestHandlerRejectsNonUUIDMessageSelector(t *testing.T) {
	r := newTestRouter(&fakePublisher{})

	w := request(r, http.MethodPost, "/treasure", `{
		"createdBy": "ana@inabottle.app",
		"messages": [{"selector": "clue-1", "text": "first clue"}]
	}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "messages[0].selector")

	w = request(r, http.MethodGet, "/treasure", "")
	assert.JSONEq(t, `[]`, w.Body.String())
}
