package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inabottle/internal/logger"
)

type hubAPI struct {
	t      *testing.T
	router *gin.Engine
}

func newHubAPI(t *testing.T, repo Repository) *hubAPI {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(newTestService(repo, false), logger.NopLogger()).RegisterRoutes(r)
	return &hubAPI{t: t, router: r}
}

func (a *hubAPI) call(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	a.router.ServeHTTP(w, req)
	return w
}

func (a *hubAPI) get(id string) Hub {
	w := a.call(http.MethodGet, "/hub/"+id, "")
	require.Equal(a.t, http.StatusOK, w.Code)
	var h Hub
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &h))
	return h
}

func TestHubScenario(t *testing.T) {
	api := newHubAPI(t, newFakeRepository())

	w := api.call(http.MethodPost, "/hub", `{"createdBy":"ana@inabottle.app","title":"pier","latitude":-23.5,"longitude":-46.6}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created Hub
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Contains(t, w.Body.String(), `"messageChat":[]`)

	msgID := uuid.NewString()
	w = api.call(http.MethodPost, "/hub/"+created.Selector+"/addMessage",
		`{"selector":"`+msgID+`","createdBy":"bo@inabottle.app","text":"anyone here?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	base := "/hub/" + created.Selector + "/message/" + msgID
	heart := `{"createdBy":"ana@inabottle.app","reaction":{"selector":"heart","url":"https://cdn/heart.gif"}}`
	star := `{"createdBy":"ana@inabottle.app","reaction":{"selector":"star"}}`
	require.Equal(t, http.StatusOK, api.call(http.MethodPost, base+"/addReaction", heart).Code)
	require.Equal(t, http.StatusOK, api.call(http.MethodPost, base+"/addReaction", star).Code)

	h := api.get(created.Selector)
	require.Len(t, h.MessageChat, 1)
	assert.Equal(t, "anyone here?", h.MessageChat[0].Text)
	assert.Equal(t, StatusReceived, h.MessageChat[0].Status)
	require.Len(t, h.MessageChat[0].Reactions, 2)

	require.Equal(t, http.StatusOK, api.call(http.MethodDelete, base+"/removeReaction",
		`{"createdBy":"ana@inabottle.app","reaction":{"selector":"heart"}}`).Code)

	h = api.get(created.Selector)
	require.Len(t, h.MessageChat[0].Reactions, 1)
	assert.Equal(t, "star", h.MessageChat[0].Reactions[0].Reaction.Selector)
	assert.Equal(t, int64(4), h.Version)

	w = api.call(http.MethodPut, "/hub/"+created.Selector, `{"createdBy":"ana@inabottle.app","title":"renamed"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "renamed", api.get(created.Selector).Title)

	var all []Hub
	require.NoError(t, json.Unmarshal(api.call(http.MethodGet, "/hub", "").Body.Bytes(), &all))
	assert.Len(t, all, 1)

	require.Equal(t, http.StatusOK, api.call(http.MethodDelete, "/hub/"+created.Selector, "").Code)
	w = api.call(http.MethodGet, "/hub/"+created.Selector, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHubMissingReturnsEmpty404(t *testing.T) {
	api := newHubAPI(t, newFakeRepository())
	missing := "/hub/" + uuid.NewString()
	reactionBody := `{"createdBy":"a@x","reaction":{"selector":"heart"}}`

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, missing, ""},
		{http.MethodDelete, missing, ""},
		{http.MethodPost, missing + "/addMessage", `{"text":"x"}`},
		{http.MethodPost, missing + "/message/" + uuid.NewString() + "/addReaction", reactionBody},
		{http.MethodDelete, missing + "/message/" + uuid.NewString() + "/removeReaction", reactionBody},
	} {
		w := api.call(tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", tc.method, tc.path)
		assert.Empty(t, w.Body.String())
	}
}

func TestHubRejectsReactionWithoutSelector(t *testing.T) {
	api := newHubAPI(t, newFakeRepository())

	w := api.call(http.MethodPost, "/hub/"+uuid.NewString()+"/message/"+uuid.NewString()+"/addReaction", `{"createdBy":"a@x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHubConflictExhaustionIs409(t *testing.T) {
	repo := newFakeRepository()
	api := newHubAPI(t, repo)

	w := api.call(http.MethodPost, "/hub", `{"createdBy":"ana@inabottle.app"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var h Hub
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))

	repo.conflicts = 100
	w = api.call(http.MethodPost, "/hub/"+h.Selector+"/addMessage", `{"text":"x"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "CONFLICT")
}
