package routes_test

import (
	"net/http"
	"testing"

	"github.com/sidhant-sriv/looply-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleLike_TwiceRestoresState(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register("Ada", "ada@example.com", "user")
	fan := env.register("Bob", "bob@example.com", "user")
	id := env.createItem(owner, "Desk lamp", "gift")

	_, body := env.do(http.MethodGet, "/swipes/liked", nil, fan.Token)
	assert.Empty(t, body["items"])

	code, body := env.do(http.MethodPost, "/swipes/"+id+"/toggle-like", nil, fan.Token)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["liked"])

	_, body = env.do(http.MethodGet, "/liked", nil, fan.Token)
	assert.Len(t, body["items"], 1)

	_, body = env.do(http.MethodPost, "/swipes/"+id+"/toggle-like", nil, fan.Token)
	assert.Equal(t, false, body["liked"])

	_, body = env.do(http.MethodGet, "/swipes/liked", nil, fan.Token)
	assert.Empty(t, body["items"])
}

func TestCreateSwipe_PassIsStoredAsReject(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register("Ada", "ada@example.com", "user")
	swiper := env.register("Bob", "bob@example.com", "user")
	id := env.createItem(owner, "Desk lamp", "gift")

	code, body := env.do(http.MethodPost, "/swipes", map[string]string{"listing_id": id, "action": "like"}, swiper.Token)
	require.Equal(t, http.StatusCreated, code, body)

	code, body = env.do(http.MethodPost, "/swipes", map[string]string{"listing_id": id, "action": "pass"}, swiper.Token)
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "reject", field(body, "swipe", "action"))

	var swipes []models.Swipe
	require.NoError(t, env.db.Find(&swipes).Error)
	require.Len(t, swipes, 1, "re-swiping replaces the earlier swipe")
	assert.Equal(t, models.SwipeReject, swipes[0].Action)

	code, _ = env.do(http.MethodPost, "/swipes", map[string]string{"listing_id": id, "action": "maybe"}, swiper.Token)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(http.MethodPost, "/swipes", map[string]string{"listing_id": id, "action": "like"}, owner.Token)
	assert.Equal(t, http.StatusBadRequest, code, "own listings cannot be swiped")
}

func TestToggleLike_AfterPass(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register("Ada", "ada@example.com", "user")
	fan := env.register("Bob", "bob@example.com", "user")
	id := env.createItem(owner, "Desk lamp", "gift")

	code, body := env.do(http.MethodPost, "/swipes", map[string]string{"listing_id": id, "action": "pass"}, fan.Token)
	require.Equal(t, http.StatusCreated, code, body)

	code, body = env.do(http.MethodPost, "/swipes/"+id+"/toggle-like", nil, fan.Token)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["liked"])

	_, body = env.do(http.MethodGet, "/swipes", nil, fan.Token)
	swipes := body["swipes"].([]interface{})
	require.Len(t, swipes, 1)
	assert.Equal(t, "like", swipes[0].(map[string]interface{})["action"])

	code, body = env.do(http.MethodPost, "/swipes/"+id+"/toggle-like", nil, fan.Token)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, false, body["liked"])

	_, body = env.do(http.MethodGet, "/swipes/liked", nil, fan.Token)
	assert.Empty(t, body["items"])
}

func TestDeck(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register("Ada", "ada@example.com", "user")
	swiper := env.register("Bob", "bob@example.com", "user")
	lamp := env.createItem(owner, "Desk lamp", "gift")
	env.createItem(owner, "Bicycle", "sell")
	env.createItem(swiper, "Own chair", "gift")

	_, body := env.do(http.MethodGet, "/swipes/deck", nil, swiper.Token)
	assert.Equal(t, float64(2), body["remaining"], "own listings are excluded")

	env.do(http.MethodPost, "/swipes", map[string]string{"listing_id": lamp, "action": "reject"}, swiper.Token)
	_, body = env.do(http.MethodGet, "/swipes/deck?limit=1", nil, swiper.Token)
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Bicycle", items[0].(map[string]interface{})["title"])
	assert.Equal(t, float64(1), body["remaining"])

	_, body = env.do(http.MethodGet, "/swipes", nil, swiper.Token)
	assert.Len(t, body["swipes"], 1)

	code, body := env.do(http.MethodDelete, "/swipes", nil, swiper.Token)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["deleted"])

	_, body = env.do(http.MethodGet, "/swipes/deck", nil, swiper.Token)
	assert.Equal(t, float64(2), body["remaining"], "reset puts swiped listings back")

	code, _ = env.do(http.MethodGet, "/swipes/deck?limit=0", nil, swiper.Token)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestFavorites(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register("Ada", "ada@example.com", "user")
	saver := env.register("Bob", "bob@example.com", "user")
	id := env.createItem(owner, "Desk lamp", "gift")

	for i := 0; i < 2; i++ {
		code, body := env.do(http.MethodPost, "/favorites/"+id, nil, saver.Token)
		require.Equal(t, http.StatusOK, code, body)
	}
	_, body := env.do(http.MethodGet, "/favorites", nil, saver.Token)
	assert.Equal(t, []interface{}{id}, body["favorites"], "saving twice is idempotent")

	_, body = env.do(http.MethodGet, "/saved-items", nil, saver.Token)
	assert.Len(t, body["items"], 1)

	_, body = env.do(http.MethodPost, "/favorites/"+id+"/toggle", nil, saver.Token)
	assert.Equal(t, false, body["favorited"])
	_, body = env.do(http.MethodPost, "/favorites/"+id+"/toggle", nil, saver.Token)
	assert.Equal(t, true, body["favorited"])

	code, _ := env.do(http.MethodDelete, "/favorites/"+id, nil, saver.Token)
	require.Equal(t, http.StatusOK, code)
	_, body = env.do(http.MethodGet, "/favorites/items", nil, saver.Token)
	assert.Empty(t, body["items"])

	code, _ = env.do(http.MethodPost, "/favorites/00000000-0000-0000-0000-000000000001", nil, saver.Token)
	assert.Equal(t, http.StatusNotFound, code)
}
