package routes_test

import (
	"net/http"
	"testing"

	"github.com/sidhant-sriv/looply-api/events"
	"github.com/sidhant-sriv/looply-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) karma(a account) int {
	e.t.Helper()
	var user models.User
	require.NoError(e.t, e.db.First(&user, "id = ?", a.ID).Error)
	return user.KarmaPoints
}

func TestMatches(t *testing.T) {
	env := newTestEnv(t)
	ada := env.register("Ada", "ada@example.com", "user")
	bob := env.register("Bob", "bob@example.com", "user")
	carol := env.register("Carol", "carol@example.com", "user")
	lamp := env.createItem(ada, "Desk lamp", "barter")
	bike := env.createItem(bob, "Bicycle", "barter")

	code, _ := env.do(http.MethodPost, "/matches", map[string]string{"item_a_id": bike, "item_b_id": lamp}, ada.Token)
	assert.Equal(t, http.StatusForbidden, code, "item_a must be the caller's")

	code, _ = env.do(http.MethodPost, "/matches", map[string]string{
		"item_a_id": lamp, "item_b_id": bike, "user_b_id": carol.ID.String(),
	}, ada.Token)
	assert.Equal(t, http.StatusBadRequest, code, "user_b must own item_b")

	code, body := env.do(http.MethodPost, "/matches", map[string]string{
		"item_a_id": lamp, "item_b_id": bike, "message": "Swap?",
	}, ada.Token)
	require.Equal(t, http.StatusCreated, code, body)
	matchID := field(body, "match", "id").(string)
	assert.Equal(t, "pending", field(body, "match", "status"))
	assert.Equal(t, bob.ID.String(), field(body, "match", "user_b_id"))
	assert.Equal(t, "Bicycle", field(body, "match", "item_b", "title"))

	code, _ = env.do(http.MethodPost, "/matches", map[string]string{"item_a_id": lamp, "item_b_id": bike}, ada.Token)
	assert.Equal(t, http.StatusConflict, code, "duplicate pending offer")

	_, body = env.do(http.MethodGet, "/matches?status=pending", nil, bob.Token)
	assert.Len(t, body["matches"], 1)
	_, body = env.do(http.MethodGet, "/matches", nil, carol.Token)
	assert.Empty(t, body["matches"])

	code, _ = env.do(http.MethodPatch, "/matches/"+matchID, map[string]string{"status": "matched"}, ada.Token)
	assert.Equal(t, http.StatusForbidden, code, "only the receiver accepts")
	code, _ = env.do(http.MethodPatch, "/matches/"+matchID, map[string]string{"status": "matched"}, carol.Token)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = env.do(http.MethodPatch, "/matches/"+matchID, map[string]string{"status": "matched"}, bob.Token)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "matched", field(body, "match", "status"))
	assert.Equal(t, models.KarmaMatchAccepted, env.karma(ada))
	assert.Equal(t, models.KarmaMatchAccepted, env.karma(bob))

	code, _ = env.do(http.MethodPatch, "/matches/"+matchID, map[string]string{"status": "pending"}, bob.Token)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = env.do(http.MethodPatch, "/matches/"+matchID, map[string]string{"status": "cancelled"}, ada.Token)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{events.ListingCreated, events.ListingCreated, events.MatchCreated, events.MatchUpdated, events.MatchUpdated}, env.events.Types())
}

func TestClaims(t *testing.T) {
	env := newTestEnv(t)
	donor := env.register("Ada", "ada@example.com", "user")
	ngo := env.register("Helping Hands", "ngo@example.com", "ngo")
	otherNGO := env.register("Second Hands", "ngo2@example.com", "ngo")
	person := env.register("Bob", "bob@example.com", "user")
	coat := env.createItem(donor, "Winter coat", "gift")

	code, _ := env.do(http.MethodPost, "/claims", map[string]string{"listing_id": coat}, person.Token)
	assert.Equal(t, http.StatusForbidden, code, "only NGOs claim")

	code, body := env.do(http.MethodPost, "/claims", map[string]string{"listing_id": coat, "message": "For the shelter"}, ngo.Token)
	require.Equal(t, http.StatusCreated, code, body)
	claimID := field(body, "claim", "id").(string)
	assert.Equal(t, "claimed", field(body, "claim", "status"))

	_, body = env.do(http.MethodGet, "/items/"+coat, nil, "")
	assert.Equal(t, "claimed", field(body, "item", "status"))

	code, _ = env.do(http.MethodPost, "/claims", map[string]string{"listing_id": coat}, ngo.Token)
	assert.Equal(t, http.StatusConflict, code, "duplicate claim")
	code, _ = env.do(http.MethodPost, "/claims", map[string]string{"listing_id": coat}, otherNGO.Token)
	assert.Equal(t, http.StatusConflict, code, "listing already claimed")

	_, body = env.do(http.MethodGet, "/claims", nil, ngo.Token)
	assert.Len(t, body["claims"], 1)
	_, body = env.do(http.MethodGet, "/claims/incoming", nil, donor.Token)
	assert.Len(t, body["claims"], 1)

	code, _ = env.do(http.MethodPatch, "/claims/"+claimID, map[string]string{"status": "received"}, person.Token)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = env.do(http.MethodPatch, "/claims/"+claimID, map[string]string{"status": "pickup_arranged"}, donor.Token)
	require.Equal(t, http.StatusOK, code)
	code, body = env.do(http.MethodPatch, "/claims/"+claimID, map[string]string{"status": "received"}, ngo.Token)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "received", field(body, "claim", "status"))
	assert.Equal(t, models.KarmaClaimReceived, env.karma(donor))

	code, _ = env.do(http.MethodPatch, "/claims/"+claimID, map[string]string{"status": "claimed"}, ngo.Token)
	assert.Equal(t, http.StatusConflict, code, "claims only move forward")
}

func TestDrivesAndDonations(t *testing.T) {
	env := newTestEnv(t)
	ngo := env.register("Helping Hands", "ngo@example.com", "ngo")
	donor := env.register("Ada", "ada@example.com", "user")
	stranger := env.register("Bob", "bob@example.com", "user")
	blanket := env.createItem(donor, "Wool blanket", "gift")

	code, _ := env.do(http.MethodPost, "/drives", map[string]string{"title": "Winter drive", "description": "Coats"}, donor.Token)
	assert.Equal(t, http.StatusForbidden, code)

	code, body := env.do(http.MethodPost, "/drives", map[string]interface{}{
		"title": "Winter drive", "description": "Coats and blankets", "tags": []string{"winter"},
	}, ngo.Token)
	require.Equal(t, http.StatusCreated, code, body)
	driveID := field(body, "drive", "id").(string)
	assert.Equal(t, "medium", field(body, "drive", "priority"))
	assert.Equal(t, "active", field(body, "drive", "status"))

	_, body = env.do(http.MethodGet, "/drives", nil, "")
	assert.Len(t, body["drives"], 1)
	_, body = env.do(http.MethodGet, "/drives?priority=high", nil, "")
	assert.Empty(t, body["drives"])

	code, _ = env.do(http.MethodPost, "/donations", map[string]interface{}{"ngo_drive_id": driveID, "item_id": blanket}, stranger.Token)
	assert.Equal(t, http.StatusForbidden, code, "only your own items can be donated")

	code, body = env.do(http.MethodPost, "/donations", map[string]interface{}{"ngo_drive_id": driveID, "item_id": blanket}, donor.Token)
	require.Equal(t, http.StatusCreated, code, body)
	donationID := field(body, "donation", "id").(string)
	assert.Equal(t, "pledged", field(body, "donation", "status"))

	_, body = env.do(http.MethodGet, "/donations", nil, donor.Token)
	assert.Len(t, body["donations"], 1)
	_, body = env.do(http.MethodGet, "/drives/"+driveID+"/donations", nil, ngo.Token)
	assert.Len(t, body["donations"], 1)

	code, _ = env.do(http.MethodPatch, "/donations/"+donationID, map[string]string{"status": "received"}, ngo.Token)
	assert.Equal(t, http.StatusConflict, code, "a pledge must be delivered before it is received")
	assert.Equal(t, 0, env.karma(donor))
	code, _ = env.do(http.MethodPatch, "/donations/"+donationID, map[string]string{"status": "delivered"}, ngo.Token)
	assert.Equal(t, http.StatusForbidden, code, "the donor marks delivered")
	code, _ = env.do(http.MethodPatch, "/donations/"+donationID, map[string]string{"status": "delivered"}, donor.Token)
	require.Equal(t, http.StatusOK, code)
	code, _ = env.do(http.MethodPatch, "/donations/"+donationID, map[string]string{"status": "received"}, donor.Token)
	assert.Equal(t, http.StatusForbidden, code, "the NGO marks received")
	code, _ = env.do(http.MethodPatch, "/donations/"+donationID, map[string]string{"status": "received"}, ngo.Token)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.KarmaDonationReceived, env.karma(donor))

	code, body = env.do(http.MethodPatch, "/drives/"+driveID, map[string]interface{}{"progress": 140}, ngo.Token)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, float64(100), field(body, "drive", "progress"))
	assert.Equal(t, "completed", field(body, "drive", "status"))

	_, body = env.do(http.MethodGet, "/drives", nil, "")
	assert.Empty(t, body["drives"], "completed drives leave the default list")
	_, body = env.do(http.MethodGet, "/drives/mine", nil, ngo.Token)
	assert.Len(t, body["drives"], 1)

	code, _ = env.do(http.MethodPost, "/donations", map[string]interface{}{"ngo_drive_id": driveID}, donor.Token)
	assert.Equal(t, http.StatusConflict, code, "completed drives take no pledges")
}
