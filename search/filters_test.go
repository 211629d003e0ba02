package search

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/sidhant-sriv/looply-api/db/dbtest"
	"github.com/sidhant-sriv/looply-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestParse_Defaults(t *testing.T) {
	f, err := Parse(url.Values{})
	require.NoError(t, err)

	want := Filters{Sort: SortNewest, Status: models.ListingAvailable, Page: 1, PageSize: DefaultPageSize}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_ListsAndRanges(t *testing.T) {
	values := url.Values{
		"q":           {"  Lamp "},
		"modes":       {"sell,gift", "sell"},
		"conditions":  {"good"},
		"categories":  {"Home, Books"},
		"owner_types": {"ngo"},
		"min_price":   {"5"},
		"max_price":   {"50.5"},
		"sort":        {"price-low"},
		"page":        {"2"},
		"page_size":   {"10"},
	}
	f, err := Parse(values)
	require.NoError(t, err)

	want := Filters{
		Query:      "Lamp",
		Categories: []string{"Home", "Books"},
		Modes:      []models.Mode{models.ModeSell, models.ModeGift},
		Conditions: []models.Condition{models.ConditionGood},
		OwnerTypes: []models.Role{models.RoleNGO},
		MinPrice:   ptr(5),
		MaxPrice:   ptr(50.5),
		Sort:       SortPriceLow,
		Status:     models.ListingAvailable,
		Page:       2,
		PageSize:   10,
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("filters mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 10, f.Offset())
	assert.Equal(t, int64(3), f.TotalPages(21))
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]url.Values{
		"mode":           {"modes": {"rent"}},
		"condition":      {"conditions": {"mint"}},
		"owner":          {"owner_types": {"admin"}},
		"price":          {"min_price": {"abc"}},
		"negative price": {"max_price": {"-1"}},
		"price order":    {"min_price": {"10"}, "max_price": {"5"}},
		"sort":           {"sort": {"random"}},
		"distance":       {"sort": {"distance"}},
		"half origin":    {"lat": {"1"}},
		"nan distance":   {"max_distance": {"NaN"}, "lat": {"1"}, "lng": {"1"}},
		"inf price":      {"max_price": {"+Inf"}},
		"lat range":      {"lat": {"91"}, "lng": {"0"}},
		"lng range":      {"lat": {"0"}, "lng": {"-180.5"}},
		"status":         {"status": {"sold"}},
		"page":           {"page": {"0"}},
		"page size":      {"page_size": {"101"}},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(values)
			assert.ErrorIs(t, err, ErrInvalidFilter)
		})
	}
}

func TestCacheKey_IgnoresOrder(t *testing.T) {
	a, err := Parse(url.Values{"modes": {"sell,gift"}, "q": {"LAMP"}})
	require.NoError(t, err)
	b, err := Parse(url.Values{"modes": {"gift", "sell"}, "q": {"lamp"}})
	require.NoError(t, err)
	c, err := Parse(url.Values{"modes": {"gift"}})
	require.NoError(t, err)

	assert.Equal(t, a.CacheKey(), b.CacheKey())
	assert.NotEqual(t, a.CacheKey(), c.CacheKey())
	assert.Contains(t, a.CacheKey(), "feed:")
}

func TestApply(t *testing.T) {
	gdb := dbtest.Open(t)

	person := models.User{Email: "p@example.com", Password: "x", Role: models.RoleUser}
	ngo := models.User{Email: "n@example.com", Password: "x", Role: models.RoleNGO}
	require.NoError(t, gdb.Create(&person).Error)
	require.NoError(t, gdb.Create(&ngo).Error)

	listings := []models.Listing{
		{UserID: person.ID, Title: "Desk lamp", Mode: models.ModeSell, Price: ptr(20), Category: "Home", Condition: models.ConditionGood},
		{UserID: person.ID, Title: "Bike", Mode: models.ModeSell, Price: ptr(120), Category: "Sports", Condition: models.ConditionFair},
		{UserID: ngo.ID, Title: "Winter coats", Description: "Warm", Mode: models.ModeGift, Category: "Clothing", Condition: models.ConditionGood, Tags: []string{"charity", "arts & crafts"}},
		{UserID: person.ID, Title: "Old radio", Mode: models.ModeBarter, Category: "Electronics", Status: models.ListingInactive},
	}
	for i := range listings {
		require.NoError(t, gdb.Create(&listings[i]).Error)
	}

	titles := func(values url.Values) []string {
		t.Helper()
		f, err := Parse(values)
		require.NoError(t, err)
		var got []models.Listing
		require.NoError(t, f.Apply(gdb.Model(&models.Listing{})).Find(&got).Error)
		out := []string{}
		for _, l := range got {
			out = append(out, l.Title)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"Desk lamp", "Bike"}, titles(url.Values{"modes": {"sell"}}))
	assert.ElementsMatch(t, []string{"Winter coats"}, titles(url.Values{"q": {"CHARITY"}}))
	assert.ElementsMatch(t, []string{"Winter coats"}, titles(url.Values{"owner_types": {"ngo"}}))
	assert.ElementsMatch(t, []string{"Desk lamp", "Winter coats"}, titles(url.Values{"max_price": {"50"}}))
	assert.ElementsMatch(t, []string{"Old radio"}, titles(url.Values{"status": {"inactive"}}))
	assert.Equal(t, []string{"Desk lamp", "Bike", "Winter coats"}, titles(url.Values{"sort": {"price-low"}}))
	assert.Equal(t, []string{"Bike", "Desk lamp", "Winter coats"}, titles(url.Values{"sort": {"price-high"}}))
	assert.Empty(t, titles(url.Values{"categories": {"Books"}}))

	assert.ElementsMatch(t, []string{"Winter coats"}, titles(url.Values{"q": {"& Crafts"}}))
	assert.ElementsMatch(t, []string{"Winter coats"}, titles(url.Values{"q": {"warm"}}), "description matches")
	for _, q := range []string{`"`, ",", "%", "_", "charity arts"} {
		assert.Empty(t, titles(url.Values{"q": {q}}), q)
	}
	assert.Equal(t, []string{"Desk lamp", "Bike", "Winter coats"}, titles(url.Values{"sort": {"oldest"}}))
}

func TestDistanceKm(t *testing.T) {
	london := Point{Lat: 51.5074, Lng: -0.1278}
	paris := Point{Lat: 48.8566, Lng: 2.3522}

	assert.InDelta(t, 343.5, DistanceKm(london, paris), 1.0)
	assert.Zero(t, DistanceKm(london, london))
}

func TestWithinAndPaginate(t *testing.T) {
	at := func(title string, lat, lng float64) models.Listing {
		return models.Listing{ID: uuid.New(), Title: title, Location: models.Location{Lat: lat, Lng: lng}}
	}
	listings := []models.Listing{
		at("far", 48.8566, 2.3522),
		at("unlocated", 0, 0),
		at("near", 51.51, -0.13),
		at("mid", 51.75, -1.25),
	}

	f := Filters{Origin: &Point{Lat: 51.5074, Lng: -0.1278}, Sort: SortDistance, Page: 1, PageSize: 2}
	require.True(t, f.NeedsDistance())

	sorted := f.Within(listings)
	got := []string{}
	for _, l := range sorted {
		got = append(got, l.Title)
	}
	assert.Equal(t, []string{"near", "mid", "far", "unlocated"}, got)
	assert.Len(t, f.Paginate(sorted), 2)

	f.Page = 3
	assert.Empty(t, f.Paginate(sorted))

	f = Filters{Origin: f.Origin, MaxDistance: ptr(100), Sort: SortNewest, Page: 1, PageSize: 20}
	got = got[:0]
	for _, l := range f.Within(listings) {
		got = append(got, l.Title)
	}
	assert.Equal(t, []string{"near", "mid"}, got)
}
