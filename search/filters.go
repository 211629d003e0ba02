// Package search turns marketplace query parameters into listing queries.
package search

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/sidhant-sriv/looply-api/models"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ErrInvalidFilter wraps every parse failure so handlers can answer 400.
var ErrInvalidFilter = errors.New("invalid filter")

type Sort string

const (
	SortNewest    Sort = "newest"
	SortOldest    Sort = "oldest"
	SortPriceLow  Sort = "price-low"
	SortPriceHigh Sort = "price-high"
	SortDistance  Sort = "distance"
)

var sorts = map[Sort]bool{
	SortNewest: true, SortOldest: true, SortPriceLow: true, SortPriceHigh: true, SortDistance: true,
}

// Filters is the normalized form of the marketplace search parameters.
// Empty sets mean no constraint.
type Filters struct {
	Query       string
	Categories  []string
	Modes       []models.Mode
	Conditions  []models.Condition
	OwnerTypes  []models.Role
	MinPrice    *float64
	MaxPrice    *float64
	Sort        Sort
	MaxDistance *float64
	Origin      *Point
	Status      models.ListingStatus
	Page        int
	PageSize    int
}

// Parse reads filters from query values. List parameters may be repeated
// or comma separated.
func Parse(values url.Values) (Filters, error) {
	f := Filters{
		Query:      strings.TrimSpace(strings.ReplaceAll(values.Get("q"), models.TagSeparator, " ")),
		Categories: list(values, "categories"),
		Sort:       SortNewest,
		Status:     models.ListingAvailable,
		Page:       1,
		PageSize:   DefaultPageSize,
	}

	for _, m := range list(values, "modes") {
		mode := models.Mode(m)
		if !contains(models.Modes, mode) {
			return f, fmt.Errorf("%w: unknown mode %q", ErrInvalidFilter, m)
		}
		f.Modes = append(f.Modes, mode)
	}
	for _, c := range list(values, "conditions") {
		cond := models.Condition(c)
		if !contains(models.Conditions, cond) {
			return f, fmt.Errorf("%w: unknown condition %q", ErrInvalidFilter, c)
		}
		f.Conditions = append(f.Conditions, cond)
	}
	for _, o := range list(values, "owner_types") {
		role := models.Role(o)
		if !role.Valid() {
			return f, fmt.Errorf("%w: unknown owner type %q", ErrInvalidFilter, o)
		}
		f.OwnerTypes = append(f.OwnerTypes, role)
	}

	var err error
	if f.MinPrice, err = optionalFloat(values, "min_price", 0, math.MaxFloat64); err != nil {
		return f, err
	}
	if f.MaxPrice, err = optionalFloat(values, "max_price", 0, math.MaxFloat64); err != nil {
		return f, err
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return f, fmt.Errorf("%w: min_price is above max_price", ErrInvalidFilter)
	}
	if f.MaxDistance, err = optionalFloat(values, "max_distance", 0, math.MaxFloat64); err != nil {
		return f, err
	}

	lat, err := optionalFloat(values, "lat", -90, 90)
	if err != nil {
		return f, err
	}
	lng, err := optionalFloat(values, "lng", -180, 180)
	if err != nil {
		return f, err
	}
	if (lat == nil) != (lng == nil) {
		return f, fmt.Errorf("%w: lat and lng must be given together", ErrInvalidFilter)
	}
	if lat != nil {
		f.Origin = &Point{Lat: *lat, Lng: *lng}
	}

	if s := values.Get("sort"); s != "" {
		f.Sort = Sort(s)
		if !sorts[f.Sort] {
			return f, fmt.Errorf("%w: unknown sort %q", ErrInvalidFilter, s)
		}
	}
	if f.Origin == nil && (f.Sort == SortDistance || f.MaxDistance != nil) {
		return f, fmt.Errorf("%w: distance filters need lat and lng", ErrInvalidFilter)
	}

	if s := values.Get("status"); s != "" {
		f.Status = models.ListingStatus(s)
		if !contains(models.ListingStatuses, f.Status) {
			return f, fmt.Errorf("%w: unknown status %q", ErrInvalidFilter, s)
		}
	}

	if s := values.Get("page"); s != "" {
		f.Page, err = strconv.Atoi(s)
		if err != nil || f.Page < 1 {
			return f, fmt.Errorf("%w: invalid page parameter", ErrInvalidFilter)
		}
	}
	if s := values.Get("page_size"); s != "" {
		f.PageSize, err = strconv.Atoi(s)
		if err != nil || f.PageSize < 1 || f.PageSize > MaxPageSize {
			return f, fmt.Errorf("%w: invalid page_size parameter (must be 1-100)", ErrInvalidFilter)
		}
	}

	return f, nil
}

// Apply adds the filter predicates and ordering to qry. Distance is not
// expressible here; see NeedsDistance.
func (f Filters) Apply(qry *gorm.DB) *gorm.DB {
	qry = qry.Where("status = ?", f.Status)

	if f.Query != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(f.Query)) + "%"
		qry = qry.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR tag_index LIKE ? ESCAPE '\'`, like, like, like)
	}
	if len(f.Categories) > 0 {
		qry = qry.Where("category IN ?", f.Categories)
	}
	if len(f.Modes) > 0 {
		qry = qry.Where("mode IN ?", f.Modes)
	}
	if len(f.Conditions) > 0 {
		qry = qry.Where("condition IN ?", f.Conditions)
	}
	if len(f.OwnerTypes) > 0 {
		qry = qry.Where("user_id IN (SELECT id FROM users WHERE role IN ?)", f.OwnerTypes)
	}
	// Listings without a price (gifts, wanted posts) stay in range.
	if f.MinPrice != nil {
		qry = qry.Where("price IS NULL OR price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		qry = qry.Where("price IS NULL OR price <= ?", *f.MaxPrice)
	}

	switch f.Sort {
	case SortOldest:
		qry = qry.Order("created_at ASC")
	case SortPriceLow:
		qry = qry.Order("CASE WHEN price IS NULL THEN 1 ELSE 0 END").Order("price ASC").Order("created_at DESC")
	case SortPriceHigh:
		qry = qry.Order("CASE WHEN price IS NULL THEN 1 ELSE 0 END").Order("price DESC").Order("created_at DESC")
	default:
		qry = qry.Order("created_at DESC")
	}
	return qry
}

// NeedsDistance reports whether results must go through Within before
// pagination.
func (f Filters) NeedsDistance() bool {
	return f.Origin != nil && (f.Sort == SortDistance || f.MaxDistance != nil)
}

func (f Filters) Offset() int {
	return (f.Page - 1) * f.PageSize
}

func (f Filters) TotalPages(total int64) int64 {
	return (total + int64(f.PageSize) - 1) / int64(f.PageSize)
}

// CacheKey is stable for equivalent filters regardless of parameter order.
func (f Filters) CacheKey() string {
	var b strings.Builder
	fmt.Fprintf(&b, "q=%s|status=%s|sort=%s|page=%d|size=%d", strings.ToLower(f.Query), f.Status, f.Sort, f.Page, f.PageSize)
	fmt.Fprintf(&b, "|cat=%s", joinSorted(f.Categories))
	fmt.Fprintf(&b, "|mode=%s", joinSorted(f.Modes))
	fmt.Fprintf(&b, "|cond=%s", joinSorted(f.Conditions))
	fmt.Fprintf(&b, "|owner=%s", joinSorted(f.OwnerTypes))
	fmt.Fprintf(&b, "|min=%s|max=%s|dist=%s", floatKey(f.MinPrice), floatKey(f.MaxPrice), floatKey(f.MaxDistance))
	if f.Origin != nil {
		fmt.Fprintf(&b, "|at=%g,%g", f.Origin.Lat, f.Origin.Lng)
	}

	h := sha1.New()
	h.Write([]byte(b.String()))
	return "feed:" + hex.EncodeToString(h.Sum(nil))
}

func list(values url.Values, key string) []string {
	var out []string
	seen := map[string]bool{}
	for _, raw := range values[key] {
		for _, v := range strings.Split(raw, ",") {
			v = strings.TrimSpace(v)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// optionalFloat parses a finite float within [lo, hi].
func optionalFloat(values url.Values, key string, lo, hi float64) (*float64, error) {
	s := values.Get(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < lo || v > hi {
		return nil, fmt.Errorf("%w: invalid %s", ErrInvalidFilter, key)
	}
	return &v, nil
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func joinSorted[T ~string](vals []T) string {
	s := make([]string, len(vals))
	for i, v := range vals {
		s[i] = string(v)
	}
	sort.Strings(s)
	return strings.Join(s, ",")
}

func floatKey(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
