package routes

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validatorsOnce sync.Once

// registerValidators adds the custom binding tags used by request structs:
// notblank rejects whitespace-only strings and tagset caps tag count and length.
func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = v.RegisterValidation("tagset", func(fl validator.FieldLevel) bool {
			tags, ok := fl.Field().Interface().([]string)
			if !ok || len(tags) > 20 {
				return false
			}
			for _, t := range tags {
				if t = strings.TrimSpace(t); t == "" || len(t) > 40 {
					return false
				}
			}
			return true
		})
	})
}

// cleanTags trims and de-duplicates tags, keeping their order.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

// locationInput is the location part of request bodies.
type locationInput struct {
	Address string  `json:"address" binding:"required,min=3"`
	Lat     float64 `json:"lat" binding:"omitempty,latitude"`
	Lng     float64 `json:"lng" binding:"omitempty,longitude"`
}
