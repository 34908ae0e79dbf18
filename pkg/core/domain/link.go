package domain

import (
	"strings"
	"time"
)

const linkKeyPrefix = "link:"

// Link is the record stored under "link:<slug>".
type Link struct {
	ID               string `json:"id" validate:"required,max=26"`
	URL              string `json:"url" validate:"required,url,max=2048"`
	Slug             string `json:"slug" validate:"required,max=2048"`
	Comment          string `json:"comment,omitempty" validate:"max=2048"`
	CreatedAt        int64  `json:"createdAt"`
	UpdatedAt        int64  `json:"updatedAt"`
	Expiration       *int64 `json:"expiration,omitempty"`
	ExpirationClicks *int64 `json:"expirationClicks,omitempty" validate:"omitempty,gt=0"`
	Title            string `json:"title,omitempty" validate:"max=2048"`
	Description      string `json:"description,omitempty" validate:"max=2048"`
	Image            string `json:"image,omitempty" validate:"omitempty,url,max=2048"`
	Password         string `json:"password,omitempty" validate:"max=256"`

	UTMSource   string `json:"utm_source,omitempty" validate:"max=256"`
	UTMMedium   string `json:"utm_medium,omitempty" validate:"max=256"`
	UTMCampaign string `json:"utm_campaign,omitempty" validate:"max=256"`
	UTMTerm     string `json:"utm_term,omitempty" validate:"max=256"`
	UTMContent  string `json:"utm_content,omitempty" validate:"max=256"`

	OGTitle       string `json:"og_title,omitempty" validate:"max=2048"`
	OGDescription string `json:"og_description,omitempty" validate:"max=2048"`
	OGImage       string `json:"og_image,omitempty" validate:"omitempty,url,max=2048"`
}

// LinkKey returns the store key for a slug.
func LinkKey(slug string) string {
	return linkKeyPrefix + slug
}

// SlugFromKey is the inverse of LinkKey.
func SlugFromKey(key string) (string, bool) {
	return strings.CutPrefix(key, linkKeyPrefix)
}

// Expired reports whether the time-based expiration has passed.
func (l *Link) Expired(now time.Time) bool {
	return l.Expiration != nil && *l.Expiration < now.Unix()
}

// ClickLimit returns the click expiration threshold, if one is set.
func (l *Link) ClickLimit() (int64, bool) {
	if l.ExpirationClicks == nil || *l.ExpirationClicks <= 0 {
		return 0, false
	}
	return *l.ExpirationClicks, true
}

func (l *Link) Protected() bool {
	return l.Password != ""
}

// HasOpenGraph reports whether any og_* field is set.
func (l *Link) HasOpenGraph() bool {
	return l.OGTitle != "" || l.OGDescription != "" || l.OGImage != ""
}

// UTMKeys lists the utm_* query names in the order they are applied.
var UTMKeys = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content"}

// UTMParams returns the non-empty utm_* fields keyed by their query name.
func (l *Link) UTMParams() map[string]string {
	values := []string{l.UTMSource, l.UTMMedium, l.UTMCampaign, l.UTMTerm, l.UTMContent}

	params := make(map[string]string, len(UTMKeys))
	for i, name := range UTMKeys {
		if values[i] != "" {
			params[name] = values[i]
		}
	}
	return params
}
