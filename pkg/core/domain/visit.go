package domain

import "time"

// Visit is one access event written to the analytics dataset.
type Visit struct {
	ID             string    `json:"id"`
	LinkID         string    `json:"link_id"`
	Slug           string    `json:"slug"`
	URL            string    `json:"url"`
	IP             string    `json:"ip"`
	UserAgent      string    `json:"user_agent"`
	Referer        string    `json:"referer"`
	Language       string    `json:"language"`
	SampleInterval int64     `json:"sample_interval"`
	CreatedAt      time.Time `json:"created_at"`
}

// RequestMeta is the part of an inbound request the resolver and access log need.
type RequestMeta struct {
	IP        string
	UserAgent string
	Referer   string
	Language  string
}
