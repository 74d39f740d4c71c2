// Package ingest turns externally scraped postings into canonical job
// listings: normalisation, in-batch deduplication, persistence and run
// tracking, plus the periodic sweep that re-deduplicates stored jobs.
package ingest

import (
	"net/url"
	"strings"
	"time"

	"jobmate/matching-service/internal/model"
)

const (
	maxRequirementLen = 200
	maxRequirements   = 10
)

// levelKeywords maps seniority markers found in postings to the
// normalised scale. Order matters: the first keyword found wins, so
// "Senior/Mid Engineer" resolves to mid, not senior.
var levelKeywords = []struct {
	keyword string
	level   model.ExperienceLevel
}{
	{"junior", model.ExperienceEntry},
	{"entry", model.ExperienceEntry},
	{"graduate", model.ExperienceEntry},
	{"intern", model.ExperienceEntry},
	{"mid-level", model.ExperienceMid},
	{"mid", model.ExperienceMid},
	{"intermediate", model.ExperienceMid},
	{"senior", model.ExperienceSenior},
	{"sr", model.ExperienceSenior},
	{"lead", model.ExperienceLead},
	{"principal", model.ExperienceLead},
	{"staff", model.ExperienceLead},
	{"director", model.ExperienceLead},
}

// NormalizeExperienceLevel resolves a posting's seniority. An explicit
// level already on the scale is trusted as-is; otherwise the level text,
// title and description are scanned for the first known marker. Postings
// with no marker default to mid.
func NormalizeExperienceLevel(explicit, title, description string) model.ExperienceLevel {
	if lvl := model.ExperienceLevel(strings.ToLower(strings.TrimSpace(explicit))); lvl != "" {
		if _, ok := lvl.Rank(); ok {
			return lvl
		}
	}

	text := strings.ToLower(explicit + " " + title + " " + description)
	for _, lk := range levelKeywords {
		if strings.Contains(text, lk.keyword) {
			return lk.level
		}
	}
	return model.ExperienceMid
}

// SanitizeURL makes scheme-less application links absolute by prefixing
// https. Empty or unparseable input is returned untouched.
func SanitizeURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.Scheme == "" {
		return "https://" + raw
	}
	return raw
}

// ParseRequirements splits free-form requirements text into at most ten
// line items, dropping blank lines and lines too long to be a bullet.
func ParseRequirements(text string) []string {
	if text == "" {
		return []string{}
	}
	return cleanRequirements(strings.Split(text, "\n"))
}

func cleanRequirements(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) > 0 && len(line) < maxRequirementLen {
			out = append(out, line)
		}
		if len(out) == maxRequirements {
			break
		}
	}
	return out
}

// NormalizePosting converts one raw scraped posting into a canonical
// listing. Postings without a title or an application URL are unusable
// (the URL is the upsert key) and come back with ok = false. Postings
// without structured requirements fall back to parsing the description.
func NormalizePosting(p model.RawPosting, now time.Time) (model.JobListing, bool) {
	title := strings.TrimSpace(p.Title)
	applicationURL := SanitizeURL(strings.TrimSpace(p.ApplicationURL))
	if title == "" || applicationURL == "" {
		return model.JobListing{}, false
	}

	location := strings.TrimSpace(p.Location)
	if location == "" {
		location = "Not specified"
	}

	requirements := cleanRequirements(p.Requirements)
	if len(requirements) == 0 {
		requirements = ParseRequirements(p.Description)
	}

	crawledAt := p.CrawledAt
	if crawledAt.IsZero() {
		crawledAt = now
	}
	crawledAt = crawledAt.UTC()

	return model.JobListing{
		Title:           title,
		Company:         strings.TrimSpace(p.Company),
		Location:        location,
		Description:     strings.TrimSpace(p.Description),
		Requirements:    requirements,
		ExperienceLevel: NormalizeExperienceLevel(p.ExperienceLevel, p.Title, p.Description),
		ApplicationURL:  applicationURL,
		IsAvailable:     true,
		CrawledAt:       crawledAt,
		UpdatedAt:       crawledAt,
	}, true
}
