// Package scoring ranks job listings against a user profile.
//
// The match score is a weighted sum over four components:
//
//	skills      40  share of the job's requirements covered by profile skills
//	location    20  preferred location (full), substring overlap (half)
//	experience  20  exact level (full), adjacent level (half)
//	keywords    20  share of preference keywords found in title/description
//
// The final score is the rounded component sum, clamped to [0,100]. Every
// component that contributes scores adds one human-readable reason, always
// in the order above. Scoring never mutates its inputs and never errors:
// an empty result is a valid outcome.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"jobmate/matching-service/internal/model"
)

// Component weights. They sum to 100, so the total needs no re-normalisation.
const (
	skillsWeight     = 40.0
	locationWeight   = 20.0
	experienceWeight = 20.0
	keywordsWeight   = 20.0
)

// Score computes the match between one profile and one job.
func Score(profile model.UserProfile, job model.JobListing) model.MatchResult {
	var (
		total   float64
		reasons []string
	)

	if pts, reason := scoreSkills(profile.Skills, job.Requirements); pts > 0 {
		total += pts
		reasons = append(reasons, reason)
	}
	if pts, reason := scoreLocation(profile.Preferences, job.Location); pts > 0 {
		total += pts
		reasons = append(reasons, reason)
	}
	if pts, reason := scoreExperience(profile.ExperienceLevel, job.ExperienceLevel); pts > 0 {
		total += pts
		reasons = append(reasons, reason)
	}
	if pts, reason := scoreKeywords(profile.Preferences.Keywords, job); pts > 0 {
		total += pts
		reasons = append(reasons, reason)
	}

	score := int(math.Round(total))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return model.MatchResult{JobID: job.ID, Score: score, Reasons: reasons}
}

// RankOptions tunes a Rank call.
type RankOptions struct {
	// Limit caps the number of results; 0 means unlimited.
	Limit int
	// ExcludeJobIDs drops listings the caller already tracks, typically
	// the set of job IDs the user has an application for.
	ExcludeJobIDs map[string]bool
}

// Rank scores every job against the profile and returns the results
// ordered by score descending, then crawledAt descending (fresher
// postings first), then job ID ascending for determinism. Listings
// containing one of the profile's red-flag terms are discarded before
// scoring.
func Rank(profile model.UserProfile, jobs []model.JobListing, opts RankOptions) []model.MatchResult {
	results := make([]model.MatchResult, 0, len(jobs))
	crawled := make(map[string]time.Time, len(jobs))
	for _, job := range jobs {
		if opts.ExcludeJobIDs[job.ID] {
			continue
		}
		if ContainsRedFlag(job.Title, job.Company, job.Description, profile.Preferences.RedFlags) {
			continue
		}
		crawled[job.ID] = job.CrawledAt
		results = append(results, Score(profile, job))
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		ci, cj := crawled[results[i].JobID], crawled[results[j].JobID]
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return results[i].JobID < results[j].JobID
	})

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results
}

// ContainsRedFlag returns true if any exclusion term appears
// (case-insensitive) anywhere in the combined title + company +
// description text.
func ContainsRedFlag(title, company, description string, redFlags []string) bool {
	if len(redFlags) == 0 {
		return false
	}
	combined := strings.ToLower(title + " " + company + " " + description)
	for _, flag := range redFlags {
		if flag == "" {
			continue
		}
		if strings.Contains(combined, strings.ToLower(flag)) {
			return true
		}
	}
	return false
}

// ─── Components ──────────────────────────────────────────────────────────────

// scoreSkills awards the skill weight proportionally to how many of the
// job's requirements the profile covers. A job without requirements, or a
// profile without skills, contributes nothing; the weight is not
// redistributed to other components.
func scoreSkills(skills, requirements []string) (float64, string) {
	required := foldSet(requirements)
	if len(required) == 0 || len(skills) == 0 {
		return 0, ""
	}

	have := foldSet(skills)
	matched := 0
	for req := range required {
		if have[req] {
			matched++
		}
	}
	if matched == 0 {
		return 0, ""
	}

	pts := skillsWeight * float64(matched) / float64(len(required))
	return pts, fmt.Sprintf("matches %d of %d required skills", matched, len(required))
}

// scoreLocation awards the full location weight on an exact preferred
// location or on a remote job when the profile opts into remote work,
// half weight on a substring overlap, zero otherwise.
func scoreLocation(prefs model.MatchPreferences, jobLocation string) (float64, string) {
	loc := strings.ToLower(strings.TrimSpace(jobLocation))
	if loc == "" {
		return 0, ""
	}

	if prefs.RemoteWork && strings.Contains(loc, "remote") {
		return locationWeight, "remote role matches remote preference"
	}
	partial := false
	for _, p := range prefs.Locations {
		pref := strings.ToLower(strings.TrimSpace(p))
		if pref == "" {
			continue
		}
		if pref == loc {
			return locationWeight, "location matches a preferred location"
		}
		if strings.Contains(loc, pref) || strings.Contains(pref, loc) {
			partial = true
		}
	}
	if partial {
		return locationWeight / 2, "location partially matches a preferred location"
	}
	return 0, ""
}

// scoreExperience awards the full weight on an exact level match and half
// weight when the levels are adjacent on the entry < mid < senior < lead
// scale. Unknown levels score zero.
func scoreExperience(profileLevel, jobLevel model.ExperienceLevel) (float64, string) {
	pr, ok := profileLevel.Rank()
	if !ok {
		return 0, ""
	}
	jr, ok := jobLevel.Rank()
	if !ok {
		return 0, ""
	}

	switch {
	case pr == jr:
		return experienceWeight, "experience level matches"
	case pr-jr == 1 || jr-pr == 1:
		return experienceWeight / 2, "experience level is adjacent"
	}
	return 0, ""
}

// scoreKeywords awards the keyword weight proportionally to how many of
// the preference keywords appear in the job title or description.
func scoreKeywords(keywords []string, job model.JobListing) (float64, string) {
	wanted := foldSet(keywords)
	if len(wanted) == 0 {
		return 0, ""
	}

	haystack := strings.ToLower(job.Title + " " + job.Description)
	found := 0
	for kw := range wanted {
		if strings.Contains(haystack, kw) {
			found++
		}
	}
	if found == 0 {
		return 0, ""
	}

	pts := keywordsWeight * float64(found) / float64(len(wanted))
	return pts, fmt.Sprintf("contains %d of %d preferred keywords", found, len(wanted))
}

// foldSet lower-cases and trims values into a set, dropping empties.
func foldSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			set[v] = true
		}
	}
	return set
}
