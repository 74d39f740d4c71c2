// Package dedup collapses near-duplicate job listings into canonical
// records.
//
// Scrapers deliver the same opening many times over: once per board, once
// per crawl, with cosmetic differences in punctuation and whitespace.
// Listings are bucketed by a normalisation key (lower-cased,
// punctuation-stripped, whitespace-collapsed title|company|location) so
// only bucket-mates are ever compared, then merged when their description
// token sets overlap at 0.6 Jaccard or better. Deduplication is
// idempotent: running it on its own output changes nothing.
package dedup

import (
	"sort"
	"strings"
	"unicode"

	"jobmate/matching-service/internal/model"
)

// similarityThreshold is the minimum description token-set Jaccard ratio
// for two bucket-mates to be considered the same posting.
const similarityThreshold = 0.6

// Merge records one collapsed group for the job-store write-back.
type Merge struct {
	CanonicalID  string   `json:"canonicalId"`
	DuplicateIDs []string `json:"duplicateIds"`
}

// Key returns the normalisation key used to bucket listings before
// similarity comparison.
func Key(job model.JobListing) string {
	return normalize(job.Title) + "|" + normalize(job.Company) + "|" + normalize(job.Location)
}

// Deduplicate collapses near-duplicates in one batch. It returns the
// surviving records in the input order of their canonical member, plus a
// merge report for every group that actually collapsed. The input slice
// is never mutated.
func Deduplicate(jobs []model.JobListing) ([]model.JobListing, []Merge) {
	buckets := make(map[string][]int)
	for i, job := range jobs {
		k := Key(job)
		buckets[k] = append(buckets[k], i)
	}

	parent := make([]int, len(jobs))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	// Pairwise comparison stays inside a bucket, so cost is quadratic only
	// in bucket size, not batch size.
	for _, members := range buckets {
		if len(members) < 2 {
			continue
		}
		tokens := make([]map[string]bool, len(members))
		for i, idx := range members {
			tokens[i] = tokenSet(jobs[idx].Description)
		}
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				if jaccard(tokens[i], tokens[j]) >= similarityThreshold {
					union(members[i], members[j])
				}
			}
		}
	}

	groups := make(map[int][]int)
	for i := range jobs {
		root := find(i)
		groups[root] = append(groups[root], i)
	}

	merged := make(map[int]model.JobListing, len(groups))
	mergeAt := make(map[int]Merge)
	for _, group := range groups {
		if len(group) == 1 {
			merged[group[0]] = jobs[group[0]]
			continue
		}
		idx, rec, m := mergeGroup(jobs, group)
		merged[idx] = rec
		mergeAt[idx] = m
	}

	canonical := make([]model.JobListing, 0, len(merged))
	merges := make([]Merge, 0, len(mergeAt))
	for i := range jobs {
		rec, ok := merged[i]
		if !ok {
			continue
		}
		canonical = append(canonical, rec)
		if m, ok := mergeAt[i]; ok {
			merges = append(merges, m)
		}
	}
	return canonical, merges
}

// mergeGroup collapses one group of duplicate indices. The canonical
// record is the member with the earliest crawledAt (ties broken by ID);
// its requirements become the first-seen-order union across members, its
// updatedAt the latest of the group, and it stays available if any member
// still is.
func mergeGroup(jobs []model.JobListing, group []int) (int, model.JobListing, Merge) {
	ordered := append([]int(nil), group...)
	sort.Slice(ordered, func(a, b int) bool {
		ja, jb := jobs[ordered[a]], jobs[ordered[b]]
		if !ja.CrawledAt.Equal(jb.CrawledAt) {
			return ja.CrawledAt.Before(jb.CrawledAt)
		}
		return ja.ID < jb.ID
	})

	canonicalIdx := ordered[0]
	rec := jobs[canonicalIdx]

	var requirements []string
	seen := make(map[string]bool)
	merge := Merge{CanonicalID: rec.ID}
	for i, idx := range ordered {
		member := jobs[idx]
		for _, req := range member.Requirements {
			req = strings.TrimSpace(req)
			key := strings.ToLower(req)
			if req == "" || seen[key] {
				continue
			}
			seen[key] = true
			requirements = append(requirements, req)
		}
		if member.UpdatedAt.After(rec.UpdatedAt) {
			rec.UpdatedAt = member.UpdatedAt
		}
		if member.IsAvailable {
			rec.IsAvailable = true
		}
		if i > 0 {
			merge.DuplicateIDs = append(merge.DuplicateIDs, member.ID)
		}
	}
	rec.Requirements = requirements

	return canonicalIdx, rec, merge
}

// jaccard computes intersection over union of two token sets. Two empty
// descriptions count as identical; one empty against one non-empty does
// not match at all.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// tokenSet splits a description into lower-cased whitespace tokens.
func tokenSet(text string) map[string]bool {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// normalize lower-cases text, strips punctuation and collapses runs of
// whitespace to single spaces.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
