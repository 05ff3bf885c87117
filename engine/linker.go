package engine

import (
	"database/sql"
	"strings"
	"sync"

	"github.com/nonsonwune/admitmatch/models"
)

// Reason codes for score records that could not be linked to a group.
const (
	ReasonMissingCollegeCode     = "missing-college-code"
	ReasonMissingGroupIdentifier = "missing-group-identifier"
	ReasonNoMatchingGroup        = "no-matching-group"
)

// Strategy names, reported per linked record so each fallback's contribution
// is individually observable.
const (
	StrategyGroupCode = "group-code"
	StrategyAltLabel  = "alt-group-label"
)

// LinkedRecord is a score record with its resolved group attached.
type LinkedRecord struct {
	Record   models.ScoreRecord `json:"record"`
	GroupID  string             `json:"group_id"`
	Strategy string             `json:"strategy"`
}

// UnresolvedRecord is a score record that matched no group, retained with the
// reason so coverage can be audited rather than silently degraded.
type UnresolvedRecord struct {
	Record models.ScoreRecord `json:"record"`
	Reason string             `json:"reason"`
}

// LinkResult summarizes one linking pass. Linked and Unresolved together
// account for every input record.
type LinkResult struct {
	Linked     []LinkedRecord     `json:"linked"`
	Unresolved []UnresolvedRecord `json:"unresolved"`
	ByStrategy map[string]int     `json:"by_strategy"`
	ByReason   map[string]int     `json:"by_reason"`
}

// Total returns the number of score records processed.
func (r LinkResult) Total() int {
	return len(r.Linked) + len(r.Unresolved)
}

// Coverage returns the linked fraction in [0,1], or 0 for an empty batch.
func (r LinkResult) Coverage() float64 {
	total := r.Total()
	if total == 0 {
		return 0
	}
	return float64(len(r.Linked)) / float64(total)
}

// LinkHistory matches every score record against the frozen registry using
// the ordered strategy list:
//
//  1. exact match on (collegeCode, normalize(groupCodeRaw), province, track)
//  2. exact match on (collegeCode, normalize(altGroupLabel), province, track)
//
// There is deliberately no college-only fallback: matching on college alone
// would conflate distinct majors' cutoffs under one group. Records are
// sharded across Config.WorkerCount workers; the registry is read-only, so
// workers share it without locking. Input order is preserved in the output.
func (e *Engine) LinkHistory(reg *Registry, scores []models.ScoreRecord) LinkResult {
	result := LinkResult{
		ByStrategy: make(map[string]int),
		ByReason:   make(map[string]int),
	}
	if len(scores) == 0 {
		return result
	}

	workerCount := e.config.WorkerCount
	if workerCount > len(scores) {
		workerCount = len(scores)
	}
	perWorker := (len(scores) + workerCount - 1) / workerCount

	type chunkResult struct {
		index      int
		linked     []LinkedRecord
		unresolved []UnresolvedRecord
	}

	results := make(chan chunkResult, workerCount)
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		start := i * perWorker
		if start >= len(scores) {
			break
		}
		end := start + perWorker
		if end > len(scores) {
			end = len(scores)
		}

		wg.Add(1)
		go func(index int, chunk []models.ScoreRecord) {
			defer wg.Done()
			res := chunkResult{index: index}
			for _, rec := range chunk {
				if linked, ok := resolveScoreRecord(reg, rec); ok {
					res.linked = append(res.linked, linked)
				} else {
					res.unresolved = append(res.unresolved, UnresolvedRecord{
						Record: rec,
						Reason: unresolvedReason(rec),
					})
				}
			}
			results <- res
		}(i, scores[start:end])
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	chunks := make([]chunkResult, 0, workerCount)
	for res := range results {
		chunks = append(chunks, res)
	}
	// Re-merge in shard order so output order matches input order.
	for index := 0; index < workerCount; index++ {
		for _, res := range chunks {
			if res.index != index {
				continue
			}
			result.Linked = append(result.Linked, res.linked...)
			result.Unresolved = append(result.Unresolved, res.unresolved...)
		}
	}

	for _, linked := range result.Linked {
		result.ByStrategy[linked.Strategy]++
	}
	for _, unresolved := range result.Unresolved {
		result.ByReason[unresolved.Reason]++
	}
	return result
}

// resolveScoreRecord walks the strategy list, stopping at the first match.
func resolveScoreRecord(reg *Registry, rec models.ScoreRecord) (LinkedRecord, bool) {
	collegeCode := strings.TrimSpace(rec.CollegeCode.String)
	if !rec.CollegeCode.Valid || collegeCode == "" {
		return LinkedRecord{}, false
	}

	key := GroupKey{
		CollegeCode:  collegeCode,
		Province:     strings.TrimSpace(rec.Province),
		SubjectTrack: strings.TrimSpace(rec.SubjectTrack),
	}

	if code := NormalizeGroupCode(rec.GroupCodeRaw.String); code != "" {
		key.NormalizedGroupCode = code
		if group, ok := reg.Lookup(key); ok {
			rec.GroupID = toNullString(group.ID)
			return LinkedRecord{Record: rec, GroupID: group.ID, Strategy: StrategyGroupCode}, true
		}
	}

	if code := NormalizeGroupCode(rec.AltGroupLabel.String); code != "" {
		key.NormalizedGroupCode = code
		if group, ok := reg.Lookup(key); ok {
			rec.GroupID = toNullString(group.ID)
			return LinkedRecord{Record: rec, GroupID: group.ID, Strategy: StrategyAltLabel}, true
		}
	}

	return LinkedRecord{}, false
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// unresolvedReason explains why no strategy succeeded for a record.
func unresolvedReason(rec models.ScoreRecord) string {
	if !rec.CollegeCode.Valid || strings.TrimSpace(rec.CollegeCode.String) == "" {
		return ReasonMissingCollegeCode
	}
	if NormalizeGroupCode(rec.GroupCodeRaw.String) == "" && NormalizeGroupCode(rec.AltGroupLabel.String) == "" {
		return ReasonMissingGroupIdentifier
	}
	return ReasonNoMatchingGroup
}
