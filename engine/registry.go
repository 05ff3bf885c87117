package engine

import (
	"strings"

	"github.com/google/uuid"

	"github.com/nonsonwune/admitmatch/models"
)

// Rejection reasons for quota records that cannot identify a group.
const (
	RejectMissingCollegeCode = "missing-college-code"
	RejectMissingProvince    = "missing-province"
)

// GroupKey is the natural identity of an admission group. Two records with
// the same key describe the same group regardless of how their raw codes
// were punctuated.
type GroupKey struct {
	CollegeCode         string
	NormalizedGroupCode string
	Province            string
	SubjectTrack        string
}

// KeyForQuota derives the group key of a quota record.
func KeyForQuota(rec models.QuotaRecord) GroupKey {
	return GroupKey{
		CollegeCode:         strings.TrimSpace(rec.CollegeCode),
		NormalizedGroupCode: NormalizeGroupCode(rec.GroupCodeRaw),
		Province:            strings.TrimSpace(rec.Province),
		SubjectTrack:        strings.TrimSpace(rec.SubjectTrack),
	}
}

// InvalidQuotaRecord is a quota record rejected during registry construction,
// retained with the reason so the caller can audit input quality.
type InvalidQuotaRecord struct {
	Record models.QuotaRecord `json:"record"`
	Reason string             `json:"reason"`
}

// ResolveResult summarizes one registry build.
type ResolveResult struct {
	Groups   []models.AdmissionGroup `json:"groups"`
	Rejected []InvalidQuotaRecord    `json:"rejected"`
	Created  int                     `json:"created"`
	Reused   int                     `json:"reused"`
}

// Registry is the frozen group index: built once from a cycle's quota
// records, read-only afterwards. The linker and the detail views share it
// without locking.
type Registry struct {
	byKey    map[GroupKey]*models.AdmissionGroup
	quotas   map[GroupKey][]models.QuotaRecord
	order    []GroupKey
	rejected []InvalidQuotaRecord
	created  int
	reused   int
}

// BuildRegistry groups quota records by their natural key and creates one
// AdmissionGroup per distinct key. The first-seen record in a bucket supplies
// the carried-through display fields (collegeName, rawGroupCode, groupName);
// buckets are assumed consistent on those fields. Records missing a college
// code or province are rejected and counted, never silently included.
//
// existingIDs maps keys to ids from a previous run of the same cycle; a key
// found there reuses its id, so quota and score rows keep pointing at the
// same group across reruns. Pass nil on a first run.
func BuildRegistry(records []models.QuotaRecord, existingIDs map[GroupKey]string) *Registry {
	reg := &Registry{
		byKey:  make(map[GroupKey]*models.AdmissionGroup),
		quotas: make(map[GroupKey][]models.QuotaRecord),
	}

	for _, rec := range records {
		key := KeyForQuota(rec)
		if key.CollegeCode == "" {
			reg.rejected = append(reg.rejected, InvalidQuotaRecord{Record: rec, Reason: RejectMissingCollegeCode})
			continue
		}
		if key.Province == "" {
			reg.rejected = append(reg.rejected, InvalidQuotaRecord{Record: rec, Reason: RejectMissingProvince})
			continue
		}

		if _, ok := reg.byKey[key]; !ok {
			group := models.AdmissionGroup{
				CollegeCode:         key.CollegeCode,
				CollegeName:         strings.TrimSpace(rec.CollegeName),
				NormalizedGroupCode: key.NormalizedGroupCode,
				RawGroupCode:        rec.GroupCodeRaw,
				GroupName:           rec.GroupName,
				Province:            key.Province,
				SubjectTrack:        key.SubjectTrack,
			}
			if id, ok := existingIDs[key]; ok {
				group.ID = id
				reg.reused++
			} else {
				group.ID = uuid.NewString()
				reg.created++
			}
			reg.byKey[key] = &group
			reg.order = append(reg.order, key)
		}
		reg.quotas[key] = append(reg.quotas[key], rec)
	}

	return reg
}

// RegistryFromGroups rebuilds a lookup index from already-persisted groups,
// for runs that link history without re-resolving the cycle. Raw codes are
// re-normalized, so the index stays correct even if stored codes predate a
// normalization change.
func RegistryFromGroups(groups []models.AdmissionGroup) *Registry {
	reg := &Registry{
		byKey:  make(map[GroupKey]*models.AdmissionGroup),
		quotas: make(map[GroupKey][]models.QuotaRecord),
	}
	for i := range groups {
		group := groups[i]
		key := GroupKey{
			CollegeCode:         group.CollegeCode,
			NormalizedGroupCode: NormalizeGroupCode(group.NormalizedGroupCode),
			Province:            group.Province,
			SubjectTrack:        group.SubjectTrack,
		}
		if _, ok := reg.byKey[key]; ok {
			continue
		}
		reg.byKey[key] = &group
		reg.order = append(reg.order, key)
	}
	return reg
}

// Lookup returns the group for a key, if one exists.
func (r *Registry) Lookup(key GroupKey) (models.AdmissionGroup, bool) {
	group, ok := r.byKey[key]
	if !ok {
		return models.AdmissionGroup{}, false
	}
	return *group, true
}

// Groups returns all groups in first-seen order.
func (r *Registry) Groups() []models.AdmissionGroup {
	groups := make([]models.AdmissionGroup, 0, len(r.order))
	for _, key := range r.order {
		groups = append(groups, *r.byKey[key])
	}
	return groups
}

// QuotaRecords returns the quota records bucketed under a key.
func (r *Registry) QuotaRecords(key GroupKey) []models.QuotaRecord {
	return r.quotas[key]
}

// Rejected returns the quota records excluded during construction.
func (r *Registry) Rejected() []InvalidQuotaRecord {
	return r.rejected
}

// Len returns the number of distinct groups.
func (r *Registry) Len() int {
	return len(r.order)
}

// Result flattens the registry into the resolve summary handed to callers.
func (r *Registry) Result() ResolveResult {
	return ResolveResult{
		Groups:   r.Groups(),
		Rejected: r.rejected,
		Created:  r.created,
		Reused:   r.reused,
	}
}
