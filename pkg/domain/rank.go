package domain

import (
	"strings"

	dErrors "rankgate/pkg/domain-errors"
)

// Rank is the privilege tier unlocked by a verified Rank Card. Members carry
// a derived rank; forums carry a required rank.
//
// Usage: construct via ParseRank at trust boundaries; direct casting bypasses
// validation, so aggregates re-check IsValid before storing a rank.
type Rank string

// Ranks from lowest to highest privilege.
const (
	RankNewbieVillage      Rank = "NEWBIE_VILLAGE"
	RankDistinguishedPetty Rank = "DISTINGUISHED_PETTY"
	RankQuasiWealthyVIP    Rank = "QUASI_WEALTHY_VIP"
	RankLifeWinnerS        Rank = "LIFE_WINNER_S"
	RankEarthOLGraduate    Rank = "EARTH_OL_GRADUATE"
)

// rankOrder is the single source of truth for the hierarchy.
var rankOrder = map[Rank]int{
	RankNewbieVillage:      0,
	RankDistinguishedPetty: 1,
	RankQuasiWealthyVIP:    2,
	RankLifeWinnerS:        3,
	RankEarthOLGraduate:    4,
}

// rankAdjacency lists the forum ranks a member of a given rank may see: the
// member's own rank and its immediate neighbours. The ends of the hierarchy
// have a single neighbour, so this is a table rather than a level window.
var rankAdjacency = map[Rank][]Rank{
	RankEarthOLGraduate:    {RankEarthOLGraduate, RankLifeWinnerS},
	RankLifeWinnerS:        {RankEarthOLGraduate, RankLifeWinnerS, RankQuasiWealthyVIP},
	RankQuasiWealthyVIP:    {RankLifeWinnerS, RankQuasiWealthyVIP, RankDistinguishedPetty},
	RankDistinguishedPetty: {RankQuasiWealthyVIP, RankDistinguishedPetty, RankNewbieVillage},
	RankNewbieVillage:      {RankDistinguishedPetty, RankNewbieVillage},
}

// ParseRank validates external input.
//
// Errors: returns CodeInvalidRank when the value is empty or unknown.
func ParseRank(s string) (Rank, error) {
	r := Rank(strings.TrimSpace(s))
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidRank, "invalid rank: "+s)
	}
	return r, nil
}

// AllRanks returns every rank, lowest first.
func AllRanks() []Rank {
	return []Rank{
		RankNewbieVillage,
		RankDistinguishedPetty,
		RankQuasiWealthyVIP,
		RankLifeWinnerS,
		RankEarthOLGraduate,
	}
}

func (r Rank) String() string {
	return string(r)
}

// IsValid reports whether r is one of the five known ranks.
func (r Rank) IsValid() bool {
	_, ok := rankOrder[r]
	return ok
}

// Level is r's index in the hierarchy, or -1 when r is unknown.
func (r Rank) Level() int {
	level, ok := rankOrder[r]
	if !ok {
		return -1
	}
	return level
}

// IsAtLeast reports level(r) >= level(other). Unknown ranks never satisfy it.
func (r Rank) IsAtLeast(other Rank) bool {
	if !r.IsValid() || !other.IsValid() {
		return false
	}
	return r.Level() >= other.Level()
}

// AdjacentRanks returns the forum ranks visible to a member holding r.
func (r Rank) AdjacentRanks() []Rank {
	adjacent := rankAdjacency[r]
	out := make([]Rank, len(adjacent))
	copy(out, adjacent)
	return out
}

// IsAdjacentTo reports whether forumRank is in r's adjacency set.
func (r Rank) IsAdjacentTo(forumRank Rank) bool {
	for _, candidate := range rankAdjacency[r] {
		if candidate == forumRank {
			return true
		}
	}
	return false
}
