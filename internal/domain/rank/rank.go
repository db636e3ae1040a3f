// Package rank derives progression level and rank tier from cumulative XP.
//
// Level and tier are caches over totalXP, never independent state: callers
// recompute them on every load and after every XP mutation.
package rank

// XPPerLevel is the flat XP cost of each level.
const XPPerLevel = 1000

// Tier is a named rank tier.
type Tier string

// Rank tiers, lowest to highest.
const (
	BronzeI   Tier = "Bronze I"
	BronzeII  Tier = "Bronze II"
	BronzeIII Tier = "Bronze III"
	SilverI   Tier = "Silver I"
	SilverII  Tier = "Silver II"
	SilverIII Tier = "Silver III"
	GoldI     Tier = "Gold I"
	GoldII    Tier = "Gold II"
	GoldIII   Tier = "Gold III"
	Platinum  Tier = "Platinum"
)

// threshold pairs a minimum XP with the tier it grants. Ordered descending;
// the first qualifying threshold wins.
type threshold struct {
	minXP int64
	tier  Tier
}

var thresholds = []threshold{
	{25000, Platinum},
	{15000, GoldIII},
	{10000, GoldII},
	{7500, GoldI},
	{5000, SilverIII},
	{3500, SilverII},
	{2000, SilverI},
	{1000, BronzeIII},
	{500, BronzeII},
}

// Level returns the progression level for a cumulative XP total.
func Level(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	return int(xp/XPPerLevel) + 1
}

// Of returns the rank tier for a cumulative XP total.
func Of(xp int64) Tier {
	for _, t := range thresholds {
		if xp >= t.minXP {
			return t.tier
		}
	}
	return BronzeI
}

// Ordinal returns the position of a tier in the total tier order, starting
// at 0 for Bronze I. Unknown tiers sort below Bronze I.
func Ordinal(t Tier) int {
	order := []Tier{BronzeI, BronzeII, BronzeIII, SilverI, SilverII, SilverIII, GoldI, GoldII, GoldIII, Platinum}
	for i, candidate := range order {
		if t == candidate {
			return i
		}
	}
	return -1
}
