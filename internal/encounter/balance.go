package encounter

import (
	"math"

	"github.com/lorekeeperhq/lorekeeper/internal/store"
)

// Balance difficulty thresholds on the enemy/party power ratio.
const (
	ratioEasy   = 0.6
	ratioMedium = 1.0
	ratioHard   = 1.5
)

// BalanceReport is the outcome of a balance analysis.
type BalanceReport struct {
	PartyPower      float64          `json:"party_power"`
	EnemyPower      float64          `json:"enemy_power"`
	PowerRatio      float64          `json:"power_ratio"`
	Difficulty      store.Difficulty `json:"estimated_difficulty"`
	SurvivalChance  float64          `json:"survival_chance"`
	EstimatedRounds int              `json:"estimated_rounds"`
	Recommendations []string         `json:"recommendations,omitempty"`
}

// PartyPower scores the party: half its total hit points plus ten points per
// member per average level.
func PartyPower(party []*store.Character) float64 {
	if len(party) == 0 {
		return 0
	}
	totalHP := 0
	totalLevel := 0
	for _, c := range party {
		totalHP += c.HPCurrent
		totalLevel += c.Level
	}
	avgLevel := float64(totalLevel) / float64(len(party))
	return float64(totalHP)*0.5 + avgLevel*float64(len(party))*10
}

// EnemyPower scores the opposition: per enemy, half max hit points plus
// twice armor class, plus five points per special ability.
func EnemyPower(enemies []store.Enemy) float64 {
	power := 0.0
	for _, e := range enemies {
		power += float64(e.HPMax)*0.5 + float64(e.ArmorClass)*2 + 5*float64(len(e.SpecialAbilities))
	}
	return power
}

// AnalyzeBalance estimates how an encounter will go for the party.
func AnalyzeBalance(party []*store.Character, enemies []store.Enemy) BalanceReport {
	partyPower := PartyPower(party)
	enemyPower := EnemyPower(enemies)

	ratio := math.Inf(1)
	if partyPower > 0 {
		ratio = enemyPower / partyPower
	}

	var (
		difficulty store.Difficulty
		survival   float64
	)
	switch {
	case ratio < ratioEasy:
		difficulty, survival = store.DifficultyEasy, 0.95
	case ratio < ratioMedium:
		difficulty, survival = store.DifficultyMedium, 0.85
	case ratio < ratioHard:
		difficulty, survival = store.DifficultyHard, 0.70
	default:
		difficulty, survival = store.DifficultyDeadly, 0.50
	}

	enemyHP := 0
	for _, e := range enemies {
		enemyHP += e.HPMax
	}
	rounds := 1
	if partyPower > 0 {
		rounds = int(float64(enemyHP) / (partyPower * 0.1))
		if rounds < 1 {
			rounds = 1
		}
	}

	var recs []string
	if ratio > 1.5 {
		recs = append(recs, "Consider removing an enemy or reducing HP")
	}
	if ratio < 0.5 {
		recs = append(recs, "Consider adding enemies or increasing difficulty")
	}
	if rounds > 10 {
		recs = append(recs, "Combat may be too long - consider reducing enemy HP")
	}
	if rounds < 2 {
		recs = append(recs, "Combat may be too short - consider adding enemies")
	}

	return BalanceReport{
		PartyPower:      partyPower,
		EnemyPower:      enemyPower,
		PowerRatio:      ratio,
		Difficulty:      difficulty,
		SurvivalChance:  survival,
		EstimatedRounds: rounds,
		Recommendations: recs,
	}
}
