// Package dice implements the deterministic dice resolver used by encounter
// resolution and the public dice endpoints.
//
// Notation follows the usual tabletop form [count]d<sides>[±mod], e.g.
// "2d6+3", "d20", "4d8-1". Only the standard die sizes 4, 6, 8, 10, 12, 20
// and 100 are accepted, with at most 100 dice per roll.
//
// Randomness comes from an injected [IntSource]; production code uses the
// auto-seeded [math/rand/v2] generator while tests inject a scripted sequence.
package dice

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"sort"
	"strconv"

	"github.com/lorekeeperhq/lorekeeper/internal/lorerr"
)

// notationRe matches [count]d<sides>[±mod]. Count and modifier are optional.
var notationRe = regexp.MustCompile(`^(\d+)?d(\d+)([+-]\d+)?$`)

// validSides is the set of accepted die sizes.
var validSides = map[int]bool{4: true, 6: true, 8: true, 10: true, 12: true, 20: true, 100: true}

// maxCount is the largest number of dice accepted in one notation.
const maxCount = 100

// IntSource yields uniform random integers in [0, n). *rand.Rand satisfies it.
type IntSource interface {
	IntN(n int) int
}

// systemSource delegates to the package-level auto-seeded generator.
type systemSource struct{}

func (systemSource) IntN(n int) int { return rand.IntN(n) }

// Notation is a parsed dice expression.
type Notation struct {
	Count    int
	Sides    int
	Modifier int
}

// String renders the notation back to its canonical textual form.
func (n Notation) String() string {
	s := fmt.Sprintf("%dd%d", n.Count, n.Sides)
	switch {
	case n.Modifier > 0:
		s += fmt.Sprintf("+%d", n.Modifier)
	case n.Modifier < 0:
		s += strconv.Itoa(n.Modifier)
	}
	return s
}

// Parse validates and decomposes a dice notation string.
func Parse(notation string) (Notation, error) {
	m := notationRe.FindStringSubmatch(notation)
	if m == nil {
		return Notation{}, fmt.Errorf("dice: invalid notation %q: %w", notation, lorerr.ErrInvalidInput)
	}

	count := 1
	if m[1] != "" {
		c, err := strconv.Atoi(m[1])
		if err != nil {
			return Notation{}, fmt.Errorf("dice: invalid count in %q: %w", notation, lorerr.ErrInvalidInput)
		}
		count = c
	}
	if count < 1 || count > maxCount {
		return Notation{}, fmt.Errorf("dice: count %d out of range [1, %d]: %w", count, maxCount, lorerr.ErrInvalidInput)
	}

	sides, err := strconv.Atoi(m[2])
	if err != nil || !validSides[sides] {
		return Notation{}, fmt.Errorf("dice: unsupported die size d%s: %w", m[2], lorerr.ErrInvalidInput)
	}

	modifier := 0
	if m[3] != "" {
		modifier, err = strconv.Atoi(m[3])
		if err != nil {
			return Notation{}, fmt.Errorf("dice: invalid modifier in %q: %w", notation, lorerr.ErrInvalidInput)
		}
	}

	return Notation{Count: count, Sides: sides, Modifier: modifier}, nil
}

// Critical marks a natural 20 or natural 1 on a single-d20 roll.
type Critical string

const (
	CritNone Critical = ""
	CritHit  Critical = "hit"
	CritFail Critical = "fail"
)

// RollResult is the outcome of evaluating one dice notation.
type RollResult struct {
	Notation string `json:"notation"`
	Rolls    []int  `json:"rolls"`
	Modifier int    `json:"modifier"`
	Total    int    `json:"total"`

	// Critical is set only for a single d20 roll: "hit" on a natural 20,
	// "fail" on a natural 1.
	Critical Critical `json:"critical,omitempty"`

	// Discarded holds the losing roll set from an advantage or disadvantage
	// roll. Nil for plain rolls.
	Discarded []int `json:"discarded,omitempty"`
}

// CheckResult is the outcome of a skill check, saving throw, or attack roll.
type CheckResult struct {
	Roll    RollResult `json:"roll"`
	DC      int        `json:"dc"`
	Success bool       `json:"success"`
}

// StatRoll is one ability score produced by [Roller.RollStats]:
// 4d6 with the lowest die dropped.
type StatRoll struct {
	Rolls   []int `json:"rolls"`
	Dropped int   `json:"dropped"`
	Total   int   `json:"total"`
}

// Roller evaluates dice notation against an injected random source.
// It is safe for concurrent use iff its IntSource is.
type Roller struct {
	src IntSource
}

// New creates a Roller using the given random source.
func New(src IntSource) *Roller {
	return &Roller{src: src}
}

// NewDefault creates a Roller backed by the process-wide auto-seeded generator.
func NewDefault() *Roller {
	return &Roller{src: systemSource{}}
}

// rollDice rolls n.Count dice and returns the individual faces and their sum
// plus the modifier.
func (r *Roller) rollDice(n Notation) (rolls []int, total int) {
	rolls = make([]int, n.Count)
	total = n.Modifier
	for i := range n.Count {
		face := r.src.IntN(n.Sides) + 1
		rolls[i] = face
		total += face
	}
	return rolls, total
}

// criticalOf evaluates the critical flag for a roll set under notation n.
func criticalOf(n Notation, rolls []int) Critical {
	if n.Count != 1 || n.Sides != 20 {
		return CritNone
	}
	switch rolls[0] {
	case 20:
		return CritHit
	case 1:
		return CritFail
	}
	return CritNone
}

// Roll evaluates a dice notation once.
func (r *Roller) Roll(notation string) (RollResult, error) {
	n, err := Parse(notation)
	if err != nil {
		return RollResult{}, err
	}
	rolls, total := r.rollDice(n)
	return RollResult{
		Notation: notation,
		Rolls:    rolls,
		Modifier: n.Modifier,
		Total:    total,
		Critical: criticalOf(n, rolls),
	}, nil
}

// RollWithAdvantage rolls the full notation twice and keeps the set with the
// higher total. The discarded set is reported alongside.
func (r *Roller) RollWithAdvantage(notation string) (RollResult, error) {
	return r.rollTwice(notation, true)
}

// RollWithDisadvantage rolls the full notation twice and keeps the set with
// the lower total.
func (r *Roller) RollWithDisadvantage(notation string) (RollResult, error) {
	return r.rollTwice(notation, false)
}

func (r *Roller) rollTwice(notation string, keepHigher bool) (RollResult, error) {
	n, err := Parse(notation)
	if err != nil {
		return RollResult{}, err
	}

	firstRolls, firstTotal := r.rollDice(n)
	secondRolls, secondTotal := r.rollDice(n)

	kept, discarded, total := firstRolls, secondRolls, firstTotal
	if (secondTotal > firstTotal) == keepHigher && secondTotal != firstTotal {
		kept, discarded, total = secondRolls, firstRolls, secondTotal
	}

	return RollResult{
		Notation:  notation,
		Rolls:     kept,
		Modifier:  n.Modifier,
		Total:     total,
		Critical:  criticalOf(n, kept),
		Discarded: discarded,
	}, nil
}

// rollD20 performs a 1d20+modifier roll in the given advantage mode.
// Advantage and disadvantage supplied together cancel to a plain roll.
func (r *Roller) rollD20(modifier int, advantage, disadvantage bool) (RollResult, error) {
	notation := Notation{Count: 1, Sides: 20, Modifier: modifier}.String()
	switch {
	case advantage && !disadvantage:
		return r.RollWithAdvantage(notation)
	case disadvantage && !advantage:
		return r.RollWithDisadvantage(notation)
	default:
		return r.Roll(notation)
	}
}

// SkillCheck rolls 1d20+modifier against dc. Success means total ≥ dc.
func (r *Roller) SkillCheck(dc, modifier int, advantage, disadvantage bool) (CheckResult, error) {
	roll, err := r.rollD20(modifier, advantage, disadvantage)
	if err != nil {
		return CheckResult{}, err
	}
	return CheckResult{Roll: roll, DC: dc, Success: roll.Total >= dc}, nil
}

// SavingThrow is identical to [Roller.SkillCheck].
func (r *Roller) SavingThrow(dc, modifier int, advantage, disadvantage bool) (CheckResult, error) {
	return r.SkillCheck(dc, modifier, advantage, disadvantage)
}

// AttackRoll rolls 1d20+modifier against armor class. A natural 20 always
// hits and a natural 1 always misses, regardless of the totals.
func (r *Roller) AttackRoll(ac, modifier int, advantage, disadvantage bool) (CheckResult, error) {
	res, err := r.SkillCheck(ac, modifier, advantage, disadvantage)
	if err != nil {
		return CheckResult{}, err
	}
	switch res.Roll.Critical {
	case CritHit:
		res.Success = true
	case CritFail:
		res.Success = false
	}
	return res, nil
}

// Initiative rolls 1d20+modifier for turn-order placement.
func (r *Roller) Initiative(modifier int, advantage, disadvantage bool) (RollResult, error) {
	return r.rollD20(modifier, advantage, disadvantage)
}

// RollDamage evaluates a damage notation. On a critical hit the dice count is
// doubled; the modifier is unchanged.
func (r *Roller) RollDamage(notation string, critical bool) (RollResult, error) {
	n, err := Parse(notation)
	if err != nil {
		return RollResult{}, err
	}
	if critical {
		n.Count *= 2
	}
	rolls, total := r.rollDice(n)
	return RollResult{
		Notation: n.String(),
		Rolls:    rolls,
		Modifier: n.Modifier,
		Total:    total,
	}, nil
}

// RollStats generates six ability scores, each 4d6 with the lowest die dropped.
func (r *Roller) RollStats() []StatRoll {
	stats := make([]StatRoll, 6)
	for i := range stats {
		rolls := make([]int, 4)
		for j := range rolls {
			rolls[j] = r.src.IntN(6) + 1
		}
		sorted := make([]int, 4)
		copy(sorted, rolls)
		sort.Ints(sorted)

		stats[i] = StatRoll{
			Rolls:   rolls,
			Dropped: sorted[0],
			Total:   sorted[1] + sorted[2] + sorted[3],
		}
	}
	return stats
}
