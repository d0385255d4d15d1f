package stv

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
)

var ErrInvalidSeats = errors.New("seats must be between 1 and the number of candidates")

type Action string

const (
	ActionElected          Action = "elected"
	ActionEliminated       Action = "eliminated"
	ActionElectedRemaining Action = "elected_remaining"
)

type Round struct {
	Number     int                `json:"round"`
	Tallies    map[string]float64 `json:"tallies"`
	Action     Action             `json:"action"`
	Candidates []string           `json:"candidates"`
	Surplus    float64            `json:"surplus,omitempty"`
	Transfers  map[string]float64 `json:"transfers,omitempty"`
	Exhausted  float64            `json:"exhausted"`
}

type Result struct {
	Candidates []string `json:"candidates"`
	Winners    []string `json:"winners"`
	Quota      *int     `json:"quota"`
	Rounds     []Round  `json:"rounds"`
}

// Quota is the Droop quota for ballots valid ballots and seats seats.
func Quota(ballots, seats int) int {
	return ballots/(seats+1) + 1
}

// paper is a group of identical rankings that travel together.
type paper struct {
	prefs  []string
	pos    int
	weight *big.Rat
}

func (p *paper) current() (string, bool) {
	if p.pos >= len(p.prefs) {
		return "", false
	}
	return p.prefs[p.pos], true
}

func (p *paper) advance(continuing map[string]bool) {
	for p.pos < len(p.prefs) && !continuing[p.prefs[p.pos]] {
		p.pos++
	}
}

// Tabulate counts rankings for seats winners among candidates. Preferences
// naming unknown candidates, and repeats of a candidate already ranked, are
// skipped. Rankings left empty by that are not counted.
func Tabulate(candidates []string, seats int, rankings [][]string) (*Result, error) {
	if seats < 1 || seats > len(candidates) {
		return nil, fmt.Errorf("%w: got %d seats for %d candidates", ErrInvalidSeats, seats, len(candidates))
	}

	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if known[c] {
			return nil, fmt.Errorf("duplicate candidate %q", c)
		}
		known[c] = true
	}

	papers, valid := groupPapers(known, rankings)
	result := &Result{
		Candidates: append([]string(nil), candidates...),
		Winners:    []string{},
		Rounds:     []Round{},
	}
	if valid == 0 {
		return result, nil
	}

	quota := Quota(valid, seats)
	result.Quota = &quota

	c := &count{
		candidates: candidates,
		continuing: copySet(known),
		papers:     papers,
		quota:      new(big.Rat).SetInt64(int64(quota)),
		exhausted:  new(big.Rat),
	}
	elected := c.run(seats, result)

	// report winners in ballot-paper order
	for _, name := range candidates {
		if elected[name] {
			result.Winners = append(result.Winners, name)
		}
	}
	return result, nil
}

func groupPapers(known map[string]bool, rankings [][]string) ([]*paper, int) {
	index := make(map[string]*paper)
	var papers []*paper
	valid := 0
	for _, ranking := range rankings {
		prefs := make([]string, 0, len(ranking))
		seen := make(map[string]bool, len(ranking))
		for _, name := range ranking {
			if !known[name] || seen[name] {
				continue
			}
			seen[name] = true
			prefs = append(prefs, name)
		}
		if len(prefs) == 0 {
			continue
		}
		valid++

		key := strings.Join(prefs, "\x00")
		if p, ok := index[key]; ok {
			p.weight.Add(p.weight, big.NewRat(1, 1))
			continue
		}
		p := &paper{prefs: prefs, weight: big.NewRat(1, 1)}
		index[key] = p
		papers = append(papers, p)
	}
	return papers, valid
}

type count struct {
	candidates []string
	continuing map[string]bool
	papers     []*paper
	quota      *big.Rat
	exhausted  *big.Rat
}

func (c *count) run(seats int, result *Result) map[string]bool {
	elected := make(map[string]bool, seats)

	for number := 1; len(elected) < seats; number++ {
		tallies := c.tally()
		round := Round{
			Number:  number,
			Tallies: toFloats(tallies),
		}

		remaining := seats - len(elected)
		names := c.continuingNames()
		if len(names) <= remaining {
			sort.SliceStable(names, func(i, j int) bool {
				if cmp := tallies[names[i]].Cmp(tallies[names[j]]); cmp != 0 {
					return cmp > 0
				}
				return names[i] < names[j]
			})
			for _, name := range names {
				elected[name] = true
				delete(c.continuing, name)
			}
			round.Action = ActionElectedRemaining
			round.Candidates = names
			round.Exhausted = ratFloat(c.exhausted)
			result.Rounds = append(result.Rounds, round)
			break
		}

		if best := highest(names, tallies); tallies[best].Cmp(c.quota) >= 0 {
			elected[best] = true
			delete(c.continuing, best)

			surplus := new(big.Rat).Sub(tallies[best], c.quota)
			round.Action = ActionElected
			round.Candidates = []string{best}
			round.Surplus = ratFloat(surplus)

			if len(elected) < seats && surplus.Sign() > 0 {
				factor := new(big.Rat).Quo(surplus, tallies[best])
				round.Transfers = c.transfer(best, factor)
			}
		} else {
			worst := lowest(names, tallies)
			delete(c.continuing, worst)

			round.Action = ActionEliminated
			round.Candidates = []string{worst}
			round.Transfers = c.transfer(worst, nil)
		}

		round.Exhausted = ratFloat(c.exhausted)
		result.Rounds = append(result.Rounds, round)
	}
	return elected
}

// tally sums the weights of papers by their current continuing preference.
func (c *count) tally() map[string]*big.Rat {
	tallies := make(map[string]*big.Rat, len(c.continuing))
	for name := range c.continuing {
		tallies[name] = new(big.Rat)
	}
	for _, p := range c.papers {
		name, ok := p.current()
		if !ok {
			continue
		}
		// papers left on a candidate elected with no surplus have no value
		if t, counting := tallies[name]; counting {
			t.Add(t, p.weight)
		}
	}
	return tallies
}

// transfer moves every paper counting for from to its next continuing
// preference, scaling its weight by factor when factor is not nil.
func (c *count) transfer(from string, factor *big.Rat) map[string]float64 {
	moved := make(map[string]*big.Rat)
	for _, p := range c.papers {
		if name, ok := p.current(); !ok || name != from {
			continue
		}
		if factor != nil {
			p.weight.Mul(p.weight, factor)
		}
		p.advance(c.continuing)
		if p.weight.Sign() == 0 {
			continue
		}
		next, ok := p.current()
		if !ok {
			c.exhausted.Add(c.exhausted, p.weight)
			continue
		}
		if moved[next] == nil {
			moved[next] = new(big.Rat)
		}
		moved[next].Add(moved[next], p.weight)
	}
	if len(moved) == 0 {
		return nil
	}
	return toFloats(moved)
}

func (c *count) continuingNames() []string {
	names := make([]string, 0, len(c.continuing))
	for _, name := range c.candidates {
		if c.continuing[name] {
			names = append(names, name)
		}
	}
	return names
}

func highest(names []string, tallies map[string]*big.Rat) string {
	best := ""
	for _, name := range names {
		if best == "" {
			best = name
			continue
		}
		cmp := tallies[name].Cmp(tallies[best])
		if cmp > 0 || (cmp == 0 && name < best) {
			best = name
		}
	}
	return best
}

func lowest(names []string, tallies map[string]*big.Rat) string {
	worst := ""
	for _, name := range names {
		if worst == "" {
			worst = name
			continue
		}
		cmp := tallies[name].Cmp(tallies[worst])
		if cmp < 0 || (cmp == 0 && name > worst) {
			worst = name
		}
	}
	return worst
}

func toFloats(m map[string]*big.Rat) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = ratFloat(v)
	}
	return out
}

func ratFloat(r *big.Rat) float64 {
	f, _ := r.Float64()
	return f
}

func copySet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
