package tuner

import (
	"math"
	"math/rand"
	"sort"

	"strategy-tuner/internal/domain"
)

// CandidateGenerator produces candidate parameter sets from a loaded space.
type CandidateGenerator interface {
	Generate(space map[string]domain.ParamSpaceItem, count int, seed int64) []domain.Candidate
}

// RandomGenerator draws uniform step-aligned samples from each dimension.
// The same seed over the same space always yields the same candidates: space
// keys are walked in sorted order so map iteration cannot perturb the stream.
type RandomGenerator struct{}

var _ CandidateGenerator = RandomGenerator{}

// Generate produces count candidates. An empty space or non-positive count
// yields nil.
func (RandomGenerator) Generate(space map[string]domain.ParamSpaceItem, count int, seed int64) []domain.Candidate {
	if len(space) == 0 || count <= 0 {
		return nil
	}

	names := make([]string, 0, len(space))
	for name := range space {
		names = append(names, name)
	}
	sort.Strings(names)

	rng := rand.New(rand.NewSource(seed))

	candidates := make([]domain.Candidate, 0, count)
	for i := 0; i < count; i++ {
		params := make(map[string]domain.ParamValue, len(names))
		for _, name := range names {
			item := space[name]
			params[name] = draw(rng, item)
		}
		candidates = append(candidates, domain.Candidate{Params: params})
	}
	return candidates
}

// draw samples one step-aligned value from [Min, Max].
func draw(rng *rand.Rand, item domain.ParamSpaceItem) domain.ParamValue {
	steps := int64(math.Floor((item.Max-item.Min)/item.Step + 1e-9))
	if steps < 0 {
		steps = 0
	}

	v := item.Min + float64(rng.Int63n(steps+1))*item.Step
	if v > item.Max {
		v = item.Max
	}

	if item.ValueType == domain.ValueTypeInt {
		return domain.IntValue(int(math.Round(v)))
	}
	return domain.FloatValue(v)
}
