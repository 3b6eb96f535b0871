// Package generator picks questions for an exam seed's blocks.
package generator

import (
	"fmt"
	"math/rand/v2"

	"github.com/pavelanni/examhelper/internal/model"
)

// Shuffler permutes n elements through swap. Implementations must produce
// every ordering with equal probability.
type Shuffler func(n int, swap func(i, j int))

// DefaultShuffler uses the global math/rand/v2 source.
func DefaultShuffler() Shuffler {
	return rand.Shuffle
}

// SeededShuffler returns a reproducible shuffler.
func SeededShuffler(seed uint64) Shuffler {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return r.Shuffle
}

// Underfill records a block that had fewer candidates than it asked for.
type Underfill struct {
	BlockIndex int      `json:"blockIndex"`
	BlockID    string   `json:"blockId"`
	Tags       []string `json:"tags"`
	Requested  int      `json:"requested"`
	Picked     int      `json:"picked"`
}

func (u Underfill) String() string {
	return fmt.Sprintf("block %d %v requested %d questions but only %d were available",
		u.BlockIndex+1, u.Tags, u.Requested, u.Picked)
}

// Result is the ordered selection plus any underfilled blocks.
type Result struct {
	QuestionIDs []string
	Underfills  []Underfill
}

// Select resolves blocks in order against pool. A question is picked at most
// once across all blocks; within a block picks keep the shuffled order.
func Select(pool []model.Question, blocks []model.QuestionBlock, shuffle Shuffler) Result {
	if shuffle == nil {
		shuffle = DefaultShuffler()
	}
	selected := make(map[string]struct{})
	res := Result{QuestionIDs: []string{}}

	for i, block := range blocks {
		want := max(block.NumberOfQuestions, 0)

		candidates := candidatesFor(pool, block, selected)
		shuffle(len(candidates), func(a, b int) {
			candidates[a], candidates[b] = candidates[b], candidates[a]
		})

		picked := candidates[:min(want, len(candidates))]
		for _, id := range picked {
			selected[id] = struct{}{}
			res.QuestionIDs = append(res.QuestionIDs, id)
		}

		if len(picked) < want {
			res.Underfills = append(res.Underfills, Underfill{
				BlockIndex: i,
				BlockID:    block.ID,
				Tags:       block.Tags,
				Requested:  want,
				Picked:     len(picked),
			})
		}
	}
	return res
}

// candidatesFor returns the ids of unselected pool questions matching the
// block's tags, each id once, in pool order.
func candidatesFor(pool []model.Question, block model.QuestionBlock, selected map[string]struct{}) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, q := range pool {
		if _, ok := selected[q.ID]; ok {
			continue
		}
		if _, ok := seen[q.ID]; ok {
			continue
		}
		if len(block.Tags) > 0 && !q.HasAnyTag(block.Tags) {
			continue
		}
		seen[q.ID] = struct{}{}
		out = append(out, q.ID)
	}
	return out
}
