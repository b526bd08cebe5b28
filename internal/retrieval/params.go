// Package retrieval tunes retrieval parameters from a requirement record,
// builds the retrieval query and runs hybrid (lexical + dense) search over the
// reference questionnaire corpus.
package retrieval

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/autosurvey/internal/prompts"
	"github.com/jonathan/autosurvey/internal/types"
)

// Base parameters and thresholds.
const (
	BaseSparseWeight = 0.3
	BaseDenseWeight  = 0.7
	BaseResultCount  = 1

	BroadSparseWeight = 0.2
	BroadDenseWeight  = 0.8
	// BroadVariableCount is the variable count above which dense search is favored.
	BroadVariableCount = 5

	wideItemCount    = 50
	widerItemCount   = 70
	wideResultCount  = 2
	widerResultCount = 3
)

var (
	numberPattern    = regexp.MustCompile(`\d[\d,]*`)
	openEndedPattern = regexp.MustCompile(`(?i)이상|or more|\+`)
)

// Tune derives retrieval parameters from a requirement record. The checks are
// ordered overwrites: the 70-rule runs after the 50-rule and wins, and the
// variable-count rule only touches the weights.
func Tune(record *types.RequirementRecord) types.RetrievalParams {
	params := types.RetrievalParams{
		SparseWeight: BaseSparseWeight,
		DenseWeight:  BaseDenseWeight,
		ResultCount:  BaseResultCount,
	}

	largest, hasNumber := largestNumber(record.RequestedItemCount)
	// An open-ended count with no figure ("이상", "or more") triggers both rules.
	openEnded := !hasNumber && openEndedPattern.MatchString(record.RequestedItemCount)

	if largest >= wideItemCount || openEnded {
		params.ResultCount = wideResultCount
	}
	if largest >= widerItemCount || openEnded {
		params.ResultCount = widerResultCount
	}
	if len(record.Variables) > BroadVariableCount {
		params.SparseWeight = BroadSparseWeight
		params.DenseWeight = BroadDenseWeight
	}
	return params
}

func largestNumber(text string) (int, bool) {
	largest, found := 0, false
	for _, token := range numberPattern.FindAllString(text, -1) {
		n, err := strconv.Atoi(strings.ReplaceAll(token, ",", ""))
		if err != nil {
			continue
		}
		found = true
		if n > largest {
			largest = n
		}
	}
	return largest, found
}

// BuildQuery assembles the natural-language retrieval query in fixed slot
// order: target population, purpose, variables, special constraints. The
// special clause is omitted when empty.
func BuildQuery(record *types.RequirementRecord) string {
	data := map[string]string{
		"Target":    record.TargetPopulation,
		"Purpose":   record.Purpose,
		"Variables": record.JoinedVariables(),
		"Special":   record.SpecialConstraints,
	}
	key := "build-query"
	if strings.TrimSpace(record.SpecialConstraints) == "" {
		key = "build-query-no-special"
	}
	return prompts.Format(prompts.MustGet("retrieval.json", key), data)
}
