package recommend

import (
	"fmt"
	"sort"
)

// Evaluate runs the full rule table over the input. Recommendations come back
// stably sorted by priority (1 first); ties keep table order. Skipped-rule
// errors are returned alongside, never instead of, the recommendations.
func Evaluate(in *Input) ([]Recommendation, []error) {
	if in == nil || in.Profile == nil {
		return nil, []error{fmt.Errorf("recommendation input requires a vehicle profile")}
	}

	var recs []Recommendation
	var skipped []error
	for _, r := range rules {
		rec, err := r.eval(in)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		if rec != nil {
			recs = append(recs, *rec)
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority < recs[j].Priority
	})
	return recs, skipped
}
