package app

import "kabu-analyzer/helpers"

// ratioField extracts an optional ratio from the gateway's flat map,
// rounded to storage precision. Missing keys stay nil.
func ratioField(ratios map[string]float64, key string) *float64 {
	v, ok := ratios[key]
	if !ok {
		return nil
	}
	rounded := helpers.RoundTo(v, 2)
	return &rounded
}

// intField extracts an optional whole-number figure (market cap, revenue).
func intField(ratios map[string]float64, key string) *int64 {
	v, ok := ratios[key]
	if !ok {
		return nil
	}
	n := int64(v)
	return &n
}
