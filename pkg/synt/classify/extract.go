package classify

// WordFeatures marks every token as present.
func WordFeatures(tokens []string) Features {
	f := make(Features, len(tokens))
	for _, t := range tokens {
		f[t] = true
	}
	return f
}

// BestWordFeatures marks the tokens that belong to best. A nil best set
// keeps every token.
func BestWordFeatures(tokens []string, best map[string]struct{}) Features {
	if best == nil {
		return WordFeatures(tokens)
	}
	f := make(Features)
	for _, t := range tokens {
		if _, ok := best[t]; ok {
			f[t] = true
		}
	}
	return f
}
