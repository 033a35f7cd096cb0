package pagination

// MergeUnique appends the incoming items whose key is not already present in
// existing (or earlier in incoming). The result never holds two items with the
// same key provided existing did not. Existing is not modified.
func MergeUnique[T any, K comparable](existing, incoming []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(existing)+len(incoming))
	out := make([]T, 0, len(existing)+len(incoming))
	for _, item := range existing {
		seen[key(item)] = struct{}{}
		out = append(out, item)
	}
	for _, item := range incoming {
		k := key(item)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Dedup drops later duplicates, keeping first-seen order.
func Dedup[T any, K comparable](items []T, key func(T) K) []T {
	return MergeUnique(nil, items, key)
}
