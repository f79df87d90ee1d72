package counts

// MergeIdentities folds name variants into a canonical bucket. For each
// group, counts of every present name are summed into the group's first
// name and the other names are removed. Groups with no present names
// leave t untouched.
func MergeIdentities(t Table, groups [][]string) {
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		total, found := 0, false
		for _, name := range group {
			if n, ok := t[name]; ok {
				total += n
				found = true
				delete(t, name)
			}
		}
		if found {
			t[group[0]] = total
		}
	}
}
