package changeset

// Combine fuses change-sets ordered tip to root. For every URI the first
// definition encountered wins; a tombstone as first definition removes the
// URI from the result even when a root-ward change-set defines it. Nil
// change-sets are skipped.
func Combine(tipToRoot ...*ChangeSet) []Element {
	seen := make(map[string]bool)
	var out []Element

	for _, cs := range tipToRoot {
		if cs == nil {
			continue
		}
		for _, entry := range cs.Entries() {
			if seen[entry.URI] {
				continue
			}
			seen[entry.URI] = true
			if entry.Element != nil {
				out = append(out, entry.Element)
			}
		}
	}
	return out
}
