package resolution

// StatusCounts is the number of records per status. Statuses without records
// are absent. Values returned by CountSelectorsByStatus are shared between
// callers and must not be modified.
type StatusCounts map[Status]int

// Get returns the count for status, zero when absent.
func (c StatusCounts) Get(status Status) int {
	return c[status]
}

// Total returns the number of counted records.
func (c StatusCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// CountSelectorsByStatus counts every record in state grouped by status.
// Records with an unrecognised status are counted under StatusError; use
// State.Validate to reject them instead. The result is cached for the last
// *State seen, so repeated calls with an unchanged state return the same map.
var CountSelectorsByStatus = CreateSelector(countSelectorsByStatus, func(state *State) []any {
	return []any{state}
})

func countSelectorsByStatus(state *State) StatusCounts {
	counts := StatusCounts{}
	if state == nil {
		return counts
	}
	for _, table := range state.selectors {
		for _, record := range table.Values() {
			status := record.Status
			if !status.Valid() {
				status = StatusError
			}
			counts[status]++
		}
	}
	return counts
}
