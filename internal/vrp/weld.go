package vrp

// weld merges stops sharing a non-empty AtomicGroup into a single combined
// stop, summing demand and narrowing the service window to the
// intersection of every member's window. spec.md §4.2 requires every
// order for the same customer on the same date to land on the same
// vehicle at the same position — welding before insertion makes that
// invariant automatic rather than a constraint the search has to enforce.
func weld(stops []Stop) (welded []Stop, members map[string][]string) {
	members = make(map[string][]string)
	byGroup := make(map[string]int) // group -> index into welded
	welded = make([]Stop, 0, len(stops))

	for _, s := range stops {
		if s.AtomicGroup == "" {
			welded = append(welded, s)
			members[s.ID] = []string{s.ID}
			continue
		}
		if idx, ok := byGroup[s.AtomicGroup]; ok {
			w := welded[idx]
			w.Demand = w.Demand.Add(s.Demand)
			w.ServiceMinutes += s.ServiceMinutes
			if s.Window.OpenMinute > w.Window.OpenMinute {
				w.Window.OpenMinute = s.Window.OpenMinute
			}
			if s.Window.CloseMinute < w.Window.CloseMinute {
				w.Window.CloseMinute = s.Window.CloseMinute
			}
			welded[idx] = w
			members[w.ID] = append(members[w.ID], s.ID)
			continue
		}
		groupStop := s
		groupStop.ID = "group:" + s.AtomicGroup
		byGroup[s.AtomicGroup] = len(welded)
		welded = append(welded, groupStop)
		members[groupStop.ID] = []string{s.ID}
	}
	return welded, members
}

// unweld expands a welded stop id back into its original member stop ids,
// all scheduled at the same arrival minute since they share a position.
func unweld(members map[string][]string, stopID string, minute int) []StopAssignment {
	ids, ok := members[stopID]
	if !ok {
		return []StopAssignment{{StopID: stopID, ScheduledArrivalMinute: minute}}
	}
	out := make([]StopAssignment, len(ids))
	for i, id := range ids {
		out[i] = StopAssignment{StopID: id, ScheduledArrivalMinute: minute}
	}
	return out
}
