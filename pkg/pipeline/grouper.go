package pipeline

// GroupReport lists the anomalies found while grouping.
type GroupReport struct {
	Fallback   []string // entity ids whose stage was unknown or empty, placed in the first stage
	Duplicates []string // repeated entity ids; only the first occurrence was kept
	Unplaced   []string // entity ids dropped because the pipeline has no stages
}

// Empty reports whether grouping found nothing to report.
func (r GroupReport) Empty() bool {
	return len(r.Fallback) == 0 && len(r.Duplicates) == 0 && len(r.Unplaced) == 0
}

// Group partitions entities into one bucket per stage in a single pass.
// Input order is preserved within each bucket. An entity whose stage id is
// empty or not in stages lands in the first stage by ordinal.
// stages must already be in ordinal order, as returned by Registry.Stages.
func Group[E any](entities []E, stages []Stage, adapter Adapter[E]) (*State, GroupReport) {
	state := newState(stages)
	var report GroupReport

	for _, e := range entities {
		id := adapter.ID(e)
		if len(stages) == 0 {
			report.Unplaced = append(report.Unplaced, id)
			continue
		}
		if _, seen := state.location[id]; seen {
			report.Duplicates = append(report.Duplicates, id)
			continue
		}

		stageID := adapter.StageID(e)
		if !state.HasStage(stageID) {
			report.Fallback = append(report.Fallback, id)
			stageID = stages[0].ID
		}
		state.insert(id, stageID)
	}

	return state, report
}
