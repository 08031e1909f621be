// Package pipeline implements the stage-transition engine behind the kanban
// boards of the lead, mandate and target pipelines.
//
// # Overview
//
// A board groups entities into ordered stage buckets. A drag gesture requests
// moving one entity to another stage. The engine applies the move locally
// before the remote commit confirms it, and undoes it if the commit fails.
//
// # Components
//
// Registry holds the immutable, ordinal-ordered stage definitions of every
// pipeline type.
//
// Group partitions a flat entity list into a State: one bucket per stage,
// input order preserved, unknown stage ids falling back to the first stage.
//
// DragSession is the per-gesture state machine (idle, dragging, committing,
// resolved).
//
// Validator admits or rejects a candidate transition. PendingSet serializes
// transitions per entity: an entity with an outstanding commit cannot be
// moved again until the commit resolves.
//
// Mutator applies the optimistic move, issues the commit asynchronously and
// reconciles or rolls back on the outcome. ErrorChannel holds the single
// user-visible failure message.
//
// Board ties these together for one pipeline type and is the only type most
// callers need.
//
// # Usage Example
//
//	board, err := pipeline.NewBoard(pipeline.PipelineLead, registry, adapter, committer)
//	if err != nil {
//		log.Fatal(err)
//	}
//	board.Rebuild(leads)
//
//	if err := board.BeginDrag("lead-1"); err != nil {
//		return err
//	}
//	if err := board.DragOver("qualified"); err != nil {
//		return err
//	}
//	result, err := board.Drop(ctx)
//	if err != nil {
//		return err
//	}
//	fmt.Println(result.Outcome) // OutcomePending: the commit is in flight
//
//	board.Wait()
//	if msg, ok := board.Errors().Current(); ok {
//		fmt.Println(msg)
//	}
//
// # Concurrency
//
// A Board is safe for concurrent use. All mutations of its State happen under
// one lock; a pending-membership check and the matching insert happen in the
// same critical section. Commits run on their own goroutines and re-acquire
// the lock to resolve.
package pipeline
