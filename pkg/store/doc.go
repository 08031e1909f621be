// Package store provides the Redis-backed entity store behind the pipeline boards.
//
// # Overview
//
// The store is the authoritative home of every board entity. It plays three
// roles for the transition engine in pkg/pipeline:
//
//   - Source: List returns a pipeline's entities in creation order
//   - Committer: CommitTransition persists a stage change, enforcing the
//     optimistic version token
//   - Refresh signal: every write publishes an EntityEvent so that boards
//     held by other processes can rebuild
//
// # Multi-Instance Support
//
// All Redis keys and Pub/Sub channels are namespaced by instance name so that
// several CRM tenants can share one Redis server.
//
// # Usage Example
//
//	import "github.com/dyluth/lanes/pkg/store"
//
//	client, err := store.NewClient(&redis.Options{Addr: "localhost:6379"}, "acme")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	rec, err := client.Put(ctx, store.Record{
//		ID:       uuid.New().String(),
//		Pipeline: "lead",
//		StageID:  "new",
//		Title:    "Globex Corporation",
//	})
//
//	board, err := pipeline.NewBoard(pipeline.PipelineLead, registry, store.RecordAdapter{}, client)
//	board.Refresh(ctx, client)
//
// # Redis Schema
//
//	lanes:{instance}:entity:{id}                  hash, one per entity
//	lanes:{instance}:pipeline:{pipeline}:entities sorted set of entity ids, scored by creation sequence
//	lanes:{instance}:seq                          creation sequence counter
//	lanes:{instance}:entity_events                Pub/Sub channel carrying EntityEvent JSON
package store
