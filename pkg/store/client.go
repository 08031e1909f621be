package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dyluth/lanes/pkg/pipeline"
	"github.com/redis/go-redis/v9"
)

// Client provides instance-scoped Redis operations for board entities.
// All keys and channels are automatically namespaced with the instance name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a new store client for the specified instance.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - instanceName: tenant identifier (must not be empty)
//
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// InstanceName returns the namespace this client writes to.
func (c *Client) InstanceName() string {
	return c.instanceName
}

// Put creates or replaces an entity and publishes a created or updated event.
// The stored version is the previous version plus one (1 for a new entity);
// the incoming Version is ignored. Returns the stored record.
func (c *Client) Put(ctx context.Context, r Record) (Record, error) {
	if err := r.Validate(); err != nil {
		return Record{}, fmt.Errorf("invalid record: %w", err)
	}

	key := EntityKey(c.instanceName, r.ID)
	var (
		stored      Record
		kind        EventKind
		oldPipeline string
	)

	txf := func(tx *redis.Tx) error {
		existing, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to read entity from Redis: %w", err)
		}

		stored = r
		stored.Version = 1
		kind = EventCreated
		oldPipeline = ""
		if len(existing) > 0 {
			prev, err := HashToRecord(existing)
			if err != nil {
				return fmt.Errorf("failed to deserialize entity: %w", err)
			}
			stored.Version = prev.Version + 1
			kind = EventUpdated
			oldPipeline = prev.Pipeline
		}
		stored.UpdatedAtMs = time.Now().UnixMilli()

		hash, err := RecordToHash(&stored)
		if err != nil {
			return fmt.Errorf("failed to serialize entity: %w", err)
		}

		// New entities, and entities moved to another pipeline, join the end of the index.
		var seq int64
		if oldPipeline != stored.Pipeline {
			seq, err = tx.Incr(ctx, SequenceKey(c.instanceName)).Result()
			if err != nil {
				return fmt.Errorf("failed to allocate sequence: %w", err)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, hash)
			if seq > 0 {
				if oldPipeline != "" {
					pipe.ZRem(ctx, PipelineIndexKey(c.instanceName, oldPipeline), stored.ID)
				}
				pipe.ZAdd(ctx, PipelineIndexKey(c.instanceName, stored.Pipeline), redis.Z{
					Score:  float64(seq),
					Member: stored.ID,
				})
			}
			return nil
		})
		return err
	}

	if err := c.watch(ctx, txf, key, r.ID); err != nil {
		return Record{}, err
	}

	ev := EntityEvent{Kind: kind, Record: stored}
	if oldPipeline != stored.Pipeline {
		ev.FromPipeline = oldPipeline
	}
	c.publish(ctx, ev)
	return stored, nil
}

// Get retrieves an entity by ID.
// Returns an error wrapping ErrNotFound if the entity doesn't exist.
func (c *Client) Get(ctx context.Context, entityID string) (Record, error) {
	hash, err := c.rdb.HGetAll(ctx, EntityKey(c.instanceName, entityID)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("failed to read entity from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hash) == 0 {
		return Record{}, fmt.Errorf("%w: %q", ErrNotFound, entityID)
	}

	rec, err := HashToRecord(hash)
	if err != nil {
		return Record{}, fmt.Errorf("failed to deserialize entity: %w", err)
	}
	return *rec, nil
}

// List returns every entity of a pipeline in creation order.
// Implements pipeline.Source.
func (c *Client) List(ctx context.Context, p pipeline.PipelineType) ([]Record, error) {
	ids, err := c.rdb.ZRange(ctx, PipelineIndexKey(c.instanceName, string(p)), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline index: %w", err)
	}
	if len(ids) == 0 {
		return []Record{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, EntityKey(c.instanceName, id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read entities from Redis: %w", err)
	}

	records := make([]Record, 0, len(ids))
	for i, cmd := range cmds {
		hash := cmd.Val()
		if len(hash) == 0 {
			continue // Deleted between the index read and the fetch
		}
		rec, err := HashToRecord(hash)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize entity %s: %w", ids[i], err)
		}
		records = append(records, *rec)
	}
	return records, nil
}

// CommitTransition moves an entity to another stage. Implements pipeline.Committer.
//
// The write is guarded by WATCH on the entity key. If req.ExpectedVersion is
// non-zero and differs from the stored version, or the entity changes while
// the transaction is open, the returned error wraps pipeline.ErrConflict.
// An entity that does not exist in req.Pipeline yields ErrNotFound.
func (c *Client) CommitTransition(ctx context.Context, req pipeline.CommitRequest) (Record, error) {
	key := EntityKey(c.instanceName, req.EntityID)
	var (
		updated Record
		from    string
	)

	txf := func(tx *redis.Tx) error {
		hash, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to read entity from Redis: %w", err)
		}
		if len(hash) == 0 {
			return fmt.Errorf("%w: %q", ErrNotFound, req.EntityID)
		}
		rec, err := HashToRecord(hash)
		if err != nil {
			return fmt.Errorf("failed to deserialize entity: %w", err)
		}
		if rec.Pipeline != string(req.Pipeline) {
			return fmt.Errorf("%w: %q in pipeline %q", ErrNotFound, req.EntityID, req.Pipeline)
		}
		if req.ExpectedVersion != 0 && rec.Version != req.ExpectedVersion {
			return fmt.Errorf("%w: %q is at version %d, expected %d",
				pipeline.ErrConflict, req.EntityID, rec.Version, req.ExpectedVersion)
		}

		from = rec.StageID
		updated = *rec
		updated.StageID = req.ToStageID
		updated.Version = rec.Version + 1
		updated.UpdatedAtMs = time.Now().UnixMilli()

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, map[string]interface{}{
				"stage_id":      updated.StageID,
				"version":       updated.Version,
				"updated_at_ms": updated.UpdatedAtMs,
			})
			return nil
		})
		return err
	}

	if err := c.watch(ctx, txf, key, req.EntityID); err != nil {
		return Record{}, err
	}

	c.publish(ctx, EntityEvent{Kind: EventTransitioned, Record: updated, FromStageID: from})
	return updated, nil
}

// Delete removes an entity and its index entry and publishes a deleted event.
func (c *Client) Delete(ctx context.Context, entityID string) error {
	key := EntityKey(c.instanceName, entityID)
	var deleted Record

	txf := func(tx *redis.Tx) error {
		hash, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to read entity from Redis: %w", err)
		}
		if len(hash) == 0 {
			return fmt.Errorf("%w: %q", ErrNotFound, entityID)
		}
		rec, err := HashToRecord(hash)
		if err != nil {
			return fmt.Errorf("failed to deserialize entity: %w", err)
		}
		deleted = *rec

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, PipelineIndexKey(c.instanceName, rec.Pipeline), entityID)
			return nil
		})
		return err
	}

	if err := c.watch(ctx, txf, key, entityID); err != nil {
		return err
	}

	c.publish(ctx, EntityEvent{Kind: EventDeleted, Record: deleted})
	return nil
}

// watch runs txf under WATCH and maps an aborted transaction to pipeline.ErrConflict.
func (c *Client) watch(ctx context.Context, txf func(*redis.Tx) error, key, entityID string) error {
	err := c.rdb.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: %q changed during the write", pipeline.ErrConflict, entityID)
	}
	return err
}

// publish announces a write. The write has already happened, so failures
// are logged rather than returned.
func (c *Client) publish(ctx context.Context, ev EntityEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[Store] Failed to marshal %s event for %s: %v", ev.Kind, ev.Record.ID, err)
		return
	}
	if err := c.rdb.Publish(ctx, EntityEventsChannel(c.instanceName), data).Err(); err != nil {
		log.Printf("[Store] Failed to publish %s event for %s: %v", ev.Kind, ev.Record.ID, err)
	}
}

// Subscription represents an active Pub/Sub subscription to entity events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *EntityEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of entity events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *EntityEvent {
	return s.events
}

// Errors returns the channel of subscription errors.
// The subscription continues after errors - messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeEntityEvents subscribes to entity events for this instance.
// Caller must call subscription.Close() when done.
// Context cancellation also stops the subscription.
//
// Events are delivered on a buffered channel (size 10). Redis Pub/Sub is
// at-most-once: a slow subscriber may miss events, which is why boards also
// refresh on a schedule.
func (c *Client) SubscribeEntityEvents(ctx context.Context) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, EntityEventsChannel(c.instanceName))

	// Wait for the subscription to be confirmed so no event published after return is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to entity events: %w", err)
	}

	eventsChan := make(chan *EntityEvent, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var ev EntityEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal entity event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if err means the entity does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, redis.Nil)
}
