package store

import "fmt"

// Redis key pattern helpers
//
// Key pattern: lanes:{instance_name}:{entity}:{id}
// Channel pattern: lanes:{instance_name}:{event_type}_events

// EntityKey returns the Redis key for an entity hash.
// Pattern: lanes:{instance_name}:entity:{entity_id}
func EntityKey(instanceName, entityID string) string {
	return fmt.Sprintf("lanes:%s:entity:%s", instanceName, entityID)
}

// PipelineIndexKey returns the Redis key for a pipeline's entity ZSET.
// Pattern: lanes:{instance_name}:pipeline:{pipeline}:entities
func PipelineIndexKey(instanceName, pipelineName string) string {
	return fmt.Sprintf("lanes:%s:pipeline:%s:entities", instanceName, pipelineName)
}

// SequenceKey returns the Redis key of the creation sequence counter.
// Pattern: lanes:{instance_name}:seq
func SequenceKey(instanceName string) string {
	return fmt.Sprintf("lanes:%s:seq", instanceName)
}

// EntityEventsChannel returns the Pub/Sub channel name for entity events.
// Pattern: lanes:{instance_name}:entity_events
func EntityEventsChannel(instanceName string) string {
	return fmt.Sprintf("lanes:%s:entity_events", instanceName)
}
