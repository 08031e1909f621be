package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashToRecord(t *testing.T) {
	t.Run("decodes every field", func(t *testing.T) {
		rec, err := HashToRecord(map[string]string{
			"id":            "0b5c3f8e-7f35-4d9e-9a43-0c7f4c6a9a11",
			"pipeline":      "target",
			"stage_id":      "nda",
			"title":         "Hooli",
			"attributes":    `{"mandate_id":"m-1"}`,
			"version":       "4",
			"updated_at_ms": "1700000000000",
		})
		require.NoError(t, err)
		assert.Equal(t, "nda", rec.StageID)
		assert.Equal(t, int64(4), rec.Version)
		assert.Equal(t, int64(1700000000000), rec.UpdatedAtMs)
		assert.Equal(t, "m-1", rec.Attr("mandate_id"))
	})

	t.Run("missing attributes decode to an empty map", func(t *testing.T) {
		rec, err := HashToRecord(map[string]string{"id": "x", "version": "1"})
		require.NoError(t, err)
		assert.NotNil(t, rec.Attributes)
	})

	t.Run("rejects malformed fields", func(t *testing.T) {
		_, err := HashToRecord(map[string]string{"version": "one"})
		assert.Contains(t, err.Error(), "invalid version field")

		_, err = HashToRecord(map[string]string{"version": "1", "attributes": "{"})
		assert.Contains(t, err.Error(), "failed to unmarshal attributes")
	})
}

func TestRecordToHash(t *testing.T) {
	hash, err := RecordToHash(&Record{ID: "x", Pipeline: "lead", StageID: "new", Version: 2})
	require.NoError(t, err)
	assert.Equal(t, "{}", hash["attributes"])
	assert.Equal(t, int64(2), hash["version"])
}

func TestSchemaKeys(t *testing.T) {
	assert.Equal(t, "lanes:acme:entity:e1", EntityKey("acme", "e1"))
	assert.Equal(t, "lanes:acme:pipeline:lead:entities", PipelineIndexKey("acme", "lead"))
	assert.Equal(t, "lanes:acme:seq", SequenceKey("acme"))
	assert.Equal(t, "lanes:acme:entity_events", EntityEventsChannel("acme"))
}
