package supabase_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"draw-backend/internal/supabase"
)

func TestChunkKeys(t *testing.T) {
	keys := make([]string, 2500)
	for i := range keys {
		keys[i] = fmt.Sprintf("draw/2026-02/%04d.png", i)
	}

	chunks := supabase.ChunkKeys(keys, supabase.RemoveBatchSize)

	assert.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 1000)
	assert.Len(t, chunks[2], 500)
	assert.Equal(t, "draw/2026-02/2499.png", chunks[2][499])
}

func TestChunkKeys_Empty(t *testing.T) {
	assert.Nil(t, supabase.ChunkKeys(nil, 1000))
	assert.Nil(t, supabase.ChunkKeys([]string{"a"}, 0))
}
