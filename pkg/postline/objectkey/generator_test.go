package objectkey

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatGenerator(t *testing.T) {
	g := NewFlatGenerator()
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	assert.Equal(t,
		"media/11111111-2222-3333-4444-555555555555_photo.png",
		g.GenerateKey(id, "photo.png"))

	// Path components are stripped, unsafe runes replaced.
	key := g.GenerateKey(id, "../evil/na me!.png")
	assert.NotContains(t, key, "..")
	assert.Equal(t, "media/11111111-2222-3333-4444-555555555555_na-me-.png", key)

	// Empty names still yield a usable key.
	assert.Equal(t, "media/11111111-2222-3333-4444-555555555555", g.GenerateKey(id, ""))
}

func TestShardedGenerator(t *testing.T) {
	g := NewShardedGenerator()
	id := uuid.MustParse("abcdef00-0000-0000-0000-000000000000")

	hex := strings.ReplaceAll(id.String(), "-", "")
	key := g.GenerateKey(id, "pic.jpg")
	assert.Equal(t, "media/"+hex[:2]+"/"+hex[2:]+"_pic.jpg", key)

	// Shard plus remainder reconstruct the dash-free id.
	parts := strings.Split(key, "/")
	require.Len(t, parts, 3)
	assert.Equal(t, hex, parts[1]+strings.TrimSuffix(parts[2], "_pic.jpg"))
}

func TestShardedGeneratorClampsShardLength(t *testing.T) {
	g := &ShardedGenerator{Prefix: "media", ShardLength: 99}
	id := uuid.New()

	key := g.GenerateKey(id, "f.png")
	parts := strings.Split(key, "/")
	require.Len(t, parts, 3)
	assert.Len(t, parts[1], 2)
}

func TestGeneratedKeysAreUniquePerMediaID(t *testing.T) {
	g := NewShardedGenerator()
	a := g.GenerateKey(uuid.New(), "same.png")
	b := g.GenerateKey(uuid.New(), "same.png")
	assert.NotEqual(t, a, b)
}
