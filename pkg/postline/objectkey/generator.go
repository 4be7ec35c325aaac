// Package objectkey provides strategies for naming uploaded media objects
// in blob storage.
package objectkey

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Generator defines the interface for object key generation strategies
type Generator interface {
	// GenerateKey creates an object key for one uploaded media item
	GenerateKey(mediaID uuid.UUID, fileName string) string
}

// FlatGenerator produces flat keys: media/<id>_<filename>
type FlatGenerator struct {
	Prefix string
}

func NewFlatGenerator() *FlatGenerator {
	return &FlatGenerator{Prefix: "media"}
}

func (g *FlatGenerator) GenerateKey(mediaID uuid.UUID, fileName string) string {
	name := sanitizeFileName(fileName)
	if name == "" {
		return fmt.Sprintf("%s/%s", g.Prefix, mediaID)
	}
	return fmt.Sprintf("%s/%s_%s", g.Prefix, mediaID, name)
}

// ShardedGenerator produces Git-style sharded keys so flat bucket listings
// stay balanced: media/ab/cdef1234..._filename
type ShardedGenerator struct {
	Prefix string
	// ShardLength controls how many characters form the shard directory
	ShardLength int
}

func NewShardedGenerator() *ShardedGenerator {
	return &ShardedGenerator{
		Prefix:      "media",
		ShardLength: 2,
	}
}

func (g *ShardedGenerator) GenerateKey(mediaID uuid.UUID, fileName string) string {
	id := strings.ReplaceAll(mediaID.String(), "-", "")

	shardLen := g.ShardLength
	if shardLen <= 0 || shardLen >= len(id) {
		shardLen = 2
	}

	shard := id[:shardLen]
	remaining := id[shardLen:]

	name := sanitizeFileName(fileName)
	if name == "" {
		return fmt.Sprintf("%s/%s/%s", g.Prefix, shard, remaining)
	}
	return fmt.Sprintf("%s/%s/%s_%s", g.Prefix, shard, remaining, name)
}

// sanitizeFileName strips any path components and characters that are
// unsafe in object keys.
func sanitizeFileName(fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
