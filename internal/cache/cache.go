package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// ArtifactType names a cacheable artifact class. Each type has its own TTL.
type ArtifactType string

const (
	ArtifactQuestions      ArtifactType = "questions"
	ArtifactDocuments      ArtifactType = "documents"
	ArtifactClassification ArtifactType = "classification"
)

// Stats is a point-in-time snapshot of cache activity.
type Stats struct {
	Backend  string
	Hits     int64
	Misses   int64
	Sets     int64
	Degraded bool
}

// Cache stores serialized artifacts keyed by fingerprint. Implementations
// never return errors: a broken cache degrades to a miss, the workflow
// regenerates the artifact and keeps going.
type Cache interface {
	Get(ctx context.Context, artifact ArtifactType, fingerprint string) ([]byte, bool)
	Set(ctx context.Context, artifact ArtifactType, fingerprint string, value []byte, ttl time.Duration)
	Stats() Stats
}

// Fingerprint derives a stable key from input text. The text is lowercased
// and whitespace-collapsed first so cosmetic edits to a project description
// still hit the same cached entry.
func Fingerprint(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func cacheKey(artifact ArtifactType, fingerprint string) string {
	return "briefing:" + string(artifact) + ":" + fingerprint
}
