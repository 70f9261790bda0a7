package badger

import (
	"encoding/binary"

	"github.com/poiesic/brieflink/core"
	"github.com/poiesic/brieflink/storage"
)

// Key prefixes for different data types
const (
	casePrefix           = "case:"
	caseNormalizedPrefix = "casen:"
	briefPrefix          = "brief:"
	briefSourcePrefix    = "briefsrc:"
	briefCasePrefix      = "briefcase:"
	chunkPrefix          = "chunk:"
	sentencePrefix       = "sent:"
	phrasePrefix         = "phrase:"
	argumentPrefix       = "arg:"
	citationPrefix       = "cite:"
	wordPrefix           = "word:"
	rowIDPrefix          = "rowid:"
	checkpointPrefix     = "ckpt:"
)

// appendUint64 writes v in BigEndian order so lexicographic sort matches numeric sort.
func appendUint64(buf []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(buf, v)
}

// appendInt64 flips the sign bit so negative keys sort before positive ones.
func appendInt64(buf []byte, v int64) []byte {
	return appendUint64(buf, uint64(v)^(1<<63))
}

func readUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

func readInt64(b []byte) int64 {
	return int64(readUint64(b) ^ (1 << 63))
}

// makeCaseKey generates a key for a case by its numeric key.
func makeCaseKey(key int64) []byte {
	return appendInt64([]byte(casePrefix), key)
}

// makeCaseNormalizedKey generates a key for the normalized id index.
// Format: prefix:normalized:key
func makeCaseNormalizedKey(normalized string, key int64) []byte {
	buf := append([]byte(caseNormalizedPrefix), normalized...)
	buf = append(buf, ':')
	return appendInt64(buf, key)
}

// makePartialCaseNormalizedKey generates a partial key for exact normalized id lookups.
func makePartialCaseNormalizedKey(normalized string) []byte {
	buf := append([]byte(caseNormalizedPrefix), normalized...)
	return append(buf, ':')
}

// makeBriefKey generates a key for a brief by ID.
func makeBriefKey(id core.ID) []byte {
	return appendUint64([]byte(briefPrefix), uint64(id))
}

// makeBriefSourceKey generates a key for the source file index.
func makeBriefSourceKey(sourceFile string) []byte {
	return append([]byte(briefSourcePrefix), sourceFile...)
}

// makeBriefCaseKey generates a composite key for the case index.
// Format: prefix:caseKey:briefID
func makeBriefCaseKey(caseKey int64, id core.ID) []byte {
	return appendUint64(makePartialBriefCaseKey(caseKey), uint64(id))
}

// makePartialBriefCaseKey generates a partial key for case queries.
func makePartialBriefCaseKey(caseKey int64) []byte {
	return appendInt64([]byte(briefCasePrefix), caseKey)
}

// makeChildKey generates a key for a brief artifact.
// Format: prefix:briefID:n
func makeChildKey(prefix string, briefID core.ID, n int) []byte {
	return appendUint64(makePartialChildKey(prefix, briefID), uint64(n))
}

// makePartialChildKey generates a partial key covering every artifact of one kind for a brief.
func makePartialChildKey(prefix string, briefID core.ID) []byte {
	return appendUint64([]byte(prefix), uint64(briefID))
}

// makeRowIDKey generates a key resolving an embedded row's ID to its primary key.
// Format: prefix:target:id
func makeRowIDKey(target storage.EmbeddingTarget, id core.ID) []byte {
	buf := append([]byte(rowIDPrefix), target...)
	buf = append(buf, ':')
	return appendUint64(buf, uint64(id))
}

// makeCheckpointKey generates a key for processor checkpoints.
// Format: prefix:processorType:sourceFile
func makeCheckpointKey(processorType, sourceFile string) []byte {
	return append(makePartialCheckpointKey(processorType), sourceFile...)
}

// makePartialCheckpointKey generates a partial key covering one processor type.
func makePartialCheckpointKey(processorType string) []byte {
	buf := append([]byte(checkpointPrefix), processorType...)
	return append(buf, ':')
}
