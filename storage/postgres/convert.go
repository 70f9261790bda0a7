package postgres

import (
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/poiesic/brieflink/core"
)

const signBit = 1 << 63

// dbID maps an unsigned ID onto BIGINT so that SQL ordering matches
// unsigned ordering.
func dbID(id core.ID) int64 {
	return int64(uint64(id) ^ signBit)
}

func fromDBID(v int64) core.ID {
	return core.ID(uint64(v) ^ signBit)
}

func dbIDPtr(id *core.ID) *int64 {
	if id == nil {
		return nil
	}
	v := dbID(*id)
	return &v
}

func fromDBIDPtr(v *int64) *core.ID {
	if v == nil {
		return nil
	}
	id := fromDBID(*v)
	return &id
}

// vec returns a value for a nullable vector column.
func vec(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

func fromVec(v *pgvector.Vector) []float32 {
	if v == nil {
		return nil
	}
	return v.Slice()
}

// likeContains builds an ILIKE pattern matching s anywhere, with wildcard
// characters in s escaped.
func likeContains(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
