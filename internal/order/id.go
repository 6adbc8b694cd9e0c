package order

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var idSeq atomic.Uint64

// NewID returns ORD-<unix millis>-<disambiguator>. The disambiguator joins a
// process-wide sequence with random bits, so ids stay unique within the
// process even when the clock does not move.
func NewID(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%d%s", now.UnixMilli(), idSeq.Add(1), randomSuffix())
}

func randomSuffix() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
}
