// Package identity issues 64-bit time-ordered ids.
//
// Layout: 41 bits of milliseconds since 2024-01-01T00:00:00Z, 10 bits of
// issuer id, 12 bits of sequence. Ids are base-10 encoded and strictly
// increasing per issuer.
package identity

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

const (
	issuerBits   = 10
	sequenceBits = 12

	maxIssuer   = (1 << issuerBits) - 1   // 1023
	maxSequence = (1 << sequenceBits) - 1 // 4095

	issuerShift    = sequenceBits
	timestampShift = issuerBits + sequenceBits

	maxTimestamp = (1 << 41) - 1
)

// Epoch is the generator's zero millisecond.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var (
	// ErrClockRegression is returned when the wall clock moved behind the
	// last issued millisecond. The generator refuses to produce ids until
	// the clock catches up.
	ErrClockRegression = errors.New("identity: wall clock moved backwards")

	// ErrMalformedID is returned by Parse for non-numeric or overflowing input.
	ErrMalformedID = errors.New("identity: malformed id")
)

// Parts is a decoded id.
type Parts struct {
	Timestamp time.Time
	Issuer    int64
	Sequence  int64
}

// Generator issues ids for a single issuer. Safe for concurrent use; issuance
// is serialized so ids from one Generator are strictly increasing.
type Generator struct {
	mu       sync.Mutex
	issuer   int64
	lastMS   int64
	sequence int64
	now      func() time.Time
}

// NewGenerator creates a generator for the given issuer id (0-1023).
func NewGenerator(issuer int64) (*Generator, error) {
	if issuer < 0 || issuer > maxIssuer {
		return nil, fmt.Errorf("identity: issuer %d out of range [0, %d]", issuer, maxIssuer)
	}
	return &Generator{issuer: issuer, now: time.Now}, nil
}

// Generate returns the next id. If the current millisecond equals the last
// used one the sequence is incremented; on sequence overflow it spins until
// the next millisecond.
func (g *Generator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().Sub(Epoch).Milliseconds()
	if ms < g.lastMS {
		return "", fmt.Errorf("%w: last=%d now=%d", ErrClockRegression, g.lastMS, ms)
	}

	if ms == g.lastMS {
		g.sequence++
		if g.sequence > maxSequence {
			for ms <= g.lastMS {
				ms = g.now().Sub(Epoch).Milliseconds()
			}
			g.sequence = 0
		}
	} else {
		g.sequence = 0
	}

	if ms > maxTimestamp {
		return "", fmt.Errorf("identity: timestamp overflow at %d ms", ms)
	}
	g.lastMS = ms

	id := uint64(ms)<<timestampShift | uint64(g.issuer)<<issuerShift | uint64(g.sequence)
	return strconv.FormatUint(id, 10), nil
}

// Parse decodes an id into its timestamp, issuer and sequence.
func Parse(id string) (Parts, error) {
	raw, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return Parts{}, fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	return Parts{
		Timestamp: Epoch.Add(time.Duration(raw>>timestampShift) * time.Millisecond),
		Issuer:    int64(raw >> issuerShift & maxIssuer),
		Sequence:  int64(raw & maxSequence),
	}, nil
}

// Timestamp returns the creation time embedded in id, or the zero time for
// malformed input.
func Timestamp(id string) time.Time {
	parts, err := Parse(id)
	if err != nil {
		return time.Time{}
	}
	return parts.Timestamp
}

// Compare totally orders two ids by their 64-bit value. Malformed ids sort
// before well-formed ones, and among themselves lexicographically.
func Compare(a, b string) int {
	av, aerr := strconv.ParseUint(a, 10, 64)
	bv, berr := strconv.ParseUint(b, 10, 64)
	switch {
	case aerr != nil && berr != nil:
		return stringsCompare(a, b)
	case aerr != nil:
		return -1
	case berr != nil:
		return 1
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

func stringsCompare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
