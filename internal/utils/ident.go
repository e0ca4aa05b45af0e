package utils

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"

	"github.com/google/uuid"
)

// NewParticipantID returns the identifier a session announces itself
// with. Identifiers are opaque; nothing beyond uniqueness is assumed.
func NewParticipantID() string {
	return "user-" + uuid.NewString()
}

// NewRoomToken returns a memorable room token of three hyphenated
// words drawn from distinct pools, e.g. "fluffy-otter-waffle".
func NewRoomToken() string {
	pools := [][]string{adjectives, animals, dishes, nature}

	// Pick three distinct pools, one word from each.
	first := randomIndex(len(pools))
	second := (first + 1 + randomIndex(len(pools)-1)) % len(pools)
	third := second
	for third == first || third == second {
		third = randomIndex(len(pools))
	}

	return fmt.Sprintf("%s-%s-%s",
		pools[first][randomIndex(len(pools[first]))],
		pools[second][randomIndex(len(pools[second]))],
		pools[third][randomIndex(len(pools[third]))],
	)
}

// randomIndex returns a cryptographically secure random index for a
// slice of the given length.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		log.Panic("failed to generate random index:", err)
	}
	return int(n.Int64())
}
