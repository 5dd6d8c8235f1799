// Package shortcode generates the human-shareable codes peers exchange out
// of band to find each other's signaling channel. Codes are generated
// client-side; the relay creates a channel implicitly on first publish.
package shortcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

var codePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Generate returns a random, memorable short code.
// Format: word-word-word (e.g. "kitten-waffle-stardust"), one word from
// each list so two codes never collide on structure alone.
func Generate() string {
	return fmt.Sprintf("%s-%s-%s",
		animals[randomIndex(len(animals))],
		dishes[randomIndex(len(dishes))],
		things[randomIndex(len(things))],
	)
}

// Normalize lower-cases and trims a user-supplied code so both peers derive
// the same channel key regardless of how the code was typed.
func Normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Validate reports whether the normalized code is well formed.
func Validate(code string) error {
	code = Normalize(code)
	if code == "" {
		return fmt.Errorf("short code cannot be empty")
	}
	if !codePattern.MatchString(code) {
		return fmt.Errorf("invalid short code %q", code)
	}
	return nil
}

// randomIndex returns a cryptographically secure random index for a slice
// of the given length.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		// crypto/rand failing means the platform is broken beyond repair.
		panic(fmt.Sprintf("shortcode: random index: %v", err))
	}
	return int(n.Int64())
}
