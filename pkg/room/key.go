// Package room derives deterministic keys for two-party conversations.
package room

// Key returns the room key for the unordered pair (a, b):
// Key(a, b) == Key(b, a) for every pair. The two user ids are ordered
// lexically and joined with ":", which never appears inside a UUID.
func Key(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "dm:" + a + ":" + b
}
