package redis

import "strings"

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "stash:"

const stateSegment = "state:"

// StateKey returns the Redis key holding a persisted state entry.
func StateKey(prefix, key string) string {
	return prefix + stateSegment + key
}

// ExtractStateKey returns the state key encoded in a Redis key, or false
// when the Redis key does not belong to prefix.
func ExtractStateKey(prefix, redisKey string) (string, bool) {
	rest, ok := strings.CutPrefix(redisKey, prefix+stateSegment)
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}
