package redis

// KeyPrefix namespaces every linkshelf key in a shared Redis DB.
const KeyPrefix = "linkshelf:"

// Key returns the Redis key for a storage key.
func Key(name string) string {
	return KeyPrefix + name
}
