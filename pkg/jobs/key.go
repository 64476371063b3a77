package jobs

import "strings"

// keyPrefix namespaces job records in Redis.
const keyPrefix = "activity:job:"

// Key returns the Redis key for a job ID.
//
// Example:
//
//	activity:job:6f1c2a4e-2b7d-4a8e-9a7e-0c3d5f1b2a99
func Key(id string) string {
	return keyPrefix + strings.TrimSpace(id)
}
