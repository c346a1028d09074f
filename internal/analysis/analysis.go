// Package analysis derives user reputation from the activity counters kept on
// the user row. Reputation is never stored independently of the counters; it is
// recomputed whenever they change.
package analysis

import "campusvoice/backend/internal/config"

// GetWeight returns the reputation weight for a given event type.
// It returns 0 if the event type is not recognized.
func GetWeight(event string) int {
	return config.ReputationWeights[event]
}

// Reputation computes the score for a user with the given counters.
func Reputation(submitted, resolved int) int {
	if submitted < 0 {
		submitted = 0
	}
	if resolved < 0 {
		resolved = 0
	}
	return submitted*GetWeight("complaint_submitted") + resolved*GetWeight("complaint_resolved")
}
