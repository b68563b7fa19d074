package downloader

import "time"

const maxBackoff = 30 * time.Second

// backoffDelay doubles the base interval per completed attempt, capped so a
// long retry chain never stalls a worker for minutes.
func backoffDelay(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	delay := base << (attempt - 1)
	if delay > maxBackoff || delay <= 0 {
		return maxBackoff
	}
	return delay
}
