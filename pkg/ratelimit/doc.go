// Package ratelimit provides rate limiting for graph server writes.
//
// Batch inserts are cheap to produce and expensive to absorb; the limiter
// keeps the loader from overwhelming the server's write path.
//
// Available Implementations:
//
// Token Bucket:
//   - Fixed capacity bucket that refills after a specified period
//   - Suitable for burst traffic followed by quiet periods
//   - Default implementation used by the submitter pool
//
// Sliding Window:
//   - Tracks requests within a moving time window
//   - More accurate rate limiting over time
//   - Better for consistent request patterns
//
// Interface:
//
// All rate limiters implement the Limiter interface:
//   - Allow() bool - Check if a request is allowed
//   - Wait() - Block until a request is allowed
//   - Reset() - Reset the limiter state
//
// Usage:
//
//	// Sustained 600 requests per minute, bursts capped at 20
//	limiter := ratelimit.NewRequestLimiter(600, 20)
//
//	if limiter.Allow() {
//	    // Proceed with request
//	} else {
//	    // Wait for rate limit to reset
//	    limiter.Wait()
//	}
//
//	// Sliding window: 100 requests per 15 minutes
//	limiter := ratelimit.NewSlidingWindow(100, 15*time.Minute)
//
//	// Block until allowed
//	limiter.Wait()
//	// Proceed with request
package ratelimit
