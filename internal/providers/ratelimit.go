package providers

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nerverun/nerve/internal/backoff"
)

var (
	// retryTimeRE extracts the advertised wait from vendor rate-limit
	// errors shaped like "... Please try again in 7m12s. Visit ...".
	retryTimeRE = regexp.MustCompile(`(?m)^.+try again in (.+?)\. Visit.*`)

	// connResetRE matches the transport error a dropped upstream produces.
	connResetRE = regexp.MustCompile(`(?m)^.+onnection reset by peer.*`)
)

// connResetRetry is the fixed sleep before retrying a reset connection.
const connResetRetry = 5 * time.Second

// rateLimitSlack pads the vendor-advertised wait, since their clocks and
// ours disagree by up to a second.
const rateLimitSlack = time.Second

// parseRetryTime pulls the duration out of a rate-limit error message.
// Some vendors emit fractional forms time.ParseDuration accepts directly
// ("2m3.8s"); others emit bare decimals ("3.84s") it also accepts, so no
// coarsening is needed here.
func parseRetryTime(errText string) (time.Duration, bool) {
	m := retryTimeRE.FindStringSubmatch(errText)
	if len(m) != 2 {
		return 0, false
	}
	d, err := time.ParseDuration(strings.TrimSpace(m[1]))
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

// rateLimiter is the shared rate-limit behavior every client embeds: a
// token bucket smoothing request bursts plus the reactive backoff parsed
// from vendor error text.
type rateLimiter struct {
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

// newRateLimiter builds the default limiter: one request per half second,
// burst of one. Steps are sequential so this only matters when retries and
// feature probes stack up.
func newRateLimiter() rateLimiter {
	return rateLimiter{
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		sleep:   backoff.SleepWithContext,
	}
}

// wait blocks until the token bucket admits the next request.
func (r rateLimiter) wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// checkRateLimit implements the Client.CheckRateLimit contract: sleep the
// vendor-advertised duration (plus slack) on a parsed rate-limit error,
// sleep a fixed 5 s on a reset connection, and report whether a retry
// should happen. Unknown error shapes are non-retryable.
func (r rateLimiter) checkRateLimit(ctx context.Context, errText string) bool {
	if d, ok := parseRetryTime(errText); ok {
		slog.Warn("rate limit reached for this model, retrying", "in", d)
		if err := r.sleep(ctx, d+rateLimitSlack); err != nil {
			return false
		}
		return true
	}
	if connResetRE.MatchString(errText) {
		slog.Warn("connection reset by peer, retrying", "in", connResetRetry)
		if err := r.sleep(ctx, connResetRetry); err != nil {
			return false
		}
		return true
	}
	return false
}
