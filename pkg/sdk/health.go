package skinlab

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Health fetches the service health report. A degraded or failing
// service still yields a HealthStatus; err is set only when the report
// cannot be read.
func (c *Client) Health(ctx context.Context) (_ HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	var status HealthStatus
	code, err := c.do(ctx, http.MethodGet, "/health", nil, &status)
	if err != nil && code != http.StatusServiceUnavailable {
		return HealthStatus{}, fmt.Errorf("health: %w", err)
	}
	return status, nil
}
