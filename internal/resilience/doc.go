// Package resilience provides the fault tolerance patterns used around
// delivery backends.
//
// The package supports:
//   - Circuit breakers per delivery medium, so a dead SMTP relay or webhook
//     fails fast instead of stalling every recipient of a drain
//   - Retry logic with exponential backoff and jitter for transient
//     transport failures
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.DeliveryConfig("email"))
//	err := cb.Run(func() error {
//	    return backend.Deliver(ctx, d)
//	})
//
//	err = retry.WithBackoff(ctx, retry.WebhookConfig(), func() error {
//	    return postWebhook(ctx)
//	})
package resilience
