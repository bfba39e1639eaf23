// Package resilience provides the fault-tolerance primitives used by the
// Kelmah HTTP client.
//
//   - Breaker: per-service circuit breaker that fails fast while a backend
//     is down and probes it again after a recovery timeout
//   - Registry: hands out one Breaker per service key
//   - Retry: retries transient failures with exponential backoff
//
// All timing goes through a clockwork.Clock so tests can drive it with a
// fake clock:
//
//	clock := clockwork.NewFakeClock()
//	reg := resilience.NewRegistry(resilience.BreakerConfig{Clock: clock})
//	br := reg.Get("https://kelmah-auth-service.onrender.com")
//
//	err := br.Execute(func() error {
//	    _, err := adapter.Do(ctx, req)
//	    return err
//	})
package resilience
