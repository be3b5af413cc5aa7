// Package fanout provides the webhook fan-out and digest engine for
// feedbacks.dev.
//
// Fanout is a library, not a service. Import it into your application to get
// per-project webhook endpoint configuration across four kinds (slack,
// discord, generic signed, github issues), immediate fan-out of feedback
// events, an hourly digest sweep, an append-only delivery log, and manual
// resend of logged deliveries.
//
// Key characteristics:
//   - Strongly-typed endpoint registry normalized from the stored per-project
//     config blob (legacy single-object and array shapes both accepted)
//   - HMAC-SHA256 signing of generic payloads, covering exactly the bytes sent
//   - Single-attempt deliveries with a hard 4 s timeout; no automatic retries,
//     replay happens only through the manual resend operation
//   - Composable store pattern with Postgres, SQLite, Redis, and in-memory
//     backends
//   - Per-endpoint token-bucket rate limiting
//
// Quick start:
//
//	eng, err := fanout.New(
//	    fanout.WithStore(memoryStore),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	eng.Dispatch(ctx, "proj_123", &feedback.Event{
//	    Message: "Love the new editor!",
//	    Rating:  &five,
//	})
//
//	// From a scheduled invocation:
//	eng.RunDigest(ctx)
package fanout
