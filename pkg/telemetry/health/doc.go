// Package health provides the liveness, readiness and version endpoints of
// the remoting server.
//
//   - /health: liveness, always ok while the process serves requests
//   - /ready: readiness, runs every registered check and answers 503 when
//     one fails
//   - /version: build information
//
// Checks are plain functions registered by name:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("upstream", health.UpstreamCheck(client.Stats, 5))
//	health.Register(mux, checker, health.VersionInfo{Version: "1.0.0"})
//
// Checks run concurrently and each is bounded by the checker timeout.
package health
