// Package handlers holds the reusable pieces of the HTTP interface: the
// response envelope and error mapping, gin middleware (request id, request
// logging, panic recovery, CORS, rate limiting, bearer authentication) and
// health checks.
//
// Middleware order matters. Recovery must run inside RequestID so the
// system-error notification and the 500 response carry the request id:
//
//	r := gin.New()
//	r.Use(handlers.RequestID(log), handlers.RequestLogger(log), handlers.Recovery(log, dispatcher))
//	api := r.Group("/api/v1", handlers.Auth(verifier))
//
// Health checks run in parallel with a per-check timeout:
//
//	checker := handlers.NewCompositeHealthChecker(version)
//	checker.AddCheck("database", handlers.NewPingCheck(conn))
//	checker.AddCheck("redis", handlers.NewPingCheck(cache))
package handlers
