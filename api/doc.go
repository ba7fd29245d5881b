// Package api exposes the task store over HTTP.
//
// Routes live under /api/v1 and speak JSON:
//
//	POST   /api/v1/tasks                create (201)
//	GET    /api/v1/tasks                list with skip/limit/status/priority (200)
//	GET    /api/v1/tasks/{id}           fetch one (200, 404)
//	PUT    /api/v1/tasks/{id}           partial update (200, 404, 422)
//	DELETE /api/v1/tasks/{id}           delete (204, 404)
//	GET    /api/v1/tasks/stats/summary  counts per status (200)
//	GET    /health                      liveness, no auth (200)
//
// Malformed JSON is 400; validation and illegal status transitions are
// 422. With an API key configured, every route except health requires
// a matching X-API-Key header (401 otherwise) and requests are rate
// limited per client (429).
package api
