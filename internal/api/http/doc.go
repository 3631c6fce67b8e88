/*
Package http exposes a device over a JSON/HTTP API built on gin.

Sessions are opened through an endpoint alias and addressed by their ID
afterwards. Reads return raw bytes and carry the count in X-Bytes-Read;
everything else answers with the {"success": ..., "error": ...} envelope.

	POST   /endpoints/gate0/sessions        -> {"session": {"id": "sess_..."}}
	GET    /sessions/sess_.../read?count=5  (blocks until the next write)
	POST   /sessions/sess_.../write         (body is written at the position)
	DELETE /sessions/sess_...

Error statuses: 400 bad offset or parameter, 404 unknown endpoint or
session, 408 interrupted read, 410 closed session, 503 device shut down.
*/
package http
