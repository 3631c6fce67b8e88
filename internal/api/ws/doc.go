// Package ws streams device releases to WebSocket clients.
//
// A client connects to /stream/:name, optionally with offset, count and
// actor query parameters. The handler opens a session on that endpoint and
// answers with one JSON "system" frame naming the session. After that every
// write to the device produces one binary frame holding count bytes of the
// buffer starting at offset.
//
// The stream ends with a Going Away close frame when the device shuts down
// and silently when the client disconnects.
//
// Example Usage:
//
//	handler := ws.NewHandler(ns, logger, metrics)
//	router.GET("/stream/:name", handler.HandleConnection)
package ws
