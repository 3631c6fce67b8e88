/*
Package client is a Go client for the device server's HTTP API.

Requests go through resty on top of a retryablehttp transport. Reads, stats
and listings are retried after connection errors and gateway answers. Open,
write and close are sent once: a dropped response may still mean the device
stored the write and woke its readers, so the error is returned instead.
A token bucket limits the request rate and a circuit breaker stops calling a
server that keeps failing with transport errors or 5xx answers.

Server errors come back as *APIError values that match the chardev
sentinels, or ErrInvalidParameter for a malformed request:

	data, err := c.ReadAt(ctx, sid, 0, 64)
	if errors.Is(err, chardev.ErrShutdown) {
		// server is going away
	}
*/
package client
