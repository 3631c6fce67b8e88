/*
Package resilience provides the circuit breaker used by the device client.

A breaker starts closed and lets calls through. When Trip reports that the
current window has gone bad it opens and rejects calls with ErrCircuitOpen
until Cooldown passes. It then lets MaxProbes calls through half-open; that
many consecutive successes close it again and any failure reopens it.

	Closed --[trip]-> Open --[cooldown]-> Half-Open --[probes ok]-> Closed
	                   ^                      |
	                   +------[failure]-------+

Which errors count as failures is up to IsFailure. The device client only
counts transport errors and 5xx responses, so a reader asking for a bad
offset never trips the breaker.

	breaker := resilience.New("gatedev", resilience.Settings{
		MaxProbes: 2,
		Cooldown:  10 * time.Second,
		IsFailure: isTransportError,
	})

	err := breaker.Do(ctx, func(ctx context.Context) error {
		return client.call(ctx)
	})
*/
package resilience
