// Command gatectl talks to a gatedev server over HTTP or gRPC.
//
//	gatectl endpoints
//	gatectl read -count 5 gate0        # blocks until someone writes
//	gatectl write gate1 hello          # releases every parked reader
//	echo -n hi | gatectl write -offset 10 gate0
//	gatectl -transport grpc -addr localhost:50061 stats
//
// The server address comes from -addr or GATEDEV_ADDR, the transport from
// -transport or GATEDEV_TRANSPORT. With -v, client logs and trace spans go
// to stderr; over gRPC the trace context is forwarded to the server.
package main
