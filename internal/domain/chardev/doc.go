// Package chardev exposes a gate and a shared buffer through file-like
// endpoints.
//
// A Device owns exactly one gate.Gate and one buffer.Buffer. Start creates
// the device and claims one or more endpoint names in a Namespace; every
// name aliases the same gate/buffer pair, so a write through any alias
// releases readers blocked on all of them.
//
// Sessions are the per-open handles. Reads park on the gate until a writer
// signals and then copy the buffer out; writes copy into the buffer, drop
// the buffer lock, and only then signal, so every released reader sees the
// bytes that woke it.
//
// Lifecycle:
//
//	ns := chardev.NewNamespace()
//	dev, err := chardev.Start(ns, chardev.Options{
//		Name:      "gate",
//		Endpoints: []chardev.Endpoint{{Name: "gate0", Minor: 0}, {Name: "gate1", Minor: 1}},
//	})
//	...
//	s, _ := ns.Open("gate1", "reader-1")
//	n, err := s.ReadAt(ctx, p, 0) // blocks until some session writes
//	...
//	dev.Stop() // blocked readers return ErrShutdown
package chardev
