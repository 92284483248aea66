// Package trgen is a client for the trigger generator, a device that emits
// precisely timed pulses on a fixed set of output lines.
//
// The device exposes a single TCP connection and a small binary command set.
// Every request is answered with an ASCII acknowledgement and carries no
// correlation id, so the package serializes all requests of a Connection
// through one worker goroutine: exactly one round-trip is on the wire at any
// time, in submission order.
//
// Connection:
// A Connection owns the socket and the request queue. Connect dials the device,
// starts the worker and reads the capability descriptor before returning.
// Requests are submitted with Send (blocking) or SendAsync (returns a Future).
// Both styles share the queue, so they can be mixed on one connection.
//
// Client:
// Client builds line-oriented operations on top of a Connection: programming a
// line's instruction memory, starting and stopping pulses on one or several
// lines, and broadcasting an 8-bit marker across the scanner and general
// purpose line groups.
//
//	cfg, _ := trgen.NewConnectionConfig("192.168.1.10", 4242)
//	client, _ := trgen.NewClient(ctx, cfg)
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Disconnect()
//
//	err := client.StartTrigger(ctx, 3)
package trgen
