// Package worker runs model inference in an external process.
//
// Each Process owns one child started from the configured worker command with
// a --model flag naming its role (detect, pose, align, embed). Requests are
// written to the child's stdin and responses are read from a dedicated pipe
// handed to the child as file descriptor 3, so library chatter on stdout
// cannot corrupt the stream. Both directions use the same framing: a
// big-endian uint32 length followed by a JSON document.
//
// A child that dies is restarted on the next call; the failing call itself is
// reported as a collaborator error.
package worker
