// Package dispatcher runs the watch loop: it consumes events from the
// selected file event source, drives the stability gate, and hands stable
// files to the conversion worker pool. The gate and all per-path state are
// touched only from the dispatcher goroutine; workers communicate results
// back through a completion channel, so no lock guards the gate. Conversion
// failures are logged and never stop the loop.
package dispatcher
