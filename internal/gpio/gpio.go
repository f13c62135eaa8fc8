// Package gpio provides the wall switch input and relay output with
// hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the wall switch input.
type Reader interface {
	// Read returns the logical state of the switch (true = ON).
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Relay drives the output that powers the device.
type Relay interface {
	// Set energises (true) or releases (false) the relay.
	Set(on bool) error

	// Close releases GPIO resources.
	Close() error
}
