package act

import "errors"

// Sentinel errors returned by package act. Callers should use
// errors.Is against these rather than matching on message text.
var (
	// ErrNotConnected is returned by any send operation attempted
	// before Connect has completed.
	ErrNotConnected = errors.New("act: not connected")

	// ErrDisconnected is returned by Send, and so by every request
	// built on it, once the connection has transitioned to
	// Disconnected.
	ErrDisconnected = errors.New("act: connection disconnected")

	// ErrAlreadyConnecting is returned by a second Connect call while
	// one is already in flight or already connected.
	ErrAlreadyConnecting = errors.New("act: connect already in progress")

	// ErrLogonFailed is wrapped with the server's OperationStatus
	// error message when a logon attempt is rejected.
	ErrLogonFailed = errors.New("act: logon rejected")

	// ErrQueryNotRunning is returned by Stop/UpdateTable on a
	// DexQuery that was never started.
	ErrQueryNotRunning = errors.New("act: dex query not running")

	// ErrCSVHeaderMismatch is returned by FromCSV when the input has
	// fewer than two rows, when its first two rows do not start with
	// "Key" and "Type", or when a row's column count does not match
	// the header.
	ErrCSVHeaderMismatch = errors.New("act: csv row column count mismatch")
)
