package contracts

import "errors"

// Sentinel errors matching the error kinds of §7. Graphs and the engine
// facade wrap these with fmt.Errorf("%w: ...") for caller context and
// return them; no last-error string is kept.
var (
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrConnectionNotFound    = errors.New("failed to find connection")
	ErrInvalidRackConnection = errors.New("invalid rack connection")
	ErrGraphNotReady         = errors.New("graph not ready")
	ErrBufferSizeMismatch    = errors.New("buffer size mismatch")
	ErrUnsupportedDriver     = errors.New("external refresh not supported by this driver")
	ErrPluginNotFound        = errors.New("plugin not found")
	ErrPluginIDMismatch      = errors.New("replacement plugin id does not match")
)
