// Package errors defines the closed set of error kinds the core components
// can raise, each mapped to exactly one recovery policy (spec.md §7).
package errors

// DiskoError is one of the core's named error kinds. It implements `error`
// directly so a bare kind can be returned, and WithMessage/WrapError so
// callers can decorate it with context without losing errors.Is(err, kind).
type DiskoError string

// ErrOutOfRange: LBA >= total_sectors. Surfaced to the USB host as an IO
// failure; never fatal to the device.
const ErrOutOfRange = DiskoError("LBA out of range")

// ErrUnderlyingIO: an SD/backing-store read or write failed. On read, the
// affected cache slot is left invalid and the error is surfaced to the
// caller. On write-back during eviction, the caller retries on the next
// access and the block stays dirty. On eject-time flush, it's logged and
// dropped so the mount can terminate.
const ErrUnderlyingIO = DiskoError("underlying storage I/O failed")

// ErrUnknownFormat: the size detector rejected the image file. Transitions
// the lifecycle manager to Error; the operator must acknowledge.
const ErrUnknownFormat = DiskoError("unknown disk image format")

// ErrPreloadFailure: a metadata-region fill failed during mount.
// Transitions to Error; the partially-loaded cache is discarded on the
// next Load via Reset.
const ErrPreloadFailure = DiskoError("metadata region preload failed")

// ErrResourceExhaustion: channel/mutex construction failed at init. Fatal;
// the device (or in this port, the process) must restart.
const ErrResourceExhaustion = DiskoError("resource exhaustion during init")

// ErrBusy: an operation was attempted while another was in progress on the
// same resource (e.g. eject while already ejecting).
const ErrBusy = DiskoError("operation already in progress")

// ErrClosed: an operation was attempted on a component after it was closed.
const ErrClosed = DiskoError("component is closed")

// ErrInvalidArgument: a caller-supplied argument violated a precondition
// that isn't covered by one of the more specific kinds above.
const ErrInvalidArgument = DiskoError("invalid argument")

func (e DiskoError) Error() string {
	return string(e)
}

func (e DiskoError) WithMessage(message string) DriverError {
	return customDriverError{
		kind:    e,
		message: message,
	}
}

func (e DiskoError) WrapError(err error) DriverError {
	return customDriverError{
		kind:          e,
		message:       e.Error(),
		originalError: err,
	}
}
