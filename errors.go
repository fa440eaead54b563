package godesk

import (
	"errors"
	"fmt"

	"github.com/mlsorensen/godesk/pkg/desks/linak/comms"
)

// ErrorKind represents the category of error that occurred
type ErrorKind int

const (
	// KindNoAdapter indicates no usable local Bluetooth adapter
	KindNoAdapter ErrorKind = iota
	// KindNoCandidatesFound indicates a fresh scan found no desk at all
	KindNoCandidatesFound
	// KindDeviceNotFound indicates the requested address was absent from every scan
	KindDeviceNotFound
	// KindConnectTimeout indicates the link was not established in time
	KindConnectTimeout
	// KindConnectTransport indicates the radio rejected the link request
	KindConnectTransport
	// KindServiceDiscovery indicates the linked device could not enumerate its services
	KindServiceDiscovery
	// KindMissingEndpoint indicates the device lacks the control or height characteristic
	KindMissingEndpoint
	// KindDecodeFailure indicates a malformed height payload
	KindDecodeFailure
	// KindConvergenceTimeout indicates the desk did not settle on the target in time
	KindConvergenceTimeout
	// KindEndpointUnavailable indicates a session without a resolved endpoint
	KindEndpointUnavailable
	// KindTransport wraps any other radio failure
	KindTransport
	// KindNotConnected indicates an operation that needs a session was called without one
	KindNotConnected
	// KindInvalidHeight indicates a target height the wire format cannot carry
	KindInvalidHeight
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindNoAdapter:
		return "no bluetooth adapter"
	case KindNoCandidatesFound:
		return "no desks found"
	case KindDeviceNotFound:
		return "desk not found"
	case KindConnectTimeout:
		return "connect timeout"
	case KindConnectTransport:
		return "connect failed"
	case KindServiceDiscovery:
		return "service discovery failed"
	case KindMissingEndpoint:
		return "missing endpoint"
	case KindDecodeFailure:
		return "decode failure"
	case KindConvergenceTimeout:
		return "convergence timeout"
	case KindEndpointUnavailable:
		return "endpoint unavailable"
	case KindTransport:
		return "transport error"
	case KindNotConnected:
		return "not connected"
	case KindInvalidHeight:
		return "invalid height"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// Stage names the step of an operation that failed.
type Stage string

const (
	StageScan       Stage = "scan"
	StageSelect     Stage = "select"
	StageConnect    Stage = "connect"
	StageDiscover   Stage = "discover"
	StageWrite      Stage = "write"
	StageRead       Stage = "read"
	StageMove       Stage = "move"
	StageDisconnect Stage = "disconnect"
)

// DeskError represents an error that occurred while talking to a desk
type DeskError struct {
	Kind      ErrorKind
	Stage     Stage
	Address   string // desk address, when known
	Message   string
	Err       error // underlying error, if any
	Retryable bool
}

// Sentinels for errors.Is. Only Kind is compared.
var (
	ErrNoAdapter           = &DeskError{Kind: KindNoAdapter}
	ErrNoCandidatesFound   = &DeskError{Kind: KindNoCandidatesFound}
	ErrDeviceNotFound      = &DeskError{Kind: KindDeviceNotFound}
	ErrConnectTimeout      = &DeskError{Kind: KindConnectTimeout}
	ErrConnectTransport    = &DeskError{Kind: KindConnectTransport}
	ErrServiceDiscovery    = &DeskError{Kind: KindServiceDiscovery}
	ErrMissingEndpoint     = &DeskError{Kind: KindMissingEndpoint}
	ErrDecodeFailure       = &DeskError{Kind: KindDecodeFailure}
	ErrConvergenceTimeout  = &DeskError{Kind: KindConvergenceTimeout}
	ErrEndpointUnavailable = &DeskError{Kind: KindEndpointUnavailable}
	ErrTransport           = &DeskError{Kind: KindTransport}
	ErrNotConnected        = &DeskError{Kind: KindNotConnected}
	ErrInvalidHeight       = &DeskError{Kind: KindInvalidHeight}
)

func newError(kind ErrorKind, stage Stage, msg string, err error) *DeskError {
	return &DeskError{
		Kind:    kind,
		Stage:   stage,
		Message: msg,
		Err:     err,
	}
}

func (e *DeskError) withAddress(addr string) *DeskError {
	e.Address = addr
	return e
}

func (e *DeskError) retryable() *DeskError {
	e.Retryable = true
	return e
}

// Error implements the error interface
func (e *DeskError) Error() string {
	msg := e.Kind.String()
	if e.Message != "" {
		msg = e.Message
	}
	if e.Stage != "" {
		msg = string(e.Stage) + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeskError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DeskError of the same kind.
func (e *DeskError) Is(target error) bool {
	t, ok := target.(*DeskError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first DeskError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var de *DeskError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var de *DeskError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}

// ShortMessage returns a concise, user-facing description of err.
func ShortMessage(err error) string {
	var de *DeskError
	if !errors.As(err, &de) {
		return err.Error()
	}

	switch de.Kind {
	case KindNoAdapter:
		return "Bluetooth is unavailable - is it switched on?"
	case KindNoCandidatesFound:
		return "No desks found - make sure the desk is powered and in range"
	case KindDeviceNotFound:
		return fmt.Sprintf("Desk %s not found - reconfigure the desk if it was replaced", de.Address)
	case KindConnectTimeout:
		return "Desk did not respond while connecting"
	case KindConnectTransport:
		return "Could not connect to the desk"
	case KindServiceDiscovery, KindMissingEndpoint:
		return "Device is not a supported desk controller"
	case KindDecodeFailure:
		return "Desk sent an unreadable height"
	case KindConvergenceTimeout:
		return "Desk did not reach the requested height in time"
	case KindNotConnected:
		return "Not connected to a desk"
	case KindInvalidHeight:
		return fmt.Sprintf("Height must be at most %d mm", comms.MaxHeightMM)
	default:
		return de.Error()
	}
}
