package volume

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrAlreadyStarted = errors.New("volume: ingestion already started")
	ErrNilHandler     = errors.New("volume: nil completion handler")

	errNoHeader = errors.New("header parser returned no header")
	errNoVoxels = errors.New("voxel loader returned no data")
)

// ErrorKind classifies the stage an ingestion failed in
type ErrorKind int

const (
	AcquisitionError ErrorKind = iota + 1
	DecompressionError
	HeaderParseError
	VoxelLoadError
)

// String returns the human-readable name of an error kind.
func (k ErrorKind) String() string {
	switch k {
	case AcquisitionError:
		return "acquisition"
	case DecompressionError:
		return "decompression"
	case HeaderParseError:
		return "header"
	case VoxelLoadError:
		return "voxel"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// readProblemPrefix leads every acquisition message.
const readProblemPrefix = "problem reading that file: "

// IngestError is the terminal error of a failed ingestion.
type IngestError struct {
	Kind ErrorKind
	// Msg is the human-readable message. Decompression and header messages
	// are the collaborator's text verbatim.
	Msg string
	Err error
}

func newIngestError(kind ErrorKind, err error) *IngestError {
	msg := err.Error()
	if kind == AcquisitionError {
		msg = readProblemPrefix + msg
	}
	return &IngestError{Kind: kind, Msg: msg, Err: err}
}

func (e *IngestError) Error() string { return e.Msg }

func (e *IngestError) Unwrap() error { return e.Err }

// HTTPStatusError reports a remote fetch that did not answer 200 OK.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	// Body is the response text, possibly empty.
	Body string
}

// Error returns the response body when there is one, else the status line.
func (e *HTTPStatusError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return e.Status
}
