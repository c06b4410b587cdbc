// Package volume ingests one medical-image volume from a local file or a URL.
//
// A Volume runs a fixed sequence of stages on its own goroutine:
// acquire the raw bytes, inflate them when the name says they are
// compressed, decode the header, then load the voxels. The first failure
// ends the sequence. Either way the completion handler given at the start
// is called exactly once, after the Volume has stopped changing.
//
// A Volume is single-use. Separate Volumes share nothing and may be
// ingested concurrently.
package volume

import (
	"fmt"
	"io/fs"
	"math"
	"net/http"
	"sync"

	"github.com/go-kit/log"
	"github.com/google/uuid"

	"mrivolume/internal/models"
	"mrivolume/pkg/decompress"
	"mrivolume/pkg/format"
	"mrivolume/pkg/header"
	"mrivolume/pkg/imagedata"
	"mrivolume/pkg/nifti"
)

// Params holds the collaborators and limits of an ingestion.
// Every field is optional.
type Params struct {
	// HTTPClient performs remote fetches. Defaults to a client with no timeout.
	HTTPClient *http.Client

	// UserAgent is sent with remote fetches when set.
	UserAgent string

	// MaxDecompressedBytes caps the inflated size for the default
	// decompressors. Zero means unlimited.
	MaxDecompressedBytes int64

	// Decompressors overrides the decompressor used per compression.
	Decompressors map[format.Compression]decompress.Decompressor

	// HeaderParser decodes headers. Defaults to header.NewRegistry().
	HeaderParser header.Parser

	// VoxelLoader fills the voxel store. Defaults to imagedata.SampleLoader.
	VoxelLoader imagedata.Loader

	Logger  log.Logger
	Metrics *Metrics
}

// SourceKind tells how a Volume's bytes are obtained
type SourceKind int

const (
	SourceNone SourceKind = iota
	SourceFile
	SourcePath
	SourceURL
)

// Source is where a Volume's bytes come from. Exactly one of File, Path and
// URL is set, matching Kind.
type Source struct {
	Kind SourceKind
	File fs.File
	Path string
	URL  string
}

// String returns a printable form of the source.
func (s Source) String() string {
	switch s.Kind {
	case SourceFile:
		return "file handle"
	case SourcePath:
		return s.Path
	case SourceURL:
		return s.URL
	default:
		return "none"
	}
}

func (s Source) metricLabel() string {
	if s.Kind == SourceURL {
		return "url"
	}
	return "file"
}

// Volume is one ingested image dataset together with its ingestion state.
type Volume struct {
	id     uuid.UUID
	params *Params
	logger log.Logger

	source      Source
	fileName    string
	headerType  format.HeaderType
	compression format.Compression

	rawData   []byte
	header    header.Header
	imageData *models.VoxelStore
	swap16    bool
	swap32    bool
	err       *IngestError

	onFinishedRead func(*Volume)
	finished       bool

	mu    sync.Mutex
	state State
}

// New creates an empty Volume. params may be nil.
func New(params *Params) *Volume {
	p := Params{}
	if params != nil {
		p = *params
	}
	if p.HTTPClient == nil {
		p.HTTPClient = &http.Client{}
	}
	if p.HeaderParser == nil {
		p.HeaderParser = header.NewRegistry()
	}
	if p.VoxelLoader == nil {
		p.VoxelLoader = imagedata.SampleLoader{}
	}
	if p.Logger == nil {
		p.Logger = log.NewNopLogger()
	}

	return &Volume{
		id:     uuid.New(),
		params: &p,
		logger: p.Logger,
		state:  StateInit,
	}
}

// ID identifies this ingestion in logs.
func (v *Volume) ID() uuid.UUID { return v.id }

// State returns the current pipeline state.
func (v *Volume) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *Volume) setState(s State) {
	v.mu.Lock()
	v.state = s
	v.mu.Unlock()
}

// Source returns where the volume was read from.
func (v *Volume) Source() Source { return v.source }

// FileName returns the name used to classify the volume.
func (v *Volume) FileName() string { return v.fileName }

// HeaderType returns the header type the file name was classified as.
func (v *Volume) HeaderType() format.HeaderType { return v.headerType }

// Compression returns the compression the file name was classified as.
func (v *Volume) Compression() format.Compression { return v.compression }

// IsCompressed reports whether the file name marked the data as compressed.
func (v *Volume) IsCompressed() bool { return v.compression != format.CompressionNone }

// HasError reports whether ingestion failed.
func (v *Volume) HasError() bool { return v.err != nil }

// ErrorMessage returns the failure message, or "" on success.
func (v *Volume) ErrorMessage() string {
	if v.err == nil {
		return ""
	}
	return v.err.Msg
}

// Err returns the ingestion failure as an *IngestError, or nil.
func (v *Volume) Err() error {
	if v.err == nil {
		return nil
	}
	return v.err
}

// Header returns the decoded header. It is nil until header decoding
// succeeds and whenever ingestion failed.
func (v *Volume) Header() header.Header {
	if v.err != nil {
		return nil
	}
	return v.header
}

// VoxelStore returns the loaded samples, or nil when none are available.
func (v *Volume) VoxelStore() *models.VoxelStore {
	if v.err != nil {
		return nil
	}
	return v.imageData
}

// Swap16 reports whether 16-bit samples are byte-swapped on read.
func (v *Volume) Swap16() bool { return v.swap16 }

// Swap32 reports whether 32-bit samples are byte-swapped on read.
func (v *Volume) Swap32() bool { return v.swap32 }

// XDim returns the X dimension.
func (v *Volume) XDim() int { x, _, _ := v.dims(); return x }

// YDim returns the Y dimension.
func (v *Volume) YDim() int { _, y, _ := v.dims(); return y }

// ZDim returns the Z dimension.
func (v *Volume) ZDim() int { _, _, z := v.dims(); return z }

// XSize returns the voxel size along X.
func (v *Volume) XSize() float64 { x, _, _ := v.sizes(); return x }

// YSize returns the voxel size along Y.
func (v *Volume) YSize() float64 { _, y, _ := v.sizes(); return y }

// ZSize returns the voxel size along Z.
func (v *Volume) ZSize() float64 { _, _, z := v.sizes(); return z }

func (v *Volume) dims() (x, y, z int) {
	if h := v.Header(); h != nil {
		return h.Dimensions()
	}
	return 0, 0, 0
}

func (v *Volume) sizes() (x, y, z float64) {
	if h := v.Header(); h != nil {
		return h.VoxelSize()
	}
	return 0, 0, 0
}

// RawAt returns the sample bits at a voxel index in the declared byte order.
// It returns 0 when no voxels are loaded.
func (v *Volume) RawAt(x, y, z int) uint32 {
	store := v.VoxelStore()
	if store == nil {
		return 0
	}

	val := store.At(v.header.IndexToOffset(x, y, z))
	switch {
	case v.swap16:
		return Swap16(val)
	case v.swap32:
		return Swap32(val)
	default:
		return val
	}
}

// ValueAt returns the sample at a voxel index, interpreted according to
// the header's datatype.
func (v *Volume) ValueAt(x, y, z int) float64 {
	if v.VoxelStore() == nil {
		return 0
	}
	return v.interpret(v.RawAt(x, y, z))
}

func (v *Volume) interpret(raw uint32) float64 {
	switch v.header.SampleKind() {
	case nifti.Float:
		return float64(math.Float32frombits(raw))
	case nifti.Signed:
		switch v.header.BytesPerVoxel() {
		case 1:
			return float64(int8(raw))
		case 2:
			return float64(int16(raw))
		default:
			return float64(int32(raw))
		}
	default:
		return float64(raw)
	}
}

// WorldAt maps a voxel index to world coordinates in mm.
func (v *Volume) WorldAt(x, y, z int) (wx, wy, wz float64, err error) {
	h := v.Header()
	if h == nil {
		return 0, 0, 0, fmt.Errorf("volume %q has no header", v.fileName)
	}
	wx, wy, wz = h.WorldAt(x, y, z)
	return wx, wy, wz, nil
}
