package volume

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"mrivolume/pkg/decompress"
	"mrivolume/pkg/format"
)

// State is a position in the ingestion state machine
type State int

const (
	StateInit State = iota
	StateClassified
	StateAcquiring
	StateAcquired
	StateDecompressing
	StateDecompressed
	StateHeaderParsing
	StateHeaderParsed
	StateVoxelsLoading
	StateDone
	StateError
)

var stateNames = [...]string{
	StateInit:          "INIT",
	StateClassified:    "CLASSIFIED",
	StateAcquiring:     "ACQUIRING",
	StateAcquired:      "ACQUIRED",
	StateDecompressing: "DECOMPRESSING",
	StateDecompressed:  "DECOMPRESSED",
	StateHeaderParsing: "HEADER_PARSING",
	StateHeaderParsed:  "HEADER_PARSED",
	StateVoxelsLoading: "VOXELS_LOADING",
	StateDone:          "DONE",
	StateError:         "ERROR",
}

// String returns the state's name.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether s is DONE or ERROR.
func (s State) Terminal() bool {
	return s == StateDone || s == StateError
}

// ReadFile ingests an open file. The file's Stat name is used for
// classification. The caller keeps ownership of f and may close it once
// done has been called. The returned error is non-nil only when ingestion
// could not start; in that case done is never called.
func (v *Volume) ReadFile(ctx context.Context, f fs.File, done func(*Volume)) error {
	var name string
	var statErr error
	if f == nil {
		statErr = fmt.Errorf("nil file")
	} else if info, err := f.Stat(); err != nil {
		statErr = err
	} else {
		name = info.Name()
	}

	if err := v.begin(Source{Kind: SourceFile, File: f}, name, done); err != nil {
		return err
	}
	if statErr != nil {
		v.fail(AcquisitionError, statErr)
	}

	go v.run(ctx)
	return nil
}

// ReadPath ingests the file at path. Opening the file is part of the
// acquisition stage, so a missing file is reported through done.
func (v *Volume) ReadPath(ctx context.Context, path string, done func(*Volume)) error {
	if err := v.begin(Source{Kind: SourcePath, Path: path}, filepath.Base(path), done); err != nil {
		return err
	}

	go v.run(ctx)
	return nil
}

// ReadURL ingests the body of a GET on rawURL. The text after the last "/"
// is used for classification.
func (v *Volume) ReadURL(ctx context.Context, rawURL string, done func(*Volume)) error {
	if err := v.begin(Source{Kind: SourceURL, URL: rawURL}, format.NameFromURL(rawURL), done); err != nil {
		return err
	}

	go v.run(ctx)
	return nil
}

// begin binds the source and handler and classifies the name.
func (v *Volume) begin(src Source, name string, done func(*Volume)) error {
	if done == nil {
		return ErrNilHandler
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateInit {
		return ErrAlreadyStarted
	}

	v.source = src
	v.fileName = name
	v.onFinishedRead = done
	v.headerType = format.ClassifyHeaderType(name)
	v.compression = format.CompressionFor(name)
	v.state = StateClassified
	v.logger = log.With(v.params.Logger, "volume", name, "ingest", v.id)

	level.Debug(v.logger).Log("msg", "classified", "source", src, "header", v.headerType, "compression", v.compression)
	return nil
}

// run advances the state machine until it reaches DONE or ERROR. Each
// stage runs to completion before the next one starts.
func (v *Volume) run(ctx context.Context) {
	for {
		state := v.State()
		level.Debug(v.logger).Log("msg", "state", "state", state)

		switch state {
		case StateClassified, StateAcquired, StateDecompressed, StateHeaderParsed:
			v.step(ctx, state)
		case StateDone, StateError:
			v.finishedLoad()
			return
		default:
			panic(fmt.Sprintf("volume: run reached non-resumable state %s", state))
		}
	}
}

// step runs the stage that follows state. A panic inside the stage or a
// collaborator fails the Volume instead of the process.
func (v *Volume) step(ctx context.Context, state State) {
	defer func() {
		if r := recover(); r != nil {
			kind := stageKind(v.State())
			level.Error(v.logger).Log("msg", "stage panicked", "stage", kind, "panic", r, "stack", string(debug.Stack()))
			v.fail(kind, fmt.Errorf("%s stage panicked: %v", kind, r))
		}
	}()

	switch state {
	case StateClassified:
		v.acquire(ctx)
	case StateAcquired:
		v.decompress()
	case StateDecompressed:
		v.parseHeader()
	case StateHeaderParsed:
		v.loadVoxels()
	}
}

// stageKind maps a non-terminal state to the kind of error its stage reports.
func stageKind(s State) ErrorKind {
	switch s {
	case StateAcquired, StateDecompressing:
		return DecompressionError
	case StateDecompressed, StateHeaderParsing:
		return HeaderParseError
	case StateHeaderParsed, StateVoxelsLoading:
		return VoxelLoadError
	default:
		return AcquisitionError
	}
}

func (v *Volume) acquire(ctx context.Context) {
	v.setState(StateAcquiring)
	start := time.Now()
	data, err := v.readSource(ctx)
	v.params.Metrics.observeStage("acquire", time.Since(start))
	if err != nil {
		v.fail(AcquisitionError, err)
		return
	}

	v.params.Metrics.addBytes(v.source.metricLabel(), len(data))
	v.rawData = data
	v.setState(StateAcquired)
}

func (v *Volume) decompress() {
	if v.compression == format.CompressionNone {
		v.setState(StateDecompressed)
		return
	}

	v.setState(StateDecompressing)
	d := v.decompressorFor(v.compression)
	if d == nil {
		v.fail(DecompressionError, fmt.Errorf("no decompressor for %s", v.compression))
		return
	}

	start := time.Now()
	data, err := d.Decompress(v.rawData)
	v.params.Metrics.observeStage("decompress", time.Since(start))
	if err != nil {
		v.fail(DecompressionError, err)
		return
	}

	level.Debug(v.logger).Log("msg", "decompressed", "compressed_bytes", len(v.rawData), "bytes", len(data))
	v.rawData = data
	v.setState(StateDecompressed)
}

func (v *Volume) decompressorFor(c format.Compression) decompress.Decompressor {
	if d, ok := v.params.Decompressors[c]; ok {
		return d
	}
	return decompress.For(c, v.params.MaxDecompressedBytes)
}

func (v *Volume) parseHeader() {
	v.setState(StateHeaderParsing)
	start := time.Now()
	h, err := v.params.HeaderParser.Parse(v.headerType, v.rawData)
	v.params.Metrics.observeStage("header", time.Since(start))
	if err != nil {
		v.fail(HeaderParseError, err)
		return
	}
	if h == nil {
		v.fail(HeaderParseError, errNoHeader)
		return
	}

	v.header = h
	v.swap16, v.swap32 = SwapFlags(h.BytesPerVoxel(), h.LittleEndian(), hostLittleEndian)
	v.setState(StateHeaderParsed)
}

func (v *Volume) loadVoxels() {
	v.setState(StateVoxelsLoading)
	start := time.Now()
	store, err := v.params.VoxelLoader.Load(v.header, v.rawData)
	v.params.Metrics.observeStage("voxels", time.Since(start))
	if err != nil {
		v.fail(VoxelLoadError, err)
		return
	}
	if store == nil {
		v.fail(VoxelLoadError, errNoVoxels)
		return
	}

	v.imageData = store
	v.setState(StateDone)
}

// fail records the first error and moves to ERROR.
func (v *Volume) fail(kind ErrorKind, err error) {
	if v.err != nil {
		return
	}
	v.err = newIngestError(kind, err)
	level.Warn(v.logger).Log("msg", "ingestion failed", "stage", kind, "err", v.err.Msg)
	v.setState(StateError)
}

// finishedLoad releases the raw buffer and calls the completion handler.
func (v *Volume) finishedLoad() {
	if v.finished {
		panic("volume: completion handler invoked twice")
	}
	v.finished = true
	v.rawData = nil

	if v.err != nil {
		v.params.Metrics.countResult(v.err.Kind.String())
	} else {
		v.params.Metrics.countResult("success")
		x, y, z := v.header.Dimensions()
		level.Info(v.logger).Log("msg", "volume loaded", "dims", fmt.Sprintf("%dx%dx%d", x, y, z),
			"datatype", v.header.DatatypeName(), "swap16", v.swap16, "swap32", v.swap32)
	}

	v.onFinishedRead(v)
}
