package wave

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tphakala/wavenc/internal/logger"
)

const (
	riffID = "RIFF"
	waveID = "WAVE"
	fmtID  = "fmt "
	dataID = "data"

	// FormatPCM is the WAVE_FORMAT_PCM tag
	FormatPCM uint16 = 0x0001
	// FormatExtensible is the WAVE_FORMAT_EXTENSIBLE tag; the real format is in the sub-format GUID
	FormatExtensible uint16 = 0xFFFE

	// MaxChunks bounds the chunk scan when no data chunk shows up
	MaxChunks = 20

	fmtFixedSize     = 16
	fmtExtensionSize = 10
)

type state int

const (
	stateUnopened state = iota
	stateHeaderParsed
	stateReading
	stateExhausted
	stateInvalid
	stateClosed
)

// Info is the validated header of a WAVE source
type Info struct {
	FormatTag     uint16 // after WAVE_FORMAT_EXTENSIBLE resolution
	Channels      int
	SampleRate    int
	ByteRate      int
	BlockAlign    int
	BitsPerSample int
	DataOffset    int64 // absolute offset of the first PCM byte
	DataLength    int64 // declared length of the data chunk
	SampleCount   int64 // samples per channel
}

// BytesPerSample returns the storage width of one sample
func (i Info) BytesPerSample() int {
	return (i.BitsPerSample + 7) / 8
}

// FrameSize returns the number of bytes holding one sample of every channel
func (i Info) FrameSize() int {
	return i.Channels * i.BytesPerSample()
}

// Duration returns the playing time described by the header
func (i Info) Duration() time.Duration {
	if i.SampleRate == 0 {
		return 0
	}
	return time.Duration(i.SampleCount) * time.Second / time.Duration(i.SampleRate)
}

// Decoder reads one WAVE source. It is not safe for concurrent use; a
// decoder belongs to the worker processing its task.
type Decoder struct {
	r      io.ReadSeeker
	closer io.Closer
	path   string

	info      Info
	state     state
	offset    int64 // current stream offset while parsing the header
	remaining int64 // undecoded bytes left in the data chunk
	truncated bool
	raw       []byte
}

// NewDecoder wraps r. Call ReadHeader before unpacking samples.
func NewDecoder(r io.ReadSeeker) *Decoder {
	return &Decoder{r: r}
}

// Open opens the file at path and parses its header. On failure the file is
// closed and the returned error describes why the source was rejected.
func Open(path string) (*Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, readError(err, "open", path, 0)
	}

	d := NewDecoder(f)
	d.closer = f
	d.path = path
	if err := d.ReadHeader(); err != nil {
		_ = f.Close()
		d.state = stateClosed
		log().Debug("rejected source", logger.String("path", path), logger.Error(err))
		return nil, err
	}
	return d, nil
}

// Probe validates the header of the file at path and returns its description
func Probe(path string) (Info, error) {
	d, err := Open(path)
	if err != nil {
		return Info{}, err
	}
	info := d.Info()
	if err := d.Close(); err != nil {
		return Info{}, readError(err, "close", path, info.DataOffset+info.DataLength)
	}
	return info, nil
}

// Info returns the parsed header. It is the zero Info until ReadHeader succeeds.
func (d *Decoder) Info() Info {
	return d.info
}

// Valid reports whether the header has been parsed and accepted
func (d *Decoder) Valid() bool {
	switch d.state {
	case stateHeaderParsed, stateReading, stateExhausted:
		return true
	default:
		return false
	}
}

// Path returns the file path for decoders created with Open
func (d *Decoder) Path() string {
	return d.path
}

// ReadHeader parses the RIFF header and the chunk list up to the data chunk.
// Any failure leaves the decoder invalid; it will not read from r again.
func (d *Decoder) ReadHeader() error {
	if d.state != stateUnopened {
		return fmt.Errorf("header already read")
	}

	info, err := d.parseHeader()
	if err != nil {
		d.state = stateInvalid
		return err
	}

	d.info = info
	d.remaining = info.DataLength
	d.state = stateHeaderParsed
	return nil
}

func (d *Decoder) parseHeader() (Info, error) {
	var info Info

	id, err := d.readID()
	if err != nil {
		return info, err
	}
	if id != riffID {
		return info, formatError(ErrNotRIFF, "found", id)
	}
	if _, err := d.readUint32(); err != nil {
		return info, err
	}
	if id, err = d.readID(); err != nil {
		return info, err
	}
	if id != waveID {
		return info, formatError(ErrNotWAVE, "found", id)
	}

	haveFormat := false
	for range MaxChunks {
		chunkID, err := d.readID()
		if err != nil {
			return info, err
		}
		size, err := d.readUint32()
		if err != nil {
			return info, err
		}

		switch chunkID {
		case fmtID:
			if err := d.parseFormat(&info, size); err != nil {
				return info, err
			}
			haveFormat = true

		case dataID:
			if !haveFormat {
				return info, formatError(ErrNoFormatChunk)
			}
			info.DataOffset = d.offset
			info.DataLength = int64(size)
			info.SampleCount = info.DataLength / int64(info.FrameSize())
			return info, nil

		default:
			if err := d.skip(roundUpToEven(int64(size))); err != nil {
				return info, err
			}
		}
	}

	return info, formatError(ErrNoDataChunk, "chunks_scanned", MaxChunks)
}

// parseFormat reads a fmt chunk of the declared size and validates it
func (d *Decoder) parseFormat(info *Info, size uint32) error {
	if size < fmtFixedSize {
		return formatError(ErrMalformedFormat, "chunk_size", int(size))
	}

	var fixed [fmtFixedSize]byte
	if err := d.readFull(fixed[:]); err != nil {
		return err
	}
	consumed := int64(fmtFixedSize)

	info.FormatTag = binary.LittleEndian.Uint16(fixed[0:2])
	info.Channels = int(binary.LittleEndian.Uint16(fixed[2:4]))
	info.SampleRate = int(binary.LittleEndian.Uint32(fixed[4:8]))
	info.ByteRate = int(binary.LittleEndian.Uint32(fixed[8:12]))
	info.BlockAlign = int(binary.LittleEndian.Uint16(fixed[12:14]))
	info.BitsPerSample = int(binary.LittleEndian.Uint16(fixed[14:16]))

	if size > fmtFixedSize && info.FormatTag == FormatExtensible {
		if size < fmtFixedSize+fmtExtensionSize {
			return formatError(ErrMalformedFormat, "chunk_size", int(size))
		}
		// cbSize(2) validBits(2) channelMask(4) then the sub-format GUID,
		// whose first two bytes carry the actual format code.
		var ext [fmtExtensionSize]byte
		if err := d.readFull(ext[:]); err != nil {
			return err
		}
		consumed += fmtExtensionSize
		info.FormatTag = binary.LittleEndian.Uint16(ext[8:10])
	}

	if err := d.skip(roundUpToEven(int64(size)) - consumed); err != nil {
		return err
	}

	return validate(info)
}

// validate rejects anything the pipeline cannot encode
func validate(info *Info) error {
	if info.FormatTag != FormatPCM {
		return formatError(ErrUnsupportedFormat, "format_tag", int(info.FormatTag))
	}
	if info.Channels != 1 && info.Channels != 2 {
		return formatError(ErrUnsupportedChannels, "channels", info.Channels)
	}
	switch info.BitsPerSample {
	case 8, 16, 24, 32:
	default:
		return formatError(ErrUnsupportedBitDepth, "bits_per_sample", info.BitsPerSample)
	}
	if info.SampleRate <= 0 {
		return formatError(ErrMalformedFormat, "sample_rate", info.SampleRate)
	}
	return nil
}

// UnpackSamples decodes up to len(dst) interleaved samples into dst and
// returns how many were written. Only whole frames are returned, so n is a
// multiple of the channel count. n == 0 with a nil error means the data chunk
// is exhausted. A source that ends before its declared data length returns
// the whole frames that were present, then ErrTruncated on the next call.
func (d *Decoder) UnpackSamples(dst []int32) (int, error) {
	switch d.state {
	case stateClosed:
		return 0, ErrDecoderClosed
	case stateUnopened, stateInvalid:
		return 0, ErrInvalidDecoder
	case stateExhausted:
		return 0, nil
	case stateHeaderParsed:
		d.state = stateReading
	}

	if d.truncated {
		return 0, formatError(ErrTruncated, "declared_bytes", d.info.DataLength)
	}

	bps := d.info.BytesPerSample()
	frameBytes := int64(d.info.FrameSize())
	frames := int64(len(dst) / d.info.Channels)
	if frames == 0 {
		return 0, ErrShortBuffer
	}

	want := min(frames*frameBytes, d.remaining-d.remaining%frameBytes)
	if want == 0 {
		d.state = stateExhausted
		return 0, nil
	}

	if int64(cap(d.raw)) < want {
		d.raw = make([]byte, want)
	}
	raw := d.raw[:want]

	got, err := io.ReadFull(d.r, raw)
	switch {
	case err == nil:
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		d.truncated = true
	default:
		return 0, readError(err, "read samples", d.path, d.info.DataOffset+d.info.DataLength)
	}

	usable := int64(got) - int64(got)%frameBytes
	d.remaining -= usable
	n := int(usable) / bps
	unpack(raw[:usable], d.info.BitsPerSample, dst[:n])

	if d.truncated {
		log().Debug("source shorter than declared data length",
			logger.String("path", d.path),
			logger.Int64("missing_bytes", d.remaining))
		if n == 0 {
			return 0, formatError(ErrTruncated, "declared_bytes", d.info.DataLength)
		}
		return n, nil
	}
	if d.remaining < frameBytes {
		d.state = stateExhausted
	}
	return n, nil
}

// Rewind positions the decoder at the first PCM byte again
func (d *Decoder) Rewind() error {
	if !d.Valid() {
		if d.state == stateClosed {
			return ErrDecoderClosed
		}
		return ErrInvalidDecoder
	}
	if _, err := d.r.Seek(d.info.DataOffset, io.SeekStart); err != nil {
		return readError(err, "seek", d.path, d.info.DataOffset+d.info.DataLength)
	}
	d.remaining = d.info.DataLength
	d.truncated = false
	d.state = stateHeaderParsed
	return nil
}

// Close releases the underlying file, if the decoder owns one
func (d *Decoder) Close() error {
	if d.state == stateClosed {
		return nil
	}
	d.state = stateClosed
	d.raw = nil
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

func (d *Decoder) readFull(buf []byte) error {
	n, err := io.ReadFull(d.r, buf)
	d.offset += int64(n)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return formatError(ErrTruncated, "offset", d.offset)
		}
		return readError(err, "read header", d.path, d.info.DataOffset+d.info.DataLength)
	}
	return nil
}

func (d *Decoder) readID() (string, error) {
	var id [4]byte
	if err := d.readFull(id[:]); err != nil {
		return "", err
	}
	return string(id[:]), nil
}

func (d *Decoder) readUint32() (uint32, error) {
	var b [4]byte
	if err := d.readFull(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func (d *Decoder) skip(n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := d.r.Seek(n, io.SeekCurrent); err != nil {
		return readError(err, "skip chunk", d.path, d.info.DataOffset+d.info.DataLength)
	}
	d.offset += n
	return nil
}

func roundUpToEven(n int64) int64 {
	return n + n&1
}
