// Package modelstore implements the binary model store used to persist
// fitted pipelines: a flat stream of named blocks, each carrying its own
// version header, so every stage can gate readability of its stored
// parameters independently. The block stream may be zstd-compressed.
package modelstore

import (
	"encoding/binary"
	"io"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/pulsarml/pulsar/pkg/errors"
)

var magic = [4]byte{'P', 'L', 'S', 'R'}

// FormatVersion is the store container format version
const FormatVersion uint32 = 1

const flagCompressed byte = 1 << 0

// Version is a stage's version triple: the version it writes, the newest
// version it can represent, and the oldest written version it still reads.
type Version struct {
	Written     uint32 `json:"written"`
	Readable    uint32 `json:"readable"`
	MinReadable uint32 `json:"min_readable"`
}

// CanRead reports whether code carrying the receiver triple can read a
// block stored with the given header triple.
func (v Version) CanRead(stored Version) bool {
	if stored.Written < v.MinReadable {
		return false // too old for this reader
	}
	if stored.MinReadable > v.Written {
		return false // writer demands a newer reader
	}
	return true
}

// Block is one named, versioned unit in the store.
type Block struct {
	Name    string
	Ver     Version
	Payload []byte
}

// Decode unmarshals the block payload into out.
func (b *Block) Decode(out interface{}) error {
	if err := json.Unmarshal(b.Payload, out); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSerialization, "decode block "+b.Name)
	}
	return nil
}

// Writer writes a block stream to an underlying io.Writer.
type Writer struct {
	raw  io.Writer
	body io.Writer
	zw   *zstd.Encoder
}

// NewWriter writes the store header and returns a Writer for the body.
// When compress is true the body is a zstd stream; Close must be called
// to flush it.
func NewWriter(w io.Writer, compress bool) (*Writer, error) {
	header := make([]byte, 0, 9)
	header = append(header, magic[:]...)
	header = binary.LittleEndian.AppendUint32(header, FormatVersion)
	var flags byte
	if compress {
		flags |= flagCompressed
	}
	header = append(header, flags)
	if _, err := w.Write(header); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "write store header")
	}

	sw := &Writer{raw: w, body: w}
	if compress {
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "init zstd writer")
		}
		sw.zw = zw
		sw.body = zw
	}
	return sw, nil
}

// WriteBlock encodes params as JSON and writes one named, versioned block.
func (w *Writer) WriteBlock(name string, ver Version, params interface{}) error {
	payload, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSerialization, "encode block "+name)
	}
	if err := w.writeString(name); err != nil {
		return err
	}
	var buf []byte
	buf = binary.LittleEndian.AppendUint32(buf, ver.Written)
	buf = binary.LittleEndian.AppendUint32(buf, ver.Readable)
	buf = binary.LittleEndian.AppendUint32(buf, ver.MinReadable)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(payload)))
	if _, err := w.body.Write(buf); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSerialization, "write block header")
	}
	if _, err := w.body.Write(payload); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSerialization, "write block payload")
	}
	return nil
}

// WriteCount writes a bare integer, used for the stage count.
func (w *Writer) WriteCount(n int) error {
	var buf []byte
	buf = binary.LittleEndian.AppendUint32(buf, uint32(n))
	if _, err := w.body.Write(buf); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSerialization, "write count")
	}
	return nil
}

func (w *Writer) writeString(s string) error {
	var buf []byte
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	buf = append(buf, s...)
	if _, err := w.body.Write(buf); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSerialization, "write string")
	}
	return nil
}

// Close flushes the compressed body if one is open.
func (w *Writer) Close() error {
	if w.zw != nil {
		if err := w.zw.Close(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeSerialization, "close zstd writer")
		}
	}
	return nil
}

// Reader reads a block stream written by Writer.
type Reader struct {
	body io.Reader
	zr   *zstd.Decoder
}

// NewReader validates the store header and returns a Reader for the body.
func NewReader(r io.Reader) (*Reader, error) {
	header := make([]byte, 9)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "read store header")
	}
	for i := range magic {
		if header[i] != magic[i] {
			return nil, errors.New(errors.ErrorTypeSerialization, "bad store magic")
		}
	}
	version := binary.LittleEndian.Uint32(header[4:8])
	if version > FormatVersion {
		return nil, errors.Newf(errors.ErrorTypeSerialization,
			"store format version %d newer than supported %d", version, FormatVersion)
	}
	flags := header[8]

	sr := &Reader{body: r}
	if flags&flagCompressed != 0 {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "init zstd reader")
		}
		sr.zr = zr
		sr.body = zr
	}
	return sr, nil
}

// ReadBlock reads the next block.
func (r *Reader) ReadBlock() (*Block, error) {
	name, err := r.readString()
	if err != nil {
		return nil, err
	}
	header := make([]byte, 16)
	if _, err := io.ReadFull(r.body, header); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "read block header")
	}
	ver := Version{
		Written:     binary.LittleEndian.Uint32(header[0:4]),
		Readable:    binary.LittleEndian.Uint32(header[4:8]),
		MinReadable: binary.LittleEndian.Uint32(header[8:12]),
	}
	size := binary.LittleEndian.Uint32(header[12:16])
	payload := make([]byte, size)
	if _, err := io.ReadFull(r.body, payload); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSerialization, "read block payload")
	}
	return &Block{Name: name, Ver: ver, Payload: payload}, nil
}

// ReadCount reads a bare integer written by WriteCount.
func (r *Reader) ReadCount() (int, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r.body, buf); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeSerialization, "read count")
	}
	return int(binary.LittleEndian.Uint32(buf)), nil
}

func (r *Reader) readString() (string, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r.body, buf); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeSerialization, "read string length")
	}
	data := make([]byte, binary.LittleEndian.Uint32(buf))
	if _, err := io.ReadFull(r.body, data); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeSerialization, "read string")
	}
	return string(data), nil
}

// Close releases the decompressor if one is open.
func (r *Reader) Close() {
	if r.zr != nil {
		r.zr.Close()
	}
}
