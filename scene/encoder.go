package scene

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/squadracorsepolito/satwriter/writer"
)

var ErrUnknownWriter = errors.New("scene: unknown writer")

// Encoder serializes a dataset.
type Encoder interface {
	Encode(w io.Writer, ds *Dataset, opts *writer.SaveOptions) error
}

// EncoderFunc adapts a function to an [Encoder].
type EncoderFunc func(w io.Writer, ds *Dataset, opts *writer.SaveOptions) error

func (f EncoderFunc) Encode(w io.Writer, ds *Dataset, opts *writer.SaveOptions) error {
	return f(w, ds, opts)
}

// Registry maps writer identifiers and file formats to encoders.
type Registry struct {
	mux      sync.RWMutex
	encoders map[writer.WriterID]Encoder
	formats  map[string]writer.WriterID
}

func NewRegistry() *Registry {
	return &Registry{
		encoders: make(map[writer.WriterID]Encoder),
		formats:  make(map[string]writer.WriterID),
	}
}

// DefaultRegistry returns a [Registry] with the raw and png writers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(WriterRaw, EncoderFunc(encodeRaw), "raw", "bin")
	r.Register(WriterPNG, EncoderFunc(encodePNG), "png")
	return r
}

// Writers provided by [DefaultRegistry].
const (
	WriterRaw writer.WriterID = "raw"
	WriterPNG writer.WriterID = "png"
)

// Register adds an encoder used for the writer id and the given formats.
func (r *Registry) Register(id writer.WriterID, enc Encoder, formats ...string) {
	r.mux.Lock()
	defer r.mux.Unlock()

	r.encoders[id] = enc
	for _, format := range formats {
		r.formats[strings.ToLower(format)] = id
	}
}

// Lookup returns the encoder of a writer id.
// The empty id resolves the encoder registered for the format.
func (r *Registry) Lookup(id writer.WriterID, format string) (Encoder, error) {
	r.mux.RLock()
	defer r.mux.RUnlock()

	if id == "" {
		formatID, ok := r.formats[strings.ToLower(format)]
		if !ok {
			return nil, fmt.Errorf("%w: no writer for format %q", ErrUnknownWriter, format)
		}
		id = formatID
	}

	enc, ok := r.encoders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWriter, id)
	}

	return enc, nil
}

const rawMagic = "SATRAW1\n"

type rawHeader struct {
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Compression int               `json:"compression"`
	BlockSize   int               `json:"blocksize,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// encodeRaw writes a JSON header line followed by the little endian
// float32 samples, gzip compressed when the compression level is positive.
func encodeRaw(w io.Writer, ds *Dataset, opts *writer.SaveOptions) error {
	level := min(max(opts.Compression, 0), gzip.BestCompression)

	header, err := json.Marshal(&rawHeader{
		Width:       ds.Width,
		Height:      ds.Height,
		Compression: level,
		BlockSize:   opts.BlockSize,
		Tags:        opts.Tags,
	})
	if err != nil {
		return err
	}

	if _, err := io.WriteString(w, rawMagic); err != nil {
		return err
	}
	if _, err := w.Write(append(header, '\n')); err != nil {
		return err
	}

	if level == 0 {
		bw := bufio.NewWriter(w)
		if err := binary.Write(bw, binary.LittleEndian, ds.Data); err != nil {
			return err
		}
		return bw.Flush()
	}

	zw, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		return err
	}

	if err := binary.Write(zw, binary.LittleEndian, ds.Data); err != nil {
		_ = zw.Close()
		return err
	}

	return zw.Close()
}

// DecodeRaw reads a dataset written by the raw writer.
func DecodeRaw(r io.Reader) (*Dataset, map[string]string, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(rawMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, nil, err
	}
	if string(magic) != rawMagic {
		return nil, nil, errors.New("scene: not a raw file")
	}

	line, err := br.ReadBytes('\n')
	if err != nil {
		return nil, nil, err
	}

	header := rawHeader{}
	if err := json.Unmarshal(line, &header); err != nil {
		return nil, nil, err
	}

	var body io.Reader = br
	if header.Compression > 0 {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		defer zr.Close()
		body = zr
	}

	ds := &Dataset{
		Width:  header.Width,
		Height: header.Height,
		Data:   make([]float32, header.Width*header.Height),
	}
	if err := binary.Read(body, binary.LittleEndian, ds.Data); err != nil {
		return nil, nil, err
	}

	return ds, header.Tags, nil
}

func pngCompression(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

// encodePNG writes the dataset as an 8 bit grayscale image
// stretched between its minimum and maximum. NaN samples are black.
func encodePNG(w io.Writer, ds *Dataset, opts *writer.SaveOptions) error {
	img := image.NewGray(image.Rect(0, 0, ds.Width, ds.Height))

	lo, hi := ds.bounds()
	scale := 0.0
	if hi > lo {
		scale = 255 / (hi - lo)
	}

	for y := range ds.Height {
		for x := range ds.Width {
			v := float64(ds.Data[y*ds.Width+x])
			if math.IsNaN(v) {
				continue
			}
			img.SetGray(x, y, color.Gray{Y: uint8(math.Round((v - lo) * scale))})
		}
	}

	enc := png.Encoder{CompressionLevel: pngCompression(opts.Compression)}
	return enc.Encode(w, img)
}
