package exr

import (
	"errors"
	"fmt"

	"github.com/mrjoshuak/exrpremiere/internal/xdr"
)

// Compression defines the compression method for pixel data.
type Compression uint8

const (
	// CompressionNone stores uncompressed data.
	CompressionNone Compression = 0
	// CompressionRLE uses run-length encoding.
	CompressionRLE Compression = 1
	// CompressionZIPS uses zlib compression on single scanlines.
	CompressionZIPS Compression = 2
	// CompressionZIP uses zlib compression on 16 scanlines.
	CompressionZIP Compression = 3
	// CompressionPIZ uses wavelet compression.
	CompressionPIZ Compression = 4
	// CompressionPXR24 uses 24-bit float conversion with zlib.
	CompressionPXR24 Compression = 5
	// CompressionB44 uses 4x4 block lossy compression.
	CompressionB44 Compression = 6
	// CompressionB44A uses B44 with flat area detection.
	CompressionB44A Compression = 7
	// CompressionDWAA uses DCT-based lossy compression (32 scanlines).
	CompressionDWAA Compression = 8
	// CompressionDWAB uses DCT-based lossy compression (256 scanlines).
	CompressionDWAB Compression = 9
	// CompressionHTJ2K256 uses High-Throughput JPEG 2000 on 256 scanlines.
	CompressionHTJ2K256 Compression = 10
	// CompressionHTJ2K32 uses High-Throughput JPEG 2000 on 32 scanlines.
	CompressionHTJ2K32 Compression = 11
)

// String returns a string representation of the compression type.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionRLE:
		return "rle"
	case CompressionZIPS:
		return "zips"
	case CompressionZIP:
		return "zip"
	case CompressionPIZ:
		return "piz"
	case CompressionPXR24:
		return "pxr24"
	case CompressionB44:
		return "b44"
	case CompressionB44A:
		return "b44a"
	case CompressionDWAA:
		return "dwaa"
	case CompressionDWAB:
		return "dwab"
	case CompressionHTJ2K256:
		return "htj2k256"
	case CompressionHTJ2K32:
		return "htj2k32"
	default:
		return "unknown"
	}
}

// ScanlinesPerChunk returns the number of scanlines grouped together
// for this compression type.
func (c Compression) ScanlinesPerChunk() int {
	switch c {
	case CompressionNone, CompressionRLE, CompressionZIPS:
		return 1
	case CompressionZIP, CompressionPXR24:
		return 16
	case CompressionPIZ, CompressionB44, CompressionB44A, CompressionDWAA, CompressionHTJ2K32:
		return 32
	case CompressionDWAB, CompressionHTJ2K256:
		return 256
	default:
		return 1
	}
}

// Supported reports whether this package can encode and decode chunks
// with the compression.
func (c Compression) Supported() bool {
	switch c {
	case CompressionNone, CompressionRLE, CompressionZIPS, CompressionZIP,
		CompressionPXR24, CompressionHTJ2K256, CompressionHTJ2K32:
		return true
	}
	return false
}

// IsLossy returns true if the compression is lossy.
func (c Compression) IsLossy() bool {
	return c == CompressionPXR24 || c == CompressionB44 ||
		c == CompressionB44A || c == CompressionDWAA || c == CompressionDWAB
}

// LineOrder defines the order of scanlines in the file.
type LineOrder uint8

const (
	// LineOrderIncreasing stores scanlines from top to bottom.
	LineOrderIncreasing LineOrder = 0
	// LineOrderDecreasing stores scanlines from bottom to top.
	LineOrderDecreasing LineOrder = 1
	// LineOrderRandom allows scanlines in any order.
	LineOrderRandom LineOrder = 2
)

// Attribute errors
var (
	ErrUnknownAttributeType = errors.New("exr: unknown attribute type")
	ErrInvalidAttribute     = errors.New("exr: invalid attribute value")
)

// AttributeType identifies the type of an attribute.
type AttributeType string

// Attribute types this package decodes. Values of other types are kept as
// raw bytes and written back unchanged.
const (
	AttrTypeBox2i        AttributeType = "box2i"
	AttrTypeBox2f        AttributeType = "box2f"
	AttrTypeChlist       AttributeType = "chlist"
	AttrTypeCompression  AttributeType = "compression"
	AttrTypeDouble       AttributeType = "double"
	AttrTypeFloat        AttributeType = "float"
	AttrTypeInt          AttributeType = "int"
	AttrTypeLineOrder    AttributeType = "lineOrder"
	AttrTypeRational     AttributeType = "rational"
	AttrTypeString       AttributeType = "string"
	AttrTypeStringVector AttributeType = "stringvector"
	AttrTypeTimecode     AttributeType = "timecode"
	AttrTypeV2f          AttributeType = "v2f"
	AttrTypeV2i          AttributeType = "v2i"
)

// Attribute represents a single header attribute.
type Attribute struct {
	Name  string
	Type  AttributeType
	Value any
}

// decodeAttributeValue decodes the size bytes of an attribute value.
func decodeAttributeValue(typ AttributeType, data []byte) (any, error) {
	r := xdr.NewReader(data)
	switch typ {
	case AttrTypeBox2i:
		return ReadBox2i(r)
	case AttrTypeBox2f:
		return ReadBox2f(r)
	case AttrTypeChlist:
		return ReadChannelList(r)
	case AttrTypeCompression:
		b, err := r.ReadByte()
		return Compression(b), err
	case AttrTypeDouble:
		return r.ReadFloat64()
	case AttrTypeFloat:
		return r.ReadFloat32()
	case AttrTypeInt:
		return r.ReadInt32()
	case AttrTypeLineOrder:
		b, err := r.ReadByte()
		return LineOrder(b), err
	case AttrTypeRational:
		return ReadRational(r)
	case AttrTypeString:
		return string(data), nil
	case AttrTypeStringVector:
		return readStringVector(r)
	case AttrTypeTimecode:
		return ReadTimeCode(r)
	case AttrTypeV2f:
		return ReadV2f(r)
	case AttrTypeV2i:
		return ReadV2i(r)
	default:
		return append([]byte(nil), data...), nil
	}
}

// WriteAttribute writes an attribute to the writer.
func WriteAttribute(w *xdr.BufferWriter, attr *Attribute) error {
	valueWriter := xdr.NewBufferWriter(64)
	if err := writeAttributeValue(valueWriter, attr); err != nil {
		return err
	}
	w.WriteString(attr.Name)
	w.WriteString(string(attr.Type))
	w.WriteInt32(int32(valueWriter.Len()))
	w.WriteBytes(valueWriter.Bytes())
	return nil
}

func writeAttributeValue(w *xdr.BufferWriter, attr *Attribute) (err error) {
	defer func() {
		// a Value of the wrong Go type for attr.Type
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s has %T value", ErrInvalidAttribute, attr.Name, attr.Value)
		}
	}()

	switch attr.Type {
	case AttrTypeBox2i:
		WriteBox2i(w, attr.Value.(Box2i))
	case AttrTypeBox2f:
		WriteBox2f(w, attr.Value.(Box2f))
	case AttrTypeChlist:
		WriteChannelList(w, attr.Value.(*ChannelList))
	case AttrTypeCompression:
		w.WriteByte(byte(attr.Value.(Compression)))
	case AttrTypeDouble:
		w.WriteFloat64(attr.Value.(float64))
	case AttrTypeFloat:
		w.WriteFloat32(attr.Value.(float32))
	case AttrTypeInt:
		w.WriteInt32(attr.Value.(int32))
	case AttrTypeLineOrder:
		w.WriteByte(byte(attr.Value.(LineOrder)))
	case AttrTypeRational:
		WriteRational(w, attr.Value.(Rational))
	case AttrTypeString:
		w.WriteBytes([]byte(attr.Value.(string)))
	case AttrTypeStringVector:
		for _, s := range attr.Value.([]string) {
			w.WriteInt32(int32(len(s)))
			w.WriteBytes([]byte(s))
		}
	case AttrTypeTimecode:
		WriteTimeCode(w, attr.Value.(TimeCode))
	case AttrTypeV2f:
		WriteV2f(w, attr.Value.(V2f))
	case AttrTypeV2i:
		WriteV2i(w, attr.Value.(V2i))
	default:
		b, ok := attr.Value.([]byte)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownAttributeType, attr.Type)
		}
		w.WriteBytes(b)
	}
	return nil
}

// readStringVector reads length-prefixed strings until the value is used up.
func readStringVector(r *xdr.Reader) ([]string, error) {
	result := []string{}
	for r.Len() > 0 {
		n, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		b, err := r.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		result = append(result, string(b))
	}
	return result, nil
}
