package exr

import (
	"errors"
	"sort"
	"strings"

	"github.com/mrjoshuak/exrpremiere/internal/xdr"
)

// PixelType is the storage type of a channel's samples.
type PixelType int32

const (
	// PixelTypeUint is a 32-bit unsigned integer.
	PixelTypeUint PixelType = 0
	// PixelTypeHalf is a 16-bit IEEE 754 float.
	PixelTypeHalf PixelType = 1
	// PixelTypeFloat is a 32-bit IEEE 754 float.
	PixelTypeFloat PixelType = 2
)

// String returns a string representation of the pixel type.
func (pt PixelType) String() string {
	switch pt {
	case PixelTypeUint:
		return "uint"
	case PixelTypeHalf:
		return "half"
	case PixelTypeFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Size returns the size in bytes of one sample, or 0 for unknown types.
func (pt PixelType) Size() int {
	switch pt {
	case PixelTypeHalf:
		return 2
	case PixelTypeUint, PixelTypeFloat:
		return 4
	default:
		return 0
	}
}

// Channel describes one image channel.
type Channel struct {
	Name      string
	Type      PixelType
	PLinear   bool
	XSampling int32
	YSampling int32
}

// NewChannel creates a full resolution channel.
func NewChannel(name string, pt PixelType) Channel {
	return Channel{Name: name, Type: pt, XSampling: 1, YSampling: 1}
}

// BaseName returns the part of the name after the last '.'.
func (c Channel) BaseName() string {
	if i := strings.LastIndexByte(c.Name, '.'); i >= 0 {
		return c.Name[i+1:]
	}
	return c.Name
}

// ErrInvalidChannelList is returned for malformed channel lists.
var ErrInvalidChannelList = errors.New("exr: invalid channel list")

// ChannelList is a set of channels kept sorted by name, which is the
// order channel data appears in a chunk.
type ChannelList struct {
	channels []Channel
}

// NewChannelList creates an empty channel list.
func NewChannelList() *ChannelList {
	return &ChannelList{}
}

// Len returns the number of channels.
func (cl *ChannelList) Len() int {
	return len(cl.channels)
}

// At returns the i-th channel in name order.
func (cl *ChannelList) At(i int) Channel {
	return cl.channels[i]
}

func (cl *ChannelList) search(name string) int {
	return sort.Search(len(cl.channels), func(i int) bool {
		return cl.channels[i].Name >= name
	})
}

// Add inserts c in name order. It returns false if a channel with the
// same name exists.
func (cl *ChannelList) Add(c Channel) bool {
	i := cl.search(c.Name)
	if i < len(cl.channels) && cl.channels[i].Name == c.Name {
		return false
	}
	cl.channels = append(cl.channels, Channel{})
	copy(cl.channels[i+1:], cl.channels[i:])
	cl.channels[i] = c
	return true
}

// Get returns the named channel or nil.
func (cl *ChannelList) Get(name string) *Channel {
	i := cl.search(name)
	if i < len(cl.channels) && cl.channels[i].Name == name {
		return &cl.channels[i]
	}
	return nil
}

// Names returns the channel names in name order.
func (cl *ChannelList) Names() []string {
	names := make([]string, len(cl.channels))
	for i, c := range cl.channels {
		names[i] = c.Name
	}
	return names
}

// Channels returns a copy of the channels in name order.
func (cl *ChannelList) Channels() []Channel {
	return append([]Channel(nil), cl.channels...)
}

// ReadChannelList reads a chlist attribute value.
func ReadChannelList(r *xdr.Reader) (*ChannelList, error) {
	cl := NewChannelList()
	for {
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		if name == "" {
			return cl, nil
		}
		pt, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		plinear, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if _, err := r.ReadBytes(3); err != nil {
			return nil, err
		}
		xs, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		ys, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		if xs < 1 || ys < 1 {
			return nil, ErrInvalidChannelList
		}
		c := Channel{Name: name, Type: PixelType(pt), PLinear: plinear != 0, XSampling: xs, YSampling: ys}
		if !cl.Add(c) {
			return nil, ErrInvalidChannelList
		}
	}
}

// WriteChannelList writes a chlist attribute value.
func WriteChannelList(w *xdr.BufferWriter, cl *ChannelList) {
	for _, c := range cl.channels {
		w.WriteString(c.Name)
		w.WriteInt32(int32(c.Type))
		if c.PLinear {
			w.WriteByte(1)
		} else {
			w.WriteByte(0)
		}
		w.WriteBytes([]byte{0, 0, 0})
		w.WriteInt32(c.XSampling)
		w.WriteInt32(c.YSampling)
	}
	w.WriteByte(0)
}
