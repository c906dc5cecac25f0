package plugin

import "github.com/mrjoshuak/exrpremiere/exr"

// CompressionOption is an entry of the export compression menu.
type CompressionOption struct {
	Compression exr.Compression
	Name        string
}

// CompressionTable lists the compressions offered on export, in menu
// order.
var CompressionTable = []CompressionOption{
	{exr.CompressionNone, "None"},
	{exr.CompressionRLE, "RLE"},
	{exr.CompressionZIPS, "Zip"},
	{exr.CompressionZIP, "Zip16"},
	{exr.CompressionPIZ, "Piz"},
	{exr.CompressionPXR24, "PXR24"},
	{exr.CompressionB44, "B44"},
	{exr.CompressionB44A, "B44A"},
	{exr.CompressionDWAA, "DWAA"},
	{exr.CompressionDWAB, "DWAB"},
}

// Supported reports whether frames can be written with the option.
func (o CompressionOption) Supported() bool { return o.Compression.Supported() }

// DefaultCompression is the menu default: Piz when it can be written,
// Zip16 otherwise.
func DefaultCompression() exr.Compression {
	if exr.CompressionPIZ.Supported() {
		return exr.CompressionPIZ
	}
	return exr.CompressionZIP
}

// CompressionName returns the display name of c.
func CompressionName(c exr.Compression) string {
	for _, o := range CompressionTable {
		if o.Compression == c {
			return o.Name
		}
	}
	switch c {
	case exr.CompressionHTJ2K256:
		return "HTJ2K256"
	case exr.CompressionHTJ2K32:
		return "HTJ2K32"
	}
	return "Unknown"
}
