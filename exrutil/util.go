// Package exrutil groups the channels of an OpenEXR file into layers.
//
// A layer is the part of a channel name before its last dot, so
// "diffuse.R" is channel R of layer "diffuse" and "R" belongs to the root
// layer "".
//
// Example usage:
//
//	for _, layer := range exrutil.ListLayers(cl) {
//		m := exrutil.LayerMapping(layer, cl.Names())
//		fmt.Println(layer, m.Red, m.Green, m.Blue, m.Alpha)
//	}
package exrutil

import (
	"golang.org/x/exp/slices"

	"github.com/mrjoshuak/exrpremiere/exr"
	"github.com/mrjoshuak/exrpremiere/transcode"
)

// SplitName returns the layer and base name of a channel.
func SplitName(name string) (layer, base string) {
	c := exr.Channel{Name: name}
	base = c.BaseName()
	if len(base) == len(name) {
		return "", name
	}
	return name[:len(name)-len(base)-1], base
}

// SplitLayers returns channel base names grouped by layer. Channels
// without a layer prefix are grouped under the empty string.
func SplitLayers(cl *exr.ChannelList) map[string][]string {
	layers := make(map[string][]string)
	if cl == nil {
		return layers
	}
	for _, name := range cl.Names() {
		layer, base := SplitName(name)
		layers[layer] = append(layers[layer], base)
	}
	return layers
}

// ListLayers returns the sorted names of the layers in cl, leaving out the
// root layer.
func ListLayers(cl *exr.ChannelList) []string {
	var layers []string
	for layer := range SplitLayers(cl) {
		if layer != "" {
			layers = append(layers, layer)
		}
	}
	slices.Sort(layers)
	return layers
}

// LayerMapping maps the colour roles to the R, G, B and A channels of one
// layer. Roles the layer has no channel for are ChannelNone. The root
// layer gets the default mapping, luminance files included.
func LayerMapping(layer string, available []string) transcode.ChannelMapping {
	if layer == "" {
		return transcode.DefaultMapping(available)
	}
	pick := func(base string) string {
		return layer + "." + base
	}
	return transcode.ResolveMapping(transcode.ChannelMapping{
		Red:   pick("R"),
		Green: pick("G"),
		Blue:  pick("B"),
		Alpha: pick("A"),
	}, available)
}
