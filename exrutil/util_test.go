package exrutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mrjoshuak/exrpremiere/exr"
	"github.com/mrjoshuak/exrpremiere/transcode"
)

func channelList(names ...string) *exr.ChannelList {
	cl := exr.NewChannelList()
	for _, name := range names {
		cl.Add(exr.NewChannel(name, exr.PixelTypeHalf))
	}
	return cl
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name, layer, base string
	}{
		{"R", "", "R"},
		{"diffuse.R", "diffuse", "R"},
		{"left.diffuse.A", "left.diffuse", "A"},
		{"trailing.", "trailing", ""},
	}
	for _, tt := range tests {
		layer, base := SplitName(tt.name)
		if layer != tt.layer || base != tt.base {
			t.Errorf("SplitName(%q) = %q, %q, want %q, %q", tt.name, layer, base, tt.layer, tt.base)
		}
	}
}

func TestSplitLayers(t *testing.T) {
	cl := channelList("R", "G", "B", "diffuse.R", "diffuse.G", "diffuse.B", "specular.R")
	want := map[string][]string{
		"":         {"B", "G", "R"},
		"diffuse":  {"B", "G", "R"},
		"specular": {"R"},
	}
	if diff := cmp.Diff(want, SplitLayers(cl)); diff != "" {
		t.Errorf("SplitLayers mismatch (-want +got):\n%s", diff)
	}
	if got := SplitLayers(nil); len(got) != 0 {
		t.Errorf("SplitLayers(nil) = %v", got)
	}
}

func TestListLayers(t *testing.T) {
	tests := []struct {
		name string
		cl   *exr.ChannelList
		want []string
	}{
		{"layered", channelList("R", "diffuse.R", "specular.R", "ao.R"), []string{"ao", "diffuse", "specular"}},
		{"root only", channelList("R", "G", "B"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ListLayers(tt.cl)); diff != "" {
				t.Errorf("ListLayers mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLayerMapping(t *testing.T) {
	available := []string{"A", "B", "G", "R", "diffuse.B", "diffuse.G", "diffuse.R", "mask.A"}
	none := transcode.ChannelNone
	tests := []struct {
		layer string
		want  transcode.ChannelMapping
	}{
		{"", transcode.ChannelMapping{Red: "R", Green: "G", Blue: "B", Alpha: "A"}},
		{"diffuse", transcode.ChannelMapping{Red: "diffuse.R", Green: "diffuse.G", Blue: "diffuse.B", Alpha: none}},
		{"mask", transcode.ChannelMapping{Red: none, Green: none, Blue: none, Alpha: "mask.A"}},
		{"missing", transcode.ChannelMapping{Red: none, Green: none, Blue: none, Alpha: none}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, LayerMapping(tt.layer, available)); diff != "" {
			t.Errorf("LayerMapping(%q) mismatch (-want +got):\n%s", tt.layer, diff)
		}
	}
}
