// exrpremiere drives the import and export paths an editing host uses,
// from the command line.
//
// Usage:
//
//	exrpremiere info [options] file.exr [file.exr ...]
//	exrpremiere import [options] in.exr out.tif
//	exrpremiere export [options] in.{tif,png} out.exr
//
// Run a command with -h to list its options.
//
// Exit codes:
//
//	0: success
//	1: a file could not be read or written
//	2: bad usage
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/mrjoshuak/exrpremiere/exr"
	"github.com/mrjoshuak/exrpremiere/exrmeta"
	"github.com/mrjoshuak/exrpremiere/exrutil"
	"github.com/mrjoshuak/exrpremiere/plugin"
	"github.com/mrjoshuak/exrpremiere/transcode"
)

const version = "1.0.0"

var commands = map[string]func(args []string) error{
	"info":   runInfo,
	"import": runImport,
	"export": runExport,
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "-h", "-help", "--help":
		printUsage()
		os.Exit(0)
	case "-version", "--version":
		fmt.Printf("exrpremiere version %s\n", version)
		os.Exit(0)
	}
	run, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
	if err := run(os.Args[2:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		if _, ok := err.(usageError); ok {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: exrpremiere <command> [options] <files>\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  info    describe OpenEXR files as an editing host sees them\n")
	fmt.Fprintf(os.Stderr, "  import  decode a frame to TIFF through the import path\n")
	fmt.Fprintf(os.Stderr, "  export  encode a TIFF or PNG frame through the export path\n")
}

type usageError string

func (e usageError) Error() string { return string(e) }

// newFlagSet returns a flag set with the shared -v option.
func newFlagSet(name, usage string) (*flag.FlagSet, *bool) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	verbose := fs.Bool("v", false, "log decisions to stderr")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: exrpremiere %s [options] %s\n\nOptions:\n", name, usage)
		fs.PrintDefaults()
	}
	return fs, verbose
}

// setVerbose routes plugin logging to stderr.
func setVerbose(on bool) {
	if !on {
		return
	}
	plugin.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

var colorSpaces = map[string]transcode.ColorSpace{
	"linear":  transcode.LinearAdobe,
	"bypass":  transcode.LinearBypass,
	"srgb":    transcode.SRGB,
	"rec709":  transcode.Rec709,
	"cineon":  transcode.Cineon,
	"gamma22": transcode.Gamma22,
}

func parseColorSpace(s string) (transcode.ColorSpace, error) {
	cs, ok := colorSpaces[strings.ToLower(s)]
	if !ok {
		return 0, usageError(fmt.Sprintf("invalid color space %q (linear, bypass, srgb, rec709, cineon, gamma22)", s))
	}
	return cs, nil
}

func parseCompression(s string) (exr.Compression, error) {
	for _, o := range plugin.CompressionTable {
		if strings.EqualFold(o.Name, s) {
			return o.Compression, nil
		}
	}
	return 0, usageError(fmt.Sprintf("invalid compression %q", s))
}

// parseRational accepts "n:d", "n/d" or a decimal number.
func parseRational(s string) (exr.Rational, error) {
	if i := strings.IndexAny(s, ":/"); i >= 0 {
		n, err1 := strconv.ParseInt(s[:i], 10, 32)
		d, err2 := strconv.ParseUint(s[i+1:], 10, 32)
		if err1 != nil || err2 != nil || n <= 0 || d == 0 {
			return exr.Rational{}, usageError(fmt.Sprintf("invalid ratio %q", s))
		}
		return exr.Rational{Num: int32(n), Denom: uint32(d)}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return exr.Rational{}, usageError(fmt.Sprintf("invalid ratio %q", s))
	}
	return exrmeta.FloatToRational(f, 1000), nil
}

func runInfo(args []string) error {
	fs, verbose := newFlagSet("info", "file.exr [file.exr ...]")
	cs := fs.String("c", "linear", "color space named in the analysis line")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setVerbose(*verbose)
	if fs.NArg() == 0 {
		fs.Usage()
		return usageError("no input files")
	}
	space, err := parseColorSpace(*cs)
	if err != nil {
		return err
	}
	for _, name := range fs.Args() {
		if err := printInfo(name, space); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func printInfo(name string, cs transcode.ColorSpace) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	im, err := plugin.Open(f, plugin.ImportOptions{})
	if err != nil {
		return err
	}
	info := im.Info()
	s := im.DefaultSettings()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  %s\n", im.Analysis(cs))
	fmt.Printf("  Size: %dx%d, %d bits per pixel\n", info.Width, info.Height, info.Depth)
	fmt.Printf("  Data window: %v\n", im.File().DataWindow())
	fmt.Printf("  Pixel aspect: %d:%d\n", info.PixelAspect.Num, info.PixelAspect.Denom)
	if info.FrameRate != nil {
		fmt.Printf("  Frame rate: %s\n", exrmeta.FrameRateName(*info.FrameRate))
	}
	if info.TimeCode != "" {
		fmt.Printf("  Time code: %s\n", info.TimeCode)
	}
	fmt.Printf("  Channels: %s\n", strings.Join(info.Channels, ", "))
	if layers := exrutil.ListLayers(im.File().Channels()); len(layers) > 0 {
		fmt.Printf("  Layers: %s\n", strings.Join(layers, ", "))
	}
	fmt.Printf("  Default mapping: R=%s G=%s B=%s A=%s\n", s.Red, s.Green, s.Blue, s.Alpha)
	if w := exrmeta.Writer(im.File().Header(0)); w != "" {
		fmt.Printf("  Writer: %s\n", w)
	}
	return nil
}

func runImport(args []string) error {
	fs, verbose := newFlagSet("import", "in.exr out.tif")
	cs := fs.String("c", "linear", "color space (linear, bypass, srgb, rec709, cineon, gamma22)")
	layer := fs.String("layer", "", "read the R, G, B and A channels of this layer")
	red := fs.String("r", "", "channel for red")
	green := fs.String("g", "", "channel for green")
	blue := fs.String("b", "", "channel for blue")
	alpha := fs.String("a", "", "channel for alpha")
	thumb := fs.Uint("thumb", 0, "scale the frame to fit a square of this size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setVerbose(*verbose)
	if fs.NArg() != 2 {
		fs.Usage()
		return usageError("need an input and an output file")
	}
	space, err := parseColorSpace(*cs)
	if err != nil {
		return err
	}

	in, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer in.Close()
	im, err := plugin.Open(in, plugin.ImportOptions{})
	if err != nil {
		return err
	}

	s := im.DefaultSettings()
	s.ColorSpace = space
	if *layer != "" {
		m := exrutil.LayerMapping(*layer, im.ChannelNames())
		s.Red, s.Green, s.Blue, s.Alpha = m.Red, m.Green, m.Blue, m.Alpha
	}
	for _, o := range []struct {
		flag string
		role *string
	}{{*red, &s.Red}, {*green, &s.Green}, {*blue, &s.Blue}, {*alpha, &s.Alpha}} {
		if o.flag != "" {
			*o.role = o.flag
		}
	}

	disp := im.File().DisplayWindow()
	frame, err := transcode.NewPixelBuffer(exr.PixelTypeFloat, 4, disp.Width(), disp.Height())
	if err != nil {
		return err
	}
	if err := im.ReadFrame(frame, s); err != nil {
		return err
	}
	return writeTIFF(fs.Arg(1), frameToImage(frame), *thumb)
}

func runExport(args []string) error {
	fs, verbose := newFlagSet("export", "in.{tif,png} out.exr")
	def := plugin.DefaultExportSettings()
	comp := fs.String("compression", plugin.CompressionName(def.Compression), "compression name")
	dwa := fs.Float64("dwa", float64(def.DWALevel), "DWA compression level")
	useFloat := fs.Bool("float", false, "write float channels instead of half")
	noAlpha := fs.Bool("noalpha", false, "leave out the alpha channel")
	straight := fs.Bool("straight", false, "do not premultiply by alpha")
	luma := fs.Bool("luma", false, "write luminance and chroma")
	bypass := fs.Bool("bypass", false, "note that the linear conversion was bypassed")
	fps := fs.Float64("fps", 0, "frame rate")
	start := fs.Duration("start", 0, "position of the frame in its sequence")
	par := fs.String("par", "1:1", "pixel aspect ratio")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setVerbose(*verbose)
	if fs.NArg() != 2 {
		fs.Usage()
		return usageError("need an input and an output file")
	}

	c, err := parseCompression(*comp)
	if err != nil {
		return err
	}
	aspect, err := parseRational(*par)
	if err != nil {
		return err
	}
	s := plugin.ExportSettings{
		Compression:  c,
		DWALevel:     float32(*dwa),
		HalfFloat:    !*useFloat,
		Alpha:        !*noAlpha,
		Premultiply:  !*straight,
		LumaChroma:   *luma,
		BypassLinear: *bypass,
	}
	if err := s.Validate(); err != nil {
		return err
	}

	img, err := readImage(fs.Arg(0))
	if err != nil {
		return err
	}
	frame, err := imageToFrame(img)
	if err != nil {
		return err
	}

	out, err := os.Create(fs.Arg(1))
	if err != nil {
		return err
	}
	meta := plugin.FrameMeta{PixelAspect: aspect, FrameRate: *fps, Start: *start}
	if st, err := os.Stat(fs.Arg(0)); err == nil {
		meta.Time = st.ModTime()
	}
	if err := plugin.Export(out, frame, meta, s, transcode.DefaultConfig()); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
