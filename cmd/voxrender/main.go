package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"voxrender/pkg/config"
	"voxrender/pkg/display"
	"voxrender/pkg/loader"
	"voxrender/pkg/slicegeom"
	"voxrender/pkg/texture"
	"voxrender/pkg/visualization"
)

func init() {
	// GL contexts are bound to the thread that created them
	runtime.LockOSThread()
}

func main() {
	// Parse command line arguments
	inputDir := flag.String("input", "", "Directory containing 2D slice images (JPEG)")
	configPath := flag.String("config", "voxrender.yaml", "Configuration file path")
	outputDir := flag.String("output", "", "Directory for rendered slices (default: from config)")
	sliceGap := flag.Float64("gap", 1.5, "Inter-slice gap in mm")
	resolution := flag.Float64("res", 0, "Display resolution in mm (default: from config)")
	headless := flag.Bool("headless", false, "Use the in-memory backend instead of OpenGL")
	extractSlices := flag.Bool("extract-slices", false, "Extract and save slices along all axes")
	flag.Parse()

	// Validate inputs
	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *outputDir == "" {
		*outputDir = cfg.Output.Directory
	}
	if *resolution > 0 {
		cfg.Display.Resolution = *resolution
	}
	if !cfg.Output.Verbose {
		log.SetOutput(io.Discard)
	}

	fmt.Println("================================")
	fmt.Println("GPU-RESIDENT VOXEL TEXTURE PIPELINE")
	fmt.Println("================================")

	// Load the slice stack into a volume
	vol, err := loader.LoadSliceDirectory(*inputDir, *sliceGap)
	if err != nil {
		log.Fatalf("Failed to load slices: %v", err)
	}
	shape := vol.SpatialShape()
	fmt.Printf("Loaded volume %dx%dx%d, inter-slice gap %.1f mm\n",
		shape[0], shape[1], shape[2], *sliceGap)

	disp, err := displayFromConfig(cfg)
	if err != nil {
		log.Fatalf("Invalid display configuration: %v", err)
	}

	// Select the rendering backend
	var backend texture.Backend
	if *headless {
		backend = texture.NewHeadlessBackend()
		fmt.Println("Using in-memory backend")
	} else {
		cleanup, err := initGLContext()
		if err != nil {
			log.Fatalf("Failed to initialize OpenGL: %v", err)
		}
		defer cleanup()
		backend = texture.NewGLBackend()
		fmt.Println("Using OpenGL backend")
	}

	// Build the texture pipeline: one cached image texture for the
	// volume, one auto-sized render target per slice orientation.
	cache := texture.NewCache(backend)
	imgTex, err := cache.ImageTexture(vol, "main", texture.ImageTextureOptions{
		Display: disp,
	})
	if err != nil {
		log.Fatalf("Failed to create image texture: %v", err)
	}
	texShape := imgTex.Shape()
	fmt.Printf("Image texture uploaded, shape %dx%dx%d, %d-bit storage\n",
		texShape[0], texShape[1], texShape[2], bits(imgTex.Spec()))

	axes := [3][2]int{{1, 2}, {0, 2}, {0, 1}}
	for zax := 0; zax < 3; zax++ {
		xax, yax := axes[zax][0], axes[zax][1]

		rt, err := texture.NewImageRenderTexture(backend, vol, disp, xax, yax)
		if err != nil {
			log.Fatalf("Failed to create render texture for axis %d: %v", zax, err)
		}
		w, h := rt.Size()
		fmt.Printf("Axis %d render target: %dx%d\n", zax, w, h)

		builder, err := slicegeom.NewBuilder(vol, xax, yax, zax)
		if err != nil {
			log.Fatalf("Failed to create geometry builder: %v", err)
		}
		mid := vol.VoxelToWorld([3]float64{
			float64(shape[0]) / 2, float64(shape[1]) / 2, float64(shape[2]) / 2,
		})
		slice := builder.BuildSlice(mid[zax])
		fmt.Printf("Axis %d mid-slice: depth index %d, %d voxel quads\n",
			zax, slice.Depth, len(slice.Voxels))

		if !*headless {
			if err := renderReadback(backend, rt, *outputDir, zax); err != nil {
				log.Printf("Warning: axis %d readback failed: %v", zax, err)
			}
		}
		rt.Destroy()
	}

	// Extract and save slices along each axis if requested
	if *extractSlices {
		fmt.Println("\nExtracting slices along all axes...")
		viewer := visualization.NewViewer(vol, disp.VolumeIndex())

		for axis, name := range [3]string{"x", "y", "z"} {
			axisDir := filepath.Join(*outputDir, name)
			fmt.Printf("Saving %s-axis slices to: %s\n", name, axisDir)

			if err := viewer.SaveSliceSequence(axis, axisDir); err != nil {
				log.Printf("Warning: failed to save %s-axis slices: %v", name, err)
			}
		}
		fmt.Println("Slice extraction completed!")
	}

	cache.Clear()
	fmt.Println("Done")
}

// displayFromConfig builds the display configuration from config values.
func displayFromConfig(cfg *config.Config) (*display.Display, error) {
	var interp display.Interp
	switch cfg.Display.Interpolation {
	case "nearest", "":
		interp = display.Nearest
	case "linear":
		interp = display.Linear
	default:
		return nil, fmt.Errorf("unknown interpolation %q", cfg.Display.Interpolation)
	}

	var transform display.Transform
	switch cfg.Display.Transform {
	case "id":
		transform = display.TransformID
	case "pixdim", "":
		transform = display.TransformPixdim
	case "affine":
		transform = display.TransformAffine
	default:
		return nil, fmt.Errorf("unknown transform %q", cfg.Display.Transform)
	}

	d := display.New(interp, cfg.Display.Resolution, transform)
	d.SetVolumeIndex(cfg.Display.VolumeIndex)
	return d, nil
}

// initGLContext creates a hidden window whose GL context backs all
// offscreen rendering. The returned cleanup tears the context down.
func initGLContext() (func(), error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("initializing glfw: %w", err)
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(64, 64, "voxrender", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("creating offscreen window: %w", err)
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("initializing gl: %w", err)
	}

	return func() {
		window.Destroy()
		glfw.Terminate()
	}, nil
}

// renderReadback binds the render target, reads its contents back and
// writes them as a JPEG.
func renderReadback(backend texture.Backend, rt *texture.ImageRenderTexture, outputDir string, zax int) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	if err := rt.Bind(); err != nil {
		return err
	}
	w, h := rt.Size()
	pix := backend.ReadPixels(w, h)
	rt.Unbind()

	filename := filepath.Join(outputDir, fmt.Sprintf("render_axis%d.jpg", zax))
	return visualization.SaveReadback(pix, w, h, filename)
}

func bits(spec texture.Spec) int {
	if spec.ElemType == texture.U16 {
		return 16
	}
	return 8
}
