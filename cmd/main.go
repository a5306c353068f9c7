package main

import (
	"bytes"
	"fmt"
	"image/png"
	"log"
	"os"

	"github.com/dargueta/storedpng"
	"github.com/gocarina/gocsv"
	"github.com/urfave/cli/v2"
)

var imageFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "pixel format: gray, grayalpha, rgb, or rgba",
		Value:   "rgb",
	},
	&cli.UintFlag{
		Name:     "width",
		Aliases:  []string{"W"},
		Usage:    "image width in pixels",
		Required: true,
	},
	&cli.UintFlag{
		Name:     "height",
		Aliases:  []string{"H"},
		Usage:    "image height in pixels",
		Required: true,
	},
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "storedpng",
		Usage: "Write raw pixel data as uncompressed PNG images",
		Commands: []*cli.Command{
			{
				Name:      "encode",
				Usage:     "Convert a file of raw pixels into a PNG",
				Action:    encodeImage,
				ArgsUsage: "RAW_FILE  PNG_FILE",
				Flags:     imageFlags,
			},
			{
				Name:   "size",
				Usage:  "Print the size of the PNG `encode` would write",
				Action: printSize,
				Flags:  imageFlags,
			},
			{
				Name:      "inspect",
				Usage:     "Check a PNG's structure and list its chunks",
				Action:    inspectImage,
				ArgsUsage: "PNG_FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "csv",
						Usage: "print the chunk list as CSV",
					},
				},
			},
			{
				Name:      "extract",
				Usage:     "Decode any PNG back into raw pixels",
				Action:    extractImage,
				ArgsUsage: "PNG_FILE  RAW_FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "pixel format to write: gray, grayalpha, rgb, or rgba",
						Value:   "rgba",
					},
				},
			},
		},
	}
}

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

// imageArguments reads the format and shape flags shared by `encode` and
// `size`.
func imageArguments(context *cli.Context) (storedpng.ColorFormat, storedpng.Shape, error) {
	format, err := storedpng.ParseColorFormat(context.String("format"))
	if err != nil {
		return 0, storedpng.Shape{}, err
	}

	width := context.Uint("width")
	height := context.Uint("height")
	if uint64(width) > 0xffffffff || uint64(height) > 0xffffffff {
		return 0, storedpng.Shape{}, fmt.Errorf(
			"dimensions %dx%d don't fit in 32 bits", width, height)
	}
	return format, storedpng.Shape{Width: uint32(width), Height: uint32(height)}, nil
}

func encodeImage(context *cli.Context) error {
	if context.NArg() != 2 {
		return fmt.Errorf("expected 2 arguments, got %d", context.NArg())
	}

	format, shape, err := imageArguments(context)
	if err != nil {
		return err
	}

	pixels, err := os.ReadFile(context.Args().Get(0))
	if err != nil {
		return err
	}

	encoded, err := storedpng.EncodeToBytes(format, shape, pixels)
	if err != nil {
		return err
	}

	outputPath := context.Args().Get(1)
	err = os.WriteFile(outputPath, encoded, 0o644)
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %s %s image to %s (%d bytes).\n", shape, format, outputPath, len(encoded))
	return nil
}

func printSize(context *cli.Context) error {
	format, shape, err := imageArguments(context)
	if err != nil {
		return err
	}
	fmt.Println(storedpng.PredictedSize(format, shape))
	return nil
}

func inspectImage(context *cli.Context) error {
	if context.NArg() != 1 {
		return fmt.Errorf("expected 1 argument, got %d", context.NArg())
	}

	file, err := os.Open(context.Args().Get(0))
	if err != nil {
		return err
	}
	defer file.Close()

	report, inspectErr := storedpng.Inspect(file)

	if context.Bool("csv") {
		err = gocsv.Marshal(report.Chunks, os.Stdout)
		if err != nil {
			return err
		}
	} else {
		fmt.Printf("Image: %s %s\n", report.Shape, report.Format)
		fmt.Printf(
			"Image data: %d bytes, %d bytes inflated, unfiltered: %t\n",
			report.StreamSize,
			report.FramedSize,
			report.Unfiltered,
		)
		for _, info := range report.Chunks {
			fmt.Printf(
				"  %s at %-10d %10d bytes  crc %s\n", info.Type, info.Offset, info.Length, info.CRC)
		}
	}
	return inspectErr
}

func extractImage(context *cli.Context) error {
	if context.NArg() != 2 {
		return fmt.Errorf("expected 2 arguments, got %d", context.NArg())
	}

	format, err := storedpng.ParseColorFormat(context.String("format"))
	if err != nil {
		return err
	}

	encoded, err := os.ReadFile(context.Args().Get(0))
	if err != nil {
		return err
	}

	img, err := png.Decode(bytes.NewReader(encoded))
	if err != nil {
		return err
	}

	pixels, err := storedpng.RawPixels(img, format)
	if err != nil {
		return err
	}

	outputPath := context.Args().Get(1)
	err = os.WriteFile(outputPath, pixels, 0o644)
	if err != nil {
		return err
	}

	bounds := img.Bounds()
	fmt.Printf(
		"Wrote %dx%d %s pixels to %s (%d bytes).\n",
		bounds.Dx(),
		bounds.Dy(),
		format,
		outputPath,
		len(pixels),
	)
	return nil
}
