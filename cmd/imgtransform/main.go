package main

import (
	"bytes"
	"errors"
	"io"
	"log"
	"os"

	imgtransform "github.com/fachat/test-copilot-imgtransform"
	"github.com/fachat/test-copilot-imgtransform/quantize"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

var errTerminal = errors.New("refusing to write a bitmap to a terminal")

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func options(c *cli.Context) (imgtransform.Options, error) {
	opts := imgtransform.DefaultOptions()

	mode, err := quantize.ParseMode(c.String("palette"))
	if err != nil {
		return opts, err
	}

	opts.Width = c.Int("width")
	opts.Height = c.Int("height")
	opts.Colors = c.Int("colors")
	opts.Mode = mode
	opts.Crop = c.Bool("crop")

	return opts, opts.Validate()
}

func openCache(c *cli.Context) (*imgtransform.Cache, error) {
	if c.String("cache") == "" {
		return nil, nil
	}
	return imgtransform.NewCache(c.String("cache"))
}

// withConverter builds a Converter from the global flags, runs f with it
// and releases the cache afterwards.
func withConverter(c *cli.Context, f func(*imgtransform.Converter) error) error {
	opts, err := options(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	cache, err := openCache(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if cache != nil {
		defer cache.Close()
	}

	conv, err := imgtransform.New(opts, cache, newLogger(c))
	if err != nil {
		return cli.Exit(err, 1)
	}

	if err := f(conv); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func convert(conv *imgtransform.Converter, input, output string) error {
	if input != "-" && output != "" {
		return conv.ConvertFile(input, output)
	}

	var r io.Reader = os.Stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	if output == "" && term.IsTerminal(int(os.Stdout.Fd())) {
		return errTerminal
	}

	b := new(bytes.Buffer)
	if err := conv.Convert(r, b); err != nil {
		return err
	}

	if output == "" {
		_, err := os.Stdout.Write(b.Bytes())
		return err
	}
	return os.WriteFile(output, b.Bytes(), 0o644)
}

func main() {
	app := cli.NewApp()

	app.Name = "imgtransform"
	app.Usage = "Convert images to 16 color bitmaps"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.IntFlag{
			Name:    "width",
			EnvVars: []string{"IMGTRANSFORM_WIDTH"},
			Value:   imgtransform.DefaultWidth,
			Usage:   "output width in pixels",
		},
		&cli.IntFlag{
			Name:    "height",
			EnvVars: []string{"IMGTRANSFORM_HEIGHT"},
			Value:   imgtransform.DefaultHeight,
			Usage:   "output height in pixels",
		},
		&cli.IntFlag{
			Name:  "colors",
			Value: imgtransform.DefaultColors,
			Usage: "number of palette entries, at most 16",
		},
		&cli.StringFlag{
			Name:    "palette",
			EnvVars: []string{"IMGTRANSFORM_PALETTE"},
			Value:   quantize.Fixed.String(),
			Usage:   "palette source: fixed, median or weighted",
		},
		&cli.BoolFlag{
			Name:  "crop",
			Usage: "crop to the output aspect ratio before resizing",
		},
		&cli.StringFlag{
			Name:    "cache",
			EnvVars: []string{"IMGTRANSFORM_CACHE"},
			Usage:   "path to cache database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "convert",
			Usage:       "Convert a single image",
			Description: "Reads INPUT, or standard input if INPUT is -, and writes the bitmap to OUTPUT or standard output.",
			ArgsUsage:   "INPUT [OUTPUT]",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				return withConverter(c, func(conv *imgtransform.Converter) error {
					return convert(conv, c.Args().Get(0), c.Args().Get(1))
				})
			},
		},
		{
			Name:        "batch",
			Usage:       "Convert every image in a directory tree",
			Description: "",
			ArgsUsage:   "SOURCE DESTINATION",
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				return withConverter(c, func(conv *imgtransform.Converter) error {
					return conv.ConvertDirectory(c.Args().Get(0), c.Args().Get(1))
				})
			},
		},
		{
			Name:  "cache",
			Usage: "Manage the cache database",
			Subcommands: []*cli.Command{
				{
					Name:  "clear",
					Usage: "Remove every cached bitmap",
					Action: func(c *cli.Context) error {
						cache, err := openCache(c)
						if err != nil {
							return cli.Exit(err, 1)
						}
						if cache == nil {
							return cli.Exit("no cache database given", 1)
						}
						defer cache.Close()

						if err := cache.Clear(); err != nil {
							return cli.Exit(err, 1)
						}

						return nil
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
