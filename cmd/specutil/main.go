// Command specutil is a thin format-conversion CLI over the specutil
// library: it contains no decode/consolidation/calibration logic of its
// own, only flag parsing and dispatch.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/alitto/pond"
	"github.com/urfave/cli/v2"

	specutil "github.com/sixy6e/go-specutil"
	"github.com/sixy6e/go-specutil/decode"
	"github.com/sixy6e/go-specutil/encode"
)

// convertOne decodes inputPath (auto-detecting format) and writes every
// gamma record to outDir as one file per sample/detector in the
// requested output format.
func convertOne(inputPath, outDir, outFormat string) error {
	var tag decode.Tag
	sf, err := specutil.LoadFile(inputPath, func(buf []byte) (*specutil.SpecFile, error) {
		var sf *specutil.SpecFile
		var decodeErr error
		sf, tag, decodeErr = decode.Auto(buf)
		return sf, decodeErr
	})
	if err != nil {
		return fmt.Errorf("%s: %w", inputPath, err)
	}
	log.Printf("%s: decoded as %s", inputPath, tag)

	warnings := sf.Finalize(specutil.DefaultConfig())
	for _, w := range warnings {
		log.Printf("%s: %s", inputPath, w)
	}

	outTag, ok := encode.ParseTag(outFormat)
	if !ok {
		return fmt.Errorf("unsupported output format %q", outFormat)
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	records := sf.GammaMeasurements()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	for i, m := range records {
		outPath := filepath.Join(outDir, fmt.Sprintf("%s.%04d.%s", base, i, outFormat))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}

		writeErr := encode.Write(f, m, outTag)
		closeErr := f.Close()
		if writeErr != nil {
			return writeErr
		}
		if closeErr != nil {
			return closeErr
		}
	}

	return nil
}

// convertTrawl walks dirPath for regular files and converts each one,
// spreading the work across a pond pool sized at 2*NumCPU.
func convertTrawl(dirPath, outDir, outFormat string) error {
	var items []string
	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			items = append(items, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Println("files to convert:", len(items))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	n := runtime.NumCPU() * 2
	pool := pond.New(n, 0, pond.MinWorkers(n), pond.Context(ctx))
	defer pool.StopAndWait()

	for _, path := range items {
		path := path
		pool.Submit(func() {
			if err := convertOne(path, outDir, outFormat); err != nil {
				log.Println(err)
			}
		})
	}

	return nil
}

func main() {
	app := &cli.App{
		Name:  "specutil",
		Usage: "convert gamma/neutron spectrum files between formats",
		Commands: []*cli.Command{
			{
				Name: "convert",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Required: true, Usage: "path to a spectrum file"},
					&cli.StringFlag{Name: "outdir", Required: true, Usage: "output directory"},
					&cli.StringFlag{Name: "format", Value: "n42", Usage: "output format: n42, chn, spe, csv, html"},
				},
				Action: func(c *cli.Context) error {
					return convertOne(c.String("input"), c.String("outdir"), c.String("format"))
				},
			},
			{
				Name: "convert-trawl",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Required: true, Usage: "directory to search for spectrum files"},
					&cli.StringFlag{Name: "outdir", Required: true, Usage: "output directory"},
					&cli.StringFlag{Name: "format", Value: "n42", Usage: "output format: n42, chn, spe, csv, html"},
				},
				Action: func(c *cli.Context) error {
					return convertTrawl(c.String("dir"), c.String("outdir"), c.String("format"))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
