package imgtransform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

var imageExtensions = map[string]struct{}{
	".bmp":  {},
	".gif":  {},
	".jpeg": {},
	".jpg":  {},
	".png":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
}

func isImage(file string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(file))]
	return ok
}

// ErrOutputClash is returned when two inputs would be written to the same
// bitmap, such as a.png and a.gif in the same directory.
var ErrOutputClash = errors.New("imgtransform: output already claimed by another input")

type job struct {
	in, out string
}

func (c *Converter) findImages(ctx context.Context, base, dst string) (<-chan job, <-chan error, error) {
	out := make(chan job)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		claimed := make(map[string]string)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories, otherwise we end up fighting with things like Spotlight, etc.
			if file != base && info.Name()[0] == '.' {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Don't convert our own output
			if info.Mode().IsDir() && file == dst {
				return filepath.SkipDir
			}

			if !info.Mode().IsRegular() || !isImage(file) {
				return nil
			}

			target, err := outputPath(base, dst, file)
			if err != nil {
				return err
			}
			if prev, ok := claimed[target]; ok {
				c.logger.Printf("\"%s\" and \"%s\" both convert to \"%s\"\n", prev, file, target)
				return &ConvertError{File: file, Err: ErrOutputClash}
			}
			claimed[target] = file

			select {
			case out <- job{in: file, out: target}:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

// outputPath maps file under base to the bitmap path under dst.
func outputPath(base, dst, file string) (string, error) {
	rel, err := filepath.Rel(base, file)
	if err != nil {
		return "", err
	}
	return filepath.Join(dst, strings.TrimSuffix(rel, filepath.Ext(rel))+".bmp"), nil
}

func (c *Converter) conversionWorker(ctx context.Context, in <-chan job) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for j := range in {
			if ctx.Err() != nil {
				return
			}

			if err := os.MkdirAll(filepath.Dir(j.out), 0o755); err != nil {
				errc <- err
				return
			}

			if err := c.ConvertFile(j.in, j.out); err != nil {
				errc <- &ConvertError{File: j.in, Err: err}
				return
			}

			c.logger.Printf("Converted \"%s\" to \"%s\"\n", j.in, j.out)
		}
	}()
	return errc, nil
}

// ConvertError records the file that failed to convert.
type ConvertError struct {
	File string
	Err  error
}

func (e *ConvertError) Error() string {
	return e.File + ": " + e.Err.Error()
}

func (e *ConvertError) Unwrap() error {
	return e.Err
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// ConvertDirectory converts every image found under src, writing bitmaps
// to the same relative path under dst with a .bmp extension. Conversion
// stops at the first failure, including two inputs that differ only in
// their extension.
func (c *Converter) ConvertDirectory(src, dst string) error {
	base, err := filepath.Abs(src)
	if err != nil {
		return err
	}

	out, err := filepath.Abs(dst)
	if err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	files, errc, err := c.findImages(ctx, base, out)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	for i := 0; i < runtime.NumCPU(); i++ {
		errc, err := c.conversionWorker(ctx, files)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	return waitForPipeline(errcList...)
}
