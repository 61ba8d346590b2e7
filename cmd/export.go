package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/jsphweid/amtdata/chunk"
	"github.com/jsphweid/amtdata/config"
	"github.com/jsphweid/amtdata/constants"
	"github.com/jsphweid/amtdata/dataset"
	"github.com/jsphweid/amtdata/file"
	"github.com/jsphweid/amtdata/logger"
	"github.com/jsphweid/amtdata/model"
	"github.com/jsphweid/amtdata/util"
)

var exportWorkers int

func init() {
	exportCmd.Flags().IntVar(&exportWorkers, "workers", runtime.NumCPU(), "number of examples built in parallel")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [maxNum]",
	Short: "Exports examples into chunk files",
	Long:  `Builds one example per dataset item and packs them into chunk files under CHUNKS_PATH.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var maxNum int
		if len(args) == 1 {
			arg1, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("maxNum must be a number: %w", err)
			}
			maxNum = arg1
		}
		c, err := loadConfig()
		if err != nil {
			return err
		}
		_, err = Export(cmd.Context(), c, ExportOptions{
			OutDir:   constants.GetChunksDir(),
			MaxNum:   maxNum,
			Workers:  exportWorkers,
			Progress: os.Stderr,
		})
		return err
	},
}

type ExportOptions struct {
	OutDir string
	// MaxNum limits the export to the first MaxNum items when positive.
	MaxNum   int
	Workers  int
	Progress io.Writer
}

type exportResult struct {
	index int
	ex    *dataset.Example
	err   error
}

// exampleSeed gives every item its own crop and prompt stream, so an export
// does not depend on how items land on workers.
func exampleSeed(seed uint64, index int) uint64 {
	return seed + uint64(index)*0x9e3779b97f4a7c15
}

// Export writes chunk files, allChunks.dat and itemNumToName.dat to
// opts.OutDir. Items whose example fails are logged and left out.
func Export(ctx context.Context, c *config.Config, opts ExportOptions) ([]model.ChunkOverview, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	l := logger.Get()
	ctx = log.WithContext(ctx, l)

	if err := util.RecreateOutputDir(opts.OutDir); err != nil {
		return nil, err
	}
	d, err := dataset.Open(ctx, c, c.Seed)
	if err != nil {
		return nil, err
	}
	n := d.Len()
	if opts.MaxNum > 0 && opts.MaxNum < n {
		n = opts.MaxNum
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	progress := opts.Progress
	if progress == nil {
		progress = io.Discard
	}
	l.Info("exporting", "dataset", d.Name, "split", c.Split, "items", n, "workers", workers)

	p := mpb.NewWithContext(ctx, mpb.WithWidth(64), mpb.WithOutput(progress))
	bar := p.AddBar(int64(n),
		mpb.PrependDecorators(
			decor.Name("Exporting: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.AverageETA(decor.ET_STYLE_GO),
		),
	)

	jobs := make(chan int, n)
	results := make(chan exportResult, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					results <- exportResult{index: i, err: err}
					continue
				}
				ex, err := d.WithSeed(exampleSeed(c.Seed, i)).Get(ctx, i)
				results <- exportResult{index: i, ex: ex, err: err}
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	go func() {
		wg.Wait()
		close(results)
	}()

	debounced := debounce.New(time.Second)
	var done, failed atomic.Int64

	// examples arrive out of order; chunks need ascending keys
	writer := chunk.NewWriter(opts.OutDir)
	pending := make(map[int]*dataset.Example)
	next := 0
	var writeErr error
	for r := range results {
		bar.Increment()
		pending[r.index] = r.ex
		if r.err != nil {
			failed.Add(1)
			l.Warn("skipping example", "index", r.index, "err", r.err)
		}
		total := done.Add(1)
		debounced(func() {
			l.Debug("export progress", "done", total, "of", n, "failed", failed.Load())
		})

		for {
			ex, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			if ex != nil && writeErr == nil {
				writeErr = writer.Add(chunk.Key(next), ex)
			}
			next++
		}
	}
	if !bar.Completed() {
		bar.Abort(false)
	}
	p.Wait()
	if writeErr != nil {
		return nil, writeErr
	}

	chunks, err := writer.Close()
	if err != nil {
		return nil, err
	}
	if err := util.CreateBinary(filepath.Join(opts.OutDir, constants.AllChunksFilename), chunks); err != nil {
		return nil, err
	}
	names := file.CreateItemNumMap(d.Items[:n])
	if err := util.CreateBinary(filepath.Join(opts.OutDir, constants.ItemNumToNameFilename), names); err != nil {
		return nil, err
	}
	l.Info("export finished", "examples", int64(n)-failed.Load(), "failed", failed.Load(), "chunks", len(chunks))
	return chunks, nil
}
