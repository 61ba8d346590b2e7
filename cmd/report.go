package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/jsphweid/amtdata/chunk"
	"github.com/jsphweid/amtdata/constants"
	"github.com/jsphweid/amtdata/util"
)

func init() {
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Creates a report",
	Long:  `Summarises the chunk files in CHUNKS_PATH.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := analyzeChunks(constants.GetChunksDir())
		if err != nil {
			return err
		}
		r.print(cmd.OutOrStdout())
		return nil
	},
}

var chunkFilename = regexp.MustCompile("^[0-9a-fA-F]{8}-([0-9a-fA-F]{4}-){3}[0-9a-fA-F]{12}.dat$")

type chunksReport struct {
	numFiles          int64
	numExamples       int64
	examplesInIndexes []int64
	indexPercents     []float32
	avgIndexPercent   float32
	totalBytes        int64
	dataBytes         int64
	notesPerClass     map[string]int64
	secondsOfAudio    float64
}

func analyzeChunks(dir string) (chunksReport, error) {
	report := chunksReport{notesPerClass: make(map[string]int64)}
	files, err := os.ReadDir(dir)
	if err != nil {
		return report, fmt.Errorf("could not read dir: %w", err)
	}

	for _, file := range files {
		filename := file.Name()
		if !chunkFilename.MatchString(filename) {
			continue
		}
		report.numFiles += 1
		path := filepath.Join(dir, filename)
		f, err := os.Open(path)
		if err != nil {
			return report, err
		}
		index, indexLength, err := chunk.ReadIndex(f)
		if err != nil {
			f.Close()
			return report, fmt.Errorf("%v: %w", filename, err)
		}
		stats, err := f.Stat()
		f.Close()
		if err != nil {
			return report, fmt.Errorf("could not get file stats: %w", err)
		}

		report.examplesInIndexes = append(report.examplesInIndexes, int64(len(index)))
		report.numExamples += int64(len(index))
		report.totalBytes += stats.Size()
		report.dataBytes += stats.Size() - int64(indexLength+4)
		report.indexPercents = append(report.indexPercents, float32(indexLength+4)/float32(stats.Size()))

		for _, key := range util.GetKeys(index) {
			ex, _, err := chunk.ReadExample(path, key)
			if err != nil {
				return report, err
			}
			report.secondsOfAudio += ex.Duration
			for _, t := range ex.Tracks {
				report.notesPerClass[t.InstClass] += int64(len(t.Notes))
			}
		}
	}
	if report.totalBytes > 0 {
		report.avgIndexPercent = float32(report.totalBytes-report.dataBytes) / float32(report.totalBytes)
	}
	return report, nil
}

func (r chunksReport) print(w io.Writer) {
	fmt.Fprintf(w, "chunksReport.numFiles: %v\n", r.numFiles)
	fmt.Fprintf(w, "chunksReport.numExamples: %v\n", r.numExamples)
	fmt.Fprintf(w, "chunksReport.examplesInIndexes: %v\n", r.examplesInIndexes)
	fmt.Fprintf(w, "numCalcedExamples from indexes: %v\n", util.Sum(r.examplesInIndexes))
	fmt.Fprintf(w, "chunksReport.indexPercents: %v\n", r.indexPercents)
	fmt.Fprintf(w, "chunksReport.avgIndexPercent: %v\n", r.avgIndexPercent)
	fmt.Fprintf(w, "chunksReport.totalBytes: %v\n", r.totalBytes)
	fmt.Fprintf(w, "chunksReport.dataBytes: %v\n", r.dataBytes)
	fmt.Fprintf(w, "seconds of audio: %.1f\n", r.secondsOfAudio)
	for _, class := range util.GetKeys(r.notesPerClass) {
		fmt.Fprintf(w, "notes %v: %v\n", class, r.notesPerClass[class])
	}
}
