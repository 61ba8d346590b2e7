package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsphweid/amtdata/chunk"
	"github.com/jsphweid/amtdata/util"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <chunk>",
	Short: "Inspects a chunk",
	Long:  `Prints every index entry of a chunk file with a summary of its example.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return Inspect(cmd.OutOrStdout(), args[0])
	},
}

func Inspect(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open chunk: %w", err)
	}
	index, indexLength, err := chunk.ReadIndex(f)
	f.Close()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "index: %v entries, %v bytes\n", len(index), indexLength)
	for _, key := range util.GetKeys(index) {
		val := index[key]
		ex, _, err := chunk.ReadExample(path, key)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "key: %v bytes: [%v, %v) name: %v start: %.3f duration: %.3f tracks: %v\n",
			key, val.Start, val.End, ex.Name, ex.StartTime, ex.Duration, len(ex.Tracks))
	}
	return nil
}
