package cmd

import (
	"fmt"

	"github.com/jsphweid/meigen/midi"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.mid>",
	Short: "Lists the notes of a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := midi.ReadMidiFile(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "tracks: %v\n", len(s.Tracks))
		for _, n := range midi.Summarize(s) {
			fmt.Fprintf(out, "track: %v channel: %v key: %v start: %v duration: %v\n",
				n.Track, n.Channel, n.Key, n.Start, n.Duration)
		}
		return nil
	},
}
