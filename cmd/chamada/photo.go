package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var photoCmd = &cobra.Command{
	Use:   "photo <image>",
	Short: "Recognize the faces in a photo",
	Long: `Recognize the faces in a photo and print who they are.

With --mark everyone recognized is marked present today.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mark, _ := cmd.Flags().GetBool("mark")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		a, err := newApp(cmd.Context(), true)
		if err != nil {
			return err
		}

		result, err := a.Service.RecognizePhoto(cmd.Context(), data, mark)
		if err != nil {
			return err
		}

		if len(result.Faces) == 0 {
			fmt.Println("No faces found.")
			return nil
		}
		for i, f := range result.Faces {
			line := fmt.Sprintf("%d. %s at (%.0f,%.0f %.0fx%.0f)", i+1, f.Name, f.Box.X, f.Box.Y, f.Box.Width, f.Box.Height)
			if f.Known {
				line += fmt.Sprintf(" distance %.3f", f.Distance)
			}
			if f.Marked {
				line += " - marked at " + f.Time
			}
			fmt.Println(line)
		}
		if result.PersistFailed {
			fmt.Fprintln(os.Stderr, "warning: marks could not be written to the attendance file")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(photoCmd)
	photoCmd.Flags().Bool("mark", false, "Mark recognized people as present")
}
