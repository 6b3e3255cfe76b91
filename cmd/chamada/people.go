package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "Manage the reference gallery",
}

var peopleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered people and today's presence",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			return err
		}

		people := a.Service.People()
		if len(people) == 0 {
			fmt.Println("No people registered.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPRESENT\tTIME")
		for _, p := range people {
			present := "no"
			if p.Present {
				present = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, present, p.Time)
		}
		return w.Flush()
	},
}

var peopleAddCmd = &cobra.Command{
	Use:   "add <name> <image>",
	Short: "Copy a reference image into the gallery",
	Long: `Copy a reference image into the gallery as <name><ext> and reload it.

Examples:
  chamada people add maria ~/fotos/maria.jpg`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}

		result, err := a.Service.AddPerson(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		if !result.Registered {
			fmt.Fprintf(os.Stderr, "warning: %s: %s, %s will not be recognized\n",
				result.File, domain.ErrNoFaceDetected.Message, result.Name)
			return nil
		}
		fmt.Printf("Added %s (%d people registered)\n", result.Name, len(result.Report.Loaded))
		return nil
	},
}

var peopleReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Rebuild the gallery and report skipped images",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}

		report, err := a.Service.Reload(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Loaded %d people in %s\n", len(report.Loaded), report.Duration.Round(time.Millisecond))
		for _, s := range report.Skipped {
			fmt.Printf("  skipped %s: %s %s\n", s.File, s.Reason, s.Detail)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(peopleCmd)
	peopleCmd.AddCommand(peopleListCmd, peopleAddCmd, peopleReloadCmd)
}
