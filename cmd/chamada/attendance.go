package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

var markCmd = &cobra.Command{
	Use:   "mark <name>",
	Short: "Mark a registered person as present today",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), true)
		if err != nil {
			return err
		}

		result, err := a.Service.MarkManual(cmd.Context(), args[0])
		if err != nil && !(result.Marked && errors.Is(err, domain.ErrLedgerPersist)) {
			return err
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}

		if result.Marked {
			fmt.Printf("%s marked present at %s\n", result.Name, result.Time)
		} else {
			fmt.Printf("%s already present since %s\n", result.Name, result.Time)
		}
		return nil
	},
}

var todayCmd = &cobra.Command{
	Use:   "today [date]",
	Short: "Show who is present today, or on a YYYY-MM-DD date",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}

		report := a.Service.Today()
		if len(args) == 1 {
			if report, err = a.Service.Day(args[0]); err != nil {
				return err
			}
		}

		fmt.Printf("Attendance %s: %d present\n", report.Date, report.Total)
		for _, e := range report.Entries {
			fmt.Printf("  %s  %s\n", e.Time, e.Name)
		}
		return nil
	},
}

var datesCmd = &cobra.Command{
	Use:   "dates",
	Short: "List every date with attendance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		for _, d := range a.Service.Dates() {
			fmt.Println(d)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(markCmd, todayCmd, datesCmd)
}
