package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (a *app) detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <statement.pdf>",
		Short: "Show which bank issued a statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			det, ok, err := a.service().Detect(cmd.Context(), doc)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintf(out, "%s: unsupported statement format (%d pages)\n", args[0], det.Pages)
				return nil
			}
			fmt.Fprintf(out, "%s: %s (%s), %d pages\n", args[0], det.Institution.Name, det.Institution.Code, det.Pages)
			return nil
		},
	}
}

func (a *app) institutionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "institutions",
		Short: "List supported banks in detection order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tNAME")
			for _, inst := range a.service().Registry().Institutions() {
				fmt.Fprintf(tw, "%s\t%s\n", inst.Code, inst.Name)
			}
			return tw.Flush()
		},
	}
}

func (a *app) ownerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "owner <account name>",
		Short: "Suggest which household member an account belongs to",
		Long: `Suggest which household member an account belongs to, from the account name
printed on a statement.

Examples:
  stmtimport owner "SMITH, JOHN SAVINGS"
  stmtimport owner "Jane Doe Everyday Account"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, members, err := a.roster()
			if err != nil {
				return err
			}

			name := strings.Join(args, " ")
			res := a.service().SuggestOwner(cmd.Context(), name, members)

			out := cmd.OutOrStdout()
			switch res.Outcome() {
			case "matched":
				fmt.Fprintf(out, "%s -> %s [%s] (%.2f)\n", res.DetectedName, res.SuggestedMemberName, res.SuggestedMemberID, res.Confidence)
			case "new_member":
				fmt.Fprintf(out, "%s -> new member (%.2f)\n", res.DetectedName, res.Confidence)
			default:
				fmt.Fprintf(out, "no name found in %q\n", name)
			}
			return nil
		},
	}
}
