package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var taxonomyCategory string

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "List the skills recognized in resumes and job descriptions",
	Args:  cobra.NoArgs,
	RunE:  runTaxonomy,
}

func init() {
	taxonomyCmd.Flags().StringVar(&taxonomyCategory, "category", "", "only list skills in this category")
	rootCmd.AddCommand(taxonomyCmd)
}

func runTaxonomy(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SKILL\tCATEGORY\tMATCHES")
	count := 0
	for _, s := range a.tax.Skills() {
		if taxonomyCategory != "" && !strings.EqualFold(s.Category, taxonomyCategory) {
			continue
		}
		category := s.Category
		if category == "" {
			category = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, category, strings.Join(s.Phrases(), ", "))
		count++
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d skills\n", count)
	return nil
}
