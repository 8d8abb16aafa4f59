package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"finora/internal/classify"
	"finora/internal/models"
)

func newClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <description>",
		Short: "Classify a description with the default categories",
		Example: `  finoractl classify "Uber para o aeroporto"
  finoractl classify --direction income --suggest "Consultoria mensal"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runClassify,
	}
	cmd.Flags().String("direction", string(models.RecordKindExpense), "income or expense")
	cmd.Flags().Bool("suggest", false, "List every scoring category instead of the best one")
	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetString("direction")
	direction := models.RecordKind(raw)
	if direction != models.RecordKindIncome && direction != models.RecordKindExpense {
		return fmt.Errorf("invalid --direction %q, use income or expense", raw)
	}
	suggest, _ := cmd.Flags().GetBool("suggest")

	engine := classify.NewEngine(classify.DefaultCategories(), 0)
	description := strings.Join(args, " ")

	if suggest {
		return writeJSON(cmd.OutOrStdout(), engine.Suggest(description, direction))
	}
	cat, ok := engine.Classify(description, direction)
	return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
		"description": description,
		"matched":     ok,
		"category":    cat,
	})
}
