package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/signlang/internal/bootstrap"
)

func newWordCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "word <input>",
		Short: "Resolve a word to its display form and animation asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			entry := bootstrap.NewVocabulary(cfg).Lookup(args[0])
			if jsonOutput {
				return writeJSON(cmd, entry)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Display: %s\n", entry.Display)
			fmt.Fprintf(out, "Known: %s\n", yesNo(entry.Known))
			if entry.Known {
				fmt.Fprintf(out, "Asset: %s\n", entry.AssetURL)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the entry as JSON")
	return cmd
}

func newWordsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "words",
		Short: "List the vocabulary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			vocab := bootstrap.NewVocabulary(cfg)

			words := vocab.Words()
			rows := make([][]string, 0, len(words))
			for _, word := range words {
				entry := vocab.Lookup(word)
				rows = append(rows, []string{entry.Display, entry.AssetURL})
			}
			renderTable(cmd.OutOrStdout(), []string{"Word", "Asset"}, rows, nil)
			return nil
		},
	}
}
