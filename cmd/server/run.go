package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

func newRunCommand(configPath *string) *cobra.Command {
	var (
		input string
		files []string
	)

	cmd := &cobra.Command{
		Use:   "run <pipelineId>",
		Short: "Run a pipeline once and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := bootstrap(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.runner.Run(ctx, args[0], models.RunRequest{
				InitialInput: input,
				InputFiles:   files,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Initial input for the first segment")
	addFileFlag(cmd.Flags(), &files)
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newInvokeCommand(configPath *string) *cobra.Command {
	var inv models.Invocation

	cmd := &cobra.Command{
		Use:   "invoke <toolId>",
		Short: "Invoke a single tool and print its output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := bootstrap(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			inv.ToolID = args[0]
			out, err := a.engine.InvokeTool(ctx, inv)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&inv.Prompt, "prompt", "", "Instruction sent to the tool")
	cmd.Flags().StringVar(&inv.InputText, "input", "", "Text the tool works on")
	addFileFlag(cmd.Flags(), &inv.InputFiles)
	cmd.Flags().StringVar(&inv.Model, "model", "", "Model to use")
	return cmd
}

// addFileFlag registers the repeatable --file flag shared by run and invoke.
func addFileFlag(fs *pflag.FlagSet, files *[]string) {
	fs.StringSliceVarP(files, "file", "f", nil, "Input file reference (repeatable)")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
