package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/folio/internal/cli"
	"github.com/aretw0/folio/pkg/components"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/outline"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new <file>",
	Short: "Create an empty document",
	Long:  `Writes a document holding only the root node. The extension selects JSON or YAML.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		doc, err := cli.NewFile(components.Builtin(), args[0], force)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating document: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created %s (root %s)\n", args[0], doc.Root)
	},
}

// applyCmd represents the apply command
var applyCmd = &cobra.Command{
	Use:   "apply <document> <commands>",
	Short: "Apply a file of commands to a document",
	Long: `Reads a list of command envelopes ({type, payload}) from a JSON or YAML file and applies
them as a single batch. Nothing is written unless every command applies.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		out, _ := cmd.Flags().GetString("out")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if err := runApply(args[0], args[1], out, dryRun); err != nil {
			fmt.Fprintf(os.Stderr, "Apply failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func runApply(docPath, commandsPath, out string, dryRun bool) error {
	reg := components.Builtin()
	doc, err := cli.ReadDocument(reg, docPath)
	if err != nil {
		return err
	}
	res, err := cli.Apply(reg, doc, commandsPath)
	if err != nil {
		return err
	}

	if dryRun {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Diff)
	}
	if res.Applied == 0 {
		fmt.Println("No commands to apply")
		return nil
	}
	if out == "" {
		out = docPath
	}
	if err := cli.WriteDocument(out, res.Document); err != nil {
		return err
	}
	fmt.Printf("Applied %d command(s) to %s\n", res.Applied, out)
	return nil
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check documents for consistency",
	Long:  `Checks every structural invariant of each document and reports all violations found.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if failed := cli.PrintValidation(os.Stdout, components.Builtin(), args); failed > 0 {
			os.Exit(1)
		}
	},
}

var outlineCmd = &cobra.Command{
	Use:   "outline <document>",
	Short: "Print the document tree",
	Long: `Prints the node tree as a Markdown list, styled when the output is a terminal.
With --preview the rendered text is printed instead, using --scope as the data.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		preview, _ := cmd.Flags().GetBool("preview")
		scope, _ := cmd.Flags().GetString("scope")

		doc, err := cli.ReadDocument(components.Builtin(), args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading document: %v\n", err)
			os.Exit(1)
		}
		if preview || scope != "" {
			err = cli.PrintPreview(cmd.Context(), os.Stdout, doc, scope)
		} else {
			err = cli.PrintOutline(os.Stdout, doc)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <document>",
	Short: "Export the document tree as a Mermaid diagram",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		selected, _ := cmd.Flags().GetString("selected")

		doc, err := cli.ReadDocument(components.Builtin(), args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading document: %v\n", err)
			os.Exit(1)
		}
		var overlay *outline.Overlay
		if selected != "" {
			overlay = &outline.Overlay{Selected: domain.NodeID(selected)}
		}
		output, err := outline.Mermaid(doc, overlay)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating graph: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(output)
	},
}

func init() {
	rootCmd.AddCommand(newCmd, applyCmd, validateCmd, outlineCmd, graphCmd)

	newCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")
	applyCmd.Flags().StringP("out", "o", "", "Write the result here instead of in place")
	applyCmd.Flags().Bool("dry-run", false, "Print the diff without writing")
	outlineCmd.Flags().Bool("preview", false, "Print the rendered text")
	outlineCmd.Flags().String("scope", "", "JSON or YAML file with the preview data")
	graphCmd.Flags().String("selected", "", "Node to highlight")
}
