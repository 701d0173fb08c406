// Package cli implements the ftllex command line: parse and lint FTL
// resources, reformat them, and resolve messages with arguments for
// quick inspection.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ftllex/ftllex/core/ast"
	"github.com/ftllex/ftllex/core/diag"
	"github.com/ftllex/ftllex/runtime/analysis"
	"github.com/ftllex/ftllex/runtime/bundle"
	"github.com/ftllex/ftllex/runtime/parser"
	"github.com/ftllex/ftllex/runtime/serializer"
	"github.com/ftllex/ftllex/runtime/validator"
)

// NewRootCommand builds the ftllex command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ftllex",
		Short:         "Fluent (FTL) localization toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newParseCommand())
	root.AddCommand(newLintCommand())
	root.AddCommand(newFmtCommand())
	root.AddCommand(newResolveCommand())
	return root
}

// Execute runs the CLI and returns a process exit code.
func Execute() int {
	logrus.SetLevel(logrus.WarnLevel)
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func newParseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file.ftl>",
		Short: "Parse a resource and report its entries and junk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(args[0])
			if err != nil {
				return err
			}
			result, err := parser.Parse(source)
			if err != nil {
				return err
			}
			for _, entry := range result.Resource.Entries {
				cmd.Println(describeEntry(result, entry))
			}
			if junk := result.Junk(); len(junk) > 0 {
				return fmt.Errorf("%d unparsable fragment(s)", len(junk))
			}
			return nil
		},
	}
}

func newLintCommand() *cobra.Command {
	var maxChain int
	cmd := &cobra.Command{
		Use:   "lint <file.ftl>",
		Short: "Run semantic validation and reference analyses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(args[0])
			if err != nil {
				return err
			}
			result, err := parser.Parse(source)
			if err != nil {
				return err
			}

			findings := validator.Validate(result.Resource)
			findings.Merge(analysis.Analyze(result.Resource, analysis.WithMaxChainDepth(maxChain)))

			for _, issue := range findings.Errors {
				cmd.Println(issue.String())
			}
			for _, issue := range findings.Warnings {
				cmd.Println(issue.String())
			}
			for _, junk := range result.Junk() {
				for _, annotation := range junk.Annotations {
					cmd.Printf("error %s at %s: %s\n",
						annotation.Code, result.Offsets.FormatPosition(annotation.Pos, true), annotation.Message)
				}
			}
			if !findings.Valid() || len(result.Junk()) > 0 {
				return fmt.Errorf("lint failed")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxChain, "max-chain-depth", analysis.DefaultMaxChainDepth,
		"reference chain length that triggers a warning")
	return cmd
}

func newFmtCommand() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "fmt <file.ftl>",
		Short: "Reserialize a resource in canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(args[0])
			if err != nil {
				return err
			}
			result, err := parser.Parse(source)
			if err != nil {
				return err
			}
			out, err := serializer.Serialize(result.Resource)
			if err != nil {
				return err
			}
			if write {
				return os.WriteFile(args[0], []byte(out), 0o644)
			}
			cmd.Print(out)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "rewrite the file in place")
	return cmd
}

func newResolveCommand() *cobra.Command {
	var localeCode string
	var rawArgs []string
	var attribute string
	cmd := &cobra.Command{
		Use:   "resolve <file.ftl> <message-id>",
		Short: "Format a message with arguments",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			source, err := readSource(cmdArgs[0])
			if err != nil {
				return err
			}
			b, err := bundle.New(localeCode, bundle.WithIsolating(false))
			if err != nil {
				return err
			}
			if _, _, err := b.AddResource(source); err != nil {
				return err
			}

			args := map[string]any{}
			for _, pair := range rawArgs {
				key, val, found := strings.Cut(pair, "=")
				if !found {
					return fmt.Errorf("argument %q must be key=value", pair)
				}
				args[key] = val
			}

			out, errs, err := b.FormatPattern(cmdArgs[1], args, attribute)
			if err != nil {
				return err
			}
			cmd.Println(out)
			for _, e := range errs {
				cmd.PrintErrln(e.Error())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&localeCode, "locale", "l", "en", "locale to format under")
	cmd.Flags().StringArrayVarP(&rawArgs, "arg", "a", nil, "argument as key=value, repeatable")
	cmd.Flags().StringVar(&attribute, "attribute", "", "format this attribute instead of the value")
	return cmd
}

func describeEntry(result *parser.Result, entry ast.Entry) string {
	position := ""
	if span := entry.NodeSpan(); span != nil {
		position = " @ " + result.Offsets.FormatPosition(span.Start, true)
	}
	switch v := entry.(type) {
	case *ast.Message:
		return fmt.Sprintf("message %s (%d attribute(s))%s", v.ID.Name, len(v.Attributes), position)
	case *ast.Term:
		return fmt.Sprintf("term -%s (%d attribute(s))%s", v.ID.Name, len(v.Attributes), position)
	case *ast.Comment:
		return fmt.Sprintf("comment (%s)%s", v.Kind.Sigil(), position)
	case *ast.Junk:
		code := diag.CodeParseError
		msg := "unparsable fragment"
		if len(v.Annotations) > 0 {
			code = v.Annotations[0].Code
			msg = v.Annotations[0].Message
		}
		return fmt.Sprintf("junk [%s: %s]%s", code, msg, position)
	default:
		return fmt.Sprintf("%T%s", entry, position)
	}
}
