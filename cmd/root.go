// bindcc [path], bindcc flags [path]
package cmd

import (
	"fmt"
	"os"

	"github.com/bindcc-build/bindcc/internal/clang"
	"github.com/bindcc-build/bindcc/internal/derive"
	"github.com/bindcc-build/bindcc/internal/msg"
	"github.com/spf13/cobra"
)

var (
	flagTarget   string
	flagIncludes []string
	flagNoDeps   bool
	flagStd      EnumValue = NewEnumValue("c++17", map[string]string{
		"c++11": "Parse headers as C++11",
		"c++14": "Parse headers as C++14",
		"c++17": "Parse headers as C++17 (default)",
	})
)

// requireTarget falls back to $TARGET and aborts when no triple is known.
// There is no sane default target for a cross-compile helper.
func requireTarget(triple string) string {
	if triple == "" {
		triple = os.Getenv("TARGET")
	}
	if triple == "" {
		msg.Fatal("no target triple: pass --target or set TARGET")
	}
	return triple
}

func doFlags(cmd *cobra.Command, args []string) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	triple := requireTarget(flagTarget)

	d, err := derive.NewDeriverInDirectory(dir, triple)
	if err != nil {
		msg.Fatal("%v", err)
	}

	opts := derive.Options{
		Includes: flagIncludes,
		SkipDeps: flagNoDeps,
	}
	if cmd.Flags().Changed("std") {
		opts.Std = clang.Std(flagStd.Value())
	}

	cargs, err := d.Derive(opts)
	if err != nil {
		msg.Fatal("%v", err)
	}
	for _, arg := range cargs {
		fmt.Println(arg)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bindcc [package path]",
	Short: "Derive clang invocations for cross-compiled binding generation",
	Long:  `Derive clang invocations for cross-compiled binding generation`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doFlags,
}

var flagsCmd = &cobra.Command{
	Use:   "flags [package path]",
	Short: "Print the derived compiler arguments, one per line",
	Long:  `Print the derived compiler arguments, one per line. If no package path is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doFlags,
}

func init() {
	addFlagsFlags(rootCmd)

	// bindcc flags subcommand
	rootCmd.AddCommand(flagsCmd)
	addFlagsFlags(flagsCmd)
}

func addFlagsFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagTarget, "target", "t", "", "Target triple (defaults to $TARGET)")
	cmd.Flags().StringArrayVarP(&flagIncludes, "include", "I", nil, "Extra include directory (repeatable)")
	cmd.Flags().BoolVar(&flagNoDeps, "no-deps", false, "Do not fetch header dependencies")
	cmd.Flags().VarP(&flagStd, "std", "s", "C++ standard to parse with, one of "+flagStd.HelpString())
	cmd.RegisterFlagCompletionFunc("std", flagStd.CompletionFunc())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
