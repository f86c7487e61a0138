// bindcc sdkpath [triple]
package cmd

import (
	"fmt"

	"github.com/bindcc-build/bindcc/internal/clang"
	"github.com/bindcc-build/bindcc/internal/msg"
	"github.com/spf13/cobra"
)

func doSdkpath(cmd *cobra.Command, args []string) {
	triple := ""
	if len(args) > 0 {
		triple = args[0]
	}
	triple = requireTarget(triple)

	path, err := clang.NewSDKResolver().Path(triple)
	if err != nil {
		msg.Fatal("%v", err)
	}
	if path == "" {
		msg.Fatal("no SDK applies to target %q", triple)
	}
	fmt.Println(path)
}

var sdkpathCmd = &cobra.Command{
	Use:   "sdkpath [triple]",
	Short: "Print the SDK sysroot for a target triple",
	Long:  `Print the SDK sysroot for a target triple. If no triple is given, uses $TARGET.`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doSdkpath,
}

func init() {
	// bindcc sdkpath subcommand
	rootCmd.AddCommand(sdkpathCmd)
}
