// bindcc frameworks [root]
package cmd

import (
	"os"
	"path/filepath"

	"github.com/bindcc-build/bindcc/internal/derive"
	"github.com/bindcc-build/bindcc/internal/frameworks"
	"github.com/bindcc-build/bindcc/internal/msg"
	"github.com/bindcc-build/bindcc/internal/target"
	"github.com/spf13/cobra"
)

var flagExclude []string

func doFrameworks(cmd *cobra.Command, args []string) {
	root := ""
	if len(args) > 0 {
		root = args[0]
	}

	exclude := make(map[string]bool)
	for _, name := range flagExclude {
		exclude[name] = true
	}

	// no root argument: read [frameworks] from Bindcc.toml in the cwd
	if root == "" {
		p := target.Classify(os.Getenv("TARGET"))
		env := derive.NewConfigEnv(".", p)
		cfg, err := derive.ParseConfigFromFile(derive.ConfigFilename, env)
		if err != nil {
			msg.Fatal("%v", err)
		}
		if cfg.Frameworks.Root == "" {
			msg.Fatal("no root given and no [frameworks] root in %s", derive.ConfigFilename)
		}
		root = cfg.Frameworks.Root
		for _, name := range cfg.Frameworks.Exclude {
			exclude[name] = true
		}
	}

	found := frameworks.Discover(os.DirFS(root), exclude)
	for i := range found {
		found[i].Dir = filepath.Join(root, found[i].Dir)
	}
	frameworks.Emit(os.Stdout, found)
}

var frameworksCmd = &cobra.Command{
	Use:   "frameworks [root]",
	Short: "Discover framework bundles and print their linker directives",
	Long: `Discover framework bundles under a directory tree and print a
link-search/link-lib directive pair per bundle. If no root is given, the
[frameworks] section of Bindcc.toml in the current directory is used.`,
	Args: cobra.MaximumNArgs(1),
	Run:  doFrameworks,
}

func init() {
	// bindcc frameworks subcommand
	rootCmd.AddCommand(frameworksCmd)
	frameworksCmd.Flags().StringArrayVarP(&flagExclude, "exclude", "x", nil, "Path component to skip during discovery (repeatable)")
}
