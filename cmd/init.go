// bindcc init [name], bindcc new [path]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bindcc-build/bindcc/internal/msg"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func writefile(content string, elem ...string) {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
			msg.Fatal("create file %s: %v", path, err)
		}
		fmt.Printf("%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))
	}
}

func mkdir(elem ...string) {
	path := filepath.Join(elem...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		msg.Fatal("mkdir %s: %v", path, err)
	}
}

func getProgramName() string {
	if len(os.Args) == 0 {
		return "bindcc"
	}
	basename := filepath.Base(os.Args[0])
	return strings.TrimSuffix(basename, filepath.Ext(basename))
}

// initIn initializes a binding package in an existing specified directory
func initIn(dir, name string) {
	// Bindcc.toml
	writefile(`[package]
name = "`+name+`"
description = "C++ headers prepared for binding generation."
authors = ["AzureDiamond"]

[bindings]
std = "c++17"
includes = ["include"]

[bindings.'is_apple']
apple-args = []

[bindings.'is_android']
android-args = []

[dependencies]
`, dir, "Bindcc.toml")

	mkdir(dir, "include")

	// include/<name>.hpp
	guard := strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_HPP"
	writefile(`#ifndef `+guard+`
#define `+guard+`

#include <cstdint>

namespace `+strings.ReplaceAll(name, "-", "_")+` {

int32_t hello_world();

} // namespace

#endif
`, dir, "include", name+".hpp")

	// .gitignore
	writefile(`build/
`, dir, ".gitignore")

	programName := getProgramName()
	fmt.Printf("You can now do %s to derive the compiler arguments for $TARGET.\n",
		color.HiCyanString(programName+" flags "+dir))
}

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create a new binding package in the current directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initIn(".", args[0])
	},
}

var newCmd = &cobra.Command{
	Use:   "new [path]",
	Short: "Create a new binding package in a new directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mkdir(args[0])
		initIn(args[0], filepath.Base(args[0]))
	},
}

func init() {
	// bindcc init subcommand
	rootCmd.AddCommand(initCmd)

	// bindcc new subcommand
	rootCmd.AddCommand(newCmd)
}
