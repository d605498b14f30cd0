// maker init [dir]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/samkaj/maker/internal/builder"
	"github.com/samkaj/maker/internal/msg"
	"github.com/spf13/cobra"
)

func writefile(content string, elem ...string) {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
			msg.Fatal("create file %s: %v", path, err)
		}
		fmt.Fprintf(msg.Output, "%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))
	} else {
		msg.Warn("%s already exists, leaving it alone", filepath.ToSlash(path))
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
		return "maker"
	}
	basename := filepath.Base(os.Args[0])
	return strings.TrimSuffix(basename, filepath.Ext(basename))
}

func starterConfig(name string) string {
	return `[project]
name = "` + name + `"
# cc = "clang"
# generator = "ninja"

[sources]
roots = ["src"]
exclude = ["build"]
output = "target"

[flags]
cflags = ["-Wall", "-Wextra"]

[flags.'target_os == "linux"']
links = ["m"]

[profile.release]
opt-level = 2
`
}

// initIn writes a starter project into an existing directory.
func initIn(dir, name string, cxx bool) {
	writefile(starterConfig(name), dir, builder.ConfigFilename)

	mkdir(dir, "src")
	if cxx {
		writefile(`#include <iostream>

int main() {
    std::cout << "Hello, World!\n";
    return 0;
}
`, dir, "src", "main.cpp")
	} else {
		writefile(`#include <stdio.h>

int main(void) {
    puts("Hello, World!");
    return 0;
}
`, dir, "src", "main.c")
	}

	writefile(`target/
Makefile.bak
`, dir, ".gitignore")

	programName := getProgramName()
	if dir != "." {
		programName = "cd " + dir + " && " + programName
	}
	fmt.Fprintf(msg.Output, "You can now do %s to generate a Makefile, or %s to build and run.\n",
		color.HiCyanString(programName), color.HiCyanString(programName+" run"))
}

var initCxx bool

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a starter " + builder.ConfigFilename + " and source tree",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
			mkdir(dir)
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			msg.Fatal("%v", err)
		}
		initIn(dir, filepath.Base(abs), initCxx)
	},
}

func init() {
	// maker init subcommand
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initCxx, "cxx", false, "Start with a C++ main.cpp instead of main.c")
}
