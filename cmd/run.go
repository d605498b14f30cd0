// maker run [roots...] [-- args...]
package cmd

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// executablePath makes a bare executable name runnable from the current
// directory.
func executablePath(name string) string {
	if filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		return name
	}
	return "." + string(filepath.Separator) + name
}

func doRun(cmd *cobra.Command, args []string) {
	roots, progArgs := args, []string(nil)
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		roots, progArgs = args[:dash], args[dash:]
	}

	res := build(cmd, roots)

	run := exec.Command(executablePath(res.Target.Name), progArgs...)
	run.Stdout = os.Stdout
	run.Stderr = os.Stderr
	run.Stdin = os.Stdin
	if err := run.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		fail(err)
	}
}

var runCmd = &cobra.Command{
	Use:   "run [roots...] [-- args...]",
	Short: "Build and run the executable",
	Long:  `Build the executable, then run it with the arguments given after "--".`,
	Args:  cobra.ArbitraryArgs,
	Run:   doRun,
}

func init() {
	// maker run subcommand
	rootCmd.AddCommand(runCmd)
	addGenFlags(runCmd)
}
