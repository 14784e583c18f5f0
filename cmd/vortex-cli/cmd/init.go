package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const sampleFile = "index.js"

const sampleFunction = `// A sample Vortex function.
//
// console output is captured and streamed to subscribers;
// vortex.return() (or a top-level return) sets the result.

console.log("Hello from Vortex!");

const sum = [1, 2, 3].reduce((a, b) => a + b, 0);
console.info("computed sum:", sum);

vortex.return({ sum });
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a sample function in the current directory",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if fileExists(sampleFile) {
		return fmt.Errorf("%s already exists", sampleFile)
	}
	if err := os.WriteFile(sampleFile, []byte(sampleFunction), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", sampleFile, err)
	}

	printSuccess("created %s", sampleFile)
	printInfo("deploy it with: vortex-cli deploy %s", sampleFile)
	return nil
}
