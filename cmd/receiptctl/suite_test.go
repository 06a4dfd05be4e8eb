package main

import (
	"bytes"
)

func executeCommand(args []string) (string, error) {
	defer resetCmdArgs()

	buf := new(bytes.Buffer)
	cmd := rootCmd
	cmd.SetArgs(args)
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	err := cmd.Execute()
	return buf.String(), err
}

// resetCmdArgs restores flag state between tests.
func resetCmdArgs() {
	rootArgs = rootFlags{timeout: timeout}
	keygenArgs = keygenFlags{outputDir: "."}
	signArgs = signFlags{}
	inspectArgs = inspectFlags{}
}
