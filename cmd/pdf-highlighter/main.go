// Command pdf-highlighter translates selected regions of a PDF and anchors the
// translated words and sentences back onto the page.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
