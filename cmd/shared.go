package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// parseStayID converts a positional stay ID argument, printing the shared
// error message on bad input.
func parseStayID(cmd *cobra.Command, arg string) (int, bool) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		cmd.PrintErrln("Error: Invalid stay ID. It must be a positive integer.")
		return 0, false
	}
	return id, true
}

// formatBytes renders a byte count in binary units, e.g. 1536 -> "1.5KiB".
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
