// Package subprocess implements the process transport: it spawns the claude
// CLI once per invocation, hands it the prompt on stdin and decodes its
// line-delimited JSON stdout into raw records.
package subprocess
