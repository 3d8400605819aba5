// Command server runs the media compression API, its document workers, and an
// offline compressor sharing the same pipeline.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Image and PDF compression service",
	Long: `server compresses images and PDF documents.

Run "server serve" for the HTTP API, "server worker" to optimize documents
sent over RabbitMQ, or "server compress" to process local files.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(compressCmd)
}
