package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var siteFile string

var rootCmd = &cobra.Command{
	Use:   "pubfront",
	Short: "A server-rendered blog front end for a Cosmic bucket",
	Long: `pubfront renders posts, authors and categories stored in a Cosmic bucket
as HTML pages, an RSS feed and a sitemap.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is fine; the environment may already be set.
		_ = godotenv.Load()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&siteFile, "site", "site.yaml", "YAML file with the site name, URL and navigation")
}
