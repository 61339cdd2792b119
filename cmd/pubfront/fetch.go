package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"

	"github.com/eringen/pubfront"
	"github.com/eringen/pubfront/cms"
)

var (
	fetchStatus string
	fetchDepth  int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <posts|authors|categories> [slug]",
	Short: "Print objects from the bucket as JSON",
	Long: `Fetch queries the configured Cosmic bucket and prints the decoded
objects as JSON. With a slug, only the matching object is printed.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		t := cms.ObjectType(args[0])
		if !t.Valid() {
			fatal("Error", fmt.Errorf("unknown object type %q", args[0]))
		}

		client, err := cms.New(pubfront.FromEnv().Cosmic, cms.WithLogger(log.New("fetch")))
		if err != nil {
			fatal("Error configuring Cosmic client", err)
		}

		q := cms.NewQuery(t).WithDepth(fetchDepth)
		if fetchStatus != "" {
			q = q.WithStatus(fetchStatus)
		}
		if len(args) == 2 {
			q = q.Where("slug", args[1])
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		objects, err := cms.FetchAny(ctx, client, q)
		if err != nil {
			fatal("Error fetching objects", err)
		}

		var out any = objects
		if len(args) == 2 {
			if len(objects) == 0 {
				fatal("Error", fmt.Errorf("no %s with slug %q", t, args[1]))
			}
			out = objects[0]
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(out); err != nil {
			fatal("Error encoding JSON", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchStatus, "status", "", `object status filter, e.g. "any" to include drafts`)
	fetchCmd.Flags().IntVar(&fetchDepth, "depth", 1, "reference resolution depth")
}
