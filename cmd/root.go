package cmd

import (
	"fmt"
	"github.com/freerahn/stockblog/cmd/posts"
	"github.com/freerahn/stockblog/cmd/quote"
	"github.com/freerahn/stockblog/cmd/serve"
	"github.com/freerahn/stockblog/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "1.2.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "blog",
		Short: "investment blog post store",
		Long: fmt.Sprintf(`blog (v%s)

Post store of the investment blog. Posts are kept in a local store and
reconciled with a published posts.json or a posts REST service
(last write wins per post).`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of blog",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("blog v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(posts.PostCommands)
	RootCmd.AddCommand(posts.SyncCmd)
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(serve.StatsCmd)
	RootCmd.AddCommand(quote.QuoteCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer of the local storage (json, gob, binary)"))
	key = "data-dir"
	RootCmd.PersistentFlags().String(key, "data", util.WrapString("directory of the local storage"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
