package posts

import (
	"context"
	"fmt"
	"github.com/freerahn/stockblog/cmd/util"
	"github.com/freerahn/stockblog/lib/db"
	"github.com/freerahn/stockblog/lib/reconcile"
	"github.com/freerahn/stockblog/remote/common"
	"github.com/spf13/cobra"
)

var (
	blog     *reconcile.Blog
	database db.KVDB

	// PostCommands represents the post command group
	PostCommands = &cobra.Command{
		Use:                "post",
		Short:              "Read and write posts",
		PersistentPreRunE:  setupBlog,
		PersistentPostRunE: closeBlog,
	}

	// SyncCmd reconciles the local store with the backend
	SyncCmd = &cobra.Command{
		Use:                "sync",
		Short:              "Merge the remote posts into the local store",
		Long:               "Fetch the remote collection and merge it into the local store (last write wins per post). Regular syncs are skipped within the cooldown of the last successful sync.",
		Args:               cobra.NoArgs,
		PersistentPreRunE:  setupBlog,
		PersistentPostRunE: closeBlog,
		RunE:               runSync,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	util.SetupBlogFlags(PostCommands)
	util.SetupBlogFlags(SyncCmd)

	// Add subcommands
	PostCommands.AddCommand(putCmd)
	PostCommands.AddCommand(getCmd)
	PostCommands.AddCommand(listCmd)
	PostCommands.AddCommand(latestCmd)
	PostCommands.AddCommand(deleteCmd)

	SyncCmd.Flags().Bool("force", false, util.WrapString("Ignore the cooldown"))
	SyncCmd.Flags().Bool("stats", false, util.WrapString("Print fetch and push timings afterwards"))
}

// setupBlog opens the local store and its backend
func setupBlog(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config := util.GetBlogConfig()
	if err := common.InitLoggers(config.LogLevel); err != nil {
		return err
	}
	Logger.Debugf("configuration:%s", config.String())

	var err error
	blog, database, err = util.OpenBlog(config)
	return err
}

// closeBlog waits for pending pushes and closes the local storage
func closeBlog(_ *cobra.Command, _ []string) error {
	if blog != nil {
		blog.Wait()
	}
	if database != nil {
		return database.Close()
	}
	return nil
}

func runSync(cmd *cobra.Command, _ []string) error {
	force, _ := cmd.Flags().GetBool("force")

	var res reconcile.Result
	if force {
		res = blog.ForceSync(context.Background())
	} else {
		res = blog.Sync(context.Background())
	}

	switch res.Status {
	case reconcile.StatusSynced:
		fmt.Printf("synced %d remote posts: %d added, %d replaced, %d kept\n",
			res.Fetched, len(res.Report.Added), len(res.Report.Replaced), len(res.Report.Kept))
	case reconcile.StatusSkippedCooldown:
		last := blog.Reconciler().State().LastSync()
		fmt.Printf("skipped: last sync at %s is within the cooldown (use --force)\n", last.Format("2006-01-02 15:04:05"))
	case reconcile.StatusSkippedNoRemote:
		fmt.Println("skipped: the backend has no remote")
	default:
		return fmt.Errorf("sync failed: %w", res.Err)
	}

	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		fmt.Println()
		reconcile.WriteTimers(cmd.OutOrStdout())
	}
	return nil
}
