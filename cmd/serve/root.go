package serve

import (
	"context"
	"fmt"
	cmdUtil "github.com/freerahn/stockblog/cmd/util"
	"github.com/freerahn/stockblog/lib/stats"
	"github.com/freerahn/stockblog/lib/table"
	"github.com/freerahn/stockblog/lib/table/pgtable"
	"github.com/freerahn/stockblog/lib/table/sqltable"
	"github.com/freerahn/stockblog/remote/common"
	"github.com/freerahn/stockblog/remote/server"
	"github.com/freerahn/stockblog/remote/transport/http"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the posts REST service",
		Long:    `Start the posts REST service backing the table backend. The configuration can be set via command line flags or environment variables. The format of the environment variables is BLOG_<flag> (e.g. BLOG_TABLE_DRIVER=postgres)`,
		PreRunE: processConfig,
		RunE:    run,
	}
	StatsCmd = &cobra.Command{
		Use:     "stats",
		Short:   "Print the visitor and view statistics of the service",
		Args:    cobra.NoArgs,
		PreRunE: processConfig,
		RunE:    runStats,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen"))

	key = "table-driver"
	ServeCmd.PersistentFlags().String(key, string(table.DriverSQLite), cmdUtil.WrapString("Relational storage of the posts (sqlite, postgres)"))

	key = "table-dsn"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("sqlite: path of the database file (default <data-dir>/posts.db), postgres: connection string"))
}

// processConfig reads the configuration from the command line flags and environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.TableDriver = viper.GetString("table-driver")
	serveCmdConfig.TableDSN = viper.GetString("table-dsn")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if serveCmdConfig.TableDriver == "" {
		serveCmdConfig.TableDriver = string(table.DriverSQLite)
	}
	if serveCmdConfig.TableDriver == string(table.DriverSQLite) && serveCmdConfig.TableDSN == "" {
		serveCmdConfig.TableDSN = filepath.Join(serveCmdConfig.DataDir, "posts.db")
	}

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// openTable opens the configured relational storage
func openTable(ctx context.Context) (table.ITable, error) {
	switch table.Driver(serveCmdConfig.TableDriver) {
	case table.DriverSQLite:
		return sqltable.Open(serveCmdConfig.TableDSN)
	case table.DriverPostgres:
		return pgtable.Open(ctx, serveCmdConfig.TableDSN)
	default:
		return nil, fmt.Errorf("invalid table driver %s (must be sqlite or postgres)", serveCmdConfig.TableDriver)
	}
}

// run starts the server and blocks until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tbl, err := openTable(ctx)
	if err != nil {
		return err
	}
	defer tbl.Close()

	statsDB, err := cmdUtil.OpenDB(serveCmdConfig.DataDir, cmdUtil.StatsDBFile, 0)
	if err != nil {
		return fmt.Errorf("open stats storage: %w", err)
	}
	defer statsDB.Close()

	serv := server.NewServer(
		*serveCmdConfig,
		http.NewHttpServerTransport(),
		tbl,
		stats.NewTracker(statsDB),
	)

	return serv.Serve(ctx)
}

func runStats(_ *cobra.Command, _ []string) error {
	statsDB, err := cmdUtil.OpenDB(serveCmdConfig.DataDir, cmdUtil.StatsDBFile, 0)
	if err != nil {
		return fmt.Errorf("open stats storage: %w", err)
	}
	defer statsDB.Close()

	s := stats.NewTracker(statsDB).Get()
	fmt.Printf("Visitors: %d\n", s.TotalVisitors())
	fmt.Printf("Views:    %d\n", s.TotalViews())
	fmt.Println()
	fmt.Println("Top posts:")
	for i, id := range s.TopPosts(10) {
		fmt.Printf("  %2d. %-16s %d views\n", i+1, id, s.Views[id])
	}
	return nil
}
