package util

import (
	"fmt"
	"github.com/freerahn/stockblog/lib/db"
	"github.com/freerahn/stockblog/lib/db/engines/maple"
	"github.com/freerahn/stockblog/lib/db/engines/persist"
	"github.com/freerahn/stockblog/lib/reconcile"
	"github.com/freerahn/stockblog/lib/store"
	"github.com/freerahn/stockblog/lib/store/lstore"
	"github.com/freerahn/stockblog/remote/client"
	"github.com/freerahn/stockblog/remote/common"
	"github.com/freerahn/stockblog/remote/serializer"
	"github.com/freerahn/stockblog/remote/transport/http"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// BlogDBFile and StatsDBFile are the snapshot files below the data directory
	BlogDBFile  = "blog.db"
	StatsDBFile = "stats.db"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and makes viper read BLOG_* environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("blog")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// SetupBlogFlags adds the flags of the local store and its backend to a command
func SetupBlogFlags(cmd *cobra.Command) {
	key := "backend"
	cmd.PersistentFlags().String(key, "file", WrapString("Where posts are reconciled with: local (no remote), file (published posts.json) or table (posts REST service)"))

	key = "snapshot-url"
	cmd.PersistentFlags().String(key, common.DefaultSnapshotURL, WrapString("URL of the published posts.json (file backend)"))

	key = "github-api"
	cmd.PersistentFlags().String(key, common.DefaultGitHubAPI, WrapString("Base URL of the GitHub API (file backend)"))

	key = "github-owner"
	cmd.PersistentFlags().String(key, common.DefaultGitHubOwner, WrapString("Owner of the repository holding posts.json"))

	key = "github-repo"
	cmd.PersistentFlags().String(key, common.DefaultGitHubRepo, WrapString("Repository holding posts.json"))

	key = "github-path"
	cmd.PersistentFlags().String(key, common.DefaultGitHubPath, WrapString("Path of posts.json in the repository"))

	key = "github-branch"
	cmd.PersistentFlags().String(key, common.DefaultGitHubBranch, WrapString("Branch posts.json is committed to"))

	key = "table-endpoint"
	cmd.PersistentFlags().String(key, "http://localhost:8080", WrapString("Address of the posts REST service (table backend). Multiple endpoints can be specified as a comma-separated list"))

	key = "timeout"
	cmd.PersistentFlags().Duration(key, common.DefaultTimeout, WrapString("Timeout of a single remote request"))

	key = "retries"
	cmd.PersistentFlags().Int(key, 1, WrapString("How many times to try a remote request"))

	key = "cooldown"
	cmd.PersistentFlags().Duration(key, common.DefaultCooldown, WrapString("Minimum time between two regular syncs"))

	key = "quota-kb"
	cmd.PersistentFlags().Int64(key, 5*1024, WrapString("Size limit of the local storage in KB (0 = unlimited)"))
}

// GetBlogConfig reads the blog configuration from viper.
// The GitHub token is only read from GITHUB_TOKEN or BLOG_GITHUB_TOKEN.
func GetBlogConfig() *common.BlogConfig {
	token := viper.GetString("github-token")
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}

	return &common.BlogConfig{
		DataDir:     viper.GetString("data-dir"),
		Serializer:  viper.GetString("serializer"),
		QuotaKB:     viper.GetInt64("quota-kb"),
		Backend:     viper.GetString("backend"),
		SnapshotURL: viper.GetString("snapshot-url"),
		GitHub: common.GitHubConfig{
			API:    viper.GetString("github-api"),
			Owner:  viper.GetString("github-owner"),
			Repo:   viper.GetString("github-repo"),
			Path:   viper.GetString("github-path"),
			Branch: viper.GetString("github-branch"),
			Token:  token,
		},
		TableEndpoint: viper.GetString("table-endpoint"),
		Timeout:       viper.GetDuration("timeout"),
		Retries:       viper.GetInt("retries"),
		Cooldown:      viper.GetDuration("cooldown"),
		LogLevel:      viper.GetString("log-level"),
	}
}

// OpenDB opens a durable database in dataDir/file, bounded by quotaKB (0 = unlimited)
func OpenDB(dataDir, file string, quotaKB int64) (db.KVDB, error) {
	return persist.Open(filepath.Join(dataDir, file), maple.NewMapleDB(&maple.DBOptions{MaxBytes: quotaKB * 1024}))
}

// GetBackend creates the backend selected by config.Backend.
// The remote always speaks JSON, the serializer setting only affects local storage.
func GetBackend(config *common.BlogConfig) (store.IBackend, error) {
	kind, err := store.ParseBackendKind(config.Backend)
	if err != nil {
		return nil, err
	}
	switch kind {
	case store.KindRemoteFile:
		return client.NewSnapshotBackend(*config, http.NewHttpClientTransport(), http.NewHttpClientTransport(), serializer.NewJSONSerializer())
	case store.KindRemoteTable:
		return client.NewTableBackend(*config, http.NewHttpClientTransport(), serializer.NewJSONSerializer())
	default:
		return store.NewLocalCache(), nil
	}
}

// OpenBlog opens the local store and wires it to the configured backend.
// The returned database must be closed by the caller.
func OpenBlog(config *common.BlogConfig) (*reconcile.Blog, db.KVDB, error) {
	codec, err := serializer.New(serializer.Name(config.Serializer))
	if err != nil {
		return nil, nil, err
	}

	database, err := OpenDB(config.DataDir, BlogDBFile, config.QuotaKB)
	if err != nil {
		return nil, nil, fmt.Errorf("open local storage: %w", err)
	}

	s, err := lstore.NewLocalStore(func() (db.KVDB, error) { return database, nil }, codec)
	if err != nil {
		_ = database.Close()
		return nil, nil, err
	}

	backend, err := GetBackend(config)
	if err != nil {
		_ = database.Close()
		return nil, nil, err
	}

	blog := reconcile.NewBlog(s, backend, reconcile.NewSyncState(database, config.Cooldown))
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = common.DefaultTimeout
	}
	blog.Reconciler().FetchTimeout = timeout
	blog.Propagator().Timeout = 3 * timeout
	return blog, database, nil
}

// ElapsedString formats a duration for command output
func ElapsedString(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
