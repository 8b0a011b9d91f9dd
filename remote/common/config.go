package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	DefaultSnapshotURL  = "https://raw.githubusercontent.com/freerahn/stock_blog/main/public/posts.json"
	DefaultGitHubAPI    = "https://api.github.com"
	DefaultGitHubOwner  = "freerahn"
	DefaultGitHubRepo   = "stock_blog"
	DefaultGitHubPath   = "public/posts.json"
	DefaultGitHubBranch = "main"
	DefaultTimeout      = 5 * time.Second
	DefaultCooldown     = 5 * time.Minute
)

// --------------------------------------------------------------------------
// Blog configuration struct
// --------------------------------------------------------------------------

// GitHubConfig addresses the file the remote snapshot is published to
type GitHubConfig struct {
	API    string
	Owner  string
	Repo   string
	Path   string
	Branch string
	Token  string // never printed
}

// BlogConfig holds everything needed to open the local store and its backend
type BlogConfig struct {
	// local storage
	DataDir    string
	Serializer string
	QuotaKB    int64

	// remote
	Backend       string
	SnapshotURL   string
	GitHub        GitHubConfig
	TableEndpoint string
	Timeout       time.Duration
	Retries       int
	Cooldown      time.Duration

	// Logging configuration
	LogLevel string
}

// Client returns the transport configuration for the given endpoints
func (c *BlogConfig) Client(endpoints ...string) ClientConfig {
	return ClientConfig{
		Endpoints:     endpoints,
		TimeoutSecond: int(c.Timeout / time.Second),
		RetryCount:    c.Retries,
	}
}

// String returns a formatted string representation of the configuration
func (c *BlogConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// Storage
	addSection("Local Storage")
	addField("Data Directory", c.DataDir)
	addField("Serializer", c.Serializer)
	if c.QuotaKB > 0 {
		addField("Quota", fmt.Sprintf("%d KB", c.QuotaKB))
	} else {
		addField("Quota", "unlimited")
	}

	// Remote
	addSection("Remote")
	addField("Backend", c.Backend)
	switch c.Backend {
	case "file":
		addField("Snapshot URL", c.SnapshotURL)
		addField("GitHub File", fmt.Sprintf("%s/%s:%s@%s", c.GitHub.Owner, c.GitHub.Repo, c.GitHub.Path, c.GitHub.Branch))
		addField("GitHub Token", maskSecret(c.GitHub.Token))
	case "table":
		addField("Table Endpoint", c.TableEndpoint)
	}
	addField("Timeout", c.Timeout.String())
	addField("Retry Count", strconv.Itoa(c.Retries))
	addField("Sync Cooldown", c.Cooldown.String())

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	return "(set)"
}

// --------------------------------------------------------------------------
// Table server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds the configuration of the posts REST service
type ServerConfig struct {
	// HTTP api settings
	Endpoint string

	// relational storage
	TableDriver string
	TableDSN    string

	// visitor statistics
	DataDir string

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("HTTP Server")
	addField("Endpoint", c.Endpoint)

	addSection("Table")
	addField("Driver", c.TableDriver)
	if c.TableDriver == "postgres" {
		addField("DSN", maskSecret(c.TableDSN))
	} else {
		addField("DSN", c.TableDSN)
	}

	addSection("Storage")
	addField("Data Directory", c.DataDir)

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// HTTP client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoints     []string
	TimeoutSecond int
	RetryCount    int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
