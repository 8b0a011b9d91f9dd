package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"github.com/freerahn/stockblog/lib/post"
	"github.com/freerahn/stockblog/lib/store"
	"github.com/freerahn/stockblog/remote/common"
	"github.com/freerahn/stockblog/remote/serializer"
	"github.com/freerahn/stockblog/remote/transport"
	"net/http"
	"time"
)

// NewSnapshotBackend creates the remote file backend.
// fetch is connected to the raw snapshot URL, push to the GitHub contents API.
func NewSnapshotBackend(
	config common.BlogConfig,
	fetch transport.IClientTransport,
	push transport.IClientTransport,
	serializer serializer.ISnapshotSerializer,
) (store.IBackend, error) {

	if config.SnapshotURL == "" {
		return nil, fmt.Errorf("remote file backend needs a snapshot url")
	}

	// Connect the transports
	if err := fetch.Connect(config.Client(config.SnapshotURL)); err != nil {
		return nil, err
	}
	api := config.GitHub.API
	if api == "" {
		api = common.DefaultGitHubAPI
	}
	if err := push.Connect(config.Client(api)); err != nil {
		return nil, err
	}

	return &snapshotBackend{
		github:     config.GitHub,
		fetch:      fetch,
		push:       push,
		serializer: serializer,
		now:        time.Now,
	}, nil
}

type snapshotBackend struct {
	github     common.GitHubConfig
	fetch      transport.IClientTransport
	push       transport.IClientTransport
	serializer serializer.ISnapshotSerializer
	now        func() time.Time
}

// contentsResponse is the part of the GitHub contents API response we need
type contentsResponse struct {
	SHA string `json:"sha"`
}

// contentsRequest is the body of a contents API update
type contentsRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store.IBackend)
// --------------------------------------------------------------------------

func (b *snapshotBackend) Kind() store.BackendKind {
	return store.KindRemoteFile
}

func (b *snapshotBackend) SupportsFeature(feature store.Feature) bool {
	return feature&(store.FeatureFetch|store.FeaturePush) == feature
}

func (b *snapshotBackend) Fetch(ctx context.Context) ([]post.Post, error) {
	resp, err := b.fetch.Send(ctx, transport.Request{Method: http.MethodGet, NoCache: true})
	if err != nil {
		return nil, store.WrapError(store.RetCRemoteFetchFailure, "snapshot request failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(store.RetCRemoteFetchFailure, "snapshot request failed", resp)
	}

	posts, err := b.serializer.Deserialize(resp.Body)
	if err != nil {
		return nil, store.WrapError(store.RetCRemoteFetchFailure, "snapshot is malformed", err)
	}
	return posts, nil
}

func (b *snapshotBackend) Push(ctx context.Context, posts []post.Post) error {
	if b.github.Token == "" {
		return store.NewError(store.RetCNoCredential, "no GitHub token configured")
	}

	data, err := b.serializer.Serialize(posts)
	if err != nil {
		return store.WrapError(store.RetCRemotePushFailure, "could not encode snapshot", err)
	}

	sha, err := b.currentSHA(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(contentsRequest{
		Message: "Update posts.json - " + post.FormatTime(b.now()),
		Content: base64.StdEncoding.EncodeToString(data),
		Branch:  b.github.Branch,
		SHA:     sha,
	})
	if err != nil {
		return store.WrapError(store.RetCRemotePushFailure, "could not encode request", err)
	}

	resp, err := b.push.Send(ctx, transport.Request{
		Method: http.MethodPut,
		Path:   b.contentsPath(),
		Header: b.headers(),
		Body:   body,
	})
	if err != nil {
		return store.WrapError(store.RetCRemotePushFailure, "upload failed", err)
	}
	if !resp.OK() {
		return statusError(store.RetCRemotePushFailure, "upload rejected", resp)
	}

	Logger.Infof("published %d posts to %s/%s:%s", len(posts), b.github.Owner, b.github.Repo, b.github.Path)
	return nil
}

func (b *snapshotBackend) Remove(context.Context, string) error {
	return store.NewError(store.RetCUnsupportedOperation, "remote file removes posts by pushing the whole collection")
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (b *snapshotBackend) contentsPath() string {
	return fmt.Sprintf("/repos/%s/%s/contents/%s", b.github.Owner, b.github.Repo, b.github.Path)
}

func (b *snapshotBackend) headers() http.Header {
	return http.Header{
		"Authorization": {"token " + b.github.Token},
		"Accept":        {"application/vnd.github.v3+json"},
	}
}

// currentSHA resolves the blob sha of the published file. A missing file has no sha.
func (b *snapshotBackend) currentSHA(ctx context.Context) (string, error) {
	req := transport.Request{
		Method: http.MethodGet,
		Path:   b.contentsPath(),
		Header: b.headers(),
	}
	if b.github.Branch != "" {
		req.Query = map[string][]string{"ref": {b.github.Branch}}
	}

	resp, err := b.push.Send(ctx, req)
	if err != nil {
		return "", store.WrapError(store.RetCRemotePushFailure, "could not read current file", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", nil
	case !resp.OK():
		return "", statusError(store.RetCRemotePushFailure, "could not read current file", resp)
	}

	var current contentsResponse
	if err := json.Unmarshal(resp.Body, &current); err != nil {
		return "", store.WrapError(store.RetCRemotePushFailure, "unexpected contents response", err)
	}
	return current.SHA, nil
}
