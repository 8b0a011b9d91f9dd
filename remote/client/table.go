package client

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/freerahn/stockblog/lib/post"
	"github.com/freerahn/stockblog/lib/store"
	"github.com/freerahn/stockblog/remote/common"
	"github.com/freerahn/stockblog/remote/serializer"
	"github.com/freerahn/stockblog/remote/transport"
	"net/http"
)

// NewTableBackend creates the remote table backend talking to the posts REST service.
// config.TableEndpoint may hold several comma separated endpoints.
func NewTableBackend(
	config common.BlogConfig,
	transport transport.IClientTransport,
	serializer serializer.ISnapshotSerializer,
) (store.IBackend, error) {

	endpoints := splitEndpoints(config.TableEndpoint)
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("remote table backend needs an endpoint")
	}

	// Connect the transport
	if err := transport.Connect(config.Client(endpoints...)); err != nil {
		return nil, err
	}

	return &tableBackend{
		transport:  transport,
		serializer: serializer,
	}, nil
}

type tableBackend struct {
	transport  transport.IClientTransport
	serializer serializer.ISnapshotSerializer
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store.IBackend)
// --------------------------------------------------------------------------

func (b *tableBackend) Kind() store.BackendKind {
	return store.KindRemoteTable
}

func (b *tableBackend) SupportsFeature(feature store.Feature) bool {
	return feature&(store.FeatureFetch|store.FeaturePush|store.FeatureRemove) == feature
}

func (b *tableBackend) Fetch(ctx context.Context) ([]post.Post, error) {
	resp, err := b.transport.Send(ctx, transport.Request{Method: http.MethodGet, Path: "/posts", NoCache: true})
	if err != nil {
		return nil, store.WrapError(store.RetCRemoteFetchFailure, "table request failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(store.RetCRemoteFetchFailure, "table request failed", resp)
	}

	posts, err := b.serializer.Deserialize(resp.Body)
	if err != nil {
		return nil, store.WrapError(store.RetCRemoteFetchFailure, "table response is malformed", err)
	}
	return posts, nil
}

// Push upserts every post. The first failure aborts the push.
func (b *tableBackend) Push(ctx context.Context, posts []post.Post) error {
	for _, p := range posts {
		body, err := json.Marshal(p)
		if err != nil {
			return store.WrapError(store.RetCRemotePushFailure, "could not encode post "+p.ID, err)
		}

		resp, err := b.transport.Send(ctx, transport.Request{Method: http.MethodPost, Path: "/posts", Body: body})
		if err != nil {
			return store.WrapError(store.RetCRemotePushFailure, "upsert of post "+p.ID+" failed", err)
		}
		if !resp.OK() {
			return statusError(store.RetCRemotePushFailure, "upsert of post "+p.ID+" rejected", resp)
		}
	}
	Logger.Debugf("upserted %d posts", len(posts))
	return nil
}

// Remove deletes a post. A post the table does not know counts as removed.
func (b *tableBackend) Remove(ctx context.Context, id string) error {
	resp, err := b.transport.Send(ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   "/posts",
		Query:  map[string][]string{"id": {id}},
	})
	if err != nil {
		return store.WrapError(store.RetCRemotePushFailure, "delete of post "+id+" failed", err)
	}
	if !resp.OK() && resp.StatusCode != http.StatusNotFound {
		return statusError(store.RetCRemotePushFailure, "delete of post "+id+" rejected", resp)
	}
	return nil
}
