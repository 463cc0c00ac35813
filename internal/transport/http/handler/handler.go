package handler

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/quillfox/devgate/internal/provider"
	"github.com/quillfox/devgate/internal/storage"
	"github.com/quillfox/devgate/internal/tokenizer"
	"github.com/quillfox/devgate/internal/transport/http/handler/admin"
	"github.com/quillfox/devgate/internal/transport/http/handler/infra"
	"github.com/quillfox/devgate/internal/transport/http/handler/proxy"
	"github.com/quillfox/devgate/internal/transport/http/middleware/auth"
)

// Repo composes all domain-specific handlers.
type Repo struct {
	Admin *admin.Handlers
	Proxy *proxy.Handlers
	Infra *infra.Handlers
}

// NewRepo creates a new instance of the composed handler repository.
func NewRepo(router *provider.Router, store storage.Storage, tok tokenizer.Tokenizer, apiKeyCache *ristretto.Cache[string, *auth.CachedAPIKey]) *Repo {
	startTime := time.Now()
	return &Repo{
		Admin: admin.New(store, startTime, apiKeyCache),
		Proxy: proxy.New(router, store, tok),
		Infra: infra.New(startTime),
	}
}
