package bridge

import (
	"context"
	"time"

	"github.com/birkland/assetresolv"
	"github.com/birkland/assetresolv/config"
	"github.com/birkland/assetresolv/drivers/bal"
	"github.com/birkland/assetresolv/drivers/redis"
	"github.com/pkg/errors"
)

// dialTimeout bounds connecting to a networked backend
const dialTimeout = 5 * time.Second

// OpenBackend instantiates the backend named by a backend configuration
func OpenBackend(ctx context.Context, cfg config.Backend) (assetresolv.Backend, error) {
	switch cfg.Identifier {
	case bal.Identifier:
		path := cfg.Path("library_path")
		if path == "" {
			return nil, errors.Errorf("%s needs a library_path setting", cfg.Identifier)
		}
		b, err := bal.Open(path)
		if err != nil {
			return nil, err
		}
		return b, nil

	case redis.Identifier:
		ctx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		b, err := redis.Dial(ctx, cfg.Setting("address", "localhost:6379"), redis.Config{
			Prefix: cfg.Setting("prefix", redis.DefaultPrefix),
			Scheme: cfg.Setting("scheme", redis.DefaultScheme),
		})
		if err != nil {
			return nil, err
		}
		return b, nil

	default:
		return nil, errors.Errorf("unknown backend %s", cfg.Identifier)
	}
}
