package data

import (
	"context"
	"fmt"

	"link-runtime/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewRecordCache,
	NewRecordStore,
	NewRecordRepo,
	NewSecretsManager,
	NewSecretResolver,
	NewCountryResolver,
	NewRedisClient,
	NewCacheInvalidator,
)

// NewRecordStore opens the configured backing store behind a timeout and a
// circuit breaker.
func NewRecordStore(c *conf.Store, logger log.Logger) (RecordStore, func(), error) {
	helper := log.NewHelper(logger)
	ctx := context.Background()

	var (
		store   RecordStore
		cleanup = func() {}
	)
	switch c.Driver {
	case conf.StoreDynamoDB:
		client, err := NewDynamoClient(ctx, c)
		if err != nil {
			return nil, nil, err
		}
		store = NewDynamoStore(client, c.Table)
		helper.Infow("msg", "record store ready", "driver", c.Driver, "table", c.Table, "region", c.Region)
	case conf.StoreSQL:
		db, err := OpenSQL(ctx, &c.SQL)
		if err != nil {
			return nil, nil, err
		}
		store = NewSQLStore(db)
		cleanup = func() {
			helper.Info("message", "closing the data resources")
			if err := db.Close(); err != nil {
				helper.Error(err)
			}
		}
		helper.Infow("msg", "record store ready", "driver", c.Driver, "sql_driver", c.SQL.Driver)
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", c.Driver)
	}
	return NewGuardedStore(store, c, logger), cleanup, nil
}

// NewSecretsManager creates the Secrets Manager client used for key references
// that are neither env: nor static:.
func NewSecretsManager(c *conf.Secrets) (SecretsManagerAPI, error) {
	return NewSecretsManagerClient(context.Background(), c)
}
