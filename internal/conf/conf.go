package conf

import (
	"encoding/json"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Bootstrap is the root of the service configuration.
// It is built once in main and each section is handed to the providers that need it.
type Bootstrap struct {
	Server   *Server   `json:"server"`
	Redirect *Redirect `json:"redirect"`
	Cache    *Cache    `json:"cache"`
	Store    *Store    `json:"store"`
	Secrets  *Secrets  `json:"secrets"`
	Redis    *Redis    `json:"redis"`
	GeoIP    *GeoIP    `json:"geoip"`
	Emitter  *Emitter  `json:"emitter"`
}

// Server holds transport settings.
type Server struct {
	Debug bool `json:"debug"`
	HTTP  HTTP `json:"http"`
}

// HTTP holds the listener settings.
type HTTP struct {
	Network string   `json:"network"`
	Addr    string   `json:"addr"`
	Timeout Duration `json:"timeout"`
}

// Redirect holds settings for the redirect pipeline.
type Redirect struct {
	// DefaultFallbackURL is where every request goes when no record-specific target is known.
	DefaultFallbackURL string   `json:"default_fallback_url"`
	CountryHeaders     []string `json:"country_headers"`
	SignatureParam     string   `json:"signature_param"`
	TimestampParam     string   `json:"timestamp_param"`
	ClockSkew          Duration `json:"clock_skew"`
}

// Cache sizes the per-process record cache.
type Cache struct {
	MaxEntries  int      `json:"max_entries"`
	TTL         Duration `json:"ttl"`
	NegativeTTL Duration `json:"negative_ttl"`
}

// Store selects and configures the backing record store.
type Store struct {
	// Driver is "dynamodb" or "sql".
	Driver   string   `json:"driver"`
	Table    string   `json:"table"`
	Region   string   `json:"region"`
	Endpoint string   `json:"endpoint"`
	Timeout  Duration `json:"timeout"`
	SQL      SQL      `json:"sql"`
	Breaker  Breaker  `json:"breaker"`
}

// SQL configures the database/sql record store.
type SQL struct {
	// Driver is "sqlite3" or "postgres".
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// Breaker configures the circuit breaker in front of the record store.
type Breaker struct {
	MaxFailures uint32   `json:"max_failures"`
	OpenTimeout Duration `json:"open_timeout"`
}

// Secrets configures signing-secret resolution.
type Secrets struct {
	TTL      Duration `json:"ttl"`
	Region   string   `json:"region"`
	Endpoint string   `json:"endpoint"`
	Timeout  Duration `json:"timeout"`
}

// Redis configures the optional push-invalidation channel.
// An empty Addr disables it.
type Redis struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Channel  string `json:"channel"`
}

// GeoIP configures the optional country database. An empty Path disables it.
type GeoIP struct {
	Path string `json:"path"`
}

// Emitter configures click event delivery.
type Emitter struct {
	// Sink is one of "http", "dapr", "sqs", "bus" or "noop".
	Sink       string   `json:"sink"`
	Endpoint   string   `json:"endpoint"`
	QueueSize  int      `json:"queue_size"`
	Workers    int      `json:"workers"`
	Timeout    Duration `json:"timeout"`
	MaxRetries int      `json:"max_retries"`
	// HashKey keys the ip and url hashes. Required for every sink except bus and noop.
	HashKey    string   `json:"hash_key"`
	Dapr       Dapr     `json:"dapr"`
	SQS        SQS      `json:"sqs"`
}

// Dapr names the pub/sub component and topic click events are published to.
type Dapr struct {
	PubSub string `json:"pubsub"`
	Topic  string `json:"topic"`
}

// SQS names the queue click events are sent to.
type SQS struct {
	QueueURL string `json:"queue_url"`
	Region   string `json:"region"`
	Endpoint string `json:"endpoint"`
}

const (
	StoreDynamoDB = "dynamodb"
	StoreSQL      = "sql"

	SinkHTTP = "http"
	SinkDapr = "dapr"
	SinkSQS  = "sqs"
	SinkBus  = "bus"
	SinkNoop = "noop"
)

// ApplyDefaults fills every omitted field with its default value.
func (b *Bootstrap) ApplyDefaults() {
	if b.Server == nil {
		b.Server = &Server{}
	}
	if b.Server.HTTP.Addr == "" {
		b.Server.HTTP.Addr = "0.0.0.0:8000"
	}
	if b.Server.HTTP.Timeout.Duration == 0 {
		b.Server.HTTP.Timeout = Seconds(1)
	}

	if b.Redirect == nil {
		b.Redirect = &Redirect{}
	}
	if len(b.Redirect.CountryHeaders) == 0 {
		b.Redirect.CountryHeaders = []string{"CloudFront-Viewer-Country", "CF-IPCountry", "X-Country-Code"}
	}
	if b.Redirect.SignatureParam == "" {
		b.Redirect.SignatureParam = "sig"
	}
	if b.Redirect.TimestampParam == "" {
		b.Redirect.TimestampParam = "ts"
	}
	if b.Redirect.ClockSkew.Duration == 0 {
		b.Redirect.ClockSkew = Seconds(300)
	}

	if b.Cache == nil {
		b.Cache = &Cache{}
	}
	if b.Cache.MaxEntries == 0 {
		b.Cache.MaxEntries = 10000
	}
	if b.Cache.TTL.Duration == 0 {
		b.Cache.TTL = Seconds(300)
	}
	if b.Cache.NegativeTTL.Duration == 0 {
		b.Cache.NegativeTTL = Seconds(10)
	}

	if b.Store == nil {
		b.Store = &Store{}
	}
	if b.Store.Driver == "" {
		b.Store.Driver = StoreDynamoDB
	}
	if b.Store.Table == "" {
		b.Store.Table = "link-runtime-production"
	}
	if b.Store.Region == "" {
		b.Store.Region = "us-east-1"
	}
	if b.Store.Timeout.Duration == 0 {
		b.Store.Timeout = Duration{50 * time.Millisecond}
	}
	if b.Store.SQL.Driver == "" {
		b.Store.SQL.Driver = "sqlite3"
	}
	if b.Store.Breaker.MaxFailures == 0 {
		b.Store.Breaker.MaxFailures = 5
	}
	if b.Store.Breaker.OpenTimeout.Duration == 0 {
		b.Store.Breaker.OpenTimeout = Seconds(5)
	}

	if b.Secrets == nil {
		b.Secrets = &Secrets{}
	}
	if b.Secrets.TTL.Duration == 0 {
		b.Secrets.TTL = Seconds(300)
	}
	if b.Secrets.Region == "" {
		b.Secrets.Region = b.Store.Region
	}
	if b.Secrets.Timeout.Duration == 0 {
		b.Secrets.Timeout = Duration{500 * time.Millisecond}
	}

	if b.Redis == nil {
		b.Redis = &Redis{}
	}
	if b.Redis.Channel == "" {
		b.Redis.Channel = "link-runtime:invalidate"
	}

	if b.GeoIP == nil {
		b.GeoIP = &GeoIP{}
	}

	if b.Emitter == nil {
		b.Emitter = &Emitter{}
	}
	if b.Emitter.Sink == "" {
		b.Emitter.Sink = SinkBus
	}
	if b.Emitter.QueueSize == 0 {
		b.Emitter.QueueSize = 1024
	}
	if b.Emitter.Workers == 0 {
		b.Emitter.Workers = 4
	}
	if b.Emitter.Timeout.Duration == 0 {
		b.Emitter.Timeout = Seconds(2)
	}
	if b.Emitter.MaxRetries == 0 {
		b.Emitter.MaxRetries = 2
	}
	if b.Emitter.Dapr.PubSub == "" {
		b.Emitter.Dapr.PubSub = "pubsub"
	}
	if b.Emitter.Dapr.Topic == "" {
		b.Emitter.Dapr.Topic = "link-clicks"
	}
	if b.Emitter.SQS.Region == "" {
		b.Emitter.SQS.Region = b.Store.Region
	}
}

// Validate checks the configuration after defaults have been applied.
func (b *Bootstrap) Validate() error {
	if err := validation.ValidateStruct(b.Redirect,
		validation.Field(&b.Redirect.DefaultFallbackURL, validation.Required, is.URL),
		validation.Field(&b.Redirect.SignatureParam, validation.Required),
		validation.Field(&b.Redirect.TimestampParam, validation.Required),
	); err != nil {
		return fmt.Errorf("redirect: %w", err)
	}
	if err := validation.ValidateStruct(b.Cache,
		validation.Field(&b.Cache.MaxEntries, validation.Min(1)),
	); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := validation.ValidateStruct(b.Store,
		validation.Field(&b.Store.Driver, validation.In(StoreDynamoDB, StoreSQL)),
	); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if b.Store.Driver == StoreSQL {
		if err := validation.ValidateStruct(&b.Store.SQL,
			validation.Field(&b.Store.SQL.Driver, validation.In("sqlite3", "postgres")),
			validation.Field(&b.Store.SQL.DSN, validation.Required),
		); err != nil {
			return fmt.Errorf("store.sql: %w", err)
		}
	}
	if err := validation.ValidateStruct(b.Emitter,
		validation.Field(&b.Emitter.Sink, validation.In(SinkHTTP, SinkDapr, SinkSQS, SinkBus, SinkNoop)),
		validation.Field(&b.Emitter.Endpoint, validation.When(b.Emitter.Sink == SinkHTTP, validation.Required, is.URL)),
		validation.Field(&b.Emitter.QueueSize, validation.Min(1)),
		validation.Field(&b.Emitter.Workers, validation.Min(1)),
		validation.Field(&b.Emitter.MaxRetries, validation.Min(0)),
		validation.Field(&b.Emitter.HashKey, validation.When(b.Emitter.Sink != SinkBus && b.Emitter.Sink != SinkNoop, validation.Required)),
	); err != nil {
		return fmt.Errorf("emitter: %w", err)
	}
	if b.Emitter.Sink == SinkSQS && b.Emitter.SQS.QueueURL == "" {
		return fmt.Errorf("emitter: sqs.queue_url is required for the sqs sink")
	}
	return nil
}

// Duration is a time.Duration read from a Go duration string ("300s", "50ms")
// or from a plain number of seconds.
type Duration struct {
	time.Duration
}

// Seconds returns a Duration of n seconds.
func Seconds(n int) Duration {
	return Duration{time.Duration(n) * time.Second}
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		d.Duration = time.Duration(val * float64(time.Second))
	case string:
		if val == "" {
			d.Duration = 0
			return nil
		}
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", val, err)
		}
		d.Duration = parsed
	case nil:
		d.Duration = 0
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
