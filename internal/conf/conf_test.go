package conf

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBootstrap() *Bootstrap {
	b := &Bootstrap{Redirect: &Redirect{DefaultFallbackURL: "https://www.example.com/"}}
	b.ApplyDefaults()
	return b
}

func TestApplyDefaults(t *testing.T) {
	b := &Bootstrap{}
	b.ApplyDefaults()

	assert.Equal(t, "0.0.0.0:8000", b.Server.HTTP.Addr)
	assert.Equal(t, 300*time.Second, b.Cache.TTL.Duration)
	assert.Equal(t, 10*time.Second, b.Cache.NegativeTTL.Duration)
	assert.Equal(t, 50*time.Millisecond, b.Store.Timeout.Duration)
	assert.Equal(t, StoreDynamoDB, b.Store.Driver)
	assert.Equal(t, 300*time.Second, b.Redirect.ClockSkew.Duration)
	assert.Equal(t, "sig", b.Redirect.SignatureParam)
	assert.Equal(t, "ts", b.Redirect.TimestampParam)
	assert.Equal(t, []string{"CloudFront-Viewer-Country", "CF-IPCountry", "X-Country-Code"}, b.Redirect.CountryHeaders)
	assert.Equal(t, SinkBus, b.Emitter.Sink)
	assert.Equal(t, 1024, b.Emitter.QueueSize)
	assert.Equal(t, 4, b.Emitter.Workers)
	assert.Equal(t, 2, b.Emitter.MaxRetries)
	assert.Equal(t, b.Store.Region, b.Secrets.Region)
	assert.Equal(t, "link-runtime:invalidate", b.Redis.Channel)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	b := &Bootstrap{
		Cache:   &Cache{TTL: Seconds(60)},
		Emitter: &Emitter{Sink: SinkNoop, Workers: 8},
	}
	b.ApplyDefaults()

	assert.Equal(t, time.Minute, b.Cache.TTL.Duration)
	assert.Equal(t, SinkNoop, b.Emitter.Sink)
	assert.Equal(t, 8, b.Emitter.Workers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(b *Bootstrap)
		wantErr string
	}{
		{name: "valid", mutate: func(*Bootstrap) {}},
		{name: "missing fallback", mutate: func(b *Bootstrap) { b.Redirect.DefaultFallbackURL = "" }, wantErr: "redirect"},
		{name: "fallback not a url", mutate: func(b *Bootstrap) { b.Redirect.DefaultFallbackURL = "not a url" }, wantErr: "redirect"},
		{name: "unknown store", mutate: func(b *Bootstrap) { b.Store.Driver = "mongo" }, wantErr: "store"},
		{name: "sql without dsn", mutate: func(b *Bootstrap) { b.Store.Driver = StoreSQL }, wantErr: "store.sql"},
		{name: "sql with dsn", mutate: func(b *Bootstrap) { b.Store.Driver = StoreSQL; b.Store.SQL.DSN = "file::memory:" }},
		{name: "unknown sink", mutate: func(b *Bootstrap) { b.Emitter.Sink = "kafka" }, wantErr: "emitter"},
		{name: "http sink without endpoint", mutate: func(b *Bootstrap) { b.Emitter.Sink = SinkHTTP }, wantErr: "emitter"},
		{name: "sqs sink without queue", mutate: func(b *Bootstrap) { b.Emitter.Sink = SinkSQS; b.Emitter.HashKey = "k" }, wantErr: "sqs.queue_url"},
		{name: "http sink without hash key", mutate: func(b *Bootstrap) {
			b.Emitter.Sink = SinkHTTP
			b.Emitter.Endpoint = "https://events.example.com/clicks"
		}, wantErr: "hash_key"},
		{name: "http sink with hash key", mutate: func(b *Bootstrap) {
			b.Emitter.Sink = SinkHTTP
			b.Emitter.Endpoint = "https://events.example.com/clicks"
			b.Emitter.HashKey = "k"
		}},
		{name: "dapr sink without hash key", mutate: func(b *Bootstrap) { b.Emitter.Sink = SinkDapr }, wantErr: "hash_key"},
		{name: "noop sink without hash key", mutate: func(b *Bootstrap) { b.Emitter.Sink = SinkNoop }},
		{name: "negative cache size", mutate: func(b *Bootstrap) { b.Cache.MaxEntries = -1 }, wantErr: "cache"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBootstrap()
			tt.mutate(b)

			err := b.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: `"300s"`, want: 300 * time.Second},
		{in: `"50ms"`, want: 50 * time.Millisecond},
		{in: `10`, want: 10 * time.Second},
		{in: `1.5`, want: 1500 * time.Millisecond},
		{in: `""`, want: 0},
		{in: `null`, want: 0},
		{in: `"soon"`, wantErr: true},
		{in: `true`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.in), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration)
		})
	}
}

func TestBootstrap_ScanFromJSON(t *testing.T) {
	raw := `{"redirect":{"default_fallback_url":"https://www.example.com/","clock_skew":"120s"},"cache":{"ttl":"30s"}}`

	var b Bootstrap
	require.NoError(t, json.Unmarshal([]byte(raw), &b))
	b.ApplyDefaults()

	assert.Equal(t, 120*time.Second, b.Redirect.ClockSkew.Duration)
	assert.Equal(t, 30*time.Second, b.Cache.TTL.Duration)
	assert.NoError(t, b.Validate())
}
