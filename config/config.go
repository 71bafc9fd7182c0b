// Package config resolves the connection parameters for one object-storage
// test session from the process environment.
package config

import (
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// MockedValue is substituted for every credential field and the region when
// mock mode is active, so real credentials never leak into a mocked run.
const MockedValue = "mocked"

// DefaultRegion is used in real mode when AWS_REGION_NAME is unset.
const DefaultRegion = "eu-central-1"

// Config holds the parameters needed to open a storage session. It is built
// once per session and not mutated afterwards.
type Config struct {
	MockMode        bool
	BucketName      string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
}

// Load resolves a fresh Config from the environment.
//
// Mock mode is on unless AIIDA_S3_MOCK explicitly disables it. Under mock
// mode the credentials and region are forced to MockedValue and the bucket
// name is a freshly generated UUID, regardless of what the environment says.
// In real mode each field reads its environment variable; missing
// credentials stay empty (they fail later, at connection time, not here),
// the region falls back to DefaultRegion, and a missing bucket name is
// generated.
func Load() *Config {
	v := viper.New()

	v.BindEnv("mock", "AIIDA_S3_MOCK")
	v.BindEnv("bucket_name", "AWS_BUCKET_NAME")
	v.BindEnv("access_key_id", "AWS_ACCESS_KEY_ID")
	v.BindEnv("secret_access_key", "AWS_SECRET_ACCESS_KEY")
	v.BindEnv("region_name", "AWS_REGION_NAME")
	v.BindEnv("endpoint", "AWS_ENDPOINT")

	v.SetDefault("mock", true)
	v.SetDefault("region_name", DefaultRegion)

	cfg := &Config{
		MockMode:        v.GetBool("mock"),
		BucketName:      v.GetString("bucket_name"),
		AccessKeyID:     v.GetString("access_key_id"),
		SecretAccessKey: v.GetString("secret_access_key"),
		Region:          v.GetString("region_name"),
		Endpoint:        v.GetString("endpoint"),
	}

	if cfg.MockMode {
		cfg.AccessKeyID = MockedValue
		cfg.SecretAccessKey = MockedValue
		cfg.Region = MockedValue
		cfg.BucketName = uuid.NewString()
	} else if cfg.BucketName == "" {
		cfg.BucketName = uuid.NewString()
	}

	return cfg
}

var (
	resolveOnce sync.Once
	resolved    *Config
)

// Resolve returns the session-wide Config, loading it on first call. Every
// later call returns the same value, so a generated bucket name stays
// stable for the whole test session.
func Resolve() *Config {
	resolveOnce.Do(func() {
		resolved = Load()
	})
	return resolved
}
