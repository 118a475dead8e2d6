// Package config defines the process configuration surface, loaded via
// github.com/spf13/viper the way the teacher's engine/main.go loads its own
// TOML Configuration struct. Every field here is either consumed by an
// engine package or declared because §6 lists it as part of the external
// interface surface, even when nothing in this repository reads it (the
// OAuth/JWT fields — see SPEC_FULL.md's scope boundary).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/yplabs-ltd/codepush-server/corelog"
	"github.com/yplabs-ltd/codepush-server/objectstore"
	"github.com/yplabs-ltd/codepush-server/store"
)

// Configuration is the full process configuration tree.
type Configuration struct {
	ListenAddress             string
	EnableAccountRegistration bool

	Database store.Config

	ObjectStore ObjectStoreConfig

	Log corelog.Conf

	// OAuthClientID, OAuthClientSecret and JWTSecret exist only so the
	// external OAuth/JWT collaborator named out of scope in §1 has somewhere
	// to be configured; no engine package reads them.
	OAuthClientID     string
	OAuthClientSecret string
	JWTSecret         string
}

// ObjectStoreConfig selects and configures one objectstore.Driver.
type ObjectStoreConfig struct {
	Kind ObjectStoreKind

	FilesystemBaseDir string

	S3 objectstore.S3Config
}

// ObjectStoreKind selects which Driver implementation to construct.
type ObjectStoreKind string

const (
	ObjectStoreFilesystem ObjectStoreKind = "filesystem"
	ObjectStoreS3         ObjectStoreKind = "s3"
)

// Load reads configuration from the given file (if non-empty) plus
// environment variables prefixed CODEPUSH_, mirroring the teacher's
// viper.SetEnvPrefix("cds") + SetEnvKeyReplacer setup in engine/main.go.
func Load(configFile string) (*Configuration, error) {
	v := viper.New()
	v.SetEnvPrefix("codepush")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listenaddress", ":8080")
	v.SetDefault("enableaccountregistration", true)
	v.SetDefault("objectstore.kind", string(ObjectStoreFilesystem))
	v.SetDefault("objectstore.filesystembasedir", "./data/blobs")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxconns", 20)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}
