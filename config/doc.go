// Package config loads the kelmahctl configuration.
//
// Values come from a config file, an optional .env file and the process
// environment, in that order of increasing precedence. The config file is
// the --config flag, then $KELMAH_CONFIG, then ./kelmahctl.yml, ./config.yml
// or ~/.config/kelmah/config.yml.
//
// Every key can be set as KELMAH_<KEY> with dots turned into underscores, so
// KELMAH_API_TIMEOUT sets api.timeout. Nested keys also accept the name
// without the prefix (TOKENSTORE_KIND sets tokenstore.kind).
//
//	var cfg config.AppConfig
//	if err := config.LoadConfig("kelmahctl", &cfg); err != nil { ... }
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil { ... }
//	adapter, err := httpclient.New(cfg.HTTPClient())
package config
