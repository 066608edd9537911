package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"speechrelay.dev/pkg/utils"
)

type LookupEnvFunc func(key string) (string, bool)

// envKeys lists the names a setting may be read from. The dashed names are
// the ones the service has always been deployed with and take precedence.
func envKeys(dashed string) []string {
	upper := "SPEECHRELAY_" + strings.ToUpper(strings.ReplaceAll(dashed, "-", "_"))

	return []string{dashed, upper}
}

func lookupFirst(lookup LookupEnvFunc, dashed string) (string, bool) {
	for _, key := range envKeys(dashed) {
		if val, ok := lookup(key); ok {
			return val, true
		}
	}

	return "", false
}

func setString(lookup LookupEnvFunc, dashed string, target *string) {
	if val, ok := lookupFirst(lookup, dashed); ok {
		*target = val
	}
}

func setParsed[T any](lookup LookupEnvFunc, dashed string, target *T) error {
	raw, ok := lookupFirst(lookup, dashed)
	if !ok {
		return nil
	}

	val, err := utils.FromString[T](raw)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", dashed, err)
	}

	*target = val

	return nil
}

// ApplyEnv overlays environment values on cfg.
func ApplyEnv(cfg *Config, lookup LookupEnvFunc) error {
	mulErrs := &multierror.Error{}

	setString(lookup, "tts-endpoint", &cfg.Speech.Endpoint)
	setString(lookup, "tts-key", &cfg.Speech.Key)
	setString(lookup, "tts-format", &cfg.Speech.OutputFormat)
	setString(lookup, "tts-header", &cfg.Speech.ContentType)
	setString(lookup, "tts-voice-lang", &cfg.Speech.Voice.Lang)
	setString(lookup, "tts-voice-gender", &cfg.Speech.Voice.Gender)
	setString(lookup, "tts-voice-name", &cfg.Speech.Voice.Name)
	setString(lookup, "tts-ssml-mode", &cfg.Speech.SSMLMode)
	mulErrs = multierror.Append(mulErrs, setParsed[time.Duration](lookup, "tts-timeout", &cfg.Speech.Timeout))

	setString(lookup, "listen-address", &cfg.Listener.Address)
	mulErrs = multierror.Append(mulErrs, setParsed[bool](lookup, "access-log", &cfg.Listener.AccessLog))
	mulErrs = multierror.Append(mulErrs, setParsed[bool](lookup, "error-status-codes", &cfg.Listener.ErrorStatusCodes))
	mulErrs = multierror.Append(mulErrs, setParsed[bool](lookup, "debug", &cfg.Debug))

	if backend, ok := lookupFirst(lookup, "audit-backend"); ok {
		cfg.Audit.Backend = AuditBackend(strings.ToLower(backend))
	}

	if raw, ok := lookupFirst(lookup, "audit-required"); ok {
		required, err := utils.FromString[bool](raw)
		if err != nil {
			mulErrs = multierror.Append(mulErrs, fmt.Errorf("invalid value for audit-required: %w", err))
		} else {
			cfg.Audit.Required = &required
		}
	}

	setString(lookup, "cosmos-endpoint", &cfg.Audit.Cosmos.Endpoint)
	setString(lookup, "cosmos-key", &cfg.Audit.Cosmos.Key)
	setString(lookup, "cosmos-database", &cfg.Audit.Cosmos.Database)
	setString(lookup, "cosmos-container", &cfg.Audit.Cosmos.Container)

	setString(lookup, "redis-url", &cfg.Audit.Redis.URL)
	setString(lookup, "redis-key-prefix", &cfg.Audit.Redis.KeyPrefix)
	mulErrs = multierror.Append(mulErrs, setParsed[time.Duration](lookup, "redis-ttl", &cfg.Audit.Redis.TTL))

	// a configured cosmos account without an explicit backend keeps the
	// behavior of the audited deployment
	if cfg.Audit.Backend == "" && cfg.Audit.Cosmos.Endpoint != "" {
		cfg.Audit.Backend = AuditBackendCosmos
	}

	return mulErrs.ErrorOrNil()
}
