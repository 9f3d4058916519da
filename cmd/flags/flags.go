package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/quorum-vault/api"
	"github.com/ruteri/quorum-vault/common"
	"github.com/ruteri/quorum-vault/interfaces"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *api.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &api.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
		MaxBodySize:              cCtx.Int64(MaxBodySizeFlag.Name),
		Vault:                    ConfigureVault(cCtx),
	}
}

// ConfigureVault reads the storage, cipher and agent flags.
func ConfigureVault(cCtx *cli.Context) api.VaultConfig {
	raw := cCtx.StringSlice(StorageFlag.Name)
	locations := make([]interfaces.StoreLocation, 0, len(raw))
	for _, location := range raw {
		locations = append(locations, interfaces.StoreLocation(location))
	}

	return api.VaultConfig{
		StorageLocations:       locations,
		Cipher:                 cCtx.String(CipherFlag.Name),
		AgentKeyFile:           cCtx.String(AgentKeyFlag.Name),
		TrustedCreatorKeyFiles: cCtx.StringSlice(TrustedCreatorFlag.Name),
	}
}

var ServerAddrFlag = &cli.StringFlag{
	Name:    "server-addr",
	Value:   "http://127.0.0.1:8080",
	Usage:   "quorum vault server to talk to",
	EnvVars: []string{"QUORUM_SERVER_ADDR"},
}

var ListenAddrFlag = &cli.StringFlag{
	Name:    "listen-addr",
	Value:   "127.0.0.1:8080",
	Usage:   "address to listen on for API",
	EnvVars: []string{"QUORUM_LISTEN_ADDR"},
}

var StorageFlag = &cli.StringSliceFlag{
	Name:    "storage",
	Value:   cli.NewStringSlice("file://./quorum-data"),
	Usage:   "storage location URI (memory://, file://, badger://, vault://, s3://); repeat to mirror writes",
	EnvVars: []string{"QUORUM_STORAGE"},
}

var AgentKeyFlag = &cli.StringFlag{
	Name:    "agent-key-file",
	Value:   "agent-key.json",
	Usage:   "member key file the server seals and signs records with; generated if missing",
	EnvVars: []string{"QUORUM_AGENT_KEY_FILE"},
}

var CipherFlag = &cli.StringFlag{
	Name:    "cipher",
	Value:   "aes-256-gcm",
	Usage:   "document cipher: aes-256-gcm or xchacha20-poly1305",
	EnvVars: []string{"QUORUM_CIPHER"},
}

var TrustedCreatorFlag = &cli.StringSliceFlag{
	Name:    "trusted-creator-key-file",
	Usage:   "key file of an earlier agent whose sealed records stay readable; repeatable",
	EnvVars: []string{"QUORUM_TRUSTED_CREATOR_KEY_FILE"},
}

var MaxBodySizeFlag = &cli.Int64Flag{
	Name:    "max-body-bytes",
	Value:   api.DefaultMaxBodySize,
	Usage:   "maximum size of a JSON request body",
	EnvVars: []string{"QUORUM_MAX_BODY_BYTES"},
}

var LogJsonFlag = &cli.BoolFlag{
	Name:    "log-json",
	Value:   false,
	Usage:   "log in JSON format",
	EnvVars: []string{"QUORUM_LOG_JSON"},
}
var LogDebugFlag = &cli.BoolFlag{
	Name:    "log-debug",
	Value:   false,
	Usage:   "log debug messages",
	EnvVars: []string{"QUORUM_LOG_DEBUG"},
}
var LogUidFlag = &cli.BoolFlag{
	Name:    "log-uid",
	Value:   false,
	Usage:   "generate a uuid and add to all log messages",
	EnvVars: []string{"QUORUM_LOG_UID"},
}
var LogServiceFlag = &cli.StringFlag{
	Name:    "log-service",
	Value:   common.PackageName,
	Usage:   "add 'service' tag to logs",
	EnvVars: []string{"QUORUM_LOG_SERVICE"},
}

var PprofFlag = &cli.BoolFlag{
	Name:    "pprof",
	Value:   false,
	Usage:   "enable pprof debug endpoint",
	EnvVars: []string{"QUORUM_PPROF"},
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:    "drain-seconds",
	Value:   45,
	Usage:   "seconds to wait in drain HTTP request",
	EnvVars: []string{"QUORUM_DRAIN_SECONDS"},
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:    "metrics-addr",
	Value:   "127.0.0.1:8090",
	Usage:   "address to listen on for Prometheus metrics",
	EnvVars: []string{"QUORUM_METRICS_ADDR"},
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
}

var CommonFlags = append([]cli.Flag{
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}, LogFlags...)
