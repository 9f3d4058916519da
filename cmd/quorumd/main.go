package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/quorum-vault/api/servers"
	"github.com/ruteri/quorum-vault/api/vaulthandler"
	"github.com/ruteri/quorum-vault/cmd/flags"
	"github.com/ruteri/quorum-vault/common"
	"github.com/ruteri/quorum-vault/cryptoutils"
	"github.com/ruteri/quorum-vault/interfaces"
	"github.com/ruteri/quorum-vault/metrics"
	"github.com/ruteri/quorum-vault/quorum"
	"github.com/ruteri/quorum-vault/sealing"
	"github.com/ruteri/quorum-vault/storage"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "quorumd",
		Usage: "Serve the quorum vault API",
		Flags: append([]cli.Flag{
			flags.ListenAddrFlag,
			flags.StorageFlag,
			flags.AgentKeyFlag,
			flags.CipherFlag,
			flags.TrustedCreatorFlag,
			flags.MaxBodySizeFlag,
		}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flags.ListenAddrFlag.Name))
			if err := cfg.Validate(); err != nil {
				return err
			}

			cipher, err := cryptoutils.CipherByName(cfg.Vault.Cipher)
			if err != nil {
				return err
			}

			agent, err := loadOrCreateAgent(cfg.Vault.AgentKeyFile, logger)
			if err != nil {
				return err
			}

			trusted, err := loadTrustedCreators(agent, cfg.Vault.TrustedCreatorKeyFiles)
			if err != nil {
				return err
			}

			store, err := storage.NewStoreFactory(logger).CreateMultiStore(cfg.Vault.StorageLocations)
			if err != nil {
				logger.Error("Failed to open storage", "err", err)
				return err
			}
			if closer, ok := store.(io.Closer); ok {
				defer closer.Close()
			}
			logger.Info("Storage ready", "location", store.LocationURI())

			metricsSrv, err := metrics.New(common.PackageName, cfg.MetricsAddr)
			if err != nil {
				return err
			}

			q, err := quorum.NewQuorumService(quorum.Config{
				Store:   store,
				Sealer:  sealing.NewService(cipher, logger),
				Metrics: metrics.NewQuorumMetrics(metricsSrv.Registerer()),
				Log:     logger,

				TrustedCreators: trusted,
			})
			if err != nil {
				return err
			}

			handler := vaulthandler.NewHandler(q, agent, logger).WithMaxBodySize(cfg.BodyLimit())
			server, err := servers.New(cfg, metricsSrv, handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting server", "agent", agent.ID().String(), "cipher", cipher.Name())
			server.RunInBackground()

			// Wait for termination signal
			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadOrCreateAgent loads the agent key file at path, generating it on first start.
func loadOrCreateAgent(path string, logger *slog.Logger) (*cryptoutils.KeyMember, error) {
	agent, err := cryptoutils.LoadMemberKeyFile(path)
	if err == nil {
		if !agent.HasPrivateKey() {
			return nil, fmt.Errorf("agent key file %s holds no private key", path)
		}
		return agent, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	agent, err = cryptoutils.GenerateKeyMember()
	if err != nil {
		return nil, err
	}
	if err := cryptoutils.SaveMemberKeyFile(path, agent, true); err != nil {
		return nil, err
	}

	logger.Info("Generated agent key", "file", path, "agent", agent.ID().String())
	return agent, nil
}

// loadTrustedCreators returns the public keys accepted on stored records: the agent's
// own and those of the given key files.
func loadTrustedCreators(agent *cryptoutils.KeyMember, paths []string) ([]interfaces.Member, error) {
	trusted := []interfaces.Member{agent.PublicOnly()}
	for _, path := range paths {
		creator, err := cryptoutils.LoadMemberKeyFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load trusted creator %s: %w", path, err)
		}
		trusted = append(trusted, creator.PublicOnly())
	}
	return trusted, nil
}
