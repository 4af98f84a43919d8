package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/core-coin/tokensale/internal/artifact"
	"github.com/core-coin/tokensale/internal/blockchain"
	"github.com/core-coin/tokensale/internal/config"
	"github.com/core-coin/tokensale/internal/http_api"
	"github.com/core-coin/tokensale/internal/migration"
	"github.com/core-coin/tokensale/internal/models"
	"github.com/core-coin/tokensale/internal/notificator"
	"github.com/core-coin/tokensale/internal/repository"
	"github.com/core-coin/tokensale/internal/wellknown"
	"github.com/core-coin/tokensale/pkg/logger"
	"github.com/core-coin/tokensale/pkg/validation"
)

// loadConfig loads the configuration from the environment and applies the flags set on the command line.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}

	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}
	if c.IsSet("chain") {
		cfg.Chain = c.String("chain")
	}
	if c.IsSet("network") {
		cfg.Network = c.String("network")
	}
	if c.IsSet("network-id") {
		networkID, ok := new(big.Int).SetString(c.String("network-id"), 10)
		if !ok {
			return nil, fmt.Errorf("invalid network id %q", c.String("network-id"))
		}
		cfg.NetworkID = networkID
	}
	if c.IsSet("blockchain-service-url") {
		cfg.BlockchainServiceURL = c.String("blockchain-service-url")
	}
	if c.IsSet("artifacts-dir") {
		cfg.ArtifactsDir = c.String("artifacts-dir")
	}
	if c.IsSet("wallet") {
		cfg.WalletAddress = c.String("wallet")
	}
	if c.IsSet("postgres-user") {
		cfg.PostgresUser = c.String("postgres-user")
	}
	if c.IsSet("postgres-password") {
		cfg.PostgresPassword = c.String("postgres-password")
	}
	if c.IsSet("postgres-host") {
		cfg.PostgresHost = c.String("postgres-host")
	}
	if c.IsSet("postgres-port") {
		cfg.PostgresPort = c.Int("postgres-port")
	}
	if c.IsSet("postgres-db") {
		cfg.PostgresDB = c.String("postgres-db")
	}
	if c.IsSet("no-registry") {
		cfg.RegistryEnabled = !c.Bool("no-registry")
	}
	if c.IsSet("allow-duplicate-symbol") {
		cfg.AllowDuplicateSymbol = c.Bool("allow-duplicate-symbol")
	}
	if c.IsSet("symbol-preflight") {
		cfg.SymbolPreflight = c.Bool("symbol-preflight")
	}
	if c.IsSet("no-write-artifacts") {
		cfg.WriteArtifacts = !c.Bool("no-write-artifacts")
	}
	if c.IsSet("api-port") {
		cfg.APIPort = c.Int("api-port")
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newChain(ctx context.Context, cfg *config.Config, log *logger.Logger) (models.ChainBackend, error) {
	switch cfg.Chain {
	case validation.ChainCore:
		gocore := blockchain.NewGocore(cfg.BlockchainServiceURL, cfg.NetworkID, cfg.DeployGasLimit, cfg.ReceiptTimeout, log)
		if err := gocore.ConnectToRPC(ctx); err != nil {
			return nil, err
		}
		return gocore, nil
	case validation.ChainEthereum:
		return blockchain.NewEthereum(
			cfg.BlockchainServiceURL,
			cfg.NetworkID,
			cfg.DeployerPrivateKey,
			cfg.DeployGasLimit,
			cfg.GasFeeCap, cfg.GasTipCap,
			cfg.ReceiptTimeout,
			log,
		)
	}
	return nil, fmt.Errorf("unsupported chain %q", cfg.Chain)
}

func newRepository(cfg *config.Config, log *logger.Logger) (*repository.PostgresDB, error) {
	db, err := repository.NewPostgresDB(cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresHost, cfg.PostgresPort, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}
	return db, nil
}

func newNotificator(cfg *config.Config, log *logger.Logger) (models.NotificationService, error) {
	var telegram *notificator.TelegramNotificator
	if cfg.TelegramBotToken != "" {
		var err error
		telegram, err = notificator.NewTelegramNotificator(log, cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			return nil, err
		}
	}
	var email *notificator.EmailNotificator
	if cfg.ReportEmail != "" {
		email = notificator.NewEmailNotificator(log, cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPSender, cfg.ReportEmail)
	}
	if telegram == nil && email == nil {
		return nil, nil
	}
	return notificator.NewNotificator(log, telegram, email), nil
}

func migrate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	chain, err := newChain(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer chain.Close()

	// Optional services stay nil interfaces when disabled
	var repo models.Repository
	if cfg.RegistryEnabled {
		db, err := newRepository(cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()
		repo = db
	}

	notif, err := newNotificator(cfg, log)
	if err != nil {
		return err
	}

	var tokens models.TokenDirectory
	if cfg.SymbolPreflight {
		tokens = wellknown.NewWellKnownService(log, cfg.WellKnownURL, cfg.GetNetworkName())
	}

	migrator := migration.NewMigrator(repo, chain, artifact.NewStore(cfg.ArtifactsDir), notif, tokens, log, cfg)
	run, err := migrator.Migrate(ctx)
	if run != nil {
		printRun(run)
	}
	if err != nil {
		var stepErr *migration.StepError
		if errors.As(err, &stepErr) {
			log.Error("Migration aborted", "step", stepErr.Step, "unit", stepErr.Unit, "error", stepErr.Err)
		}
		return err
	}
	return nil
}

func plan(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer log.Sync()

	chain, err := newChain(c.Context, cfg, log)
	if err != nil {
		return err
	}
	defer chain.Close()

	store := artifact.NewStore(cfg.ArtifactsDir)
	migrator := migration.NewMigrator(nil, chain, store, nil, nil, log, cfg)
	window, steps, err := migrator.Plan(c.Context)
	if err != nil {
		return err
	}

	fmt.Printf("Sale window: %d - %d (%s - %s)\n", window.Start, window.End,
		window.StartTime().Format("2006-01-02 15:04:05 MST"), window.EndTime().Format("2006-01-02 15:04:05 MST"))

	// Addresses already recorded for this network are redeployed by a migration
	networkID := cfg.NetworkID.String()
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Step", "Unit", "Constructor arguments", "Recorded address"})
	table.SetAutoWrapText(false)
	for _, s := range steps {
		recorded, err := store.NetworkAddress(s.Unit, networkID)
		if err != nil {
			log.Warn("Failed to read recorded address", "unit", s.Unit, "error", err)
		}
		table.Append([]string{fmt.Sprint(s.Step), s.Unit, strings.Join(s.Args, ", "), recorded})
	}
	table.Render()
	return nil
}

func deployments(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if !cfg.RegistryEnabled {
		return errors.New("the deployment registry is disabled")
	}

	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer log.Sync()

	db, err := newRepository(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	network := cfg.Network
	if c.Bool("all") {
		network = ""
	}
	records, err := db.GetDeployments(network)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Network", "Step", "Unit", "Address", "Tx", "Block", "Deployed at"})
	for _, d := range records {
		table.Append([]string{
			d.Network,
			fmt.Sprint(d.Step),
			d.Unit,
			d.Address,
			d.TxHash,
			fmt.Sprint(d.BlockNumber),
			d.DeployedAt.Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()
	return nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if !cfg.RegistryEnabled {
		return errors.New("the deployment registry is disabled")
	}

	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer log.Sync()

	db, err := newRepository(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	apiServer := http_api.NewHTTPServer(db, cfg.APIPort, log)
	go apiServer.Start()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	return apiServer.Shutdown()
}

func printRun(run *models.MigrationRun) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Run", "Network", "Status", "Sale start", "Sale end"})
	table.Append([]string{run.ID, run.Network, run.Status, fmt.Sprint(run.StartTime), fmt.Sprint(run.EndTime)})
	table.Render()
}
