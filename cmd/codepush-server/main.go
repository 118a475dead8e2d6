// Command codepush-server is the process entrypoint: it loads configuration,
// constructs the ambient singletons (object store driver, blob service, DB
// pool) exactly once, wires them into the engine packages, and starts the
// HTTP adapter. Modeled on the teacher's engine/main.go cobra+viper
// bootstrapping, generalized from CDS's single "api" subcommand to this
// repository's single server process.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yplabs-ltd/codepush-server/blobstore"
	"github.com/yplabs-ltd/codepush-server/config"
	"github.com/yplabs-ltd/codepush-server/corelog"
	"github.com/yplabs-ltd/codepush-server/httpapi"
	"github.com/yplabs-ltd/codepush-server/metrics"
	"github.com/yplabs-ltd/codepush-server/objectstore"
	"github.com/yplabs-ltd/codepush-server/release"
	"github.com/yplabs-ltd/codepush-server/resolver"
	"github.com/yplabs-ltd/codepush-server/store"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "codepush-server",
	Short: "Code-push style release and update-acquisition server",
	RunE:  runServer,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "path to a config file (toml/yaml/json)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
	}()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	corelog.Initialize(ctx, cfg.Log)

	driver, err := buildObjectStoreDriver(ctx, cfg.ObjectStore)
	if err != nil {
		return err
	}
	bs := blobstore.New(driver)

	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		return err
	}

	engine := release.NewEngine(db, bs)
	resolverSvc := resolver.NewService(db, bs)
	counter := metrics.NewCounter(db)

	srv := httpapi.NewServer(db, bs, engine, resolverSvc, counter)

	server := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: srv.Router(),
	}

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	corelog.Info(ctx, "codepush-server: listening on %s", cfg.ListenAddress)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func buildObjectStoreDriver(ctx context.Context, cfg config.ObjectStoreConfig) (objectstore.Driver, error) {
	switch cfg.Kind {
	case config.ObjectStoreS3:
		return objectstore.NewS3Driver(ctx, cfg.S3)
	default:
		return objectstore.NewFilesystemDriver(ctx, cfg.FilesystemBaseDir)
	}
}
