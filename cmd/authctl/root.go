package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jrsteele09/go-session-auth/app"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/tokenstore"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	cfgFile string
	baseURL string
	store   string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "authctl",
		Short:         "Command line session client for the identity service",
		Long:          "authctl logs in to an identity service and keeps the session token in a local store between runs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "YAML settings file (base_url, store, token_file, redis_url)")
	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "identity service base URL (overrides IDENTITY_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&opts.store, "store", "", "token store: file, memory or redis (overrides TOKEN_STORE)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log session activity to stderr")

	rootCmd.AddCommand(newLoginCmd(opts))
	rootCmd.AddCommand(newRegisterCmd(opts))
	rootCmd.AddCommand(newWhoamiCmd(opts))
	rootCmd.AddCommand(newLogoutCmd(opts))
	rootCmd.AddCommand(newStatusCmd(opts))
	rootCmd.AddCommand(newVerifyCmd(opts))

	return rootCmd
}

// clientConfig layers the settings file and then the flags over the environment.
func (o *rootOptions) clientConfig() (config.ClientConfig, error) {
	env, err := config.New()
	if err != nil {
		return nil, err
	}
	var cfg config.ClientConfig = env

	var file config.ClientFile
	if o.cfgFile != "" {
		if file, err = config.LoadClientFile(o.cfgFile); err != nil {
			return nil, err
		}
	}
	if o.baseURL != "" {
		file.BaseURL = o.baseURL
	}
	if o.store != "" {
		file.Store = o.store
	}
	return file.Overlay(cfg), nil
}

// openApp builds the session client and restores any saved session.
func (o *rootOptions) openApp(ctx context.Context) (*app.App, error) {
	cfg, err := o.clientConfig()
	if err != nil {
		return nil, err
	}
	store, err := tokenstore.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s token store: %w", cfg.GetTokenStore(), err)
	}

	level := zerolog.WarnLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	a := app.New(app.Options{
		BaseURL: cfg.GetIdentityBaseURL(),
		Store:   store,
		Logger:  &logger,
	})
	a.Start(ctx)
	return a, nil
}
