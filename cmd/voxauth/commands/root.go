package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/voxauth/voxauth/cmd/voxauth/internal/config"
	"github.com/voxauth/voxauth/pkg/audio/pcm"
	"github.com/voxauth/voxauth/pkg/cli"
	"github.com/voxauth/voxauth/pkg/enroll"
	"github.com/voxauth/voxauth/pkg/kv"
	"github.com/voxauth/voxauth/pkg/storage"
	"github.com/voxauth/voxauth/pkg/voxauth"
)

var (
	// Global flags
	configPath   string
	verbose      bool
	outputFormat string

	styles = cli.NewStyles(cli.DefaultTheme)

	globalConfig  *config.Config
	configLoadErr error
)

var rootCmd = &cobra.Command{
	Use:   "voxauth",
	Short: "Voice authentication from the command line",
	Long: `voxauth - enroll, verify, and identify speakers by voice.

The pipeline turns a WAV recording into a fixed-size acoustic
fingerprint and compares it against enrolled fingerprints. Closed-set
verification checks a claimed identity; open-set identification finds
the closest enrolled speaker, if any.

State lives under ~/.voxauth/ by default:
  config.yaml  pipeline configuration
  db/          enrollment database
  models/      trained classifier artifacts

Examples:
  # Register and enroll a speaker from WAV recordings
  voxauth identity add alice --name "Alice"
  voxauth enroll alice sample1.wav sample2.wav

  # Verify a claimed identity, or identify an unknown speaker
  voxauth verify alice probe.wav
  voxauth identify probe.wav

  # Train the secondary classifier on all enrolled samples
  voxauth train`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.voxauth/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "structured output format (yaml, json)")
}

func initConfig() {
	globalConfig, configLoadErr = config.Load(configPath)
}

func getConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		var err error
		globalConfig, err = config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
	}
	return globalConfig, nil
}

// logger returns the CLI logger. Trace logging stays on stderr and is
// quiet unless --verbose is set.
func logger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openAuthenticator builds the full pipeline over the configured
// database and model store. The returned cleanup closes the database.
func openAuthenticator(ctx context.Context) (*voxauth.Authenticator, func(), error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, nil, err
	}
	log := logger()

	db, err := kv.OpenBadger(kv.BadgerOptions{Dir: cfg.DBDir})
	if err != nil {
		return nil, nil, fmt.Errorf("open database %s: %w", cfg.DBDir, err)
	}
	store := enroll.NewStore(db, enroll.WithLogger(log))

	models, err := openModelStore(cfg, log)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	auth := voxauth.New(cfg.Pipeline, store,
		voxauth.WithLogger(log),
		voxauth.WithModelStore(models))
	if err := auth.LoadPublishedModel(ctx); err != nil {
		log.Warn("could not restore published classifier", "error", err)
	}

	return auth, func() { db.Close() }, nil
}

func openModelStore(cfg *config.Config, log *slog.Logger) (*storage.ModelStore, error) {
	var fs storage.FileStore
	switch cfg.Models.Backend {
	case "local", "":
		local, err := storage.NewLocal(cfg.Models.Dir)
		if err != nil {
			return nil, fmt.Errorf("open model dir %s: %w", cfg.Models.Dir, err)
		}
		fs = local
	case "s3":
		fs = storage.NewS3(newS3Client(cfg.Models.S3), cfg.Models.S3.Bucket, cfg.Models.S3.Prefix)
	default:
		return nil, fmt.Errorf("unknown model storage backend %q", cfg.Models.Backend)
	}
	return storage.NewModelStore(fs, storage.WithLogger(log)), nil
}

func newS3Client(s3cfg config.S3) *s3.Client {
	opts := s3.Options{
		Region:       s3cfg.Region,
		UsePathStyle: s3cfg.UsePathStyle,
	}
	if s3cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(s3cfg.Endpoint)
	}
	if s3cfg.AccessKey != "" {
		creds := aws.Credentials{
			AccessKeyID:     s3cfg.AccessKey,
			SecretAccessKey: s3cfg.SecretKey,
		}
		opts.Credentials = aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil })
	}
	return s3.New(opts)
}

// loadClip reads and decodes a PCM16 WAV file.
func loadClip(path string) (pcm.Audio, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return pcm.Audio{}, fmt.Errorf("read %s: %w", path, err)
	}
	audio, err := pcm.DecodeWAV(raw)
	if err != nil {
		return pcm.Audio{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return audio, nil
}
