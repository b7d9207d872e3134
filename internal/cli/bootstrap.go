package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/guillaumegay13/fieldflow/internal/config"
	"github.com/guillaumegay13/fieldflow/internal/proxy"
	"github.com/guillaumegay13/fieldflow/internal/spec"
	"github.com/guillaumegay13/fieldflow/internal/tooling"
)

// runtime holds everything a serving command needs after bootstrap.
type runtime struct {
	cfg     config.Config
	logger  *zap.Logger
	set     *tooling.Set
	baseURL string
}

func (r *runtime) close() {
	_ = r.logger.Sync()
}

// resolveConfig merges the config file, environment, and command flags.
// Flags win over everything else.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(strings.TrimSpace(configPath))
	if err != nil {
		return cfg, newUsageError(err.Error())
	}

	flags := cmd.Flags()
	if flags.Changed("spec") {
		v, err := flags.GetString("spec")
		if err != nil {
			return cfg, err
		}
		cfg.Spec.Path = strings.TrimSpace(v)
	}
	if flags.Changed("base-url") {
		v, err := flags.GetString("base-url")
		if err != nil {
			return cfg, err
		}
		cfg.Upstream.BaseURL = strings.TrimSpace(v)
	}
	if flags.Changed("addr") {
		v, err := flags.GetString("addr")
		if err != nil {
			return cfg, err
		}
		cfg.Server.Addr = strings.TrimSpace(v)
	}
	if verbose, err := cmd.Flags().GetBool("verbose"); err == nil && verbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, newUsageError(err.Error())
	}
	return cfg, nil
}

// bootstrap loads the document, compiles the operation registry, resolves
// the upstream base URL and credential, and builds the tool set.
func bootstrap(ctx context.Context, cfg config.Config) (*runtime, error) {
	logger, err := cfg.BuildLogger()
	if err != nil {
		return nil, newUsageError(err.Error())
	}

	doc, err := spec.Load(ctx, cfg.Spec.Path)
	if err != nil {
		var se *spec.SpecError
		if errors.As(err, &se) {
			msg := fmt.Sprintf("spec: %s", se.Message)
			if se.Location != "" {
				msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
			}
			if se.JSONPointer != "" {
				msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
			}
			return nil, newUsageError(msg)
		}
		return nil, err
	}

	reg, err := spec.Compile(doc)
	if err != nil {
		return nil, err
	}
	if reg.Len() == 0 {
		return nil, newUsageError("spec: document declares no operations")
	}

	baseURL := cfg.Upstream.BaseURL
	if baseURL == "" {
		baseURL = spec.ExtractBaseURL(doc)
	}
	if baseURL == "" {
		return nil, newUsageError("upstream base URL is required: the document declares no servers, set upstream.base_url or FIELDFLOW_BASE_URL")
	}

	authType, authHeader := cfg.Auth.Type, cfg.Auth.Header
	if authType == "" {
		if hintType, hintHeader, ok := spec.AuthHint(doc); ok && cfg.Auth.Value != "" {
			authType, authHeader = hintType, hintHeader
			logger.Info("auth derived from security schemes",
				zap.String("type", authType), zap.String("header", authHeader))
		}
	}
	auth, err := proxy.BuildAuthHeader(authType, authHeader, cfg.Auth.Value)
	if err != nil {
		return nil, newUsageError(err.Error())
	}

	opts := []proxy.Option{proxy.WithAuth(auth), proxy.WithLogger(logger)}
	if cfg.Upstream.TimeoutSeconds > 0 {
		opts = append(opts, proxy.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		}))
	}
	fw := proxy.NewForwarder(baseURL, opts...)
	set := tooling.NewSet(reg, fw, logger)

	logger.Info("tool surface compiled",
		zap.String("spec", cfg.Spec.Path),
		zap.String("base_url", baseURL),
		zap.Int("tools", set.Len()),
	)
	return &runtime{cfg: cfg, logger: logger, set: set, baseURL: baseURL}, nil
}
