package commands

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/net/metrics"
	"go.uber.org/zap"

	"github.com/daimatz/mirror/internal/config"
	"github.com/daimatz/mirror/pkg/loader"
	"github.com/daimatz/mirror/pkg/mirror"
	"github.com/daimatz/mirror/pkg/signature"
)

// session holds what one command invocation reflects through.
type session struct {
	cfg     *config.Config
	logger  *zap.Logger
	mirror  *mirror.Mirror
	metrics *metrics.Root
	stats   bool
}

func newSession(cmd *cobra.Command, gf *globalFlags) (*session, error) {
	cfg, err := config.Load(gf.configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(cfg.Level())
	zcfg.DisableStacktrace = true
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	cl, err := buildLoader(cfg, logger)
	if err != nil {
		return nil, err
	}

	root := metrics.New()
	m, err := mirror.New(cl,
		mirror.WithLogger(logger),
		mirror.WithMetrics(root.Scope()),
		mirror.WithSignatureCacheSize(cfg.SignatureCacheSize),
	)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, mirror: m, metrics: root, stats: gf.stats}, nil
}

// buildLoader stacks the class path on top of the platform classes. Each
// entry delegates to the one before it, so the jmod is searched first and
// the class path in order after it.
func buildLoader(cfg *config.Config, logger *zap.Logger) (loader.ClassLoader, error) {
	opt := loader.WithLogger(logger)

	var cl loader.ClassLoader
	if cfg.Jmod != "" {
		cl = loader.NewJmodClassLoader(cfg.Jmod, opt)
	} else {
		logger.Warn("No java.base jmod found; platform classes will be missing. Set --jmod or JAVA_HOME.")
	}
	for _, entry := range cfg.ClassPath {
		if strings.HasSuffix(entry, ".jar") {
			cl = loader.NewJarClassLoader(entry, cl, opt)
		} else {
			cl = loader.NewDirClassLoader(entry, cl, opt)
		}
	}
	if cl == nil {
		return nil, fmt.Errorf("nothing to load classes from: set --jmod or --classpath")
	}
	if len(cfg.Deny) > 0 {
		cl = loader.Restrict(cl, loader.DenyPackages(cfg.Deny...), opt)
	}
	return cl, nil
}

// close flushes the logger and prints the cache counters if asked to.
func (s *session) close(w io.Writer) {
	_ = s.logger.Sync()
	if !s.stats {
		return
	}
	counters := s.metrics.Snapshot().Counters
	slices.SortFunc(counters, func(a, b metrics.Snapshot) int { return strings.Compare(a.Name, b.Name) })
	label := color.New(color.FgYellow)
	for _, c := range counters {
		label.Fprintf(w, "%s: ", c.Name)
		fmt.Fprintln(w, c.Value)
	}
}

// reflect mirrors a class given by dotted or binary name.
func (s *session) reflect(name string, b mirror.Bindings) (*mirror.TypeMirror, error) {
	return s.mirror.Reflect(signature.InternalName(name), b)
}
