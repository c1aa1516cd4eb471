package bootstrap

import (
	"fmt"
	"os"

	"crosswalk/config"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger builds the zap logger. Console format gets colored levels and
// readable timestamps on stderr; json format uses the production encoder.
func InitLogger(level, format string) (*zap.Logger, *zap.SugaredLogger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var encoder zapcore.Encoder
	switch format {
	case "json":
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "", "console":
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder // Colored levels
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder        // Readable timestamps
		encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder      // Short file paths
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, nil, fmt.Errorf("invalid log format %q", format)
	}

	// stdout is reserved for command output
	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), lvl)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, logger.Sugar(), nil
}

// InitConfig loads the application configuration. It runs before the logger
// exists since the log level and format are part of it.
func InitConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// LogConfig records where the configuration came from and the paths in use
func LogConfig(cfg *config.Config, sugar *zap.SugaredLogger) {
	if viper.ConfigFileUsed() == "" {
		sugar.Debug("No config file found, using defaults and env vars")
	} else {
		sugar.Debugw("Config file loaded", "path", viper.ConfigFileUsed())
	}

	sugar.Debugw("Config loaded",
		"data_dir", cfg.GetDataDir(),
		"sqlite_path", cfg.GetSQLitePath(),
		"api_addr", cfg.API.Addr(),
		"read_pool_size", cfg.Storage.ReadPoolSize)
}
