package chartdraw

import (
	"os"
	"strconv"

	"github.com/raykavin/chartdraw/pkg/logger"
	"github.com/raykavin/chartdraw/pkg/logger/zerolog"
)

const (
	defaultLogLevel      = "info"
	defaultLogTimeFormat = "2006-01-02 15:04:05"
	defaultLogColored    = "true"
	defaultLogJSON       = "false"
)

// Environment variables read when building DefaultLog
const (
	envLogLevel      = "CHARTDRAW_LOG_LEVEL"
	envLogTimeFormat = "CHARTDRAW_LOG_TIME_FORMAT"
	envLogColor      = "CHARTDRAW_LOG_COLOR"
	envLogJSON       = "CHARTDRAW_LOG_JSON"
)

// DefaultLog is used by engines created without WithLogger
var DefaultLog logger.Logger

func init() {
	log, err := initLogger()
	if err != nil {
		panic(err)
	}

	DefaultLog = log
}

// initLogger builds the console logger from the environment
func initLogger() (*zerolog.Adapter, error) {
	logColored, err := parseBoolEnv(envLogColor, defaultLogColored)
	if err != nil {
		return nil, err
	}

	logJSON, err := parseBoolEnv(envLogJSON, defaultLogJSON)
	if err != nil {
		return nil, err
	}

	return zerolog.New(
		getEnvWithDefault(envLogLevel, defaultLogLevel),
		getEnvWithDefault(envLogTimeFormat, defaultLogTimeFormat),
		logColored,
		logJSON,
	)
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key, defaultValue string) (bool, error) {
	return strconv.ParseBool(getEnvWithDefault(key, defaultValue))
}
