package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	DEBUG = iota
	INFO
	WARN
	ERROR
)

// DefaultFileMaxSize is in megabytes.
const DefaultFileMaxSize = 10

type Config struct {
	AppName      string `json:"app_name" yaml:"app_name"`
	Level        string `json:"level" yaml:"level"`
	EnableFile   bool   `json:"enable_file" yaml:"enable_file"`
	FilePath     string `json:"file_path" yaml:"file_path"`
	FileMaxSize  int    `json:"file_max_size" yaml:"file_max_size"`
	MaxBackups   int    `json:"max_backups" yaml:"max_backups"`
	MaxAge       int    `json:"max_age" yaml:"max_age"`
	DisableColor bool   `json:"disable_color" yaml:"disable_color"`
	EnableJson   bool   `json:"enable_json" yaml:"enable_json"`
}

func DefaultConfig() *Config {
	return &Config{
		AppName:     "navtile",
		Level:       "INFO",
		FileMaxSize: DefaultFileMaxSize,
		MaxBackups:  5,
		MaxAge:      7,
	}
}

func ParseLogLevel(level string) (int, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return 0, fmt.Errorf("unknown log level: %v", level)
	}
}

var zapLevels = map[int]zapcore.Level{
	DEBUG: zapcore.DebugLevel,
	INFO:  zapcore.InfoLevel,
	WARN:  zapcore.WarnLevel,
	ERROR: zapcore.ErrorLevel,
}

var log atomic.Pointer[zap.SugaredLogger]

func init() {
	log.Store(zap.NewNop().Sugar())
}

// InitLogger replaces the process logger. Until it is called every log
// call is discarded.
func InitLogger(config *Config) error {
	if config == nil {
		config = DefaultConfig()
	}
	level, err := ParseLogLevel(config.Level)
	if err != nil {
		return err
	}
	enabler := zap.NewAtomicLevelAt(zapLevels[level])

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var consoleEnc zapcore.Encoder
	if config.EnableJson {
		consoleEnc = zapcore.NewJSONEncoder(encCfg)
	} else {
		cc := encCfg
		if !config.DisableColor {
			cc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			cc.EncodeLevel = zapcore.CapitalLevelEncoder
		}
		consoleEnc = zapcore.NewConsoleEncoder(cc)
	}
	cores := []zapcore.Core{zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stdout), enabler)}

	if config.EnableFile {
		path := config.FilePath
		if path == "" {
			path = filepath.Join("log", config.AppName+".log")
		}
		maxSize := config.FileMaxSize
		if maxSize == 0 {
			maxSize = DefaultFileMaxSize
		}
		rotate := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			LocalTime:  true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotate), enabler))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).
		Named(config.AppName).Sugar()
	old := log.Swap(l)
	_ = old.Sync()
	return nil
}

// SetLogger installs an existing zap logger, e.g. zaptest's in tests.
func SetLogger(l *zap.Logger) {
	log.Store(l.WithOptions(zap.AddCallerSkip(1)).Sugar())
}

func CloseLogger() {
	_ = log.Load().Sync()
}

func Debug(msg string, param ...any) {
	log.Load().Debugf(msg, param...)
}

func Info(msg string, param ...any) {
	log.Load().Infof(msg, param...)
}

func Warn(msg string, param ...any) {
	log.Load().Warnf(msg, param...)
}

func Error(msg string, param ...any) {
	log.Load().Errorf(msg, param...)
}
