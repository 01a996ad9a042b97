package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень из строки (регистр не важен), по умолчанию INFO
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

func (l LogLevel) logrus() logrus.Level {
	switch l {
	case TRACE:
		return logrus.TraceLevel
	case DEBUG:
		return logrus.DebugLevel
	case WARN:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Logger - логгер компонента: консоль всегда, файл опционально.
// Уровни для консоли и файла настраиваются независимо.
type Logger struct {
	component       string
	consoleLogger   *logrus.Logger
	fileLogger      *logrus.Logger
	file            *os.File
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
	fields          logrus.Fields
}

var (
	defaultLogger   = newConsoleLogger("default")
	defaultLoggerMu sync.RWMutex
)

// newConsoleLogger создает логгер без файла. Уровень и формат берутся из LOG_LEVEL / LOG_FORMAT.
func newConsoleLogger(component string) *Logger {
	console := logrus.New()
	console.SetOutput(os.Stdout)
	console.SetLevel(logrus.TraceLevel)
	console.SetFormatter(formatterFromEnv())

	return &Logger{
		component:       component,
		consoleLogger:   console,
		minConsoleLevel: ParseLevel(os.Getenv("LOG_LEVEL")),
		minFileLevel:    DEBUG,
	}
}

func formatterFromEnv() logrus.Formatter {
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		return &logrus.JSONFormatter{}
	}
	return &logrus.TextFormatter{FullTimestamp: true}
}

// NewLogger создает логгер компонента с файлом logs/<component>_<timestamp>.log.
// Если LOG_DIR=off, файл не создается.
func NewLogger(component string) (*Logger, error) {
	logger := newConsoleLogger(component)

	dir := os.Getenv("LOG_DIR")
	if dir == "off" {
		return logger, nil
	}
	if dir == "" {
		dir = "logs"
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории %s: %w", dir, err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(dir, fmt.Sprintf("%s_%s.log", component, timestamp))

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания файла логов: %w", err)
	}

	fileLogger := logrus.New()
	fileLogger.SetOutput(file)
	fileLogger.SetLevel(logrus.TraceLevel)
	fileLogger.SetFormatter(&logrus.JSONFormatter{})

	logger.fileLogger = fileLogger
	logger.file = file
	return logger, nil
}

// NewWriterLogger создает логгер, пишущий в произвольный writer (используется в тестах)
func NewWriterLogger(component string, w io.Writer, level LogLevel) *Logger {
	console := logrus.New()
	console.SetOutput(w)
	console.SetLevel(logrus.TraceLevel)
	console.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})

	return &Logger{
		component:       component,
		consoleLogger:   console,
		minConsoleLevel: level,
		minFileLevel:    level,
	}
}

// Close закрывает файл логгера, если он был открыт
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.fileLogger = nil
	return err
}

// WithFields возвращает копию логгера с дополнительными структурированными полями
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	merged := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	clone := *l
	clone.fields = merged
	return &clone
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if l == nil {
		return
	}

	message := fmt.Sprintf(format, args...)
	fields := logrus.Fields{"component": l.component}
	for k, v := range l.fields {
		fields[k] = v
	}

	if l.fileLogger != nil && level >= l.minFileLevel {
		l.fileLogger.WithFields(fields).Log(level.logrus(), message)
	}
	if l.consoleLogger != nil && level >= l.minConsoleLevel {
		l.consoleLogger.WithFields(fields).Log(level.logrus(), message)
	}
}

// Trace логирует сообщение уровня TRACE
func (l *Logger) Trace(format string, args ...interface{}) { l.log(TRACE, format, args...) }

// Debug логирует сообщение уровня DEBUG
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }

// Info логирует сообщение уровня INFO
func (l *Logger) Info(format string, args ...interface{}) { l.log(INFO, format, args...) }

// Warn логирует сообщение уровня WARN
func (l *Logger) Warn(format string, args ...interface{}) { l.log(WARN, format, args...) }

// Error логирует сообщение уровня ERROR
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

// InitDefaultLogger инициализирует логгер по умолчанию для процесса
func InitDefaultLogger(component string) error {
	logger, err := NewLogger(component)
	if err != nil {
		return err
	}

	defaultLoggerMu.Lock()
	defaultLogger = logger
	defaultLoggerMu.Unlock()
	return nil
}

// CloseDefaultLogger закрывает логгер по умолчанию
func CloseDefaultLogger() {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	_ = defaultLogger.Close()
}

func current() *Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// Trace логирует через логгер по умолчанию
func Trace(format string, args ...interface{}) { current().Trace(format, args...) }

// Debug логирует через логгер по умолчанию
func Debug(format string, args ...interface{}) { current().Debug(format, args...) }

// Info логирует через логгер по умолчанию
func Info(format string, args ...interface{}) { current().Info(format, args...) }

// Warn логирует через логгер по умолчанию
func Warn(format string, args ...interface{}) { current().Warn(format, args...) }

// Error логирует через логгер по умолчанию
func Error(format string, args ...interface{}) { current().Error(format, args...) }

// LogCreatureMovement логирует перемещение существа
func LogCreatureMovement(instanceID string, fromX, fromY, toX, toY int, facing int) {
	Trace("Creature %s movement: (%d,%d) -> (%d,%d) facing:%d",
		instanceID, fromX, fromY, toX, toY, facing)
}
