package settings

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
)

var Settings *AppSettings

func NewSettings() *AppSettings {
	settings := AppSettings{
		Domain:         getEnvOrDefault("MYBUCKETAPP_DOMAIN", "localhost"),
		Port:           getEnvOrDefault("MYBUCKETAPP_PORT", ":8080"),
		SQLiteDatabase: getEnvOrDefault("MYBUCKETAPP_DB_PATH", "file:.///db.sqlite"),
		ConfigPath:     getEnvOrDefault("MYBUCKETAPP_CONFIG", "environments.yml"),
		OutDir:         getEnvOrDefault("MYBUCKETAPP_OUT_DIR", "stack.out"),
		LogLevel:       getEnvOrDefault("MYBUCKETAPP_LOG_LEVEL", "info"),
		LogFormat:      getEnvOrDefault("MYBUCKETAPP_LOG_FORMAT", "text"),
		AWSEndpoint:    os.Getenv("MYBUCKETAPP_AWS_ENDPOINT"),
	}
	if !strings.HasPrefix(settings.Port, ":") {
		settings.Port = ":" + settings.Port
	}
	return &settings
}

func getEnvOrDefault(key, defaultValue string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	return value
}

type AppSettings struct {
	SQLiteDatabase string
	Domain         string
	Port           string
	ConfigPath     string
	OutDir         string
	LogLevel       string
	LogFormat      string
	// Overrides the provider endpoint, e.g. for LocalStack.
	AWSEndpoint string
}

func (as *AppSettings) BaseURL() string {
	if as.Domain == "localhost" {
		return fmt.Sprintf("http://%s%s", as.Domain, as.Port)
	} else {
		return fmt.Sprintf("https://%s", as.Domain)
	}
}

func (as *AppSettings) SQLiteDbString(readonly bool) string {
	params := make(url.Values)
	params.Add("_journal_mode", "WAL")
	params.Add("_busy_timeout", "5000")
	params.Add("_synchronous", "NORMAL")
	params.Add("_foreign_keys", "ON")
	if readonly {
		params.Add("mode", "ro")
	} else {
		params.Add("_txlock", "IMMEDIATE")
		params.Add("mode", "rwc")
	}

	return as.SQLiteDatabase + "?" + params.Encode()
}

// ReadDotenv exports KEY=value lines from path into the process environment.
// A missing file is not an error.
func ReadDotenv(path string) error {
	re := regexp.MustCompile(`^[^0-9][A-Z0-9_]+=.+$`)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("err opening dotenv: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) > 0 && line[0] != '#' && re.Match(line) {
			name, value, _ := strings.Cut(string(line), "=")
			name = strings.TrimSpace(name)
			value = strings.TrimSpace(value)
			value = strings.Trim(value, `"`)
			os.Setenv(name, value)
		}
	}
	return scanner.Err()
}
