package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/case-framework/case-backend/pkg/db"
	"github.com/case-framework/case-backend/pkg/utils"
	"gopkg.in/yaml.v2"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_FIRESTORE_CREDENTIALS_FILE = "FIRESTORE_CREDENTIALS_FILE"
	ENV_FIRESTORE_PROJECT_ID       = "FIRESTORE_PROJECT_ID"
	ENV_MONGODB_USERNAME           = "MONGODB_USERNAME"
	ENV_MONGODB_PASSWORD           = "MONGODB_PASSWORD"
)

const (
	storeDriverFirestore = "firestore"
	storeDriverMongoDB   = "mongodb"

	sourceFormatDart = "dart"
	sourceFormatJSON = "json"
	sourceFormatYAML = "yaml"
	sourceFormatCSV  = "csv"

	// Firestore rejects batches above 500 writes; 400 leaves headroom.
	maxChunkSize = 400
)

type firestoreConfig struct {
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
	ProjectID       string `json:"project_id" yaml:"project_id"`
}

type storeConfig struct {
	Driver     string          `json:"driver" yaml:"driver"`
	Collection string          `json:"collection" yaml:"collection"`
	Firestore  firestoreConfig `json:"firestore" yaml:"firestore"`
	MongoDB    db.DBConfigYaml `json:"mongodb" yaml:"mongodb"`
}

type sourceConfig struct {
	Path          string `json:"path" yaml:"path"`
	Format        string `json:"format" yaml:"format"`
	ListMarker    string `json:"list_marker" yaml:"list_marker"`
	ListEndMarker string `json:"list_end_marker" yaml:"list_end_marker"`
	CSVSeparator  string `json:"csv_separator" yaml:"csv_separator"`
	CSVColumn     string `json:"csv_column" yaml:"csv_column"`
}

type config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	Store  storeConfig  `json:"store" yaml:"store"`
	Source sourceConfig `json:"source" yaml:"source"`

	ChunkSize        int  `json:"chunk_size" yaml:"chunk_size"`
	DryRun           bool `json:"dry_run" yaml:"dry_run"`
	FailOnDuplicates bool `json:"fail_on_duplicates" yaml:"fail_on_duplicates"`
}

func defaultConfig() config {
	conf := config{
		Store: storeConfig{
			Driver:     storeDriverFirestore,
			Collection: "city_stats",
			Firestore: firestoreConfig{
				CredentialsFile: "serviceAccount.json",
			},
			MongoDB: db.DBConfigYaml{
				ConnectionStr:   "localhost:27017",
				Timeout:         10,
				IdleConnTimeout: 45,
				MaxPoolSize:     maxChunkSize,
			},
		},
		Source: sourceConfig{
			Path:          "lib/app_data.dart",
			Format:        sourceFormatDart,
			ListMarker:    "const List<String> kCityNames = [",
			ListEndMarker: "];",
			CSVSeparator:  ",",
			CSVColumn:     "city",
		},
		ChunkSize: maxChunkSize,
	}
	conf.Logging.LogLevel = "info"
	conf.Logging.IncludeBuildInfo = "never"
	return conf
}

// loadConfig reads the YAML file at path on top of the defaults. An empty
// path means defaults only.
func loadConfig(path string) (config, error) {
	conf := defaultConfig()

	if path != "" {
		yamlFile, err := os.ReadFile(path)
		if err != nil {
			return conf, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.UnmarshalStrict(yamlFile, &conf); err != nil {
			return conf, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	secretsOverride(&conf, os.Getenv)

	if err := conf.validate(); err != nil {
		return conf, err
	}
	return conf, nil
}

func secretsOverride(conf *config, getenv func(string) string) {
	// Override secrets from environment variables

	if credentialsFile := getenv(ENV_FIRESTORE_CREDENTIALS_FILE); credentialsFile != "" {
		conf.Store.Firestore.CredentialsFile = credentialsFile
	}

	if projectID := getenv(ENV_FIRESTORE_PROJECT_ID); projectID != "" {
		conf.Store.Firestore.ProjectID = projectID
	}

	if dbUsername := getenv(ENV_MONGODB_USERNAME); dbUsername != "" {
		conf.Store.MongoDB.Username = dbUsername
	}

	if dbPassword := getenv(ENV_MONGODB_PASSWORD); dbPassword != "" {
		conf.Store.MongoDB.Password = dbPassword
	}
}

func (c config) validate() error {
	switch c.Store.Driver {
	case storeDriverFirestore, storeDriverMongoDB:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Source.Format {
	case sourceFormatDart, sourceFormatJSON, sourceFormatYAML, sourceFormatCSV:
	default:
		return fmt.Errorf("unknown source format %q", c.Source.Format)
	}

	if c.Store.Collection == "" {
		return errors.New("store collection must not be empty")
	}
	if c.ChunkSize < 1 || c.ChunkSize > maxChunkSize {
		return fmt.Errorf("chunk_size must be between 1 and %d, got %d", maxChunkSize, c.ChunkSize)
	}
	if c.Store.Driver == storeDriverMongoDB {
		mongoConf := c.Store.MongoDB
		if mongoConf.ConnectionStr == "" || mongoConf.Username == "" || mongoConf.Password == "" {
			return errors.New("mongodb connection_str, username and password are required")
		}
	}

	switch c.Source.Format {
	case sourceFormatDart:
		if c.Source.ListMarker == "" || c.Source.ListEndMarker == "" {
			return errors.New("list_marker and list_end_marker must not be empty")
		}
	case sourceFormatCSV:
		if c.Source.CSVSeparator == "" || c.Source.CSVColumn == "" {
			return errors.New("csv_separator and csv_column must not be empty")
		}
	}
	return nil
}

func initLogger(conf config) {
	utils.InitLogger(
		conf.Logging.LogLevel,
		conf.Logging.IncludeSrc,
		conf.Logging.LogToFile,
		conf.Logging.Filename,
		conf.Logging.MaxSize,
		conf.Logging.MaxAge,
		conf.Logging.MaxBackups,
		conf.Logging.CompressOldLogs,
		conf.Logging.IncludeBuildInfo,
	)
}

// checkInputFiles fails before any network call when a required local file
// is missing.
func checkInputFiles(conf config) error {
	required := []string{conf.Source.Path}
	if conf.Store.Driver == storeDriverFirestore {
		required = append(required, conf.Store.Firestore.CredentialsFile)
	}

	for _, path := range required {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%s not found: %w", path, err)
			}
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}
	return nil
}
