package internal

import (
	"fmt"
	"log"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/haatos/mybucketapp/internal/stack"
	"github.com/haatos/mybucketapp/internal/util"
)

var Config *Configuration

type Configuration struct {
	App          stack.App                 `yaml:"app"`
	Environments []stack.EnvironmentConfig `yaml:"environments"`
}

// DefaultConfiguration is the sandbox deployment the repository started
// with.
func DefaultConfiguration() *Configuration {
	return &Configuration{
		App: stack.App{
			Name:          "mybucketapp",
			BucketStack:   stack.DefaultBucketStack,
			PipelineStack: stack.DefaultPipelineStack,
			BuildImage:    stack.DefaultBuildImage,
			Policy:        stack.PolicyBroad,
			Source: stack.RepositoryRef{
				Owner:         "mikep2468",
				Repo:          "mybucketapp",
				Branch:        "main",
				ConnectionARN: "arn:aws:codestar-connections:eu-west-2:375064697969:connection/1f7d4fe8-df9c-4271-a9ab-4954bb1d060a",
			},
		},
		Environments: []stack.EnvironmentConfig{
			{
				Environment: stack.Environment{
					Name:    "sandbox",
					Account: "272914394419",
					Region:  "eu-west-1",
				},
				Buckets: []stack.BucketSpec{
					{Name: "mybucketapp-bucket-1-05092021", RemovalPolicy: stack.RemovalDestroy},
					{Name: "mybucketapp-bucket-2-05092021", RemovalPolicy: stack.RemovalDestroy},
				},
			},
		},
	}
}

func (c *Configuration) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if len(c.Environments) == 0 {
		return fmt.Errorf("at least one environment is required")
	}
	return stack.ValidateEnvironments(c.App, c.Environments)
}

func (c *Configuration) Environment(name string) (stack.EnvironmentConfig, bool) {
	for _, env := range c.Environments {
		if env.Name == name {
			return env, true
		}
	}
	return stack.EnvironmentConfig{}, false
}

func ParseConfiguration(b []byte) (*Configuration, error) {
	config := new(Configuration)
	if err := yaml.Unmarshal(b, config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func LoadConfiguration(path string) (*Configuration, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config, err := ParseConfiguration(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// InitializeConfiguration loads the configuration file at path, writing the
// default configuration there first when it does not exist.
func InitializeConfiguration(path string) {
	configFileExists, _ := util.PathExists(path)
	if !configFileExists {
		if err := UpdateConfiguration(path, DefaultConfiguration()); err != nil {
			log.Fatal(err)
		}
		return
	}
	config, err := LoadConfiguration(path)
	if err != nil {
		log.Fatal(err)
	}
	Config = config
}

func UpdateConfiguration(path string, config *Configuration) error {
	if err := config.Validate(); err != nil {
		return err
	}
	b, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, b, 0o644); err != nil {
		return err
	}

	Config = config

	return nil
}
