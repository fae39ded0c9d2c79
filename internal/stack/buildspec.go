package stack

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
)

const (
	buildSpecVersion  = "0.2"
	DefaultBuildImage = "aws/codebuild/standard:7.0"
	// Directory synthesized templates are written to inside the build runner.
	OutputDirectory = "stack.out"
	cliEntrypoint   = "go run ./cmd/mybucketapp"
)

var (
	toolchainInstall = []string{
		"go version",
		"go mod download",
		// no-op when the checkout carries an environments file
		cliEntrypoint + " init",
	}
	elevationInstall = "npm install -g awsudo"
)

// BuildSpec is the set of commands an external build runner executes for one
// build action.
type BuildSpec struct {
	InstallCommands []string `json:"install_commands"`
	BuildCommands   []string `json:"build_commands"`
	ArtifactGlob    string   `json:"artifact_glob"`
	BaseDirectory   string   `json:"base_directory"`
	Image           string   `json:"image"`
}

func (bs BuildSpec) Validate() error {
	if len(bs.BuildCommands) == 0 {
		return newValidationError("build spec", "", "needs at least one build command")
	}
	if bs.Image == "" {
		return newValidationError("build image", "", "must not be empty")
	}
	for _, c := range append(append([]string{}, bs.InstallCommands...), bs.BuildCommands...) {
		if strings.TrimSpace(c) == "" {
			return newValidationError("build command", "", "must not be blank")
		}
	}
	return nil
}

// Render encodes the spec in the build runner's buildspec format.
func (bs BuildSpec) Render() (string, error) {
	phases := yaml.MapSlice{}
	if len(bs.InstallCommands) > 0 {
		phases = append(phases, yaml.MapItem{
			Key:   "install",
			Value: yaml.MapSlice{{Key: "commands", Value: bs.InstallCommands}},
		})
	}
	phases = append(phases, yaml.MapItem{
		Key:   "build",
		Value: yaml.MapSlice{{Key: "commands", Value: bs.BuildCommands}},
	})
	doc := yaml.MapSlice{
		{Key: "version", Value: buildSpecVersion},
		{Key: "phases", Value: phases},
	}
	if bs.ArtifactGlob != "" {
		artifacts := yaml.MapSlice{}
		if bs.BaseDirectory != "" {
			artifacts = append(artifacts, yaml.MapItem{Key: "base-directory", Value: bs.BaseDirectory})
		}
		artifacts = append(artifacts, yaml.MapItem{Key: "files", Value: []string{bs.ArtifactGlob}})
		doc = append(doc, yaml.MapItem{Key: "artifacts", Value: artifacts})
	}
	b, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("rendering buildspec: %w", err)
	}
	return string(b), nil
}

func cliCommand(subcommand, envName, stackName string) string {
	return fmt.Sprintf(
		"%s %s --env %s --stack %s --out %s",
		cliEntrypoint, subcommand, envName, stackName, OutputDirectory,
	)
}

// SynthBuildSpec installs the toolchain and writes the templates.
func SynthBuildSpec(image, envName, stackName string) BuildSpec {
	return BuildSpec{
		InstallCommands: append([]string{}, toolchainInstall...),
		BuildCommands:   []string{cliCommand("synth", envName, stackName)},
		ArtifactGlob:    "**/*",
		BaseDirectory:   OutputDirectory,
		Image:           image,
	}
}

// DiffBuildSpec compares against live state after assuming roleARN.
func DiffBuildSpec(image, envName, stackName, roleARN string) BuildSpec {
	return elevatedBuildSpec(image, "diff", envName, stackName, roleARN)
}

// DeployBuildSpec applies the templates after assuming roleARN. It
// synthesizes again from source rather than reusing build stage output.
func DeployBuildSpec(image, envName, stackName, roleARN string) BuildSpec {
	return elevatedBuildSpec(image, "deploy", envName, stackName, roleARN)
}

func elevatedBuildSpec(image, subcommand, envName, stackName, roleARN string) BuildSpec {
	install := append([]string{}, toolchainInstall...)
	install = append(install, elevationInstall)
	return BuildSpec{
		InstallCommands: install,
		BuildCommands: []string{
			fmt.Sprintf("awsudo %s %s", roleARN, cliCommand(subcommand, envName, stackName)),
		},
		ArtifactGlob:  "**/*",
		BaseDirectory: OutputDirectory,
		Image:         image,
	}
}
