package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/haatos/mybucketapp/internal"
	"github.com/haatos/mybucketapp/internal/stack"
	"github.com/haatos/mybucketapp/internal/store"
	"github.com/haatos/mybucketapp/internal/template"
	"github.com/haatos/mybucketapp/internal/util"
)

type SynthWriter interface {
	CreateSynth(context.Context, string, string, string, string, string, string) (*store.Synth, error)
	DeleteSynth(context.Context, int64) error
}

type SynthReader interface {
	ReadSynthByID(context.Context, int64) (*store.Synth, error)
	ReadLatestSynth(context.Context, string, string) (*store.Synth, error)
	ListSynths(context.Context, string) ([]*store.Synth, error)
}

type SynthStore interface {
	SynthWriter
	SynthReader
}

// Manifest describes the contents of one environment's output directory.
type Manifest struct {
	Environment stack.Environment `json:"environment"`
	Stacks      []ManifestStack   `json:"stacks"`
}

type ManifestStack struct {
	Name         string `json:"name"`
	TemplateFile string `json:"template_file"`
	TemplateHash string `json:"template_hash"`
	SynthID      int64  `json:"synth_id"`
}

type SynthService struct {
	config     *internal.Configuration
	synthStore SynthStore
	outDir     string
}

func NewSynthService(
	config *internal.Configuration,
	synthStore SynthStore,
	outDir string,
) *SynthService {
	return &SynthService{
		config:     config,
		synthStore: synthStore,
		outDir:     outDir,
	}
}

func (s *SynthService) ListEnvironments() []stack.EnvironmentConfig {
	return s.config.Environments
}

func (s *SynthService) DescriptorSet(envName string) (*stack.DescriptorSet, error) {
	env, ok := s.config.Environment(envName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEnvironmentNotFound, envName)
	}
	return stack.NewDescriptorSet(s.config.App, env)
}

// Templates synthesizes the named stacks of an environment, or every stack
// when none are named. Stack names come back in deployment order.
func (s *SynthService) Templates(
	envName string,
	stacks ...string,
) (*stack.DescriptorSet, []string, map[string]*template.Template, error) {
	ds, err := s.DescriptorSet(envName)
	if err != nil {
		return nil, nil, nil, err
	}
	names, err := selectStacks(ds, stacks)
	if err != nil {
		return nil, nil, nil, err
	}
	templates, err := ds.Synthesize()
	if err != nil {
		return nil, nil, nil, err
	}
	return ds, names, templates, nil
}

func (s *SynthService) Template(envName, stackName string) (*template.Template, error) {
	_, _, templates, err := s.Templates(envName, stackName)
	if err != nil {
		return nil, err
	}
	return templates[stackName], nil
}

// Synthesize writes the templates of an environment to the output directory
// and records them. A template identical to the latest record for its stack
// reuses that record.
func (s *SynthService) Synthesize(
	ctx context.Context,
	envName string,
	stacks ...string,
) ([]*store.Synth, error) {
	ds, names, templates, err := s.Templates(envName, stacks...)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(s.outDir, envName)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}

	manifest := Manifest{Environment: ds.Environment}
	synths := make([]*store.Synth, 0, len(names))
	for _, name := range names {
		synth, err := s.record(ctx, ds.Environment, name, templates[name])
		if err != nil {
			return nil, err
		}
		file := name + internal.TemplateSuffix
		if err := os.WriteFile(filepath.Join(dir, file), []byte(synth.Template), 0o644); err != nil {
			return nil, err
		}
		manifest.Stacks = append(manifest.Stacks, ManifestStack{
			Name:         name,
			TemplateFile: file,
			TemplateHash: synth.TemplateHash,
			SynthID:      synth.SynthID,
		})
		synths = append(synths, synth)
	}

	b, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, internal.ManifestFile), b, 0o644); err != nil {
		return nil, err
	}
	return synths, nil
}

func (s *SynthService) record(
	ctx context.Context,
	env stack.Environment,
	stackName string,
	t *template.Template,
) (*store.Synth, error) {
	body, err := t.Bytes()
	if err != nil {
		return nil, err
	}
	hash, err := t.Hash()
	if err != nil {
		return nil, err
	}

	latest, err := s.synthStore.ReadLatestSynth(ctx, env.Name, stackName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if latest != nil && latest.TemplateHash == hash &&
		latest.Account == env.Account && latest.Region == env.Region {
		return latest, nil
	}
	return s.synthStore.CreateSynth(
		ctx, env.Name, stackName, env.Account, env.Region, hash, string(body),
	)
}

// Archive zips the output directory of an environment next to it, for
// hand-off to an engine that takes a single artifact.
func (s *SynthService) Archive(envName string) (string, error) {
	dir := filepath.Join(s.outDir, envName)
	exists, err := util.PathExists(filepath.Join(dir, internal.ManifestFile))
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%s has not been synthesized to %s", envName, s.outDir)
	}
	return util.ArchiveDirectory(dir, filepath.Join(s.outDir, envName+".zip"))
}

func (s *SynthService) GetLatestSynth(
	ctx context.Context,
	envName, stackName string,
) (*store.Synth, error) {
	synth, err := s.synthStore.ReadLatestSynth(ctx, envName, stackName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return synth, err
}

// GetSynth returns the synth with id recorded for envName.
func (s *SynthService) GetSynth(ctx context.Context, envName string, id int64) (*store.Synth, error) {
	if _, ok := s.config.Environment(envName); !ok {
		return nil, fmt.Errorf("%w: %s", ErrEnvironmentNotFound, envName)
	}
	synth, err := s.synthStore.ReadSynthByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && synth.Environment != envName) {
		return nil, fmt.Errorf("%w: %d", ErrSynthNotFound, id)
	}
	return synth, err
}

func (s *SynthService) ListSynths(
	ctx context.Context,
	envName string,
) ([]*store.Synth, error) {
	if _, ok := s.config.Environment(envName); !ok {
		return nil, fmt.Errorf("%w: %s", ErrEnvironmentNotFound, envName)
	}
	synths, err := s.synthStore.ListSynths(ctx, envName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return synths, nil
}

func (s *SynthService) DeleteSynth(ctx context.Context, envName string, id int64) error {
	if _, err := s.GetSynth(ctx, envName, id); err != nil {
		return err
	}
	return s.synthStore.DeleteSynth(ctx, id)
}

func selectStacks(ds *stack.DescriptorSet, requested []string) ([]string, error) {
	all := ds.StackNames()
	if len(requested) == 0 {
		return all, nil
	}
	known := make(map[string]bool, len(all))
	for _, name := range all {
		known[name] = true
	}
	wanted := make(map[string]bool, len(requested))
	for _, name := range requested {
		if !known[name] {
			return nil, fmt.Errorf("%w: %s", ErrStackNotFound, name)
		}
		wanted[name] = true
	}
	selected := make([]string, 0, len(requested))
	for _, name := range all {
		if wanted[name] {
			selected = append(selected, name)
		}
	}
	return selected, nil
}

type SynthServicer interface {
	ListEnvironments() []stack.EnvironmentConfig
	DescriptorSet(string) (*stack.DescriptorSet, error)
	Template(string, string) (*template.Template, error)
	Synthesize(context.Context, string, ...string) ([]*store.Synth, error)
	ListSynths(context.Context, string) ([]*store.Synth, error)
	GetSynth(context.Context, string, int64) (*store.Synth, error)
	DeleteSynth(context.Context, string, int64) error
}
