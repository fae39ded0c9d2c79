package stack

import (
	"fmt"
	"slices"

	"github.com/haatos/mybucketapp/internal/template"
)

const (
	StageSource = "Source"
	StageBuild  = "Build"
	StageDeploy = "Deploy"

	ActionSource = "GitHub"
	ActionSynth  = "Synth"
	ActionDiff   = "Diff"
	ActionDeploy = "Deploy"

	SourceArtifactName = "SourceOutput"

	artifactBucketID = "ArtifactBucket"
	roleID           = "CodeBuildRole"
	pipelineID       = "Pipeline"
)

// StageOrder is the only stage order a pipeline may declare.
var StageOrder = []string{StageSource, StageBuild, StageDeploy}

// RepositoryRef locates the source repository and the connection used to
// reach it.
type RepositoryRef struct {
	Owner         string `yaml:"owner" json:"owner"`
	Repo          string `yaml:"repo" json:"repo"`
	Branch        string `yaml:"branch" json:"branch"`
	ConnectionARN string `yaml:"connection_arn" json:"connection_arn"`
}

func (rr RepositoryRef) Validate() error {
	switch {
	case rr.Owner == "":
		return newValidationError("repository owner", "", "must not be empty")
	case rr.Repo == "":
		return newValidationError("repository name", "", "must not be empty")
	case rr.Branch == "":
		return newValidationError("repository branch", "", "must not be empty")
	case rr.ConnectionARN == "":
		return newValidationError("connection arn", "", "must not be empty")
	}
	return nil
}

func (rr RepositoryRef) FullName() string {
	return rr.Owner + "/" + rr.Repo
}

// Artifact is a named handle to a file tree passed between actions within a
// single pipeline execution.
type Artifact struct {
	Name string `json:"name"`
}

type ActionKind string

const (
	KindSource ActionKind = "source"
	KindBuild  ActionKind = "build"
)

type ActionSpec interface {
	ActionName() string
	Kind() ActionKind
	InputArtifacts() []Artifact
	OutputArtifacts() []Artifact
}

type SourceAction struct {
	Name       string        `json:"name"`
	Repository RepositoryRef `json:"repository"`
	Output     Artifact      `json:"output"`
}

func (a SourceAction) ActionName() string          { return a.Name }
func (a SourceAction) Kind() ActionKind            { return KindSource }
func (a SourceAction) InputArtifacts() []Artifact  { return nil }
func (a SourceAction) OutputArtifacts() []Artifact { return []Artifact{a.Output} }

type BuildAction struct {
	Name string `json:"name"`
	// Name of the build project executing BuildSpec.
	Project   string     `json:"project"`
	BuildSpec BuildSpec  `json:"build_spec"`
	Inputs    []Artifact `json:"inputs"`
	Outputs   []Artifact `json:"outputs"`
	// Actions in a stage sharing a run order execute concurrently.
	RunOrder int `json:"run_order"`
}

func (a BuildAction) ActionName() string          { return a.Name }
func (a BuildAction) Kind() ActionKind            { return KindBuild }
func (a BuildAction) InputArtifacts() []Artifact  { return a.Inputs }
func (a BuildAction) OutputArtifacts() []Artifact { return a.Outputs }

type StageSpec struct {
	Name    string       `json:"name"`
	Actions []ActionSpec `json:"actions"`
}

type PipelineSpec struct {
	Name        string      `json:"name"`
	Environment Environment `json:"environment"`
	Stages      []StageSpec `json:"stages"`
	Role        RoleSpec    `json:"role"`
}

// PipelineParams carries everything environment specific the pipeline
// topology is parameterised by.
type PipelineParams struct {
	App           string
	Environment   Environment
	Source        RepositoryRef
	BuildImage    string
	BucketStack   string
	PipelineStack string
	RoleName      string
	Policy        PolicyMode
	Buckets       []BucketSpec
}

// NewDeliveryPipeline assembles the fixed Source, Build, Deploy topology.
func NewDeliveryPipeline(p PipelineParams) (*PipelineSpec, error) {
	if p.App == "" {
		return nil, newValidationError("app name", "", "must not be empty")
	}
	if err := p.Environment.Validate(); err != nil {
		return nil, err
	}
	if err := p.Source.Validate(); err != nil {
		return nil, err
	}
	if p.BucketStack == "" || p.PipelineStack == "" {
		return nil, newValidationError("stack name", "", "must not be empty")
	}
	if p.BuildImage == "" {
		p.BuildImage = DefaultBuildImage
	}
	if p.RoleName == "" {
		p.RoleName = DefaultRoleName(p.App)
	}

	role, err := NewRoleSpec(p.Environment, p)
	if err != nil {
		return nil, err
	}
	roleARN := p.Environment.RoleARN(role.Name)
	envName := p.Environment.Name
	source := Artifact{Name: SourceArtifactName}

	ps := &PipelineSpec{
		Name:        p.App + "-Pipeline",
		Environment: p.Environment,
		Role:        role,
		Stages: []StageSpec{
			{
				Name: StageSource,
				Actions: []ActionSpec{
					SourceAction{
						Name:       ActionSource,
						Repository: p.Source,
						Output:     source,
					},
				},
			},
			{
				Name: StageBuild,
				Actions: []ActionSpec{
					BuildAction{
						Name:      ActionSynth,
						Project:   projectName(p.App, ActionSynth),
						BuildSpec: SynthBuildSpec(p.BuildImage, envName, p.BucketStack),
						Inputs:    []Artifact{source},
						Outputs:   []Artifact{{Name: p.App + "-SynthOutput"}},
						RunOrder:  1,
					},
					BuildAction{
						Name:      ActionDiff,
						Project:   projectName(p.App, ActionDiff),
						BuildSpec: DiffBuildSpec(p.BuildImage, envName, p.BucketStack, roleARN),
						Inputs:    []Artifact{source},
						Outputs:   []Artifact{{Name: p.App + "-DiffOutput"}},
						RunOrder:  1,
					},
				},
			},
			{
				Name: StageDeploy,
				Actions: []ActionSpec{
					BuildAction{
						Name:      ActionDeploy,
						Project:   projectName(p.App, ActionDeploy),
						BuildSpec: DeployBuildSpec(p.BuildImage, envName, p.BucketStack, roleARN),
						// source, not synth output: deploy synthesizes again
						Inputs:   []Artifact{source},
						Outputs:  []Artifact{{Name: p.App + "-DeployOutput"}},
						RunOrder: 1,
					},
				},
			},
		},
	}
	if err := ps.Validate(); err != nil {
		return nil, err
	}
	return ps, nil
}

func DefaultRoleName(app string) string {
	return app + "-codeBuildRole"
}

func projectName(app, action string) string {
	return fmt.Sprintf("%s-pipeline-%s", app, action)
}

func (ps *PipelineSpec) StageNames() []string {
	names := make([]string, len(ps.Stages))
	for i, s := range ps.Stages {
		names[i] = s.Name
	}
	return names
}

func (ps *PipelineSpec) Stage(name string) (StageSpec, bool) {
	for _, s := range ps.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageSpec{}, false
}

// Validate checks the stage order and that every consumed artifact is
// produced by an earlier stage.
func (ps *PipelineSpec) Validate() error {
	if !slices.Equal(ps.StageNames(), StageOrder) {
		return newValidationError("stage order", fmt.Sprint(ps.StageNames()), "must be [Source Build Deploy]")
	}
	if err := ps.Role.Validate(); err != nil {
		return err
	}
	produced := make(map[string]struct{})
	for i, stage := range ps.Stages {
		if len(stage.Actions) == 0 {
			return newValidationError("stage", stage.Name, "declares no actions")
		}
		if i == 0 {
			for _, a := range stage.Actions {
				if a.Kind() != KindSource {
					return newValidationError("action", a.ActionName(), "only source actions may run in the first stage")
				}
			}
		}
		names := make(map[string]struct{})
		stageOutputs := make([]Artifact, 0)
		for _, a := range stage.Actions {
			if _, ok := names[a.ActionName()]; ok {
				return newValidationError("action", a.ActionName(), "declared twice in stage "+stage.Name)
			}
			names[a.ActionName()] = struct{}{}
			for _, in := range a.InputArtifacts() {
				if _, ok := produced[in.Name]; !ok {
					return newValidationError("input artifact", in.Name, "not produced by an earlier stage")
				}
			}
			if ba, ok := a.(BuildAction); ok {
				if err := ba.BuildSpec.Validate(); err != nil {
					return err
				}
			}
			stageOutputs = append(stageOutputs, a.OutputArtifacts()...)
		}
		for _, out := range stageOutputs {
			if _, ok := produced[out.Name]; ok {
				return newValidationError("output artifact", out.Name, "produced more than once")
			}
			produced[out.Name] = struct{}{}
		}
	}
	return nil
}

// Resources returns the template fragment declaring the artifact store, the
// execution role, one build project per build action and the pipeline.
func (ps *PipelineSpec) Resources() (map[string]template.Resource, error) {
	resources := map[string]template.Resource{
		artifactBucketID: {
			Type:                bucketResourceType,
			DeletionPolicy:      template.PolicyRetain,
			UpdateReplacePolicy: template.PolicyRetain,
		},
		roleID: ps.Role.Resource(),
	}

	stages := make([]map[string]any, len(ps.Stages))
	for i, stage := range ps.Stages {
		actions := make([]map[string]any, len(stage.Actions))
		for j, a := range stage.Actions {
			switch action := a.(type) {
			case SourceAction:
				actions[j] = map[string]any{
					"Name": action.Name,
					"ActionTypeId": map[string]any{
						"Category": "Source",
						"Owner":    "AWS",
						"Provider": "CodeStarSourceConnection",
						"Version":  "1",
					},
					"Configuration": map[string]any{
						"ConnectionArn":    action.Repository.ConnectionARN,
						"FullRepositoryId": action.Repository.FullName(),
						"BranchName":       action.Repository.Branch,
					},
					"OutputArtifacts": artifactList(action.OutputArtifacts()),
					"RunOrder":        1,
				}
			case BuildAction:
				projectID := action.Name + "Project"
				body, err := action.BuildSpec.Render()
				if err != nil {
					return nil, err
				}
				resources[projectID] = template.Resource{
					Type: "AWS::CodeBuild::Project",
					Properties: map[string]any{
						"Name":        action.Project,
						"ServiceRole": template.GetAtt(roleID, "Arn"),
						"Source": map[string]any{
							"Type":      "CODEPIPELINE",
							"BuildSpec": body,
						},
						"Artifacts": map[string]any{"Type": "CODEPIPELINE"},
						"Environment": map[string]any{
							"ComputeType": "BUILD_GENERAL1_SMALL",
							"Image":       action.BuildSpec.Image,
							"Type":        "LINUX_CONTAINER",
						},
					},
				}
				actions[j] = map[string]any{
					"Name": action.Name,
					"ActionTypeId": map[string]any{
						"Category": "Build",
						"Owner":    "AWS",
						"Provider": "CodeBuild",
						"Version":  "1",
					},
					"Configuration":   map[string]any{"ProjectName": template.Ref(projectID)},
					"InputArtifacts":  artifactList(action.InputArtifacts()),
					"OutputArtifacts": artifactList(action.OutputArtifacts()),
					"RunOrder":        action.RunOrder,
				}
			default:
				return nil, fmt.Errorf("unsupported action type %T", a)
			}
		}
		stages[i] = map[string]any{"Name": stage.Name, "Actions": actions}
	}

	resources[pipelineID] = template.Resource{
		Type: "AWS::CodePipeline::Pipeline",
		Properties: map[string]any{
			"Name":    ps.Name,
			"RoleArn": template.GetAtt(roleID, "Arn"),
			"ArtifactStore": map[string]any{
				"Type":     "S3",
				"Location": template.Ref(artifactBucketID),
			},
			"Stages": stages,
		},
		DependsOn: []string{roleID},
	}
	return resources, nil
}

func artifactList(artifacts []Artifact) []map[string]string {
	out := make([]map[string]string, len(artifacts))
	for i, a := range artifacts {
		out[i] = map[string]string{"Name": a.Name}
	}
	return out
}
