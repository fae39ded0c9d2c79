package stack

import (
	"fmt"

	"github.com/haatos/mybucketapp/internal/template"
)

const (
	DefaultBucketStack   = "MybucketappStack"
	DefaultPipelineStack = "PipelineStack"
)

// App holds the values shared by every environment.
type App struct {
	Name          string        `yaml:"name" json:"name"`
	BucketStack   string        `yaml:"bucket_stack" json:"bucket_stack"`
	PipelineStack string        `yaml:"pipeline_stack" json:"pipeline_stack"`
	BuildImage    string        `yaml:"build_image" json:"build_image"`
	Policy        PolicyMode    `yaml:"policy" json:"policy"`
	Source        RepositoryRef `yaml:"source" json:"source"`
}

func (a App) withDefaults() App {
	if a.BucketStack == "" {
		a.BucketStack = DefaultBucketStack
	}
	if a.PipelineStack == "" {
		a.PipelineStack = DefaultPipelineStack
	}
	if a.BuildImage == "" {
		a.BuildImage = DefaultBuildImage
	}
	if a.Policy == "" {
		a.Policy = PolicyBroad
	}
	return a
}

// EnvironmentConfig is one deployment target and the buckets declared in it.
type EnvironmentConfig struct {
	Environment `yaml:",inline"`
	// Overrides the app wide source repository when set.
	Source   *RepositoryRef `yaml:"source,omitempty" json:"source,omitempty"`
	RoleName string         `yaml:"role_name,omitempty" json:"role_name,omitempty"`
	Buckets  []BucketSpec   `yaml:"buckets" json:"buckets"`
	// Cron expression for scheduled drift checks; empty disables them.
	DriftSchedule string `yaml:"drift_schedule,omitempty" json:"drift_schedule,omitempty"`
}

func (ec EnvironmentConfig) roleName(app App) string {
	if ec.RoleName != "" {
		return ec.RoleName
	}
	return DefaultRoleName(app.Name)
}

// DescriptorSet is both descriptors instantiated for exactly one environment.
type DescriptorSet struct {
	App         App
	Environment Environment
	Buckets     []BucketSpec
	Pipeline    *PipelineSpec
}

// NewDescriptorSet builds the bucket and pipeline descriptors for env. Either
// both are valid and returned or an error is returned and nothing is built.
func NewDescriptorSet(app App, env EnvironmentConfig) (*DescriptorSet, error) {
	app = app.withDefaults()
	if err := env.Environment.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateBuckets(env.Buckets); err != nil {
		return nil, err
	}
	source := app.Source
	if env.Source != nil {
		source = *env.Source
	}
	pipeline, err := NewDeliveryPipeline(PipelineParams{
		App:           app.Name,
		Environment:   env.Environment,
		Source:        source,
		BuildImage:    app.BuildImage,
		BucketStack:   app.BucketStack,
		PipelineStack: app.PipelineStack,
		RoleName:      env.roleName(app),
		Policy:        app.Policy,
		Buckets:       env.Buckets,
	})
	if err != nil {
		return nil, err
	}
	return &DescriptorSet{
		App:         app,
		Environment: env.Environment,
		Buckets:     append([]BucketSpec{}, env.Buckets...),
		Pipeline:    pipeline,
	}, nil
}

// StackNames lists the stacks in deployment order.
func (ds *DescriptorSet) StackNames() []string {
	return []string{ds.App.BucketStack, ds.App.PipelineStack}
}

// Synthesize compiles the descriptors into one template per stack.
func (ds *DescriptorSet) Synthesize() (map[string]*template.Template, error) {
	buckets, err := BucketResources(ds.Environment, ds.Buckets)
	if err != nil {
		return nil, err
	}
	bucketTemplate := template.New(fmt.Sprintf("%s buckets for %s", ds.App.Name, ds.Environment))
	for id, r := range buckets {
		if err := bucketTemplate.Add(id, r); err != nil {
			return nil, err
		}
	}

	pipelineResources, err := ds.Pipeline.Resources()
	if err != nil {
		return nil, err
	}
	pipelineTemplate := template.New(fmt.Sprintf("%s delivery pipeline for %s", ds.App.Name, ds.Environment))
	for id, r := range pipelineResources {
		if err := pipelineTemplate.Add(id, r); err != nil {
			return nil, err
		}
	}
	pipelineTemplate.AddOutput("PipelineName", template.Output{
		Description: "delivery pipeline name",
		Value:       template.Ref(pipelineID),
	})
	pipelineTemplate.AddOutput("RoleArn", template.Output{
		Description: "execution role shared by build and deploy",
		Value:       template.GetAtt(roleID, "Arn"),
	})

	return map[string]*template.Template{
		ds.App.BucketStack:   bucketTemplate,
		ds.App.PipelineStack: pipelineTemplate,
	}, nil
}

// ValidateEnvironments checks identifiers that must not collide between
// deployments of the same descriptor set: environment names, bucket names
// (global across the provider) and role names (global within an account).
func ValidateEnvironments(app App, envs []EnvironmentConfig) error {
	names := make(map[string]struct{})
	buckets := make(map[string]string)
	roles := make(map[string]string)
	for _, env := range envs {
		if err := env.Environment.Validate(); err != nil {
			return err
		}
		if _, ok := names[env.Name]; ok {
			return newValidationError("environment name", env.Name, "declared more than once")
		}
		names[env.Name] = struct{}{}

		if err := ValidateBuckets(env.Buckets); err != nil {
			return err
		}
		for _, b := range env.Buckets {
			if other, ok := buckets[b.Name]; ok {
				return newValidationError("bucket name", b.Name, "already declared by environment "+other)
			}
			buckets[b.Name] = env.Name
		}

		roleKey := env.Account + "/" + env.roleName(app)
		if other, ok := roles[roleKey]; ok {
			return newValidationError(
				"role name", env.roleName(app),
				fmt.Sprintf("collides with environment %s in account %s", other, env.Account),
			)
		}
		roles[roleKey] = env.Name
	}
	return nil
}
