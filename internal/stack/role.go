package stack

import (
	"fmt"
	"strings"

	"github.com/haatos/mybucketapp/internal/template"
)

const (
	roleResourceType = "AWS::IAM::Role"
	EffectAllow      = "Allow"

	CodeBuildPrincipal    = "codebuild.amazonaws.com"
	CodePipelinePrincipal = "codepipeline.amazonaws.com"
)

type PolicyMode string

const (
	// PolicyBroad grants wildcard resource access to the action categories the
	// pipeline uses.
	PolicyBroad PolicyMode = "broad"
	// PolicyScoped enumerates resources per operation instead.
	PolicyScoped PolicyMode = "scoped"
)

func (pm PolicyMode) valid() bool {
	return pm == "" || pm == PolicyBroad || pm == PolicyScoped
}

type PolicyStatement struct {
	Effect    string   `json:"effect"`
	Actions   []string `json:"actions"`
	Resources []string `json:"resources"`
}

// RoleSpec is the execution role shared by every build project and the
// pipeline itself.
type RoleSpec struct {
	Name              string            `json:"name"`
	TrustedPrincipals []string          `json:"trusted_principals"`
	Statements        []PolicyStatement `json:"statements"`
}

func (rs RoleSpec) Validate() error {
	if rs.Name == "" {
		return newValidationError("role name", "", "must not be empty")
	}
	if len(rs.Name) > 64 {
		return newValidationError("role name", rs.Name, "must be at most 64 characters")
	}
	if len(rs.TrustedPrincipals) == 0 {
		return newValidationError("role principals", rs.Name, "at least one principal is required")
	}
	for _, s := range rs.Statements {
		if len(s.Actions) == 0 || len(s.Resources) == 0 {
			return newValidationError("policy statement", rs.Name, "needs actions and resources")
		}
	}
	return nil
}

func (rs RoleSpec) Resource() template.Resource {
	statements := make([]map[string]any, len(rs.Statements))
	for i, s := range rs.Statements {
		resources := make([]any, len(s.Resources))
		for j, r := range s.Resources {
			if strings.Contains(r, "${") {
				resources[j] = template.Sub(r)
			} else {
				resources[j] = r
			}
		}
		statements[i] = map[string]any{
			"Effect":   s.Effect,
			"Action":   s.Actions,
			"Resource": resources,
		}
	}
	return template.Resource{
		Type: roleResourceType,
		Properties: map[string]any{
			"RoleName": rs.Name,
			"AssumeRolePolicyDocument": map[string]any{
				"Version": "2012-10-17",
				"Statement": []map[string]any{{
					"Effect":    EffectAllow,
					"Principal": map[string]any{"Service": rs.TrustedPrincipals},
					"Action":    "sts:AssumeRole",
				}},
			},
			"Policies": []map[string]any{{
				"PolicyName": rs.Name + "-policy",
				"PolicyDocument": map[string]any{
					"Version":   "2012-10-17",
					"Statement": statements,
				},
			}},
		},
	}
}

func broadStatements() []PolicyStatement {
	return []PolicyStatement{{
		Effect:    EffectAllow,
		Resources: []string{"*"},
		Actions: []string{
			"cloudformation:*",
			"sts:AssumeRole",
			"s3:*",
		},
	}}
}

func scopedStatements(env Environment, p PipelineParams) []PolicyStatement {
	buckets := make([]string, 0, 2*len(p.Buckets)+2)
	for _, b := range p.Buckets {
		buckets = append(buckets,
			fmt.Sprintf("arn:aws:s3:::%s", b.Name),
			fmt.Sprintf("arn:aws:s3:::%s/*", b.Name),
		)
	}
	buckets = append(buckets,
		fmt.Sprintf("${%s.Arn}", artifactBucketID),
		fmt.Sprintf("${%s.Arn}/*", artifactBucketID),
	)
	return []PolicyStatement{
		{
			Effect:  EffectAllow,
			Actions: []string{"cloudformation:*"},
			Resources: []string{
				env.StackARNPattern(p.BucketStack),
				env.StackARNPattern(p.PipelineStack),
			},
		},
		{
			Effect:    EffectAllow,
			Actions:   []string{"s3:*"},
			Resources: buckets,
		},
		{
			Effect:    EffectAllow,
			Actions:   []string{"sts:AssumeRole"},
			Resources: []string{env.RoleARN(p.RoleName)},
		},
		{
			Effect:    EffectAllow,
			Actions:   []string{"sts:GetCallerIdentity"},
			Resources: []string{"*"},
		},
	}
}

// serviceStatements are the grants the build runner and the delivery service
// need regardless of policy mode: build logs, starting builds and using the
// source connection.
func serviceStatements(env Environment, p PipelineParams) []PolicyStatement {
	return []PolicyStatement{
		{
			Effect: EffectAllow,
			Actions: []string{
				"logs:CreateLogGroup",
				"logs:CreateLogStream",
				"logs:PutLogEvents",
			},
			Resources: []string{fmt.Sprintf(
				"arn:aws:logs:%s:%s:log-group:/aws/codebuild/%s-*",
				env.Region, env.Account, p.App,
			)},
		},
		{
			Effect:  EffectAllow,
			Actions: []string{"codebuild:StartBuild", "codebuild:BatchGetBuilds"},
			Resources: []string{fmt.Sprintf(
				"arn:aws:codebuild:%s:%s:project/%s-*",
				env.Region, env.Account, p.App,
			)},
		},
		{
			Effect:    EffectAllow,
			Actions:   []string{"codestar-connections:UseConnection"},
			Resources: []string{p.Source.ConnectionARN},
		},
	}
}

// NewRoleSpec declares the execution role for env in the given policy mode.
func NewRoleSpec(env Environment, p PipelineParams) (RoleSpec, error) {
	if !p.Policy.valid() {
		return RoleSpec{}, newValidationError("policy mode", string(p.Policy), "must be broad or scoped")
	}
	var statements []PolicyStatement
	if p.Policy == PolicyScoped {
		statements = scopedStatements(env, p)
	} else {
		statements = broadStatements()
	}
	statements = append(statements, serviceStatements(env, p)...)
	rs := RoleSpec{
		Name:              p.RoleName,
		TrustedPrincipals: []string{CodeBuildPrincipal, CodePipelinePrincipal},
		Statements:        statements,
	}
	return rs, rs.Validate()
}
