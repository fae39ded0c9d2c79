package stack

import (
	"fmt"
	"regexp"
)

var (
	accountPattern = regexp.MustCompile(`^[0-9]{12}$`)
	regionPattern  = regexp.MustCompile(`^[a-z]{2}(-gov)?-[a-z]+-[0-9]$`)
)

// Environment is the single (account, region) pair a descriptor set is
// instantiated for.
type Environment struct {
	Name    string `yaml:"name" json:"name"`
	Account string `yaml:"account" json:"account"`
	Region  string `yaml:"region" json:"region"`
}

func (e Environment) Validate() error {
	if e.Name == "" {
		return newValidationError("environment name", "", "must not be empty")
	}
	if !accountPattern.MatchString(e.Account) {
		return newValidationError("account", e.Account, "must be a 12 digit account id")
	}
	if !regionPattern.MatchString(e.Region) {
		return newValidationError("region", e.Region, "must look like eu-west-1")
	}
	return nil
}

func (e Environment) String() string {
	return fmt.Sprintf("%s (%s/%s)", e.Name, e.Account, e.Region)
}

// RoleARN returns the ARN of a named IAM role in the environment's account.
func (e Environment) RoleARN(roleName string) string {
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", e.Account, roleName)
}

// StackARNPattern matches every revision of the named stack in the
// environment.
func (e Environment) StackARNPattern(stackName string) string {
	return fmt.Sprintf("arn:aws:cloudformation:%s:%s:stack/%s/*", e.Region, e.Account, stackName)
}
