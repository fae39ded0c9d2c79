package handler

import (
	"github.com/haatos/mybucketapp/internal/stack"
	"github.com/haatos/mybucketapp/internal/template"
)

var testEnvironment = stack.Environment{
	Name:    "sandbox",
	Account: "111111111111",
	Region:  "eu-west-1",
}

func generateDescriptorSet() *stack.DescriptorSet {
	return &stack.DescriptorSet{
		App: stack.App{
			Name:          "mybucketapp",
			BucketStack:   stack.DefaultBucketStack,
			PipelineStack: stack.DefaultPipelineStack,
		},
		Environment: testEnvironment,
	}
}

func generateTemplate() *template.Template {
	t := template.New("buckets")
	_ = t.Add("BucketA", stack.BucketSpec{Name: "a"}.Resource())
	return t
}
