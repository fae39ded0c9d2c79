package handler

type EnvironmentParams struct {
	Environment string `param:"env"`
}

type TemplateParams struct {
	Environment string `param:"env"`
	Stack       string `param:"stack"`
	Format      string `query:"format"`
}

type SynthParams struct {
	Environment string `param:"env"`
	SynthID     int64  `param:"id"`
}

type StacksParams struct {
	Environment string   `param:"env"`
	Stacks      []string `json:"stacks"`
}

type DiffParams struct {
	Environment string   `param:"env"`
	Stacks      []string `query:"stack"`
	Local       bool     `query:"local"`
}

type ListDeploymentsParams struct {
	Environment string `param:"env"`
	Limit       int64  `query:"limit"`
}
