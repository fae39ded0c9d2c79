package internal

const (
	DotEnvPath        = "./.env"
	DefaultConfigPath = "environments.yml"
	DefaultOutDir     = "stack.out"
	MigrationsDir     = "migrations"
	ManifestFile      = "manifest.json"
	TemplateSuffix    = ".template.json"
)
