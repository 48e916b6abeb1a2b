package menv

type Env struct {
	Name      string            `yaml:"name"`
	URLPrefix string            `yaml:"url_prefix"`
	Variables map[string]string `yaml:"variables"`
}
