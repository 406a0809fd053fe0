package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Suite is a list of expressions with the exit status their compiled
// program must return.
type Suite struct {
	Name  string   `yaml:"name"`
	Args  []string `yaml:"args,omitempty"`
	Cases []Case   `yaml:"cases"`
}

type Case struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
	// Want is the value of the expression. The harness compares it modulo
	// 256, as that is all an exit status can carry.
	Want *int64 `yaml:"want,omitempty"`
	// Error marks an expression the compiler must reject.
	Error bool `yaml:"error,omitempty"`
}

// ExitStatus is the status a program returning c.Want exits with.
func (c Case) ExitStatus() int {
	return int(uint8(*c.Want))
}

func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite file: %w", err)
	}
	return ParseSuite(data)
}

func ParseSuite(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse suite YAML: %w", err)
	}
	if len(s.Cases) == 0 {
		return nil, fmt.Errorf("suite has no cases")
	}
	seen := make(map[string]bool, len(s.Cases))
	for i := range s.Cases {
		c := &s.Cases[i]
		if c.Name == "" {
			c.Name = c.Expr
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate case name %q", c.Name)
		}
		seen[c.Name] = true
		if c.Error && c.Want != nil {
			return nil, fmt.Errorf("case %q: 'want' and 'error' are mutually exclusive", c.Name)
		}
		if !c.Error && c.Want == nil {
			return nil, fmt.Errorf("case %q: needs either 'want' or 'error: true'", c.Name)
		}
	}
	return &s, nil
}
