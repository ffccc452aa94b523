package config

import (
	"fmt"
	"io/ioutil"

	"github.com/hashicorp/hcl"
)

// Load reads configuration variables from an HCL file.
func Load(filename string) error {
	b, err := ioutil.ReadFile(filename)
	if err != nil {
		return err
	}
	return load(b)
}

func load(b []byte) error {
	var cfg map[string]interface{}

	err := hcl.Decode(&cfg, string(b))
	if err != nil {
		return err
	}
	for name, val := range cfg {
		err = Set(name, fmt.Sprintf("%v", val))
		if err != nil {
			return err
		}
	}
	return nil
}
