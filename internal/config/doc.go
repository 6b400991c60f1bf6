// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Chaos probabilities are pointers so an explicit 0 disables an effect while an
// omitted key takes the default.
package config
