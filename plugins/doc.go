// Package plugins hosts plugin implementation subpackages. Plugins depend on
// internal/core for the rule and registry surface and never import
// gardencore/pkg/domain directly.
package plugins
