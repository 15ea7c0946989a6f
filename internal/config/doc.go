// Package config handles configuration loading and merging for gradefetch.
//
// # Configuration Precedence
//
// Configuration values are resolved in the following order (highest to lowest priority):
//
//  1. CLI flags (-concurrency, -out, -summary, -debug)
//  2. Environment variables (GITHUB_TOKEN, GRADEFETCH_*), including a .env file
//     in the working directory; variables already set in the process win over .env
//  3. YAML config file (.gradefetch.yaml in the working directory or
//     $XDG_CONFIG_HOME/gradefetch/config.yaml)
//  4. Hardcoded defaults
//
// When a higher-priority source sets a value, it overrides any lower-priority values.
//
// # Environment Variables
//
//   - GITHUB_TOKEN: personal access token (required)
//   - GRADEFETCH_API_URL: REST endpoint, for GitHub Enterprise
//   - GRADEFETCH_CONCURRENCY: students fetched in parallel (1-64)
//   - GRADEFETCH_RATE_LIMIT: upstream requests per second
//   - GRADEFETCH_OUTPUT_DIR: directory for CSV exports
//   - GRADEFETCH_WORKFLOW_PATH: workflow file in the starter repository
//   - GRADEFETCH_DEBUG: set to any true value to enable debug logging
package config
