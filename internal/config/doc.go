// Package config loads and validates signlang settings.
//
// Values start from Default, are overlaid by an optional TOML file, then by
// variables from a .env file and finally by the process environment. The
// process environment always wins over .env.
package config
