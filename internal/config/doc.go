// Package config loads soundbot settings from the environment, bootstrapping
// a .env file in the user config directory interactively on first run.
package config
