// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package main

import (
	"bytes"
	"log"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// config holds the demo binary's persistent settings. The compositor
// package itself is stateless across runs; everything here only affects
// how this particular frontend starts up.
type config struct {
	Verbose     bool
	ClearColorR float64
	ClearColorG float64
	ClearColorB float64
}

const configFile = "config.toml"

func initializeConfigIfNot() {
	log.Println("checking if config needs to be initialized")

	conf := config{
		Verbose:     false,
		ClearColorR: 0,
		ClearColorG: 0,
		ClearColorB: 0,
	}

	dir := configDir()
	ok, err := exists(dir)
	if err != nil {
		log.Fatalf("couldn't check if config directory exists: %v", err)
	}
	if !ok {
		if err := os.MkdirAll(dir, 0700); err != nil {
			log.Fatalf("couldn't create config directory: %v", err)
		}
	}

	f := filepath.Join(dir, configFile)
	ok, err = exists(f)
	if err != nil {
		log.Fatalf("couldn't check if config file exists: %v", err)
	}
	if !ok {
		log.Println("initializing config")
		writeConfig(&conf)
	}
}

func readConfig() *config {
	f := filepath.Join(configDir(), configFile)
	conf := config{}
	if _, err := toml.DecodeFile(f, &conf); err != nil {
		log.Fatalf("couldn't read config file: %v", err)
	}
	return &conf
}

func writeConfig(conf *config) {
	f := filepath.Join(configDir(), configFile)
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(conf); err != nil {
		log.Fatalf("couldn't write config file: %v", err)
	}
	os.WriteFile(f, buf.Bytes(), 0644)
}

func configDir() string {
	return filepath.Join(xdgOrFallback("XDG_CONFIG_HOME", filepath.Join(os.Getenv("HOME"), ".config")), "xcompositor-demo")
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func xdgOrFallback(xdg, fallback string) string {
	dir := os.Getenv(xdg)
	if dir != "" {
		if ok, err := exists(dir); ok && err == nil {
			return dir
		}
	}
	return fallback
}
