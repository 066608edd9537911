/*
Copyright 2024.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"speechrelay.dev/cmd/gateway"
	"speechrelay.dev/config"
	"speechrelay.dev/pkg/bootkit"
)

func main() {
	var configPath string
	var listenerAddr string
	var envFile string

	flag.StringVar(&configPath, "config", "", "Path to the configuration file, environment only when empty")
	flag.StringVar(&listenerAddr, "listen", "", "The address the speech listener binds to, overrides listener.address.")
	flag.StringVar(&envFile, "env-file", ".env", "Path to a dotenv file loaded into the environment when present")
	flag.Parse()

	err := config.LoadDotEnv(envFile)
	if err != nil {
		slog.Error("Failed to load env file", "error", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if listenerAddr != "" {
		cfg.Listener.Address = listenerAddr
	}

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	if cfg.Speech.Endpoint == "" {
		slog.Warn("No speech endpoint configured, every synthesis will fail")
	}

	app := bootkit.New(
		bootkit.StartTimeout(time.Second*10), //nolint:mnd
		bootkit.StopTimeout(time.Second*30),  //nolint:mnd
	)

	app.Add(func(ctx context.Context, lifeCycle bootkit.LifeCycle) error {
		return gateway.StartGateway(ctx, lifeCycle, cfg)
	})

	err = app.Start()
	if err != nil {
		slog.Error("Gateway exited", "error", err)
		os.Exit(1)
	}
}
