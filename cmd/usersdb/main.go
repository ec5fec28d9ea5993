/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command usersdb connects to DATABASE_URL, optionally creates the users
// table, and reports the connection health.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tomoncle/usersdb/database"
	"github.com/tomoncle/usersdb/models"
	"github.com/tomoncle/usersdb/utils"
)

var log = utils.NewLogger("USERSDB")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		log.Fatalf("usersdb: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("usersdb", flag.ContinueOnError)
	var (
		envFile      = fs.String("env-file", ".env", "dotenv file loaded before reading the environment")
		configFile   = fs.String("config", "", "optional YAML file with pool and timeout settings")
		createSchema = fs.Bool("create-schema", false, "create the users table if it does not exist")
		printDDL     = fs.Bool("print-ddl", false, "print the CREATE TABLE statements and exit")
		inspect      = fs.Bool("inspect", false, "print the live columns of the users table")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	loadOpts := []database.LoadOption{database.WithEnvFiles(*envFile)}
	if *configFile != "" {
		loadOpts = append(loadOpts, database.WithConfigFile(*configFile))
	}
	cfg, err := database.LoadConfig(loadOpts...)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	utils.ConfigureLogLevel(cfg.LogLevel)
	if *createSchema {
		cfg.SchemaConfig.CreateOnStartup = true
	}

	client, err := database.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	defer func() { _ = client.Close() }()

	if *printDDL {
		ddl, err := client.SchemaDDL()
		if err != nil {
			return fmt.Errorf("render ddl: %w", err)
		}
		_, err = fmt.Fprintln(stdout, strings.Join(ddl, ";\n")+";")
		return err
	}

	if *inspect {
		ts, err := database.InspectTable(ctx, client.DB(), models.UsersTable)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", models.UsersTable, err)
		}
		if len(ts.Columns) == 0 {
			return fmt.Errorf("inspect %s: table does not exist", models.UsersTable)
		}
		for _, c := range ts.Columns {
			fmt.Fprintf(stdout, "%-10s %-16s notnull=%t pk=%t\n", c.Name, c.SQLType, c.NotNull, c.PrimaryKey)
		}
		return nil
	}

	health := client.Health(ctx)
	log.WithField("response_time", health.ResponseTime).
		WithField("open_conns", client.Stats().OpenConns).
		Infof("database %s healthy=%t", client.DataSource().Redacted(), health.Healthy)
	if !health.Healthy {
		return fmt.Errorf("database unhealthy: %s", health.LastError)
	}
	return nil
}
