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
package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/usersdb/database"
)

func setupEnv(t *testing.T, url string) []string {
	t.Helper()
	t.Setenv(database.EnvConfigFile, "")
	require.NoError(t, os.Unsetenv(database.EnvConfigFile))
	t.Setenv(database.EnvDatabaseURL, url)
	if url == "" {
		require.NoError(t, os.Unsetenv(database.EnvDatabaseURL))
	}
	return []string{"-env-file", filepath.Join(t.TempDir(), "none.env")}
}

func memoryURL(t *testing.T) string {
	return "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
}

func TestRunFailsWithoutURL(t *testing.T) {
	args := setupEnv(t, "")

	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	assert.ErrorIs(t, err, database.ErrMissingConfig)
	assert.Contains(t, err.Error(), "DATABASE_URL is not defined")
	assert.Empty(t, out.String())
}

func TestRunPrintDDL(t *testing.T) {
	args := setupEnv(t, memoryURL(t))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), append(args, "-print-ddl"), &out))
	assert.Contains(t, out.String(), `CREATE TABLE IF NOT EXISTS "users"`)
	assert.Contains(t, out.String(), `CHECK (length("id") <= 3)`)
}

func TestRunInspect(t *testing.T) {
	args := setupEnv(t, memoryURL(t))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), append(args, "-create-schema", "-inspect"), &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "id "))
	assert.Contains(t, lines[0], "pk=true")
	assert.Contains(t, lines[3], "role")
}

func TestRunInspectMissingTable(t *testing.T) {
	args := setupEnv(t, memoryURL(t))

	err := run(context.Background(), append(args, "-inspect"), &bytes.Buffer{})
	assert.ErrorContains(t, err, "table does not exist")
}

func TestRunHealth(t *testing.T) {
	args := setupEnv(t, memoryURL(t))
	assert.NoError(t, run(context.Background(), args, &bytes.Buffer{}))
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	args := setupEnv(t, memoryURL(t))
	assert.Error(t, run(context.Background(), append(args, "-nope"), &bytes.Buffer{}))
}
